package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/ies/core/evaluation"
	"github.com/trezcool/ies/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

// CreateForm stores an active form with the given questions. Questions without an id get "q<index+1>".
func CreateForm(
	t *testing.T,
	repo evaluation.FormRepository,
	title string,
	creator user.User,
	questions []evaluation.Question,
	createdAt ...time.Time,
) evaluation.Form {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	qs := make([]evaluation.Question, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			q.ID = "q" + string(rune('1'+i))
		}
		if q.Type == "" {
			q.Type = evaluation.QuestionRating
		}
		qs[i] = q
	}
	start := time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)
	form, err := repo.CreateForm(context.Background(), evaluation.Form{
		Title:          title,
		Description:    title + " description",
		TargetAudience: evaluation.AudienceStudent,
		Type:           evaluation.FormMidterm,
		Status:         evaluation.StatusActive,
		Period:         evaluation.Period{StartDate: start, EndDate: start.Add(14 * 24 * time.Hour)},
		Questions:      qs,
		CreatedBy:      creator.ID,
		CreatedAt:      tstamp,
		UpdatedAt:      tstamp,
	})
	if err != nil {
		t.Fatalf("CreateForm(): %v", err)
	}
	return form
}

// IntPtr & StrPtr build optional response values.
func IntPtr(i int) *int       { return &i }
func StrPtr(s string) *string { return &s }
