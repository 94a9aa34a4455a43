package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/ies/core/evaluation"
)

type formRepository struct {
	db *formTable
}

func NewFormRepository(db *DB) evaluation.FormRepository {
	return &formRepository{db: db.form}
}

func (repo *formRepository) CreateForm(_ context.Context, form evaluation.Form) (evaluation.Form, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	form.ID = newID()
	repo.db.table[form.ID] = copyForm(form)
	return form, nil
}

func (repo *formRepository) QueryForms(_ context.Context, filter evaluation.FormFilter) ([]evaluation.Form, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	forms := make([]evaluation.Form, 0, len(repo.db.table))
	for _, f := range repo.db.table {
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		if filter.TargetAudience != "" && f.TargetAudience != filter.TargetAudience {
			continue
		}
		forms = append(forms, *copyForm(*f))
	}
	sort.SliceStable(forms, func(i, j int) bool { return compareTimes(forms[i].CreatedAt, forms[j].CreatedAt) > 0 })
	return forms, nil
}

func (repo *formRepository) GetForm(_ context.Context, id string) (evaluation.Form, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if f, ok := repo.db.table[id]; ok {
		return *copyForm(*f), nil
	}
	return evaluation.Form{}, evaluation.ErrFormNotFound
}

func (repo *formRepository) GetFormsByID(_ context.Context, ids ...string) ([]evaluation.Form, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	forms := make([]evaluation.Form, 0, len(ids))
	for _, id := range ids {
		if f, ok := repo.db.table[id]; ok {
			forms = append(forms, *copyForm(*f))
		}
	}
	return forms, nil
}

func (repo *formRepository) UpdateForm(_ context.Context, form evaluation.Form) (evaluation.Form, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[form.ID]; !ok {
		return evaluation.Form{}, evaluation.ErrFormNotFound
	}
	form.Creator = nil
	repo.db.table[form.ID] = copyForm(form)
	return form, nil
}

func (repo *formRepository) DeleteForm(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return evaluation.ErrFormNotFound
	}
	delete(repo.db.table, id)
	return nil
}

// copyForm detaches the questions of the stored form from the caller's.
func copyForm(form evaluation.Form) *evaluation.Form {
	qs := make([]evaluation.Question, len(form.Questions))
	for i, q := range form.Questions {
		q.Options = append([]string(nil), q.Options...)
		qs[i] = q
	}
	form.Questions = qs
	return &form
}

type responseRepository struct {
	db *responseTable
}

func NewResponseRepository(db *DB) evaluation.ResponseRepository {
	return &responseRepository{db: db.response}
}

func (repo *responseRepository) exists(formID, studentID, questionID string) bool {
	for _, r := range repo.db.table {
		if r.FormID == formID && r.StudentID == studentID && r.QuestionID == questionID {
			return true
		}
	}
	return false
}

func (repo *responseRepository) CreateResponses(_ context.Context, responses ...evaluation.Response) ([]evaluation.Response, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, r := range responses {
		if repo.exists(r.FormID, r.StudentID, r.QuestionID) {
			return nil, evaluation.ErrDuplicateSubmission
		}
	}
	created := make([]evaluation.Response, 0, len(responses))
	for _, r := range responses {
		r.ID = newID()
		stored := r
		repo.db.table[r.ID] = &stored
		created = append(created, r)
	}
	return created, nil
}

func (repo *responseRepository) ResponseExists(_ context.Context, formID, studentID, questionID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.exists(formID, studentID, questionID), nil
}

func (repo *responseRepository) QueryResponses(_ context.Context, filter evaluation.ResponseFilter) ([]evaluation.Response, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	responses := make([]evaluation.Response, 0, len(repo.db.table))
	for _, r := range repo.db.table {
		if matchResponse(r, filter) {
			responses = append(responses, *r)
		}
	}
	// newest first, insertion order among equal creation times
	sort.SliceStable(responses, func(i, j int) bool {
		if c := compareTimes(responses[i].CreatedAt, responses[j].CreatedAt); c != 0 {
			return c > 0
		}
		return responses[i].ID < responses[j].ID
	})
	return responses, nil
}

func matchResponse(r *evaluation.Response, filter evaluation.ResponseFilter) bool {
	switch {
	case filter.FormID != "" && r.FormID != filter.FormID,
		filter.InstructorID != "" && r.InstructorID != filter.InstructorID,
		filter.StudentID != "" && r.StudentID != filter.StudentID,
		!filter.CreatedFrom.IsZero() && r.CreatedAt.Before(filter.CreatedFrom),
		!filter.CreatedTo.IsZero() && !r.CreatedAt.Before(filter.CreatedTo):
		return false
	}
	return true
}

func (repo *responseRepository) GetResponse(_ context.Context, id string) (evaluation.Response, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.table[id]; ok {
		return *r, nil
	}
	return evaluation.Response{}, evaluation.ErrResponseNotFound
}

func (repo *responseRepository) DeleteResponsesByForm(_ context.Context, formID string) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int64
	for id, r := range repo.db.table {
		if r.FormID == formID {
			delete(repo.db.table, id)
			n++
		}
	}
	return n, nil
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
