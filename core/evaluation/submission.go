package evaluation

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/ies/core"
	"github.com/trezcool/ies/core/user"
)

// NewResponse is a student's answer to one question of a form.
// StudentID is set from the authenticated user. Period is ignored: responses take the form's period.
type NewResponse struct {
	InstructorID string  `json:"instructorId"`
	StudentID    string  `json:"-"`
	QuestionID   string  `json:"questionId"`
	Rating       *int    `json:"rating,omitempty"`
	Answer       *string `json:"answer,omitempty"`
	Period       *Period `json:"evaluationPeriod,omitempty"`
}

// Submit records a single response to the form.
func (svc *Service) Submit(ctx context.Context, formID string, nr NewResponse) (Response, error) {
	responses, err := svc.SubmitAll(ctx, formID, nr)
	if err != nil {
		return Response{}, err
	}
	return responses[0], nil
}

// SubmitAll records responses to the form. Every response is checked before any is stored.
// A response to a question the student already answered fails with ErrDuplicateSubmission.
func (svc *Service) SubmitAll(ctx context.Context, formID string, nrs ...NewResponse) ([]Response, error) {
	if len(nrs) == 0 {
		return nil, core.NewFieldValidationError("responses", "this field is required")
	}
	fieldName := func(i int, name string) string {
		if len(nrs) == 1 {
			return name
		}
		return fmt.Sprintf("responses[%d].%s", i, name)
	}

	var missing []core.FieldError
	for i := range nrs {
		nr := &nrs[i]
		nr.InstructorID = strings.TrimSpace(nr.InstructorID)
		nr.QuestionID = strings.TrimSpace(nr.QuestionID)
		if nr.Answer != nil {
			if answer := core.CleanString(*nr.Answer); answer != "" {
				nr.Answer = &answer
			} else {
				nr.Answer = nil
			}
		}
		for _, fld := range [...]struct{ name, val string }{
			{"instructorId", nr.InstructorID},
			{"studentId", nr.StudentID},
			{"questionId", nr.QuestionID},
		} {
			if fld.val == "" {
				missing = append(missing, core.FieldError{Field: fieldName(i, fld.name), Error: "this field is required"})
			}
		}
	}
	if len(missing) > 0 {
		return nil, core.NewValidationError(nil, missing...)
	}

	form, err := svc.forms.GetForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	if form.Status != StatusActive {
		return nil, core.NewValidationError(errFormNotActive)
	}
	if err = svc.checkInstructors(ctx, nrs, fieldName); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(nrs))
	for i, nr := range nrs {
		q, ok := form.Question(nr.QuestionID)
		if !ok {
			return nil, core.NewFieldValidationError(fieldName(i, "questionId"), "question not found in this evaluation form")
		}
		if fld, msg := checkAnswer(q, nr); msg != "" {
			return nil, core.NewFieldValidationError(fieldName(i, fld), msg)
		}

		key := nr.StudentID + "|" + nr.QuestionID
		if _, ok := seen[key]; ok {
			return nil, core.NewValidationError(ErrDuplicateSubmission)
		}
		seen[key] = struct{}{}

		exists, err := svc.responses.ResponseExists(ctx, form.ID, nr.StudentID, nr.QuestionID)
		if err != nil {
			return nil, errors.Wrap(err, "checking existing response")
		}
		if exists {
			return nil, core.NewValidationError(ErrDuplicateSubmission)
		}
	}

	now := svc.nowFunc()
	responses := make([]Response, 0, len(nrs))
	for _, nr := range nrs {
		responses = append(responses, Response{
			FormID:       form.ID,
			InstructorID: nr.InstructorID,
			StudentID:    nr.StudentID,
			QuestionID:   nr.QuestionID,
			Rating:       nr.Rating,
			Answer:       nr.Answer,
			Period:       form.Period,
			CreatedAt:    now,
		})
	}

	var created []Response
	err = svc.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		created, err = svc.responses.CreateResponses(ctx, responses...)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateSubmission) {
			return nil, core.NewValidationError(ErrDuplicateSubmission)
		}
		return nil, errors.Wrap(err, "creating responses")
	}
	return created, nil
}

// checkInstructors checks that every response names an existing faculty or admin user.
func (svc *Service) checkInstructors(ctx context.Context, nrs []NewResponse, fieldName func(int, string) string) error {
	ids := make([]string, 0, len(nrs))
	for _, nr := range nrs {
		ids = append(ids, nr.InstructorID)
	}
	refs, err := svc.users.GetRefs(ctx, uniq(ids)...)
	if err != nil {
		return errors.Wrap(err, "resolving instructors")
	}
	for i, nr := range nrs {
		ref, ok := refs[nr.InstructorID]
		if !ok {
			return core.NewFieldValidationError(fieldName(i, "instructorId"), "instructor not found")
		}
		if ref.Role != user.RoleFaculty && ref.Role != user.RoleAdmin {
			return core.NewFieldValidationError(fieldName(i, "instructorId"), "user is not an instructor")
		}
	}
	return nil
}

// checkAnswer checks that the response fits the question type.
// The answer is expected trimmed, and nil when blank.
// It returns the invalid field and its error message, if any.
func checkAnswer(q Question, nr NewResponse) (field, msg string) {
	hasAnswer := nr.Answer != nil

	switch q.Type {
	case QuestionRating:
		if nr.Rating == nil {
			return "rating", "this field is required"
		}
		if *nr.Rating < MinRating || *nr.Rating > MaxRating {
			return "rating", fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating)
		}
		if hasAnswer {
			return "answer", "rating questions do not take an answer"
		}
	case QuestionText:
		if !hasAnswer {
			return "answer", "this field is required"
		}
		if nr.Rating != nil {
			return "rating", "text questions do not take a rating"
		}
	case QuestionMultipleChoice:
		if !hasAnswer {
			return "answer", "this field is required"
		}
		if nr.Rating != nil {
			return "rating", "multiple choice questions do not take a rating"
		}
		if !contains(q.Options, *nr.Answer) {
			return "answer", "answer must be one of the question options"
		}
	default:
		return "questionId", "unsupported question type"
	}
	return "", ""
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
