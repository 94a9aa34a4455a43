package evaluation

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ListResults aggregates all responses into result groups, keeping those matching the filter expression.
func (svc *Service) ListResults(ctx context.Context, filter string) ([]ResultGroup, error) {
	rf, err := CompileResultFilter(filter)
	if err != nil {
		return nil, err
	}
	groups, err := svc.aggregate(ctx, ResponseFilter{})
	if err != nil {
		return nil, err
	}
	return rf.Apply(groups)
}

// ListResultsByDate returns the responses created on the UTC day of `day`, populated.
func (svc *Service) ListResultsByDate(ctx context.Context, day time.Time) ([]PopulatedResponse, error) {
	day = day.UTC()
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	responses, err := svc.responses.QueryResponses(ctx, ResponseFilter{
		CreatedFrom: from,
		CreatedTo:   from.Add(24 * time.Hour),
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying responses")
	}
	return svc.populate(ctx, responses)
}

// GetResult returns the result group with the given id (see GroupKey).
func (svc *Service) GetResult(ctx context.Context, key string) (ResultGroup, error) {
	formID, instructorID, ok := ParseGroupKey(key)
	if !ok {
		return ResultGroup{}, ErrResultNotFound
	}
	groups, err := svc.aggregate(ctx, ResponseFilter{FormID: formID, InstructorID: instructorID})
	if err != nil {
		return ResultGroup{}, err
	}
	for _, grp := range groups {
		if grp.ID == key {
			return grp, nil
		}
	}
	return ResultGroup{}, ErrResultNotFound
}

func (svc *Service) GetResponse(ctx context.Context, id string) (PopulatedResponse, error) {
	resp, err := svc.responses.GetResponse(ctx, id)
	if err != nil {
		return PopulatedResponse{}, err
	}
	populated, err := svc.populate(ctx, []Response{resp})
	if err != nil {
		return PopulatedResponse{}, err
	}
	return populated[0], nil
}

// StudentResponses returns the responses of a student to the form.
func (svc *Service) StudentResponses(ctx context.Context, formID, studentID string) ([]Response, error) {
	if _, err := svc.forms.GetForm(ctx, formID); err != nil {
		return nil, err
	}
	responses, err := svc.responses.QueryResponses(ctx, ResponseFilter{FormID: formID, StudentID: studentID})
	return responses, errors.Wrap(err, "querying responses")
}

func (svc *Service) aggregate(ctx context.Context, filter ResponseFilter) ([]ResultGroup, error) {
	responses, err := svc.responses.QueryResponses(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying responses")
	}
	records, err := svc.populate(ctx, responses)
	if err != nil {
		return nil, err
	}
	return GroupResults(records, svc.logger), nil
}

// populate resolves the forms and users referenced by the responses, with one lookup each.
// Unresolved references are left nil.
func (svc *Service) populate(ctx context.Context, responses []Response) ([]PopulatedResponse, error) {
	formIDs := make([]string, 0, len(responses))
	userIDs := make([]string, 0, 2*len(responses))
	for _, r := range responses {
		formIDs = append(formIDs, r.FormID)
		userIDs = append(userIDs, r.InstructorID, r.StudentID)
	}

	forms := make(map[string]*Form)
	if ids := uniq(formIDs); len(ids) > 0 {
		found, err := svc.forms.GetFormsByID(ctx, ids...)
		if err != nil {
			return nil, errors.Wrap(err, "getting forms by id")
		}
		for i := range found {
			forms[found[i].ID] = &found[i]
		}
	}
	users, err := svc.users.GetRefs(ctx, uniq(userIDs)...)
	if err != nil {
		return nil, errors.Wrap(err, "resolving users")
	}

	populated := make([]PopulatedResponse, 0, len(responses))
	for _, r := range responses {
		populated = append(populated, PopulatedResponse{
			Response:       r,
			EvaluationForm: forms[r.FormID],
			Instructor:     users[r.InstructorID],
			Student:        users[r.StudentID],
		})
	}
	return populated, nil
}
