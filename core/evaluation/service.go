package evaluation

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ies/core"
	"github.com/trezcool/ies/core/user"
)

var (
	// errors
	ErrFormNotFound        = errors.New("evaluation form not found")
	ErrResponseNotFound    = errors.New("evaluation response not found")
	ErrResultNotFound      = errors.New("evaluation result not found")
	ErrDuplicateSubmission = errors.New("already submitted")
	errFormNotActive       = errors.New("evaluation form is not accepting responses")
)

type (
	FormRepository interface {
		CreateForm(ctx context.Context, form Form) (Form, error)
		// QueryForms returns the forms matching the non-empty filter fields, newest first.
		QueryForms(ctx context.Context, filter FormFilter) ([]Form, error)
		GetForm(ctx context.Context, id string) (Form, error)
		// GetFormsByID ignores unknown ids.
		GetFormsByID(ctx context.Context, ids ...string) ([]Form, error)
		UpdateForm(ctx context.Context, form Form) (Form, error)
		DeleteForm(ctx context.Context, id string) error
	}

	ResponseRepository interface {
		// CreateResponses returns ErrDuplicateSubmission if a response to the same
		// (form, student, question) already exists.
		CreateResponses(ctx context.Context, responses ...Response) ([]Response, error)
		ResponseExists(ctx context.Context, formID, studentID, questionID string) (bool, error)
		// QueryResponses returns the responses matching the non-empty filter fields, newest first.
		QueryResponses(ctx context.Context, filter ResponseFilter) ([]Response, error)
		GetResponse(ctx context.Context, id string) (Response, error)
		DeleteResponsesByForm(ctx context.Context, formID string) (int64, error)
	}

	// UserResolver resolves user ids. Unknown ids are absent from the returned map.
	UserResolver interface {
		GetRefs(ctx context.Context, ids ...string) (map[string]*user.Ref, error)
	}

	ServiceDeps struct {
		Forms      FormRepository
		Responses  ResponseRepository
		Users      UserResolver
		Transactor core.Transactor
		Locker     FormLocker
		Notifier   Notifier
		Logger     core.Logger
		Conf       *core.Config
	}

	Service struct {
		forms     FormRepository
		responses ResponseRepository
		users     UserResolver
		tx        core.Transactor
		locker    FormLocker
		notifier  Notifier
		logger    core.Logger

		lockTTL             time.Duration
		notificationTimeout time.Duration
		nowFunc             func() time.Time // mockable
		goFunc              func(fn func())  // runs background work
	}
)

func NewService(deps ServiceDeps) *Service {
	return &Service{
		forms:               deps.Forms,
		responses:           deps.Responses,
		users:               deps.Users,
		tx:                  deps.Transactor,
		locker:              deps.Locker,
		notifier:            deps.Notifier,
		logger:              deps.Logger,
		lockTTL:             deps.Conf.FormLockTTL,
		notificationTimeout: deps.Conf.NotificationTimeout,
		nowFunc:             func() time.Time { return time.Now().UTC() },
		goFunc:              func(fn func()) { go fn() },
	}
}

func (svc *Service) CreateForm(ctx context.Context, nf NewForm, creator user.User) (Form, error) {
	status := nf.Status
	if status == "" {
		status = StatusActive
	}
	now := svc.nowFunc()
	form, err := svc.forms.CreateForm(ctx, Form{
		Title:          nf.Title,
		Description:    nf.Description,
		TargetAudience: nf.TargetAudience,
		Type:           nf.Type,
		Status:         status,
		Period:         nf.Period.UTC(),
		Questions:      nf.questions(),
		CreatedBy:      creator.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return Form{}, errors.Wrap(err, "creating form")
	}
	form.Creator = creator.Ref()

	svc.notifyNewForm(form)
	return form, nil
}

func (svc *Service) QueryForms(ctx context.Context, filter FormFilter) ([]Form, error) {
	forms, err := svc.forms.QueryForms(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying forms")
	}
	if err = svc.setCreators(ctx, forms...); err != nil {
		return nil, err
	}
	return forms, nil
}

func (svc *Service) GetForm(ctx context.Context, id string) (Form, error) {
	form, err := svc.forms.GetForm(ctx, id)
	if err != nil {
		return Form{}, err
	}
	forms := []Form{form}
	if err = svc.setCreators(ctx, forms...); err != nil {
		return Form{}, err
	}
	return forms[0], nil
}

// UpdateForm replaces the contents of a form.
// It returns ErrFormLocked if someone other than the editor is editing the form.
func (svc *Service) UpdateForm(ctx context.Context, id string, nf NewForm, editor user.User) (Form, error) {
	form, err := svc.forms.GetForm(ctx, id)
	if err != nil {
		return Form{}, err
	}
	if err = svc.checkLock(ctx, id, editor.ID); err != nil {
		return Form{}, err
	}

	form.Title = nf.Title
	form.Description = nf.Description
	form.TargetAudience = nf.TargetAudience
	form.Type = nf.Type
	if nf.Status != "" {
		form.Status = nf.Status
	}
	form.Period = nf.Period.UTC()
	form.Questions = nf.questions()
	form.UpdatedAt = svc.nowFunc()
	return svc.saveForm(ctx, form)
}

// UpdateFormStatus returns ErrFormLocked if someone other than the editor is editing the form.
func (svc *Service) UpdateFormStatus(ctx context.Context, id string, su StatusUpdate, editor user.User) (Form, error) {
	form, err := svc.forms.GetForm(ctx, id)
	if err != nil {
		return Form{}, err
	}
	if err = svc.checkLock(ctx, id, editor.ID); err != nil {
		return Form{}, err
	}
	form.Status = su.Status
	form.UpdatedAt = svc.nowFunc()
	return svc.saveForm(ctx, form)
}

func (svc *Service) saveForm(ctx context.Context, form Form) (Form, error) {
	form, err := svc.forms.UpdateForm(ctx, form)
	if err != nil {
		return Form{}, errors.Wrap(err, "updating form")
	}
	forms := []Form{form}
	if err = svc.setCreators(ctx, forms...); err != nil {
		return Form{}, err
	}
	return forms[0], nil
}

// DeleteForm deletes a form and all its responses. It returns the number of deleted responses.
// It returns ErrFormLocked if someone other than the editor is editing the form.
func (svc *Service) DeleteForm(ctx context.Context, id string, editor user.User) (int64, error) {
	if _, err := svc.forms.GetForm(ctx, id); err != nil {
		return 0, err
	}
	if err := svc.checkLock(ctx, id, editor.ID); err != nil {
		return 0, err
	}

	var deleted int64
	err := svc.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if deleted, err = svc.responses.DeleteResponsesByForm(ctx, id); err != nil {
			return errors.Wrap(err, "deleting responses")
		}
		return errors.Wrap(svc.forms.DeleteForm(ctx, id), "deleting form")
	})
	if err != nil {
		return 0, err
	}
	svc.logger.Info("evaluation.DeleteForm: form deleted", map[string]interface{}{
		"evaluationFormId": id,
		"deletedResponses": deleted,
	})
	return deleted, nil
}

func (svc *Service) setCreators(ctx context.Context, forms ...Form) error {
	ids := make([]string, 0, len(forms))
	for _, f := range forms {
		ids = append(ids, f.CreatedBy)
	}
	refs, err := svc.users.GetRefs(ctx, uniq(ids)...)
	if err != nil {
		return errors.Wrap(err, "resolving form creators")
	}
	for i := range forms {
		forms[i].Creator = refs[forms[i].CreatedBy]
	}
	return nil
}

// uniq removes the empty and duplicate ids, keeping their order.
func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
