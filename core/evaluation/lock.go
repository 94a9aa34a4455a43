package evaluation

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrFormLocked = errors.New("evaluation form is being edited by another user")

// FormLock tells who is editing a form.
type FormLock struct {
	FormID    string    `json:"evaluationFormId"`
	IsLocked  bool      `json:"isLocked"`
	HolderID  string    `json:"holderId,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// FormLocker is a lease based lock on the edition of forms.
type FormLocker interface {
	// AcquireLock succeeds when the form is free, or already held by holderID (the lease is refreshed).
	// It returns ErrFormLocked when another holder has the form.
	AcquireLock(ctx context.Context, formID, holderID string, ttl time.Duration) (FormLock, error)
	// ReleaseLock is a no-op unless holderID holds the lock.
	ReleaseLock(ctx context.Context, formID, holderID string) error
	GetLock(ctx context.Context, formID string) (FormLock, error)
}

func (svc *Service) AcquireLock(ctx context.Context, formID, holderID string) (FormLock, error) {
	if _, err := svc.forms.GetForm(ctx, formID); err != nil {
		return FormLock{}, err
	}
	return svc.locker.AcquireLock(ctx, formID, holderID, svc.lockTTL)
}

func (svc *Service) ReleaseLock(ctx context.Context, formID, holderID string) error {
	return svc.locker.ReleaseLock(ctx, formID, holderID)
}

func (svc *Service) GetLock(ctx context.Context, formID string) (FormLock, error) {
	return svc.locker.GetLock(ctx, formID)
}

// checkLock returns ErrFormLocked when someone other than editorID holds the lock of the form.
func (svc *Service) checkLock(ctx context.Context, formID, editorID string) error {
	lock, err := svc.locker.GetLock(ctx, formID)
	if err != nil {
		return errors.Wrap(err, "getting form lock")
	}
	if lock.IsLocked && lock.HolderID != editorID {
		return ErrFormLocked
	}
	return nil
}
