package inmemdb

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/ies/core/evaluation"
)

type lease struct {
	holderID  string
	expiresAt time.Time
}

// FormLocker is a process-local evaluation.FormLocker.
type FormLocker struct {
	mutex   sync.Mutex
	leases  map[string]lease
	nowFunc func() time.Time // mockable
}

func NewFormLocker() *FormLocker {
	return &FormLocker{leases: make(map[string]lease), nowFunc: time.Now}
}

func (l *FormLocker) AcquireLock(_ context.Context, formID, holderID string, ttl time.Duration) (evaluation.FormLock, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := l.nowFunc()
	if cur, ok := l.leases[formID]; ok && now.Before(cur.expiresAt) && cur.holderID != holderID {
		return l.toLock(formID, cur), evaluation.ErrFormLocked
	}
	cur := lease{holderID: holderID, expiresAt: now.Add(ttl)}
	l.leases[formID] = cur
	return l.toLock(formID, cur), nil
}

func (l *FormLocker) ReleaseLock(_ context.Context, formID, holderID string) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if cur, ok := l.leases[formID]; ok && cur.holderID == holderID {
		delete(l.leases, formID)
	}
	return nil
}

func (l *FormLocker) GetLock(_ context.Context, formID string) (evaluation.FormLock, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	cur, ok := l.leases[formID]
	if !ok || !l.nowFunc().Before(cur.expiresAt) {
		delete(l.leases, formID)
		return evaluation.FormLock{FormID: formID}, nil
	}
	return l.toLock(formID, cur), nil
}

func (l *FormLocker) toLock(formID string, cur lease) evaluation.FormLock {
	return evaluation.FormLock{
		FormID:    formID,
		IsLocked:  true,
		HolderID:  cur.holderID,
		ExpiresAt: cur.expiresAt.UTC(),
	}
}
