package calendar

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ies/core"
	"github.com/trezcool/ies/core/user"
)

var ErrNotFound = errors.New("calendar event not found")

type (
	Repository interface {
		CreateEvent(ctx context.Context, evt Event) (Event, error)
		// QueryEvents returns the events sorted by start date. A nil filter returns all events.
		QueryEvents(ctx context.Context, filter *RangeFilter) ([]Event, error)
		GetEvent(ctx context.Context, id string) (Event, error)
		UpdateEvent(ctx context.Context, evt Event) (Event, error)
		DeleteEvent(ctx context.Context, id string) error
	}

	UserResolver interface {
		GetRefs(ctx context.Context, ids ...string) (map[string]*user.Ref, error)
	}

	Service struct {
		repo    Repository
		users   UserResolver
		logger  core.Logger
		nowFunc func() time.Time
	}
)

func NewService(repo Repository, users UserResolver, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		logger:  logger,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func (svc *Service) Create(ctx context.Context, ne NewEvent, creator user.User) (Event, error) {
	now := svc.nowFunc()
	evt := Event{CreatedBy: creator.ID, CreatedAt: now}
	apply(&evt, ne)
	evt.UpdatedAt = now

	evt, err := svc.repo.CreateEvent(ctx, evt)
	if err != nil {
		return Event{}, errors.Wrap(err, "creating event")
	}
	return svc.resolveOne(ctx, evt)
}

func (svc *Service) List(ctx context.Context) ([]Event, error) {
	return svc.query(ctx, nil)
}

// ListRange returns the events overlapping the [start, end] range.
func (svc *Service) ListRange(ctx context.Context, start, end time.Time) ([]Event, error) {
	if end.Before(start) {
		return nil, core.NewFieldValidationError("end", "end must not be before start")
	}
	return svc.query(ctx, &RangeFilter{Start: start.UTC(), End: end.UTC()})
}

func (svc *Service) Get(ctx context.Context, id string) (Event, error) {
	evt, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	return svc.resolveOne(ctx, evt)
}

func (svc *Service) Update(ctx context.Context, id string, ne NewEvent) (Event, error) {
	evt, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	apply(&evt, ne)
	evt.UpdatedAt = svc.nowFunc()

	if evt, err = svc.repo.UpdateEvent(ctx, evt); err != nil {
		return Event{}, errors.Wrap(err, "updating event")
	}
	return svc.resolveOne(ctx, evt)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteEvent(ctx, id)
}

func (svc *Service) query(ctx context.Context, filter *RangeFilter) ([]Event, error) {
	events, err := svc.repo.QueryEvents(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	if err = svc.resolve(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

func (svc *Service) resolveOne(ctx context.Context, evt Event) (Event, error) {
	events := []Event{evt}
	if err := svc.resolve(ctx, events); err != nil {
		return Event{}, err
	}
	return events[0], nil
}

// resolve sets the creator and attendees of the events. Unknown users are left out.
func (svc *Service) resolve(ctx context.Context, events []Event) error {
	var ids []string
	for _, evt := range events {
		ids = append(ids, evt.CreatedBy)
		ids = append(ids, evt.AttendeeIDs...)
	}
	if len(ids) == 0 {
		return nil
	}
	refs, err := svc.users.GetRefs(ctx, ids...)
	if err != nil {
		return errors.Wrap(err, "resolving users")
	}
	for i := range events {
		evt := &events[i]
		evt.Creator = refs[evt.CreatedBy]
		evt.Attendees = make([]*user.Ref, 0, len(evt.AttendeeIDs))
		for _, id := range evt.AttendeeIDs {
			if ref, ok := refs[id]; ok {
				evt.Attendees = append(evt.Attendees, ref)
			}
		}
	}
	return nil
}

// apply sets the fields of ne on evt, with defaults.
func apply(evt *Event, ne NewEvent) {
	evt.Title = ne.Title
	evt.Description = ne.Description
	evt.StartDate = ne.StartDate.UTC()
	evt.EndDate = ne.EndDate.UTC()
	evt.Type = ne.Type
	if evt.Type == "" {
		evt.Type = TypeOther
	}
	evt.Location = ne.Location
	evt.Color = ne.Color
	if evt.Color == "" {
		evt.Color = DefaultColor
	}
	evt.AttendeeIDs = ne.Attendees
	evt.IsAllDay = ne.IsAllDay
	evt.Status = ne.Status
	if evt.Status == "" {
		evt.Status = StatusScheduled
	}
}
