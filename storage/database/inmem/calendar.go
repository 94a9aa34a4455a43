package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/ies/core/calendar"
)

type eventRepository struct {
	db *eventTable
}

func NewEventRepository(db *DB) calendar.Repository {
	return &eventRepository{db: db.event}
}

func (repo *eventRepository) CreateEvent(_ context.Context, evt calendar.Event) (calendar.Event, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	evt.ID = newID()
	repo.db.table[evt.ID] = storedEvent(evt)
	return evt, nil
}

func (repo *eventRepository) QueryEvents(_ context.Context, filter *calendar.RangeFilter) ([]calendar.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	events := make([]calendar.Event, 0, len(repo.db.table))
	for _, evt := range repo.db.table {
		// overlapping: starts before the range ends & ends after it starts
		if filter != nil && (evt.StartDate.After(filter.End) || evt.EndDate.Before(filter.Start)) {
			continue
		}
		events = append(events, *storedEvent(*evt))
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].StartDate.Before(events[j].StartDate) })
	return events, nil
}

func (repo *eventRepository) GetEvent(_ context.Context, id string) (calendar.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if evt, ok := repo.db.table[id]; ok {
		return *storedEvent(*evt), nil
	}
	return calendar.Event{}, calendar.ErrNotFound
}

func (repo *eventRepository) UpdateEvent(_ context.Context, evt calendar.Event) (calendar.Event, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[evt.ID]; !ok {
		return calendar.Event{}, calendar.ErrNotFound
	}
	repo.db.table[evt.ID] = storedEvent(evt)
	return evt, nil
}

func (repo *eventRepository) DeleteEvent(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return calendar.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

// storedEvent drops the resolved references, only ids are stored.
func storedEvent(evt calendar.Event) *calendar.Event {
	evt.Creator = nil
	evt.Attendees = nil
	evt.AttendeeIDs = append([]string(nil), evt.AttendeeIDs...)
	return &evt
}
