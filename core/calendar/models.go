package calendar

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ies/core"
	"github.com/trezcool/ies/core/user"
)

type (
	EventType   string
	EventStatus string
)

const (
	TypeEvaluation EventType = "evaluation"
	TypeMeeting    EventType = "meeting"
	TypeHoliday    EventType = "holiday"
	TypeOther      EventType = "other"

	StatusScheduled EventStatus = "scheduled"
	StatusCancelled EventStatus = "cancelled"
	StatusCompleted EventStatus = "completed"

	DefaultColor = "#4CAF50"
)

type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	StartDate   time.Time   `json:"startDate"` // UTC
	EndDate     time.Time   `json:"endDate"`   // UTC
	Type        EventType   `json:"type"`
	Location    string      `json:"location"`
	Color       string      `json:"color"`
	CreatedBy   string      `json:"createdBy"`
	Creator     *user.Ref   `json:"creator,omitempty"`
	AttendeeIDs []string    `json:"-"`
	Attendees   []*user.Ref `json:"attendees"`
	IsAllDay    bool        `json:"isAllDay"`
	Status      EventStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"` // UTC
	UpdatedAt   time.Time   `json:"updatedAt"` // UTC
}

// NewEvent contains the information needed to create or update an Event.
type NewEvent struct {
	Title       string      `json:"title" validate:"required,notblank"`
	Description string      `json:"description"`
	StartDate   time.Time   `json:"startDate" validate:"required"`
	EndDate     time.Time   `json:"endDate" validate:"required,gtefield=StartDate"`
	Type        EventType   `json:"type" validate:"omitempty,oneof=evaluation meeting holiday other"`
	Location    string      `json:"location"`
	Color       string      `json:"color" validate:"omitempty,hexcolor"`
	Attendees   []string    `json:"attendees" validate:"omitempty,dive,required"`
	IsAllDay    bool        `json:"isAllDay"`
	Status      EventStatus `json:"status" validate:"omitempty,oneof=scheduled cancelled completed"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.Location = core.CleanString(ne.Location)
	ne.Color = core.CleanString(ne.Color)
	return validate.Struct(ne)
}

// RangeFilter selects the events overlapping [Start, End].
type RangeFilter struct {
	Start time.Time
	End   time.Time
}
