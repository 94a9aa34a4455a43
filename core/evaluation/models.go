package evaluation

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/ies/core"
	"github.com/trezcool/ies/core/user"
)

// QuestionType is the closed set of question kinds.
// It decides which of Response.Rating or Response.Answer is set.
type QuestionType string

const (
	QuestionRating         QuestionType = "rating"
	QuestionText           QuestionType = "text"
	QuestionMultipleChoice QuestionType = "multiple_choice"

	MinRating = 1
	MaxRating = 5
)

func (qt QuestionType) IsValid() bool {
	switch qt {
	case QuestionRating, QuestionText, QuestionMultipleChoice:
		return true
	}
	return false
}

type (
	TargetAudience string
	FormType       string
	FormStatus     string
)

const (
	AudienceStudent TargetAudience = "student"
	AudienceFaculty TargetAudience = "faculty"
	AudienceSelf    TargetAudience = "self"

	FormMidterm FormType = "midterm"
	FormFinal   FormType = "final"

	StatusDraft    FormStatus = "draft"
	StatusActive   FormStatus = "active"
	StatusInactive FormStatus = "inactive"
)

type Question struct {
	ID      string       `json:"id"`
	Text    string       `json:"text" validate:"required,notblank"`
	Type    QuestionType `json:"type" validate:"omitempty,question_type"`
	Options []string     `json:"options,omitempty" validate:"omitempty,dive,required"`
}

// Period is the window during which a form is answered.
type Period struct {
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required,gtefield=StartDate"`
}

func (p Period) UTC() Period {
	return Period{StartDate: p.StartDate.UTC(), EndDate: p.EndDate.UTC()}
}

type Form struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	TargetAudience TargetAudience `json:"targetAudience"`
	Type           FormType       `json:"type,omitempty"`
	Status         FormStatus     `json:"status"`
	Period         Period         `json:"evaluationPeriod"`
	Questions      []Question     `json:"questions"`
	CreatedBy      string         `json:"createdBy"`
	Creator        *user.Ref      `json:"creator,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"` // UTC
	UpdatedAt      time.Time      `json:"updatedAt"` // UTC
}

// Question finds a question of the form by its id.
func (f *Form) Question(id string) (Question, bool) {
	for _, q := range f.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

func (f *Form) questionIndex() map[string]*Question {
	idx := make(map[string]*Question, len(f.Questions))
	for i := range f.Questions {
		idx[f.Questions[i].ID] = &f.Questions[i]
	}
	return idx
}

// NewForm contains the information needed to create or fully update a Form.
type NewForm struct {
	Title          string         `json:"title" validate:"required,notblank"`
	Description    string         `json:"description" validate:"required,notblank"`
	TargetAudience TargetAudience `json:"targetAudience" validate:"required,oneof=student faculty self"`
	Type           FormType       `json:"type" validate:"omitempty,oneof=midterm final"`
	Status         FormStatus     `json:"status" validate:"omitempty,oneof=draft active inactive"`
	Period         Period         `json:"evaluationPeriod"`
	Questions      []Question     `json:"questions" validate:"required,min=1,dive"`
}

func (nf *NewForm) Validate(validate *validator.Validate) error {
	nf.Title = core.CleanString(nf.Title)
	nf.Description = core.CleanString(nf.Description)
	for i := range nf.Questions {
		q := &nf.Questions[i]
		q.Text = core.CleanString(q.Text)
		if q.Type == "" {
			q.Type = QuestionRating
		}
		for j := range q.Options {
			q.Options[j] = core.CleanString(q.Options[j])
		}
	}
	return validate.Struct(nf)
}

// questions returns the questions to store, ids included.
// Questions keep their id, if any, so that existing responses still resolve.
func (nf *NewForm) questions() []Question {
	qs := make([]Question, 0, len(nf.Questions))
	for _, q := range nf.Questions {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if q.Type != QuestionMultipleChoice {
			q.Options = nil
		}
		qs = append(qs, q)
	}
	return qs
}

type StatusUpdate struct {
	Status FormStatus `json:"status" validate:"required,oneof=draft active inactive"`
}

func (su StatusUpdate) Validate(validate *validator.Validate) error { return validate.Struct(su) }

type FormFilter struct {
	Status         FormStatus     `query:"status"`
	TargetAudience TargetAudience `query:"targetAudience"`
}

type Response struct {
	ID           string    `json:"id"`
	FormID       string    `json:"evaluationFormId"`
	InstructorID string    `json:"instructorId"`
	StudentID    string    `json:"studentId"`
	QuestionID   string    `json:"questionId"`
	Rating       *int      `json:"rating,omitempty"`
	Answer       *string   `json:"answer,omitempty"`
	Period       Period    `json:"evaluationPeriod"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
}

// PopulatedResponse is a Response with its references resolved.
// A nil reference could not be resolved.
type PopulatedResponse struct {
	Response
	EvaluationForm *Form     `json:"evaluationForm"`
	Instructor     *user.Ref `json:"instructor"`
	Student        *user.Ref `json:"student"`
}

type ResponseFilter struct {
	FormID       string
	InstructorID string
	StudentID    string
	CreatedFrom  time.Time // inclusive
	CreatedTo    time.Time // exclusive
}
