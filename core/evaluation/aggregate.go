package evaluation

import (
	"strconv"
	"strings"

	"github.com/trezcool/ies/core"
	"github.com/trezcool/ies/core/user"
)

// ResolvedResponse is a Response of a ResultGroup, with its question resolved.
type ResolvedResponse struct {
	QuestionID   string       `json:"questionId"`
	QuestionText string       `json:"questionText"`
	QuestionType QuestionType `json:"questionType"`
	Rating       *int         `json:"rating,omitempty"`
	Answer       *string      `json:"answer,omitempty"`
	Student      *user.Ref    `json:"student"`
}

// ResultGroup holds all the responses given to one form about one instructor.
type ResultGroup struct {
	ID             string             `json:"id"`
	FormID         string             `json:"evaluationFormId"`
	EvaluationForm *Form              `json:"evaluationForm"`
	Instructor     *user.Ref          `json:"instructor"`
	Period         Period             `json:"evaluationPeriod"`
	Responses      []ResolvedResponse `json:"responses"`
	ResponseCount  int                `json:"responseCount"`
	AverageRating  float64            `json:"averageRating"`
}

// GroupKey returns the id of the ResultGroup of formID & instructorID.
func GroupKey(formID, instructorID string) string {
	return formID + "-" + instructorID
}

// ParseGroupKey splits a ResultGroup id. ok is false when key is not a group id.
func ParseGroupKey(key string) (formID, instructorID string, ok bool) {
	parts := strings.Split(key, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// GroupResults groups the populated responses by (form, instructor).
// Groups come out in the order their key is first seen.
// Responses with an unresolved form or instructor, or an unknown question, are skipped and logged.
func GroupResults(records []PopulatedResponse, logger core.Logger) []ResultGroup {
	var (
		order   []string
		groups  = make(map[string]*ResultGroup)
		qIdxs   = make(map[string]map[string]*Question) // {formId: {questionId: question}}
		skipped int
	)

	for i := range records {
		rec := &records[i]
		if rec.EvaluationForm == nil || rec.Instructor == nil {
			skipped++
			logger.Warn("evaluation.GroupResults: skipping response with unresolved references", map[string]interface{}{
				"responseId":       rec.ID,
				"evaluationFormId": rec.FormID,
				"instructorId":     rec.InstructorID,
			})
			continue
		}

		form := rec.EvaluationForm
		qIdx, ok := qIdxs[form.ID]
		if !ok {
			qIdx = form.questionIndex()
			qIdxs[form.ID] = qIdx
		}
		q, ok := qIdx[rec.QuestionID]
		if !ok {
			skipped++
			logger.Warn("evaluation.GroupResults: skipping response to unknown question", map[string]interface{}{
				"responseId":       rec.ID,
				"evaluationFormId": form.ID,
				"questionId":       rec.QuestionID,
			})
			continue
		}

		key := GroupKey(form.ID, rec.Instructor.ID)
		grp, ok := groups[key]
		if !ok {
			grp = &ResultGroup{
				ID:             key,
				FormID:         form.ID,
				EvaluationForm: form,
				Instructor:     rec.Instructor,
				Period:         rec.Period,
			}
			groups[key] = grp
			order = append(order, key)
		}
		grp.Responses = append(grp.Responses, ResolvedResponse{
			QuestionID:   q.ID,
			QuestionText: q.Text,
			QuestionType: q.Type,
			Rating:       rec.Rating,
			Answer:       rec.Answer,
			Student:      rec.Student,
		})
	}

	results := make([]ResultGroup, 0, len(order))
	for _, key := range order {
		grp := groups[key]
		if len(grp.Responses) == 0 {
			continue
		}
		grp.ResponseCount = len(grp.Responses)
		grp.AverageRating = AverageRating(grp.Responses)
		results = append(results, *grp)
	}
	if skipped > 0 {
		logger.Info("evaluation.GroupResults: " + strconv.Itoa(skipped) + " response(s) skipped")
	}
	return results
}

// AverageRating is the mean of the ratings of the rating questions. It is 0 without any.
func AverageRating(responses []ResolvedResponse) float64 {
	var sum, n int
	for _, r := range responses {
		switch r.QuestionType {
		case QuestionRating:
			if r.Rating != nil {
				sum += *r.Rating
				n++
			}
		case QuestionText, QuestionMultipleChoice:
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// FormatRating formats an average rating for display.
func FormatRating(avg float64) string {
	return strconv.FormatFloat(avg, 'f', 2, 64)
}
