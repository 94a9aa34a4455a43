package evaluation

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ies/core"
)

var (
	questionTypeTag  = "question_type"
	questionTypeText = "question type must be one of: rating, text, multiple_choice"

	mcOptionsTag  = "mcoptions"
	mcOptionsText = "multiple choice questions need at least 2 options"
	mcMinOptions  = 2
)

// InitValidators registers the evaluation validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(questionTypeTag, questionTypeValidation)
	core.RegisterCustomTranslation(validate, translator, questionTypeTag, questionTypeText)

	validate.RegisterStructValidation(questionStructValidation, Question{})
	core.RegisterCustomTranslation(validate, translator, mcOptionsTag, mcOptionsText)
}

func questionTypeValidation(fl validator.FieldLevel) bool {
	return QuestionType(fl.Field().String()).IsValid()
}

func questionStructValidation(sl validator.StructLevel) {
	q := sl.Current().Interface().(Question)
	if q.Type == QuestionMultipleChoice && len(q.Options) < mcMinOptions {
		sl.ReportError(q.Options, "options", "Options", mcOptionsTag, "")
	}
}
