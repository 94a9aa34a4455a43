package evaluation

import (
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"

	"github.com/trezcool/ies/core"
)

// ResultFilter is a compiled boolean expression over result groups, eg:
//
//	averageRating < 3 && responseCount >= 5
//	instructorName contains "Cruz" and formType == "final"
type ResultFilter struct {
	program *vm.Program
}

func filterEnv(grp *ResultGroup) map[string]interface{} {
	env := map[string]interface{}{
		"id":             "",
		"averageRating":  0.0,
		"responseCount":  0,
		"formId":         "",
		"formTitle":      "",
		"formType":       "",
		"formStatus":     "",
		"targetAudience": "",
		"instructorId":   "",
		"instructorName": "",
		"startDate":      time.Time{},
		"endDate":        time.Time{},
	}
	if grp == nil {
		return env
	}

	env["id"] = grp.ID
	env["averageRating"] = grp.AverageRating
	env["responseCount"] = grp.ResponseCount
	env["formId"] = grp.FormID
	env["startDate"] = grp.Period.StartDate
	env["endDate"] = grp.Period.EndDate
	if f := grp.EvaluationForm; f != nil {
		env["formTitle"] = f.Title
		env["formType"] = string(f.Type)
		env["formStatus"] = string(f.Status)
		env["targetAudience"] = string(f.TargetAudience)
	}
	if in := grp.Instructor; in != nil {
		env["instructorId"] = in.ID
		env["instructorName"] = in.Name
	}
	return env
}

// CompileResultFilter compiles a filter expression. An invalid expression is a validation error.
func CompileResultFilter(code string) (*ResultFilter, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	program, err := expr.Compile(code, expr.Env(filterEnv(nil)), expr.AsBool())
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "filter", Error: "invalid filter expression"})
	}
	return &ResultFilter{program: program}, nil
}

// Match tells whether the group satisfies the filter. A nil filter matches all groups.
func (rf *ResultFilter) Match(grp *ResultGroup) (bool, error) {
	if rf == nil {
		return true, nil
	}
	out, err := expr.Run(rf.program, filterEnv(grp))
	if err != nil {
		return false, errors.Wrap(err, "running result filter")
	}
	ok, _ := out.(bool)
	return ok, nil
}

// Apply returns the groups matching the filter, in order.
func (rf *ResultFilter) Apply(groups []ResultGroup) ([]ResultGroup, error) {
	if rf == nil {
		return groups, nil
	}
	matched := make([]ResultGroup, 0, len(groups))
	for i := range groups {
		ok, err := rf.Match(&groups[i])
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, groups[i])
		}
	}
	return matched, nil
}
