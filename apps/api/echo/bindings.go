package echoapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/ies/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

const dateLayout = "2006-01-02"

// parseTime accepts RFC 3339 timestamps & plain dates (UTC midnight).
func parseTime(val string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(dateLayout, val); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// bindTimeParams parses the required time query params into dest, in order.
func bindTimeParams(ctx echo.Context, names []string, dest ...*time.Time) error {
	var flds []core.FieldError
	for i, name := range names {
		val := core.CleanString(ctx.QueryParam(name))
		if val == "" {
			flds = append(flds, core.FieldError{Field: name, Error: "this field is required"})
			continue
		}
		t, ok := parseTime(val)
		if !ok {
			flds = append(flds, core.FieldError{Field: name, Error: "invalid date"})
			continue
		}
		*dest[i] = t
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}
