package exportsvc

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ies/core/evaluation"
	"github.com/trezcool/ies/core/user"
)

// Sheet names
const (
	SheetSummary  = "summary"
	SheetDetailed = "detailed"
)

var ErrUnknownSheet = errors.New("unknown sheet")

var (
	summaryHeader  = []string{"Instructor", "Evaluation Form", "Average Rating", "Response Count", "Evaluation Period"}
	detailedHeader = []string{"Instructor", "Evaluation Form", "Question", "Type", "Rating", "Comment", "Student"}
)

// Exporter renders result groups into a downloadable sheet.
type Exporter interface {
	Export(w io.Writer, sheet string, groups []evaluation.ResultGroup) error
	ContentType() string
	Filename(sheet string, at time.Time) string
}

type CSVExporter struct{}

var _ Exporter = CSVExporter{}

func NewCSVExporter() CSVExporter { return CSVExporter{} }

func (CSVExporter) ContentType() string { return "text/csv" }

func (CSVExporter) Filename(sheet string, at time.Time) string {
	return fmt.Sprintf("evaluation-results-%s-%s.csv", sheet, at.UTC().Format("20060102-150405"))
}

func (CSVExporter) Export(w io.Writer, sheet string, groups []evaluation.ResultGroup) error {
	var rows [][]string
	switch sheet {
	case SheetSummary:
		rows = summaryRows(groups)
	case SheetDetailed:
		rows = detailedRows(groups)
	default:
		return ErrUnknownSheet
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return errors.Wrap(err, "writing csv")
	}
	return nil
}

// ExportBytes renders the sheet in memory.
func ExportBytes(exp Exporter, sheet string, groups []evaluation.ResultGroup) ([]byte, error) {
	var buf bytes.Buffer
	if err := exp.Export(&buf, sheet, groups); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func summaryRows(groups []evaluation.ResultGroup) [][]string {
	rows := make([][]string, 0, len(groups)+1)
	rows = append(rows, summaryHeader)
	for _, grp := range groups {
		rows = append(rows, []string{
			refName(grp.Instructor),
			formTitle(grp.EvaluationForm),
			evaluation.FormatRating(grp.AverageRating),
			strconv.Itoa(grp.ResponseCount),
			formatPeriod(grp.Period),
		})
	}
	return rows
}

func detailedRows(groups []evaluation.ResultGroup) [][]string {
	rows := [][]string{detailedHeader}
	for _, grp := range groups {
		for _, resp := range grp.Responses {
			var rating, comment string
			if resp.Rating != nil {
				rating = strconv.Itoa(*resp.Rating)
			}
			if resp.Answer != nil {
				comment = *resp.Answer
			}
			rows = append(rows, []string{
				refName(grp.Instructor),
				formTitle(grp.EvaluationForm),
				resp.QuestionText,
				string(resp.QuestionType),
				rating,
				comment,
				refName(resp.Student),
			})
		}
	}
	return rows
}

func refName(ref *user.Ref) string {
	if ref == nil {
		return ""
	}
	return ref.Name
}

func formTitle(form *evaluation.Form) string {
	if form == nil {
		return ""
	}
	return form.Title
}

func formatPeriod(p evaluation.Period) string {
	const layout = "2006-01-02"
	return p.StartDate.UTC().Format(layout) + " to " + p.EndDate.UTC().Format(layout)
}
