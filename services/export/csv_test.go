package exportsvc

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ies/core/evaluation"
	"github.com/trezcool/ies/core/user"
	"github.com/trezcool/ies/testutil"
)

func resultGroups() []evaluation.ResultGroup {
	start := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	period := evaluation.Period{StartDate: start, EndDate: start.AddDate(0, 0, 14)}
	form := &evaluation.Form{ID: "f1", Title: "Midterm, 1st sem", Period: period}
	prof := &user.Ref{ID: "u1", Name: "Prof X"}
	stu := &user.Ref{ID: "u2", Name: "Stu"}
	return []evaluation.ResultGroup{{
		ID:             evaluation.GroupKey("f1", "u1"),
		FormID:         "f1",
		EvaluationForm: form,
		Instructor:     prof,
		Period:         period,
		Responses: []evaluation.ResolvedResponse{
			{QuestionID: "q1", QuestionText: "Clarity", QuestionType: evaluation.QuestionRating, Rating: testutil.IntPtr(4), Student: stu},
			{QuestionID: "q2", QuestionText: "Pace", QuestionType: evaluation.QuestionRating, Rating: testutil.IntPtr(3), Student: stu},
			{QuestionID: "q3", QuestionText: "Comments", QuestionType: evaluation.QuestionText, Answer: testutil.StrPtr("Good \"course\""), Student: stu},
		},
		ResponseCount: 3,
		AverageRating: 3.5,
	}}
}

func readCSV(t *testing.T, b []byte) [][]string {
	t.Helper()
	recs, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestCSVExporter_Export(t *testing.T) {
	exp := NewCSVExporter()
	groups := resultGroups()

	tests := []struct {
		name  string
		sheet string
		want  [][]string
	}{
		{
			name:  "summary",
			sheet: SheetSummary,
			want: [][]string{
				summaryHeader,
				{"Prof X", "Midterm, 1st sem", "3.50", "3", "2024-01-08 to 2024-01-22"},
			},
		},
		{
			name:  "detailed",
			sheet: SheetDetailed,
			want: [][]string{
				detailedHeader,
				{"Prof X", "Midterm, 1st sem", "Clarity", "rating", "4", "", "Stu"},
				{"Prof X", "Midterm, 1st sem", "Pace", "rating", "3", "", "Stu"},
				{"Prof X", "Midterm, 1st sem", "Comments", "text", "", "Good \"course\"", "Stu"},
			},
		},
		{name: "no results", sheet: SheetSummary, want: [][]string{summaryHeader}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := groups
			if tt.name == "no results" {
				in = nil
			}
			b, err := ExportBytes(exp, tt.sheet, in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, readCSV(t, b))
		})
	}

	_, err := ExportBytes(exp, "lol", groups)
	assert.Equal(t, ErrUnknownSheet, err)
}

func TestCSVExporter_Filename(t *testing.T) {
	at := time.Date(2024, 5, 6, 13, 4, 5, 0, time.UTC)
	assert.Equal(t, "evaluation-results-summary-20240506-130405.csv", NewCSVExporter().Filename(SheetSummary, at))
	assert.Equal(t, "text/csv", NewCSVExporter().ContentType())
}
