package echoapi_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/ies/apps/api/echo"
	"github.com/trezcool/ies/core/evaluation"
	"github.com/trezcool/ies/core/user"
	emailsvc "github.com/trezcool/ies/services/email"
	"github.com/trezcool/ies/testutil"
)

type evalFixture struct {
	*fixture
	admin, faculty, student  user.User
	adminTkn, facTkn, stdTkn string
	form                     evaluation.Form
}

func setupEval(t *testing.T) *evalFixture {
	fx := &evalFixture{fixture: setup(t)}
	fx.admin = testutil.CreateUser(t, fx.usrRepo, "Admin", "admin@buksu.edu.ph", "", user.RoleAdmin, true)
	fx.faculty = testutil.CreateUser(t, fx.usrRepo, "Faculty", "faculty@buksu.edu.ph", "", user.RoleFaculty, true)
	fx.student = testutil.CreateUser(t, fx.usrRepo, "Student", "student@student.buksu.edu.ph", "", user.RoleStudent, true)
	fx.adminTkn = fx.getToken(t, fx.admin)
	fx.facTkn = fx.getToken(t, fx.faculty)
	fx.stdTkn = fx.getToken(t, fx.student)
	fx.form = testutil.CreateForm(t, fx.formRepo, "Midterm Evaluation", fx.admin, []evaluation.Question{
		{Text: "Clarity"},
		{Text: "Punctuality"},
		{Text: "Comments", Type: evaluation.QuestionText},
	})
	return fx
}

func (fx *evalFixture) answer(questionID string, rating *int, answer *string) evaluation.NewResponse {
	return evaluation.NewResponse{
		InstructorID: fx.faculty.ID,
		QuestionID:   questionID,
		Rating:       rating,
		Answer:       answer,
	}
}

func (fx *evalFixture) submitAll(t *testing.T) {
	t.Helper()
	body := marchallList(t,
		fx.answer("q1", testutil.IntPtr(4), nil),
		fx.answer("q2", testutil.IntPtr(2), nil),
		fx.answer("q3", nil, testutil.StrPtr("Good course")),
	)
	req, rec := newAuthRequest(http.MethodPost, "/v1/evaluation/"+fx.form.ID+"/submit", fx.stdTkn, body)
	fx.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func Test_evaluationApi_createForm(t *testing.T) {
	fx := setupEval(t)
	path := "/v1/evaluation"

	newForm := func(questions ...evaluation.Question) evaluation.NewForm {
		start := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
		return evaluation.NewForm{
			Title:          "Final Evaluation",
			Description:    "End of term",
			TargetAudience: evaluation.AudienceStudent,
			Type:           evaluation.FormFinal,
			Period:         evaluation.Period{StartDate: start, EndDate: start.Add(7 * 24 * time.Hour)},
			Questions:      questions,
		}
	}
	mc := evaluation.Question{Text: "Pace", Type: evaluation.QuestionMultipleChoice, Options: []string{"Slow"}}

	fx.run(t, []httpTest{
		{
			name:     "no token",
			method:   http.MethodPost,
			path:     path,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "student",
			method:   http.MethodPost,
			path:     path,
			body:     marchallObj(t, newForm(evaluation.Question{Text: "Clarity"})),
			token:    fx.stdTkn,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "empty",
			method:   http.MethodPost,
			path:     path,
			body:     []byte(`{}`),
			token:    fx.facTkn,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"title":                      "this field is required",
				"description":                "this field is required",
				"targetAudience":             "this field is required",
				"evaluationPeriod.startDate": "this field is required",
				"evaluationPeriod.endDate":   "this field is required",
				"questions":                  "this field is required",
			}),
		},
		{
			name:     "invalid questions",
			method:   http.MethodPost,
			path:     path,
			body:     marchallObj(t, newForm(evaluation.Question{Text: " "}, mc)),
			token:    fx.facTkn,
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var errs map[string]string
				unmarshal(t, rec, &errs)
				assert.Contains(t, errs, "questions[0].text")
				assert.Equal(t, "multiple choice questions need at least 2 options", errs["questions[1].options"])
			},
		},
		{
			name:     "valid",
			method:   http.MethodPost,
			path:     path,
			body:     marchallObj(t, newForm(evaluation.Question{Text: "Clarity"}, evaluation.Question{Text: "Remarks", Type: evaluation.QuestionText})),
			token:    fx.facTkn,
			wantCode: http.StatusCreated,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var form evaluation.Form
				unmarshal(t, rec, &form)
				assert.NotEmpty(t, form.ID)
				assert.Equal(t, fx.faculty.ID, form.CreatedBy)
				require.NotNil(t, form.Creator)
				assert.Equal(t, fx.faculty.Name, form.Creator.Name)
				require.Len(t, form.Questions, 2)
				assert.NotEmpty(t, form.Questions[0].ID)
				assert.Equal(t, evaluation.QuestionRating, form.Questions[0].Type)
			},
		},
	})
}

func Test_evaluationApi_queryForms(t *testing.T) {
	fx := setupEval(t)
	draft := testutil.CreateForm(t, fx.formRepo, "Draft", fx.admin, []evaluation.Question{{Text: "Clarity"}})
	draft.Status = evaluation.StatusDraft
	_, err := fx.formRepo.UpdateForm(testCtx(), draft)
	require.NoError(t, err)

	countForms := func(n int) func(*testing.T, *httptest.ResponseRecorder) {
		return func(t *testing.T, rec *httptest.ResponseRecorder) {
			var forms []evaluation.Form
			unmarshal(t, rec, &forms)
			assert.Len(t, forms, n)
		}
	}

	fx.run(t, []httpTest{
		{name: "all", method: http.MethodGet, path: "/v1/evaluation", token: fx.stdTkn, check: countForms(2)},
		{name: "active", method: http.MethodGet, path: "/v1/evaluation?status=active", token: fx.stdTkn, check: countForms(1)},
		{name: "draft", method: http.MethodGet, path: "/v1/evaluation?status=draft", token: fx.stdTkn, check: countForms(1)},
		{name: "faculty audience", method: http.MethodGet, path: "/v1/evaluation?targetAudience=faculty", token: fx.stdTkn, wantData: marchallList(t)},
		{
			name:   "detail",
			method: http.MethodGet,
			path:   "/v1/evaluation/" + fx.form.ID,
			token:  fx.stdTkn,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var form evaluation.Form
				unmarshal(t, rec, &form)
				assert.Equal(t, fx.form.Title, form.Title)
				assert.Len(t, form.Questions, 3)
			},
		},
		{
			name:     "unknown",
			method:   http.MethodGet,
			path:     "/v1/evaluation/000000000000000000000000",
			token:    fx.stdTkn,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "evaluation form not found"}),
		},
	})
}

func Test_evaluationApi_updateForm(t *testing.T) {
	fx := setupEval(t)
	path := "/v1/evaluation/" + fx.form.ID
	start := time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)
	update := evaluation.NewForm{
		Title:          "Midterm Evaluation (revised)",
		Description:    "Revised",
		TargetAudience: evaluation.AudienceStudent,
		Period:         evaluation.Period{StartDate: start, EndDate: start.Add(24 * time.Hour)},
		Questions:      []evaluation.Question{{ID: "q1", Text: "Clarity"}},
	}

	fx.run(t, []httpTest{
		{
			name:     "student",
			method:   http.MethodPut,
			path:     path,
			body:     marchallObj(t, update),
			token:    fx.stdTkn,
			wantCode: http.StatusForbidden,
		},
		{
			name:   "lock",
			method: http.MethodPost,
			path:   path + "/lock",
			token:  fx.adminTkn,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var lock evaluation.FormLock
				unmarshal(t, rec, &lock)
				assert.True(t, lock.IsLocked)
				assert.Equal(t, fx.admin.ID, lock.HolderID)
			},
		},
		{
			name:     "lock conflict",
			method:   http.MethodPost,
			path:     path + "/lock",
			token:    fx.facTkn,
			wantCode: http.StatusConflict,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp echoapi.LockConflictResponse
				unmarshal(t, rec, &resp)
				assert.Equal(t, evaluation.ErrFormLocked.Error(), resp.Error)
				assert.Equal(t, fx.admin.ID, resp.Lock.HolderID)
			},
		},
		{
			name:     "locked by another user",
			method:   http.MethodPut,
			path:     path,
			body:     marchallObj(t, update),
			token:    fx.facTkn,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: evaluation.ErrFormLocked.Error()}),
		},
		{
			name:     "status while locked by another user",
			method:   http.MethodPatch,
			path:     path + "/status",
			body:     []byte(`{"status":"inactive"}`),
			token:    fx.facTkn,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: evaluation.ErrFormLocked.Error()}),
		},
		{
			name:   "lock holder",
			method: http.MethodPut,
			path:   path,
			body:   marchallObj(t, update),
			token:  fx.adminTkn,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var form evaluation.Form
				unmarshal(t, rec, &form)
				assert.Equal(t, update.Title, form.Title)
				assert.Len(t, form.Questions, 1)
			},
		},
		{
			name:   "release",
			method: http.MethodDelete,
			path:   path + "/lock",
			token:  fx.adminTkn,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var lock evaluation.FormLock
				unmarshal(t, rec, &lock)
				assert.False(t, lock.IsLocked)
			},
		},
		{
			name:   "after release",
			method: http.MethodPut,
			path:   path,
			body:   marchallObj(t, update),
			token:  fx.facTkn,
		},
		{
			name:     "invalid status",
			method:   http.MethodPatch,
			path:     path + "/status",
			body:     []byte(`{"status":"archived"}`),
			token:    fx.facTkn,
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var errs map[string]string
				unmarshal(t, rec, &errs)
				assert.Contains(t, errs, "status")
			},
		},
		{
			name:   "status",
			method: http.MethodPatch,
			path:   path + "/status",
			body:   []byte(`{"status":"inactive"}`),
			token:  fx.facTkn,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var form evaluation.Form
				unmarshal(t, rec, &form)
				assert.Equal(t, evaluation.StatusInactive, form.Status)
			},
		},
		{
			name:     "submit to inactive form",
			method:   http.MethodPost,
			path:     path + "/submit",
			body:     marchallObj(t, fx.answer("q1", testutil.IntPtr(4), nil)),
			token:    fx.stdTkn,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "evaluation form is not accepting responses"}),
		},
	})
}

func Test_evaluationApi_submit(t *testing.T) {
	fx := setupEval(t)
	path := "/v1/evaluation/" + fx.form.ID + "/submit"

	fx.run(t, []httpTest{
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     path,
			body:     []byte(`{}`),
			token:    fx.stdTkn,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"instructorId": "this field is required",
				"questionId":   "this field is required",
			}),
		},
		{
			name:     "malformed",
			method:   http.MethodPost,
			path:     path,
			body:     []byte(`{"rating": "five"`),
			token:    fx.stdTkn,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid request body"}),
		},
		{
			name:     "unknown form",
			method:   http.MethodPost,
			path:     "/v1/evaluation/000000000000000000000000/submit",
			body:     marchallObj(t, fx.answer("q1", testutil.IntPtr(4), nil)),
			token:    fx.stdTkn,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "unknown question",
			method:   http.MethodPost,
			path:     path,
			body:     marchallObj(t, fx.answer("q9", testutil.IntPtr(4), nil)),
			token:    fx.stdTkn,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"questionId": "question not found in this evaluation form"}),
		},
		{
			name:   "malformed instructor",
			method: http.MethodPost,
			path:   path,
			body: marchallObj(t, evaluation.NewResponse{
				InstructorID: "no-such-instructor",
				QuestionID:   "q1",
				Rating:       testutil.IntPtr(4),
			}),
			token:    fx.stdTkn,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"instructorId": "instructor not found"}),
		},
		{
			name:   "student as instructor",
			method: http.MethodPost,
			path:   path,
			body: marchallObj(t, evaluation.NewResponse{
				InstructorID: fx.student.ID,
				QuestionID:   "q1",
				Rating:       testutil.IntPtr(4),
			}),
			token:    fx.stdTkn,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"instructorId": "user is not an instructor"}),
		},
		{
			name:     "rating out of range in batch",
			method:   http.MethodPost,
			path:     path,
			body:     marchallList(t, fx.answer("q1", testutil.IntPtr(4), nil), fx.answer("q2", testutil.IntPtr(6), nil)),
			token:    fx.stdTkn,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"responses[1].rating": "rating must be between 1 and 5"}),
		},
		{
			name:     "single",
			method:   http.MethodPost,
			path:     path,
			body:     marchallObj(t, fx.answer("q1", testutil.IntPtr(5), nil)),
			token:    fx.stdTkn,
			wantCode: http.StatusCreated,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp echoapi.SubmitResponse
				unmarshal(t, rec, &resp)
				assert.NotEmpty(t, resp.ID)
				assert.False(t, resp.CreatedAt.IsZero())
			},
		},
		{
			name:     "duplicate",
			method:   http.MethodPost,
			path:     path,
			body:     marchallObj(t, fx.answer("q1", testutil.IntPtr(3), nil)),
			token:    fx.stdTkn,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "already submitted"}),
		},
		{
			name:     "batch",
			method:   http.MethodPost,
			path:     path,
			body:     marchallList(t, fx.answer("q2", testutil.IntPtr(3), nil), fx.answer("q3", nil, testutil.StrPtr("Nice"))),
			token:    fx.stdTkn,
			wantCode: http.StatusCreated,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp []echoapi.SubmitResponse
				unmarshal(t, rec, &resp)
				assert.Len(t, resp, 2)
			},
		},
		{
			name:   "my responses",
			method: http.MethodGet,
			path:   "/v1/evaluation/" + fx.form.ID + "/my-responses",
			token:  fx.stdTkn,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var responses []evaluation.Response
				unmarshal(t, rec, &responses)
				require.Len(t, responses, 3)
				for _, r := range responses {
					assert.Equal(t, fx.student.ID, r.StudentID)
					assert.Equal(t, fx.form.Period.StartDate, r.Period.StartDate)
				}
			},
		},
		{
			name:     "my responses as faculty",
			method:   http.MethodGet,
			path:     "/v1/evaluation/" + fx.form.ID + "/my-responses",
			token:    fx.facTkn,
			wantData: marchallList(t),
		},
	})
}

func Test_evaluationApi_results(t *testing.T) {
	fx := setupEval(t)
	fx.submitAll(t)
	groupKey := evaluation.GroupKey(fx.form.ID, fx.faculty.ID)

	responses, err := fx.respRepo.QueryResponses(testCtx(), evaluation.ResponseFilter{FormID: fx.form.ID})
	require.NoError(t, err)
	require.Len(t, responses, 3)

	checkGroup := func(t *testing.T, grp evaluation.ResultGroup) {
		assert.Equal(t, groupKey, grp.ID)
		assert.Equal(t, 3, grp.ResponseCount)
		assert.Equal(t, 3.0, grp.AverageRating)
		require.NotNil(t, grp.Instructor)
		assert.Equal(t, fx.faculty.Name, grp.Instructor.Name)
		require.NotNil(t, grp.EvaluationForm)
		assert.Equal(t, fx.form.Title, grp.EvaluationForm.Title)
	}
	today := time.Now().UTC().Format("2006-01-02")

	fx.run(t, []httpTest{
		{
			name:     "student",
			method:   http.MethodGet,
			path:     "/v1/evaluation/results",
			token:    fx.stdTkn,
			wantCode: http.StatusForbidden,
		},
		{
			name:   "list",
			method: http.MethodGet,
			path:   "/v1/evaluation/results",
			token:  fx.facTkn,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var groups []evaluation.ResultGroup
				unmarshal(t, rec, &groups)
				require.Len(t, groups, 1)
				checkGroup(t, groups[0])
			},
		},
		{
			name:     "filtered out",
			method:   http.MethodGet,
			path:     "/v1/evaluation/results?filter=" + `averageRating%20%3E%204`,
			token:    fx.adminTkn,
			wantData: marchallList(t),
		},
		{
			name:   "group",
			method: http.MethodGet,
			path:   "/v1/evaluation/results/" + groupKey,
			token:  fx.adminTkn,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var grp evaluation.ResultGroup
				unmarshal(t, rec, &grp)
				checkGroup(t, grp)
			},
		},
		{
			name:   "single response",
			method: http.MethodGet,
			path:   "/v1/evaluation/results/" + responses[0].ID,
			token:  fx.adminTkn,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp evaluation.PopulatedResponse
				unmarshal(t, rec, &resp)
				assert.Equal(t, responses[0].ID, resp.ID)
				require.NotNil(t, resp.Student)
				assert.Equal(t, fx.student.Email, resp.Student.Email)
				require.NotNil(t, resp.EvaluationForm)
			},
		},
		{
			name:     "unknown result",
			method:   http.MethodGet,
			path:     "/v1/evaluation/results/" + evaluation.GroupKey(fx.form.ID, fx.student.ID),
			token:    fx.adminTkn,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "evaluation result not found"}),
		},
		{
			name:     "unknown response",
			method:   http.MethodGet,
			path:     "/v1/evaluation/results/000000000000000000000000",
			token:    fx.adminTkn,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "evaluation response not found"}),
		},
		{
			name:   "by date",
			method: http.MethodGet,
			path:   "/v1/evaluation/results/date/" + today,
			token:  fx.adminTkn,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp []evaluation.PopulatedResponse
				unmarshal(t, rec, &resp)
				assert.Len(t, resp, 3)
			},
		},
		{
			name:     "by other date",
			method:   http.MethodGet,
			path:     "/v1/evaluation/results/date/2001-01-01",
			token:    fx.adminTkn,
			wantData: marchallList(t),
		},
		{
			name:     "by invalid date",
			method:   http.MethodGet,
			path:     "/v1/evaluation/results/date/yesterday",
			token:    fx.adminTkn,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"date": "invalid date, expected YYYY-MM-DD"}),
		},
	})
}

func Test_evaluationApi_exportResults(t *testing.T) {
	fx := setupEval(t)
	fx.submitAll(t)
	path := "/v1/evaluation/results/export"

	fx.run(t, []httpTest{
		{
			name:   "summary",
			method: http.MethodGet,
			path:   path,
			token:  fx.adminTkn,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))
				assert.Contains(t, rec.Header().Get("Content-Disposition"), "evaluation-results-summary-")
				lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
				require.Len(t, lines, 2)
				assert.Equal(t, "Instructor,Evaluation Form,Average Rating,Response Count,Evaluation Period", strings.TrimSpace(lines[0]))
				assert.Contains(t, lines[1], fx.faculty.Name)
			},
		},
		{
			name:   "detailed",
			method: http.MethodGet,
			path:   path + "?sheet=detailed",
			token:  fx.facTkn,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
				assert.Len(t, lines, 4)
				assert.Contains(t, rec.Body.String(), "Good course")
			},
		},
		{
			name:     "unknown sheet",
			method:   http.MethodGet,
			path:     path + "?sheet=pivot",
			token:    fx.adminTkn,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"sheet": "must be one of: summary detailed"}),
		},
		{
			name:     "by email",
			method:   http.MethodGet,
			path:     path + "?email=true",
			token:    fx.adminTkn,
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "The export has been sent to " + fx.admin.Email + "."}),
			check: func(t *testing.T, _ *httptest.ResponseRecorder) {
				var sent []string
				for _, msg := range emailsvc.SentMessages() {
					if msg.TemplateName != "results_export" {
						continue
					}
					require.Len(t, msg.Attachments, 1)
					sent = append(sent, msg.To[0].Address)
					assert.Contains(t, msg.Attachments[0].Filename, "evaluation-results-summary-")
				}
				assert.Equal(t, []string{fx.admin.Email}, sent)
			},
		},
	})
}

func Test_evaluationApi_destroyForm(t *testing.T) {
	fx := setupEval(t)
	fx.submitAll(t)
	path := "/v1/evaluation/" + fx.form.ID

	fx.run(t, []httpTest{
		{
			name:     "faculty",
			method:   http.MethodDelete,
			path:     path,
			token:    fx.facTkn,
			wantCode: http.StatusForbidden,
		},
		{
			name:   "faculty locks",
			method: http.MethodPost,
			path:   path + "/lock",
			token:  fx.facTkn,
		},
		{
			name:     "locked by another user",
			method:   http.MethodDelete,
			path:     path,
			token:    fx.adminTkn,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: evaluation.ErrFormLocked.Error()}),
		},
		{
			name:   "faculty releases",
			method: http.MethodDelete,
			path:   path + "/lock",
			token:  fx.facTkn,
		},
		{
			name:     "admin",
			method:   http.MethodDelete,
			path:     path,
			token:    fx.adminTkn,
			wantData: marchallObj(t, echoapi.DeleteFormResponse{Success: "Evaluation form deleted.", DeletedResponses: 3}),
			check: func(t *testing.T, _ *httptest.ResponseRecorder) {
				responses, err := fx.respRepo.QueryResponses(testCtx(), evaluation.ResponseFilter{FormID: fx.form.ID})
				require.NoError(t, err)
				assert.Empty(t, responses)
			},
		},
		{
			name:     "deleted",
			method:   http.MethodGet,
			path:     path,
			token:    fx.adminTkn,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "results are gone",
			method:   http.MethodGet,
			path:     "/v1/evaluation/results",
			token:    fx.adminTkn,
			wantData: marchallList(t),
		},
	})
}
