package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/ies/apps/api/echo"
	"github.com/trezcool/ies/core"
	"github.com/trezcool/ies/core/calendar"
	"github.com/trezcool/ies/core/evaluation"
	"github.com/trezcool/ies/core/user"
	emailsvc "github.com/trezcool/ies/services/email"
	exportsvc "github.com/trezcool/ies/services/export"
	googlesvc "github.com/trezcool/ies/services/google"
	logsvc "github.com/trezcool/ies/services/logger"
	inmemdb "github.com/trezcool/ies/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type fixture struct {
	app       *echoapi.Server
	conf      *core.Config
	usrRepo   user.Repository
	formRepo  evaluation.FormRepository
	respRepo  evaluation.ResponseRepository
	eventRepo calendar.Repository
	google    *googleVerifierMock
}

func setup(t *testing.T) *fixture {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLoggerMock()
	core.ParseEmailTemplates(conf, logger)
	user.LoadCommonPasswords(logger)
	emailsvc.ResetSentMessages()

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator, conf.AllowedEmailDomains)
	evaluation.InitValidators(validate, translator)

	db := inmemdb.Open()
	fx := &fixture{
		conf:      conf,
		usrRepo:   inmemdb.NewUserRepository(db),
		formRepo:  inmemdb.NewFormRepository(db),
		respRepo:  inmemdb.NewResponseRepository(db),
		eventRepo: inmemdb.NewEventRepository(db),
		google:    &googleVerifierMock{profiles: make(map[string]googlesvc.Profile)},
	}

	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrSvc := user.NewService(fx.usrRepo, mailSvc, conf, logger)
	evalSvc := evaluation.NewServiceMock(evaluation.ServiceDeps{
		Forms:      fx.formRepo,
		Responses:  fx.respRepo,
		Users:      usrSvc,
		Transactor: inmemdb.NewTransactor(),
		Locker:     inmemdb.NewFormLocker(),
		Notifier:   evaluation.NewMailNotifier(mailSvc, usrSvc),
		Logger:     logger,
		Conf:       conf,
	})

	fx.app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		MailSvc:        mailSvc,
		UserSvc:        usrSvc,
		EvaluationSvc:  evalSvc,
		CalendarSvc:    calendar.NewService(fx.eventRepo, usrSvc, logger),
		Exporter:       exportsvc.NewCSVExporter(),
		Google:         fx.google,
		DisableReqLogs: true,
	})
	return fx
}

func testCtx() context.Context { return context.Background() }

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// googleVerifierMock accepts the credentials of its profiles.
type googleVerifierMock struct {
	profiles map[string]googlesvc.Profile
}

func (m *googleVerifierMock) Verify(_ context.Context, credential string) (googlesvc.Profile, error) {
	p, ok := m.profiles[credential]
	if !ok {
		return googlesvc.Profile{}, googlesvc.ErrInvalidCredential
	}
	return p, nil
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	check    func(t *testing.T, rec *httptest.ResponseRecorder)
}

func (fx *fixture) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			fx.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
			if tt.check != nil {
				tt.check(t, rec)
			}
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func (fx *fixture) getToken(t *testing.T, usr user.User) string {
	token, err := echoapi.GenerateUserToken(fx.conf, usr)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

// checkCodeAndData compares the body only when wantData is set.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
