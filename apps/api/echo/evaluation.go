package echoapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ies/core"
	"github.com/trezcool/ies/core/evaluation"
	"github.com/trezcool/ies/core/user"
	exportsvc "github.com/trezcool/ies/services/export"
)

type evaluationApi struct {
	svc      *evaluation.Service
	usrSvc   *user.Service
	mailSvc  core.EmailService
	exporter exportsvc.Exporter
	validate *validator.Validate
}

func registerEvaluationAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := evaluationApi{
		svc:      deps.EvaluationSvc,
		usrSvc:   deps.UserSvc,
		mailSvc:  deps.MailSvc,
		exporter: deps.Exporter,
		validate: deps.Validate,
	}
	staff := staffMiddleware()

	eg := g.Group("/evaluation", authed...)
	eg.GET("", api.queryForms)
	eg.POST("", api.createForm, staff)

	// results
	rg := eg.Group("/results", staff)
	rg.GET("", api.queryResults)
	rg.GET("/export", api.exportResults)
	rg.GET("/date/:date", api.queryResultsByDate)
	rg.GET("/:id", api.retrieveResult)

	// detail endpoints
	dg := eg.Group("/:id")
	dg.GET("", api.retrieveForm)
	dg.PUT("", api.updateForm, staff)
	dg.PATCH("/status", api.updateFormStatus, staff)
	dg.DELETE("", api.destroyForm, adminMiddleware())
	dg.POST("/submit", api.submit)
	dg.GET("/my-responses", api.myResponses)
	dg.GET("/lock", api.retrieveLock, staff)
	dg.POST("/lock", api.acquireLock, staff)
	dg.DELETE("/lock", api.releaseLock, staff)
}

// Forms

func (api *evaluationApi) queryForms(ctx echo.Context) error {
	var filter evaluation.FormFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []evaluation.Form{})
	}
	forms, err := api.svc.QueryForms(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying forms")
	}
	if forms == nil {
		forms = []evaluation.Form{}
	}
	return ctx.JSON(http.StatusOK, forms)
}

func (api *evaluationApi) createForm(ctx echo.Context) error {
	var data evaluation.NewForm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewForm")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	form, err := api.svc.CreateForm(ctx.Request().Context(), data, usr)
	if err != nil {
		return errors.Wrap(err, "creating form")
	}
	return ctx.JSON(http.StatusCreated, form)
}

func (api *evaluationApi) retrieveForm(ctx echo.Context) error {
	form, err := api.svc.GetForm(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting form")
	}
	return ctx.JSON(http.StatusOK, form)
}

func (api *evaluationApi) updateForm(ctx echo.Context) error {
	var data evaluation.NewForm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewForm")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	form, err := api.svc.UpdateForm(ctx.Request().Context(), ctx.Param("id"), data, usr)
	if err != nil {
		return errors.Wrap(err, "updating form")
	}
	return ctx.JSON(http.StatusOK, form)
}

func (api *evaluationApi) updateFormStatus(ctx echo.Context) error {
	var data evaluation.StatusUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	form, err := api.svc.UpdateFormStatus(ctx.Request().Context(), ctx.Param("id"), data, usr)
	if err != nil {
		return errors.Wrap(err, "updating form status")
	}
	return ctx.JSON(http.StatusOK, form)
}

func (api *evaluationApi) destroyForm(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	n, err := api.svc.DeleteForm(ctx.Request().Context(), ctx.Param("id"), usr)
	if err != nil {
		return errors.Wrap(err, "deleting form")
	}
	return ctx.JSON(http.StatusOK, DeleteFormResponse{
		Success:          "Evaluation form deleted.",
		DeletedResponses: n,
	})
}

// Responses

// submit takes a single response object or a list of them.
func (api *evaluationApi) submit(ctx echo.Context) error {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading body")
	}
	body = bytes.TrimSpace(body)
	batch := len(body) > 0 && body[0] == '['

	var data []evaluation.NewResponse
	if batch {
		err = json.Unmarshal(body, &data)
	} else {
		var nr evaluation.NewResponse
		if len(body) > 0 {
			err = json.Unmarshal(body, &nr)
		}
		data = append(data, nr)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	for i := range data {
		data[i].StudentID = usr.ID
	}

	responses, err := api.svc.SubmitAll(ctx.Request().Context(), ctx.Param("id"), data...)
	if err != nil {
		return errors.Wrap(err, "submitting responses")
	}

	created := make([]SubmitResponse, 0, len(responses))
	for _, resp := range responses {
		created = append(created, SubmitResponse{ID: resp.ID, CreatedAt: resp.CreatedAt})
	}
	if batch {
		return ctx.JSON(http.StatusCreated, created)
	}
	return ctx.JSON(http.StatusCreated, created[0])
}

func (api *evaluationApi) myResponses(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	responses, err := api.svc.StudentResponses(ctx.Request().Context(), ctx.Param("id"), usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting student responses")
	}
	if responses == nil {
		responses = []evaluation.Response{}
	}
	return ctx.JSON(http.StatusOK, responses)
}

// Edit lock

func (api *evaluationApi) retrieveLock(ctx echo.Context) error {
	lock, err := api.svc.GetLock(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting form lock")
	}
	return ctx.JSON(http.StatusOK, lock)
}

func (api *evaluationApi) acquireLock(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	lock, err := api.svc.AcquireLock(ctx.Request().Context(), ctx.Param("id"), usr.ID)
	if err != nil {
		if errors.Cause(err) == evaluation.ErrFormLocked {
			return ctx.JSON(http.StatusConflict, LockConflictResponse{Error: err.Error(), Lock: lock})
		}
		return errors.Wrap(err, "acquiring form lock")
	}
	return ctx.JSON(http.StatusOK, lock)
}

func (api *evaluationApi) releaseLock(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.ReleaseLock(ctx.Request().Context(), ctx.Param("id"), usr.ID); err != nil {
		return errors.Wrap(err, "releasing form lock")
	}
	lock, err := api.svc.GetLock(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting form lock")
	}
	return ctx.JSON(http.StatusOK, lock)
}

type (
	SubmitResponse struct {
		ID        string    `json:"id"`
		CreatedAt time.Time `json:"createdAt"`
	}

	DeleteFormResponse struct {
		Success          string `json:"success"`
		DeletedResponses int64  `json:"deletedResponses"`
	}

	LockConflictResponse struct {
		Error string              `json:"error"`
		Lock  evaluation.FormLock `json:"lock"`
	}
)
