package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ies/core/calendar"
	"github.com/trezcool/ies/core/user"
)

type calendarApi struct {
	svc      *calendar.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerCalendarAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := calendarApi{
		svc:      deps.CalendarSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}
	staff := staffMiddleware()

	cg := g.Group("/calendar", authed...)
	cg.GET("", api.query)
	cg.GET("/range", api.queryRange)
	cg.POST("", api.create, staff)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, staff)
	cg.DELETE("/:id", api.destroy, staff)
}

func (api *calendarApi) query(ctx echo.Context) error {
	events, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing events")
	}
	return api.list(ctx, events)
}

func (api *calendarApi) queryRange(ctx echo.Context) error {
	var start, end time.Time
	if err := bindTimeParams(ctx, []string{"start", "end"}, &start, &end); err != nil {
		return err
	}
	events, err := api.svc.ListRange(ctx.Request().Context(), start, end)
	if err != nil {
		return errors.Wrap(err, "listing events in range")
	}
	return api.list(ctx, events)
}

func (api *calendarApi) list(ctx echo.Context, events []calendar.Event) error {
	if events == nil {
		events = []calendar.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *calendarApi) create(ctx echo.Context) error {
	var data calendar.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	evt, err := api.svc.Create(ctx.Request().Context(), data, usr)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, evt)
}

func (api *calendarApi) retrieve(ctx echo.Context) error {
	evt, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *calendarApi) update(ctx echo.Context) error {
	var data calendar.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	evt, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *calendarApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}
