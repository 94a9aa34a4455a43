package echoapi

import (
	"bytes"
	"net/http"
	"net/mail"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ies/core"
	"github.com/trezcool/ies/core/evaluation"
	exportsvc "github.com/trezcool/ies/services/export"
)

func (api *evaluationApi) queryResults(ctx echo.Context) error {
	groups, err := api.svc.ListResults(ctx.Request().Context(), ctx.QueryParam("filter"))
	if err != nil {
		return errors.Wrap(err, "listing results")
	}
	if groups == nil {
		groups = []evaluation.ResultGroup{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *evaluationApi) queryResultsByDate(ctx echo.Context) error {
	day, err := time.Parse(dateLayout, ctx.Param("date"))
	if err != nil {
		return core.NewFieldValidationError("date", "invalid date, expected YYYY-MM-DD")
	}
	responses, err := api.svc.ListResultsByDate(ctx.Request().Context(), day)
	if err != nil {
		return errors.Wrap(err, "listing results by date")
	}
	if responses == nil {
		responses = []evaluation.PopulatedResponse{}
	}
	return ctx.JSON(http.StatusOK, responses)
}

// retrieveResult returns the result group when id is a group key, the single response otherwise.
func (api *evaluationApi) retrieveResult(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, _, ok := evaluation.ParseGroupKey(id); ok {
		grp, err := api.svc.GetResult(ctx.Request().Context(), id)
		if err != nil {
			return errors.Wrap(err, "getting result")
		}
		return ctx.JSON(http.StatusOK, grp)
	}

	resp, err := api.svc.GetResponse(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting response")
	}
	return ctx.JSON(http.StatusOK, resp)
}

// exportResults downloads the results sheet, or mails it to the user when `email=true`.
func (api *evaluationApi) exportResults(ctx echo.Context) error {
	sheet := ctx.QueryParam("sheet")
	switch sheet {
	case "":
		sheet = exportsvc.SheetSummary
	case exportsvc.SheetSummary, exportsvc.SheetDetailed:
	default:
		return core.NewFieldValidationError("sheet", "must be one of: summary detailed")
	}

	groups, err := api.svc.ListResults(ctx.Request().Context(), ctx.QueryParam("filter"))
	if err != nil {
		return errors.Wrap(err, "listing results")
	}
	content, err := exportsvc.ExportBytes(api.exporter, sheet, groups)
	if err != nil {
		return errors.Wrap(err, "exporting results")
	}
	now := time.Now()
	filename := api.exporter.Filename(sheet, now)

	if byEmail, _ := strconv.ParseBool(ctx.QueryParam("email")); byEmail {
		usr, err := getContextUser(ctx, api.usrSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		msg := &core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      "Evaluation Results Export",
			TemplateName: "results_export",
			TemplateData: map[string]string{
				"Name":        usr.Name,
				"Sheet":       sheet,
				"GeneratedAt": now.UTC().Format("January 2, 2006 15:04 MST"),
			},
		}
		if err = msg.Attach(bytes.NewReader(content), filename, api.exporter.ContentType()); err != nil {
			return errors.Wrap(err, "attaching export")
		}
		api.mailSvc.SendMessages(msg)
		return ctx.JSON(http.StatusOK, SuccessResponse{Success: "The export has been sent to " + usr.Email + "."})
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(http.StatusOK, api.exporter.ContentType(), content)
}
