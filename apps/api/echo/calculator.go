package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campusdesk/portal/core/calculator"
)

type calculatorApi struct {
	svc      *calculator.Service
	validate *validator.Validate
}

func registerCalculatorAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *calculator.Service, validate *validator.Validate) {
	api := calculatorApi{
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/calculator")

	// un-authed endpoints
	cg.GET("/grades", api.grades)

	// authed endpoints
	sg := cg.Group("/sessions", jwt)
	sg.POST("", api.start)
	sg.GET("", api.list)
	sg.GET("/:id", api.retrieve)
	sg.DELETE("/:id", api.end)
	sg.POST("/:id/entries", api.addEntry)
	sg.PATCH("/:id/entries/:entryID", api.updateEntry)
	sg.DELETE("/:id/entries/:entryID", api.removeEntry)
	sg.POST("/:id/calculate", api.calculate)
	sg.POST("/:id/reset", api.reset)
}

// sessionOwner is the ID of the authenticated user, who owns every session they start.
func sessionOwner(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	return claims.Subject, nil
}

func (api *calculatorApi) bindEntry(ctx echo.Context) (calculator.UpdateEntry, error) {
	var data calculator.UpdateEntry
	if err := ctx.Bind(&data); err != nil {
		return data, errors.Wrap(err, "binding to UpdateEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return data, err
	}
	return data, nil
}

// Handlers

func (api *calculatorApi) grades(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.GradeScale())
}

func (api *calculatorApi) start(ctx echo.Context) error {
	owner, err := sessionOwner(ctx)
	if err != nil {
		return err
	}
	sess, err := api.svc.Start(owner)
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *calculatorApi) list(ctx echo.Context) error {
	owner, err := sessionOwner(ctx)
	if err != nil {
		return err
	}
	sessions, err := api.svc.List(owner)
	if err != nil {
		return errors.Wrap(err, "listing sessions")
	}
	if sessions == nil {
		sessions = []calculator.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *calculatorApi) retrieve(ctx echo.Context) error {
	owner, err := sessionOwner(ctx)
	if err != nil {
		return err
	}
	sess, err := api.svc.Get(owner, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *calculatorApi) end(ctx echo.Context) error {
	owner, err := sessionOwner(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.End(owner, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "ending session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *calculatorApi) addEntry(ctx echo.Context) error {
	owner, err := sessionOwner(ctx)
	if err != nil {
		return err
	}
	data, err := api.bindEntry(ctx)
	if err != nil {
		return err
	}
	entry, err := api.svc.AddEntry(owner, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding entry")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *calculatorApi) updateEntry(ctx echo.Context) error {
	owner, err := sessionOwner(ctx)
	if err != nil {
		return err
	}
	data, err := api.bindEntry(ctx)
	if err != nil {
		return err
	}
	if data.IsEmpty() {
		return errEmptyUpdate
	}
	entry, err := api.svc.UpdateEntry(owner, ctx.Param("id"), ctx.Param("entryID"), data)
	if err != nil {
		return errors.Wrap(err, "updating entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *calculatorApi) removeEntry(ctx echo.Context) error {
	owner, err := sessionOwner(ctx)
	if err != nil {
		return err
	}
	removed, err := api.svc.RemoveEntry(owner, ctx.Param("id"), ctx.Param("entryID"))
	if err != nil {
		return errors.Wrap(err, "removing entry")
	}
	return ctx.JSON(http.StatusOK, RemoveEntryResponse{Removed: removed})
}

func (api *calculatorApi) calculate(ctx echo.Context) error {
	owner, err := sessionOwner(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.Calculate(owner, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "calculating")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *calculatorApi) reset(ctx echo.Context) error {
	owner, err := sessionOwner(ctx)
	if err != nil {
		return err
	}
	sess, err := api.svc.Reset(owner, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "resetting session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

// RemoveEntryResponse tells whether the entry went away; removing a table's only entry is a no-op.
type RemoveEntryResponse struct {
	Removed bool `json:"removed"`
}
