package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/neussi/comsas-uy1.com/core/event"
)

type eventApi struct {
	svc      event.Service
	validate *validator.Validate
}

func registerEventAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc event.Service, validate *validator.Validate) {
	api := eventApi{
		svc:      svc,
		validate: validate,
	}

	pg := g.Group("/events")
	pg.GET("", api.queryEvents)
	pg.GET("/:id", api.getEvent)
	pg.POST("/:id/registrations", api.register)

	sg := g.Group("/admin/events", jwt, staffMiddleware())
	sg.GET("", api.queryAllEvents)
	sg.POST("", api.createEvent)
	sg.PUT("/:id", api.updateEvent)
	sg.GET("/:id/registrations", api.queryRegistrations)

	rg := g.Group("/admin/registrations", jwt, staffMiddleware())
	rg.POST("/:id/confirm", api.confirmRegistration)
}

// Public handlers

func (api *eventApi) queryEvents(ctx echo.Context) error {
	events, err := api.svc.QueryEvents(ctx.Request().Context(), true)
	if err != nil {
		return errors.Wrap(err, "querying active events")
	}
	return ctx.JSON(http.StatusOK, nonNil(events))
}

func (api *eventApi) getEvent(ctx echo.Context) error {
	d, err := api.svc.GetEvent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting event")
	}
	if !d.IsActive {
		return event.ErrEventNotFound
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *eventApi) register(ctx echo.Context) error {
	var data event.NewRegistration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRegistration")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.Register(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "registering to event")
	}
	return ctx.JSON(http.StatusCreated, r)
}

// Staff handlers

func (api *eventApi) queryAllEvents(ctx echo.Context) error {
	events, err := api.svc.QueryEvents(ctx.Request().Context(), queryBool(ctx, "active"))
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	return ctx.JSON(http.StatusOK, nonNil(events))
}

func (api *eventApi) createEvent(ctx echo.Context) error {
	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.CreateEvent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *eventApi) updateEvent(ctx echo.Context) error {
	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.UpdateEvent(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *eventApi) queryRegistrations(ctx echo.Context) error {
	regs, err := api.svc.QueryRegistrations(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying registrations")
	}
	regs.Registrations = nonNil(regs.Registrations)
	return ctx.JSON(http.StatusOK, regs)
}

func (api *eventApi) confirmRegistration(ctx echo.Context) error {
	r, err := api.svc.ConfirmRegistration(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "confirming registration")
	}
	return ctx.JSON(http.StatusOK, r)
}
