package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/neussi/comsas-uy1.com/core/contact"
)

type contactApi struct {
	svc      contact.Service
	validate *validator.Validate
}

func registerContactAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc contact.Service, validate *validator.Validate) {
	api := contactApi{
		svc:      svc,
		validate: validate,
	}

	g.POST("/contact", api.send)

	sg := g.Group("/admin/messages", jwt, staffMiddleware())
	sg.GET("", api.query)
	sg.GET("/:id", api.read)
	sg.POST("/:id/replied", api.markReplied)
	sg.DELETE("/:id", api.delete)
}

func (api *contactApi) send(ctx echo.Context) error {
	var data contact.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.Send(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *contactApi) query(ctx echo.Context) error {
	msgs, err := api.svc.Query(ctx.Request().Context(), contact.QueryFilter{Status: ctx.QueryParam("status")})
	if err != nil {
		return errors.Wrap(err, "querying messages")
	}
	return ctx.JSON(http.StatusOK, nonNil(msgs))
}

func (api *contactApi) read(ctx echo.Context) error {
	m, err := api.svc.Read(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "reading message")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *contactApi) markReplied(ctx echo.Context) error {
	m, err := api.svc.MarkReplied(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking message replied")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *contactApi) delete(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting message")
	}
	return ctx.NoContent(http.StatusNoContent)
}
