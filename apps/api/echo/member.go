package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/neussi/comsas-uy1.com/core/member"
)

type memberApi struct {
	svc      member.Service
	validate *validator.Validate
}

func registerMemberAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc member.Service, validate *validator.Validate) {
	api := memberApi{
		svc:      svc,
		validate: validate,
	}

	pg := g.Group("/members")
	pg.GET("", api.directory)
	pg.POST("", api.apply)

	sg := g.Group("/admin/members", jwt, staffMiddleware())
	sg.GET("", api.query)
	sg.GET("/:id", api.get)
	sg.PUT("/:id", api.update)
	sg.POST("/:id/approve", api.approve)
	sg.DELETE("/:id", api.reject)
}

// Public handlers

func (api *memberApi) directory(ctx echo.Context) error {
	profiles, err := api.svc.Directory(ctx.Request().Context(), ctx.QueryParam("type"))
	if err != nil {
		return errors.Wrap(err, "listing members")
	}
	return ctx.JSON(http.StatusOK, nonNil(profiles))
}

func (api *memberApi) apply(ctx echo.Context) error {
	var data member.Application
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Application")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.Apply(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "applying for membership")
	}
	return ctx.JSON(http.StatusCreated, m)
}

// Staff handlers

func (api *memberApi) query(ctx echo.Context) error {
	members, err := api.svc.Query(ctx.Request().Context(), member.QueryFilter{
		Type:   ctx.QueryParam("type"),
		Status: ctx.QueryParam("status"),
		Search: ctx.QueryParam("search"),
	})
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	return ctx.JSON(http.StatusOK, nonNil(members))
}

func (api *memberApi) get(ctx echo.Context) error {
	m, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting member")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) update(ctx echo.Context) error {
	var data member.Update
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Update")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating member")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) approve(ctx echo.Context) error {
	m, err := api.svc.Approve(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "approving member")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) reject(ctx echo.Context) error {
	if err := api.svc.Reject(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "rejecting member")
	}
	return ctx.NoContent(http.StatusNoContent)
}
