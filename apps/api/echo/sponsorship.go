package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/neussi/comsas-uy1.com/core"
	"github.com/neussi/comsas-uy1.com/core/sponsorship"
)

type sponsorshipApi struct {
	svc      sponsorship.Service
	validate *validator.Validate
	logger   core.Logger
}

func registerSponsorshipAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc sponsorship.Service, validate *validator.Validate, logger core.Logger) {
	api := sponsorshipApi{
		svc:      svc,
		validate: validate,
		logger:   logger,
	}

	pg := g.Group("/sponsorship/sessions")
	pg.GET("", api.querySessions)
	pg.GET("/:id/mentors", api.queryMentors)
	pg.POST("/:id/mentors", api.registerMentor)
	pg.POST("/:id/mentees", api.registerMentee)
	pg.GET("/:id/matches", api.queryMatches)

	sg := g.Group("/admin/sponsorship", jwt, staffMiddleware())
	sg.GET("/sessions", api.queryAllSessions)
	sg.POST("/sessions", api.createSession)
	sg.PUT("/sessions/:id/active", api.setSessionActive)
	sg.GET("/sessions/:id/stats", api.stats)
	sg.GET("/sessions/:id/mentees", api.queryMentees)
	sg.GET("/sessions/:id/matches", api.queryAllMatches)
	sg.POST("/sessions/:id/auto-match", api.autoMatch)
	sg.GET("/sessions/:id/preview-match", api.previewMatch)
	sg.GET("/sessions/:id/matches.csv", api.exportMatches)
	sg.DELETE("/matches/:id", api.deactivateMatch)
}

// Public handlers

func (api *sponsorshipApi) querySessions(ctx echo.Context) error {
	sessions, err := api.svc.QuerySessions(ctx.Request().Context(), true)
	if err != nil {
		return errors.Wrap(err, "querying active sessions")
	}
	return ctx.JSON(http.StatusOK, nonNil(sessions))
}

func (api *sponsorshipApi) queryMentors(ctx echo.Context) error {
	var filter sponsorship.MentorFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to MentorFilter")
	}
	filter.SessionID = ctx.Param("id")

	mentors, err := api.svc.QueryMentors(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying mentors")
	}
	return ctx.JSON(http.StatusOK, nonNil(mentors))
}

func (api *sponsorshipApi) registerMentor(ctx echo.Context) error {
	var data sponsorship.NewMentor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMentor")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	mentor, err := api.svc.RegisterMentor(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "registering mentor")
	}
	return ctx.JSON(http.StatusCreated, mentor)
}

func (api *sponsorshipApi) registerMentee(ctx echo.Context) error {
	var data sponsorship.NewMentee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMentee")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	mentee, err := api.svc.RegisterMentee(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "registering mentee")
	}
	return ctx.JSON(http.StatusCreated, mentee)
}

func (api *sponsorshipApi) queryMatches(ctx echo.Context) error {
	filter := sponsorship.MatchFilter{SessionID: ctx.Param("id"), ActiveOnly: true}
	if _, err := api.svc.GetSession(ctx.Request().Context(), filter.SessionID); err != nil {
		return errors.Wrap(err, "getting session")
	}
	matches, err := api.svc.QueryMatches(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying matches")
	}
	return ctx.JSON(http.StatusOK, nonNil(matches))
}

// Staff handlers

func (api *sponsorshipApi) queryAllSessions(ctx echo.Context) error {
	sessions, err := api.svc.QuerySessions(ctx.Request().Context(), queryBool(ctx, "active"))
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	return ctx.JSON(http.StatusOK, nonNil(sessions))
}

func (api *sponsorshipApi) createSession(ctx echo.Context) error {
	var data sponsorship.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.CreateSession(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *sponsorshipApi) setSessionActive(ctx echo.Context) error {
	var data ActiveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ActiveRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	sess, err := api.svc.SetSessionActive(ctx.Request().Context(), ctx.Param("id"), *data.IsActive)
	if err != nil {
		return errors.Wrap(err, "setting session active")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sponsorshipApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing session stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *sponsorshipApi) queryMentees(ctx echo.Context) error {
	var filter sponsorship.MenteeFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to MenteeFilter")
	}
	filter.SessionID = ctx.Param("id")

	mentees, err := api.svc.QueryMentees(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying mentees")
	}
	return ctx.JSON(http.StatusOK, nonNil(mentees))
}

func (api *sponsorshipApi) queryAllMatches(ctx echo.Context) error {
	var filter sponsorship.MatchFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to MatchFilter")
	}
	filter.SessionID = ctx.Param("id")

	matches, err := api.svc.QueryMatches(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying matches")
	}
	return ctx.JSON(http.StatusOK, nonNil(matches))
}

func (api *sponsorshipApi) autoMatch(ctx echo.Context) error {
	sessionID := ctx.Param("id")
	if claims, err := getContextClaims(ctx); err == nil {
		api.logger.Info(fmt.Sprintf("auto-match of session %s requested by %s", sessionID, claims.Username))
	}

	res, err := api.svc.AutoMatch(ctx.Request().Context(), sessionID)
	if err != nil {
		return errors.Wrap(err, "auto-matching")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *sponsorshipApi) previewMatch(ctx echo.Context) error {
	assignments, err := api.svc.PreviewMatch(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "previewing match")
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *sponsorshipApi) exportMatches(ctx echo.Context) error {
	sessionID := ctx.Param("id")
	var buf bytes.Buffer
	if err := api.svc.ExportMatchesCSV(ctx.Request().Context(), sessionID, &buf); err != nil {
		return errors.Wrap(err, "exporting matches")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="binomes-%s.csv"`, sessionID))
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (api *sponsorshipApi) deactivateMatch(ctx echo.Context) error {
	match, err := api.svc.DeactivateMatch(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deactivating match")
	}
	return ctx.JSON(http.StatusOK, match)
}
