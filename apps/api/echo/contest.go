package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/neussi/comsas-uy1.com/core/contest"
)

const (
	voterSessionName   = "comsas_voter"
	voterTokenKey      = "token"
	voterSessionMaxAge = 60 * 60 * 24 * 30 // 30 days
)

type contestApi struct {
	svc      contest.Service
	store    sessions.Store
	validate *validator.Validate
}

func registerContestAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc contest.Service, store sessions.Store, validate *validator.Validate) {
	api := contestApi{
		svc:      svc,
		store:    store,
		validate: validate,
	}

	pg := g.Group("/contests")
	pg.GET("", api.queryContests)
	pg.GET("/:slug", api.standings)
	pg.POST("/:slug/candidates", api.proposeCandidate)
	pg.POST("/:slug/candidates/:id/vote", api.vote)

	sg := g.Group("/admin", jwt, staffMiddleware())
	sg.GET("/contests", api.queryAllContests)
	sg.POST("/contests", api.createContest)
	sg.PUT("/contests/:id", api.updateContest)
	sg.GET("/contests/:id/candidates", api.queryCandidates)
	sg.POST("/contests/:id/candidates", api.addCandidate)
	sg.POST("/contests/:id/recount", api.recount)
	sg.PUT("/candidates/:id/status", api.setCandidateStatus)
}

// voterToken returns the anonymous browser token of the request, issuing a new one if needed.
func (api *contestApi) voterToken(ctx echo.Context) (string, error) {
	sess, err := api.store.Get(ctx.Request(), voterSessionName)
	if err != nil && sess == nil {
		return "", errors.Wrap(err, "getting voter session")
	}
	if token, ok := sess.Values[voterTokenKey].(string); ok && token != "" {
		return token, nil
	}

	// a tampered or expired cookie yields a fresh session
	token := uuid.New().String()
	sess.Values[voterTokenKey] = token
	if err = sess.Save(ctx.Request(), ctx.Response()); err != nil {
		return "", errors.Wrap(err, "saving voter session")
	}
	return token, nil
}

func (api *contestApi) requestContext(ctx echo.Context) (contest.RequestContext, error) {
	token, err := api.voterToken(ctx)
	if err != nil {
		return contest.RequestContext{}, err
	}
	return contest.RequestContext{
		IPAddress:    ctx.RealIP(),
		UserAgent:    ctx.Request().UserAgent(),
		SessionToken: token,
	}, nil
}

// Public handlers

func (api *contestApi) queryContests(ctx echo.Context) error {
	contests, err := api.svc.QueryContests(ctx.Request().Context(), true)
	if err != nil {
		return errors.Wrap(err, "querying active contests")
	}
	return ctx.JSON(http.StatusOK, nonNil(contests))
}

func (api *contestApi) standings(ctx echo.Context) error {
	c, err := api.svc.GetContestBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "getting contest by slug")
	}
	standings, err := api.svc.Standings(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "computing standings")
	}

	rc, err := api.requestContext(ctx)
	if err != nil {
		return err
	}
	hasVoted, err := api.svc.HasVoted(ctx.Request().Context(), c.ID, rc)
	if err != nil {
		return errors.Wrap(err, "checking previous vote")
	}
	return ctx.JSON(http.StatusOK, StandingsResponse{Standings: standings, HasVoted: hasVoted})
}

func (api *contestApi) proposeCandidate(ctx echo.Context) error {
	var data contest.NewCandidate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCandidate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.GetContestBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "getting contest by slug")
	}
	cand, err := api.svc.ProposeCandidate(ctx.Request().Context(), c.ID, data)
	if err != nil {
		return errors.Wrap(err, "proposing candidate")
	}
	return ctx.JSON(http.StatusCreated, cand)
}

func (api *contestApi) vote(ctx echo.Context) error {
	var ballot contest.Ballot
	if err := ctx.Bind(&ballot); err != nil {
		return errors.Wrap(err, "binding to Ballot")
	}
	if err := ballot.Validate(); err != nil {
		return err
	}

	c, err := api.svc.GetContestBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "getting contest by slug")
	}
	// a closed contest answers 403 whatever the identity looks like
	if c.IsOpen(time.Now()) {
		if err := ballot.ValidateFormat(api.validate); err != nil {
			return err
		}
	}
	rc, err := api.requestContext(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.CastVote(ctx.Request().Context(), c.ID, ctx.Param("id"), ballot, rc)
	if err != nil {
		return errors.Wrap(err, "casting vote")
	}
	return ctx.JSON(http.StatusOK, VoteResponse{Success: true, NewCount: res.VotesCount})
}

// Staff handlers

func (api *contestApi) queryAllContests(ctx echo.Context) error {
	contests, err := api.svc.QueryContests(ctx.Request().Context(), queryBool(ctx, "active"))
	if err != nil {
		return errors.Wrap(err, "querying contests")
	}
	return ctx.JSON(http.StatusOK, nonNil(contests))
}

func (api *contestApi) createContest(ctx echo.Context) error {
	var data contest.NewContest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewContest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.CreateContest(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating contest")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *contestApi) updateContest(ctx echo.Context) error {
	var data contest.UpdateContest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateContest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.UpdateContest(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating contest")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *contestApi) queryCandidates(ctx echo.Context) error {
	cands, err := api.svc.QueryCandidates(ctx.Request().Context(), ctx.Param("id"), queryBool(ctx, "approved"))
	if err != nil {
		return errors.Wrap(err, "querying candidates")
	}
	return ctx.JSON(http.StatusOK, nonNil(cands))
}

func (api *contestApi) addCandidate(ctx echo.Context) error {
	var data contest.NewCandidate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCandidate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cand, err := api.svc.AddCandidate(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding candidate")
	}
	return ctx.JSON(http.StatusCreated, cand)
}

func (api *contestApi) setCandidateStatus(ctx echo.Context) error {
	var data contest.CandidateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CandidateStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cand, err := api.svc.SetCandidateStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "setting candidate status")
	}
	return ctx.JSON(http.StatusOK, cand)
}

func (api *contestApi) recount(ctx echo.Context) error {
	cands, err := api.svc.Recount(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "recounting votes")
	}
	return ctx.JSON(http.StatusOK, nonNil(cands))
}

type (
	StandingsResponse struct {
		contest.Standings
		HasVoted bool `json:"has_voted"`
	}

	VoteResponse struct {
		Success  bool `json:"success"`
		NewCount int  `json:"new_count"`
	}
)
