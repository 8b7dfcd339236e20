package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/neussi/comsas-uy1.com/apps/api/echo"
	"github.com/neussi/comsas-uy1.com/core/contest"
	"github.com/neussi/comsas-uy1.com/core/user"
	"github.com/neussi/comsas-uy1.com/tests"
)

func ballot(t *testing.T, email, matricule string) []byte {
	return marshallObj(t, contest.Ballot{Email: email, Matricule: matricule})
}

func Test_contestApi_vote(t *testing.T) {
	app := setup(t)
	now := time.Now()
	miss := testutil.CreateOpenContest(t, app.contestRepo, "miss-2026")
	ended := testutil.CreateContest(t, app.contestRepo, "miss-2025", now.AddDate(-1, 0, 0), now.AddDate(0, -11, 0), true)
	other := testutil.CreateOpenContest(t, app.contestRepo, "mister-2026")
	alice := testutil.CreateCandidate(t, app.contestRepo, miss.ID, "Alice", contest.StatusApproved)
	bob := testutil.CreateCandidate(t, app.contestRepo, miss.ID, "Bob", contest.StatusApproved)
	pending := testutil.CreateCandidate(t, app.contestRepo, miss.ID, "Carl", contest.StatusPending)
	dan := testutil.CreateCandidate(t, app.contestRepo, other.ID, "Dan", contest.StatusApproved)
	eve := testutil.CreateCandidate(t, app.contestRepo, ended.ID, "Eve", contest.StatusApproved)

	votePath := func(slug, candidateID string) string {
		return "/v1/contests/" + slug + "/candidates/" + candidateID + "/vote"
	}

	// the first visit issues the voter cookie
	rec := app.do(newRequest(http.MethodGet, "/v1/contests/miss-2026"))
	require.Equal(t, http.StatusOK, rec.Code)
	var standings echoapi.StandingsResponse
	unmarshall(t, rec, &standings)
	assert.False(t, standings.HasVoted)
	assert.True(t, standings.IsOpen)
	assert.Len(t, standings.Candidates, 2)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := newRequest(http.MethodPost, votePath("miss-2026", alice.ID), ballot(t, " Voter@Test.cm", "20u1234"))
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = app.do(req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, echoapi.VoteResponse{Success: true, NewCount: 1})}, rec)

	tests := []httpTest{
		{name: "no identity", path: votePath("miss-2026", bob.ID), body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: contest.ErrIdentityRequired.Error()})},
		{name: "invalid email", path: votePath("miss-2026", bob.ID), body: ballot(t, "not-an-email", "20U1"), wantCode: http.StatusBadRequest},
		{name: "invalid matricule", path: votePath("miss-2026", bob.ID), body: ballot(t, "x@test.cm", "20U_1"), wantCode: http.StatusBadRequest},
		{name: "matricule too long", path: votePath("miss-2026", bob.ID), body: ballot(t, "x@test.cm", "20U12345678901234567890"), wantCode: http.StatusBadRequest},
		{
			name: "malformed email, closed contest", path: votePath("miss-2025", eve.ID), body: ballot(t, "not-an-email", "X1"),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: contest.ErrContestClosed.Error()}),
		},
		{
			name: "malformed matricule, closed contest", path: votePath("miss-2025", eve.ID), body: ballot(t, "x@test.cm", "20U_1"),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: contest.ErrContestClosed.Error()}),
		},
		{
			name: "dashed and slashed matricule", path: votePath("mister-2026", dan.ID), body: ballot(t, "dash@test.cm", "20u-1/b"),
			wantCode: http.StatusOK, wantData: marshallObj(t, echoapi.VoteResponse{Success: true, NewCount: 1}),
		},
		{
			name: "email reused", path: votePath("miss-2026", bob.ID), body: ballot(t, "voter@test.cm", "21U0001"),
			wantCode: http.StatusConflict, wantData: marshallObj(t, httpErr{Error: contest.ErrEmailAlreadyVoted.Error()}),
		},
		{
			name: "matricule reused", path: votePath("miss-2026", bob.ID), body: ballot(t, "other@test.cm", "20U1234"),
			wantCode: http.StatusConflict, wantData: marshallObj(t, httpErr{Error: contest.ErrMatriculeAlreadyVoted.Error()}),
		},
		{
			name: "pending candidate", path: votePath("miss-2026", pending.ID), body: ballot(t, "x@test.cm", "X1"),
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: contest.ErrCandidateNotInContest.Error()}),
		},
		{name: "candidate of another contest", path: votePath("miss-2026", dan.ID), body: ballot(t, "x@test.cm", "X1"), wantCode: http.StatusNotFound},
		{
			name: "closed contest", path: votePath("miss-2025", eve.ID), body: ballot(t, "x@test.cm", "X1"),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: contest.ErrContestClosed.Error()}),
		},
		{
			name: "unknown contest", path: votePath("nope", alice.ID), body: ballot(t, "x@test.cm", "X1"),
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: contest.ErrContestNotFound.Error()}),
		},
		{
			name: "same voter, other contest", path: votePath("mister-2026", dan.ID), body: ballot(t, "voter@test.cm", "20U1234"),
			wantCode: http.StatusOK, wantData: marshallObj(t, echoapi.VoteResponse{Success: true, NewCount: 2}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newRequest(http.MethodPost, tt.path, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}

	// the browser that voted is recognized
	req = newRequest(http.MethodGet, "/v1/contests/miss-2026")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = app.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshall(t, rec, &standings)
	assert.True(t, standings.HasVoted)
	assert.Equal(t, 1, standings.TotalVotes)
	require.Len(t, standings.Candidates, 2)
	assert.Equal(t, "Alice", standings.Candidates[0].Name)
	assert.Equal(t, 100.0, standings.Candidates[0].Percentage)
	assert.Equal(t, 0.0, standings.Candidates[1].Percentage)

	// a fresh browser is not
	rec = app.do(newRequest(http.MethodGet, "/v1/contests/miss-2026"))
	unmarshall(t, rec, &standings)
	assert.False(t, standings.HasVoted)

	rec = app.do(newRequest(http.MethodGet, "/v1/contests"))
	require.Equal(t, http.StatusOK, rec.Code)
	var contests []contest.Contest
	unmarshall(t, rec, &contests)
	assert.Len(t, contests, 3)
}

func Test_contestApi_proposeCandidate(t *testing.T) {
	app := setup(t)
	now := time.Now()
	closed := testutil.CreateOpenContest(t, app.contestRepo, "closed")
	open, err := app.contestRepo.CreateContest(testCtx, contest.Contest{
		Slug:                  "open",
		Title:                 "Open",
		StartTime:             now.Add(-time.Hour).UTC(),
		EndTime:               now.Add(time.Hour).UTC(),
		IsActive:              true,
		AllowPublicCandidates: true,
		CreatedAt:             now.UTC(),
	})
	require.NoError(t, err)

	candidate := marshallObj(t, contest.NewCandidate{Name: " Zed ", VideoURL: "https://example.com/zed"})
	runHTTPTests(t, app, []httpTest{
		{name: "not allowed", method: http.MethodPost, path: "/v1/contests/closed/candidates", body: candidate, wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: contest.ErrCandidaciesClosed.Error()})},
		{name: "invalid url", method: http.MethodPost, path: "/v1/contests/open/candidates", body: marshallObj(t, contest.NewCandidate{Name: "Zed", VideoURL: "zed"}), wantCode: http.StatusBadRequest},
		{name: "proposed", method: http.MethodPost, path: "/v1/contests/open/candidates", body: candidate, wantCode: http.StatusCreated},
	})

	cands, err := app.contestRepo.QueryCandidates(testCtx, open.ID, false)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "Zed", cands[0].Name)
	assert.Equal(t, contest.StatusPending, cands[0].Status)
	require.Len(t, app.notifier.Texts(), 1)

	cands, err = app.contestRepo.QueryCandidates(testCtx, closed.ID, false)
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func Test_contestApi_admin(t *testing.T) {
	app := setup(t)
	bureau := testutil.CreateUser(t, app.usrRepo, "Bureau", "bureau", "bureau@test.cm", "", []string{user.RoleBureau}, true)
	member := testutil.CreateUser(t, app.usrRepo, "Member", "member", "member@test.cm", "", nil, true)
	token := app.token(t, bureau)
	start := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)

	newContest := marshallObj(t, contest.NewContest{
		Title:                 "Miss Informatique 2026",
		StartTime:             start,
		EndTime:               start.Add(48 * time.Hour),
		AllowPublicCandidates: true,
	})

	rec := app.do(newAuthRequest(http.MethodPost, "/v1/admin/contests", app.token(t, member), newContest))
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden)}, rec)

	rec = app.do(newAuthRequest(http.MethodPost, "/v1/admin/contests", token, newContest))
	require.Equal(t, http.StatusCreated, rec.Code)
	var c contest.Contest
	unmarshall(t, rec, &c)
	assert.Equal(t, "miss-informatique-2026", c.Slug)
	assert.True(t, c.IsActive)

	rec = app.do(newAuthRequest(http.MethodPost, "/v1/admin/contests", token, newContest))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marshallObj(t, map[string]string{"slug": contest.ErrSlugExists.Error()}),
	}, rec)

	rec = app.do(newAuthRequest(http.MethodPost, "/v1/admin/contests", token, marshallObj(t, contest.NewContest{
		Title: "Backwards", StartTime: start, EndTime: start.Add(-time.Hour),
	})))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// candidates added by the bureau are approved right away
	rec = app.do(newAuthRequest(http.MethodPost, "/v1/admin/contests/"+c.ID+"/candidates", token, marshallObj(t, contest.NewCandidate{Name: "Alice"})))
	require.Equal(t, http.StatusCreated, rec.Code)
	var alice contest.Candidate
	unmarshall(t, rec, &alice)
	assert.Equal(t, contest.StatusApproved, alice.Status)

	rec = app.do(newAuthRequest(http.MethodPost, "/v1/admin/contests/nope/candidates", token, marshallObj(t, contest.NewCandidate{Name: "Ghost"})))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	runHTTPTests(t, app, []httpTest{
		{name: "bad status", method: http.MethodPut, path: "/v1/admin/candidates/" + alice.ID + "/status", body: []byte(`{"status": "elected"}`), token: token, wantCode: http.StatusBadRequest},
		{name: "reject", method: http.MethodPut, path: "/v1/admin/candidates/" + alice.ID + "/status", body: []byte(`{"status": "REJECTED"}`), token: token, wantCode: http.StatusOK},
		{name: "unknown candidate", method: http.MethodPut, path: "/v1/admin/candidates/nope/status", body: []byte(`{"status": "approved"}`), token: token, wantCode: http.StatusNotFound},
	})

	rec = app.do(newAuthRequest(http.MethodGet, "/v1/admin/contests/"+c.ID+"/candidates?approved=true", token))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallList(t)}, rec)

	rec = app.do(newAuthRequest(http.MethodGet, "/v1/admin/contests/"+c.ID+"/candidates", token))
	require.Equal(t, http.StatusOK, rec.Code)
	var cands []contest.Candidate
	unmarshall(t, rec, &cands)
	require.Len(t, cands, 1)
	assert.Equal(t, contest.StatusRejected, cands[0].Status)

	rec = app.do(newAuthRequest(http.MethodPost, "/v1/admin/contests/"+c.ID+"/recount", token))
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshall(t, rec, &cands)
	require.Len(t, cands, 1)
	assert.Equal(t, 0, cands[0].VotesCount)

	// deactivating hides the contest from the public listing
	rec = app.do(newAuthRequest(http.MethodPut, "/v1/admin/contests/"+c.ID, token, marshallObj(t, contest.UpdateContest{
		Title: "Miss Info 2026", StartTime: start, EndTime: start.Add(48 * time.Hour), IsActive: false,
	})))
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshall(t, rec, &c)
	assert.Equal(t, "Miss Info 2026", c.Title)
	assert.Equal(t, "miss-informatique-2026", c.Slug)

	rec = app.do(newRequest(http.MethodGet, "/v1/contests"))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallList(t)}, rec)

	rec = app.do(newAuthRequest(http.MethodGet, "/v1/admin/contests", token))
	require.Equal(t, http.StatusOK, rec.Code)
	var contests []contest.Contest
	unmarshall(t, rec, &contests)
	assert.Len(t, contests, 1)
}
