package contest

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/neussi/comsas-uy1.com/core"
)

var (
	// errors
	ErrContestNotFound       = core.NewError(core.KindNotFound, "Concours introuvable.")
	ErrCandidateNotFound     = core.NewError(core.KindNotFound, "Candidat introuvable.")
	ErrContestClosed         = core.NewError(core.KindPrecondition, "Le vote est clos pour ce concours (Date expirée ou inactif).")
	ErrCandidaciesClosed     = core.NewError(core.KindPrecondition, "Les candidatures libres ne sont pas ouvertes pour ce concours.")
	ErrEmailAlreadyVoted     = core.NewError(core.KindDuplicate, "Vous avez déjà voté pour ce concours (Email utilisé).")
	ErrMatriculeAlreadyVoted = core.NewError(core.KindDuplicate, "Ce matricule a déjà servi à voter pour ce concours.")
	ErrCandidateNotInContest = core.NewError(core.KindMismatch, "Ce candidat ne participe pas à ce concours.")
	ErrIdentityRequired      = errors.New("Veuillez saisir votre email et votre matricule.")
	ErrSlugExists            = errors.New("un concours avec ce slug existe déjà")
)

type (
	Repository interface {
		// CreateContest returns ErrSlugExists if the slug is taken.
		CreateContest(ctx context.Context, c Contest) (Contest, error)
		UpdateContest(ctx context.Context, c Contest) (Contest, error)
		GetContest(ctx context.Context, filter GetFilter) (Contest, error)
		QueryContests(ctx context.Context, activeOnly bool) ([]Contest, error)

		CreateCandidate(ctx context.Context, cand Candidate) (Candidate, error)
		GetCandidate(ctx context.Context, id string) (Candidate, error)
		UpdateCandidateStatus(ctx context.Context, id, status string) (Candidate, error)
		// QueryCandidates orders by votes (desc), then name.
		QueryCandidates(ctx context.Context, contestID string, approvedOnly bool) ([]Candidate, error)

		VoteExists(ctx context.Context, filter VoteFilter) (bool, error)
		// RecordVote stores the vote and increments the candidate's tally atomically,
		// returning the new tally. A concurrent duplicate on either identity key makes it
		// fail with ErrEmailAlreadyVoted or ErrMatriculeAlreadyVoted and nothing is stored.
		RecordVote(ctx context.Context, v Vote) (int, error)
		// Recount sets every candidate's tally to its number of stored votes.
		Recount(ctx context.Context, contestID string) ([]Candidate, error)
	}

	Service interface {
		CreateContest(ctx context.Context, nc NewContest) (Contest, error)
		UpdateContest(ctx context.Context, id string, uc UpdateContest) (Contest, error)
		GetContest(ctx context.Context, id string) (Contest, error)
		GetContestBySlug(ctx context.Context, slug string) (Contest, error)
		QueryContests(ctx context.Context, activeOnly bool) ([]Contest, error)

		AddCandidate(ctx context.Context, contestID string, nc NewCandidate) (Candidate, error)
		ProposeCandidate(ctx context.Context, contestID string, nc NewCandidate) (Candidate, error)
		SetCandidateStatus(ctx context.Context, id, status string) (Candidate, error)
		QueryCandidates(ctx context.Context, contestID string, approvedOnly bool) ([]Candidate, error)

		CastVote(ctx context.Context, contestID, candidateID string, ballot Ballot, rc RequestContext) (VoteResult, error)
		HasVoted(ctx context.Context, contestID string, rc RequestContext) (bool, error)
		Standings(ctx context.Context, contestID string) (Standings, error)
		Recount(ctx context.Context, contestID string) ([]Candidate, error)
	}

	service struct {
		repo     Repository
		notifier core.Notifier
		nowFunc  func() time.Time
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, notifier core.Notifier) Service {
	return &service{repo: repo, notifier: notifier, nowFunc: time.Now}
}

func (svc *service) CreateContest(ctx context.Context, nc NewContest) (Contest, error) {
	c, err := svc.repo.CreateContest(ctx, Contest{
		Slug:                  nc.Slug,
		Title:                 nc.Title,
		Description:           nc.Description,
		StartTime:             nc.StartTime.UTC(),
		EndTime:               nc.EndTime.UTC(),
		IsActive:              nc.IsActive == nil || *nc.IsActive,
		AllowPublicCandidates: nc.AllowPublicCandidates,
		CreatedAt:             svc.nowFunc().UTC(),
	})
	if errors.Cause(err) == ErrSlugExists {
		return Contest{}, core.NewValidationError(err, core.FieldError{Field: "slug", Error: err.Error()})
	}
	return c, err
}

func (svc *service) UpdateContest(ctx context.Context, id string, uc UpdateContest) (Contest, error) {
	c, err := svc.repo.GetContest(ctx, GetFilter{ID: id})
	if err != nil {
		return Contest{}, err
	}
	c.Title = uc.Title
	c.Description = uc.Description
	c.StartTime = uc.StartTime.UTC()
	c.EndTime = uc.EndTime.UTC()
	c.IsActive = uc.IsActive
	c.AllowPublicCandidates = uc.AllowPublicCandidates
	return svc.repo.UpdateContest(ctx, c)
}

func (svc *service) GetContest(ctx context.Context, id string) (Contest, error) {
	return svc.repo.GetContest(ctx, GetFilter{ID: id})
}

func (svc *service) GetContestBySlug(ctx context.Context, slug string) (Contest, error) {
	return svc.repo.GetContest(ctx, GetFilter{Slug: slug})
}

func (svc *service) QueryContests(ctx context.Context, activeOnly bool) ([]Contest, error) {
	return svc.repo.QueryContests(ctx, activeOnly)
}

func (svc *service) AddCandidate(ctx context.Context, contestID string, nc NewCandidate) (Candidate, error) {
	if _, err := svc.repo.GetContest(ctx, GetFilter{ID: contestID}); err != nil {
		return Candidate{}, err
	}
	return svc.createCandidate(ctx, contestID, nc, StatusApproved)
}

// ProposeCandidate registers a public candidacy. It stays pending until the bureau approves it.
func (svc *service) ProposeCandidate(ctx context.Context, contestID string, nc NewCandidate) (Candidate, error) {
	c, err := svc.repo.GetContest(ctx, GetFilter{ID: contestID})
	if err != nil {
		return Candidate{}, err
	}
	if !c.AllowPublicCandidates || !c.IsActive || svc.nowFunc().After(c.EndTime) {
		return Candidate{}, ErrCandidaciesClosed
	}
	cand, err := svc.createCandidate(ctx, contestID, nc, StatusPending)
	if err != nil {
		return Candidate{}, err
	}
	if svc.notifier != nil {
		svc.notifier.Notify(fmt.Sprintf("Nouvelle candidature pour « %s » : %s (en attente de validation).", c.Title, cand.Name))
	}
	return cand, nil
}

func (svc *service) createCandidate(ctx context.Context, contestID string, nc NewCandidate, status string) (Candidate, error) {
	return svc.repo.CreateCandidate(ctx, Candidate{
		ContestID:   contestID,
		Name:        nc.Name,
		Description: nc.Description,
		VideoURL:    nc.VideoURL,
		Status:      status,
		CreatedAt:   svc.nowFunc().UTC(),
	})
}

func (svc *service) SetCandidateStatus(ctx context.Context, id, status string) (Candidate, error) {
	return svc.repo.UpdateCandidateStatus(ctx, id, status)
}

func (svc *service) QueryCandidates(ctx context.Context, contestID string, approvedOnly bool) ([]Candidate, error) {
	return svc.repo.QueryCandidates(ctx, contestID, approvedOnly)
}

// CastVote records one vote. Checks run in a fixed order and the first failure is returned:
// identity present, contest open, email unused, matricule unused, candidate approved in the
// contest. The pre-checks only give friendly errors; uniqueness is enforced by the store.
func (svc *service) CastVote(ctx context.Context, contestID, candidateID string, ballot Ballot, rc RequestContext) (VoteResult, error) {
	ballot.Normalize()
	if ballot.Email == "" || ballot.Matricule == "" {
		return VoteResult{}, core.NewValidationError(ErrIdentityRequired)
	}

	c, err := svc.repo.GetContest(ctx, GetFilter{ID: contestID})
	if err != nil {
		return VoteResult{}, err
	}
	now := svc.nowFunc().UTC()
	if !c.IsOpen(now) {
		return VoteResult{}, ErrContestClosed
	}

	exists, err := svc.repo.VoteExists(ctx, VoteFilter{ContestID: c.ID, Email: ballot.Email})
	if err != nil {
		return VoteResult{}, errors.Wrap(err, "checking voter email")
	}
	if exists {
		return VoteResult{}, ErrEmailAlreadyVoted
	}
	exists, err = svc.repo.VoteExists(ctx, VoteFilter{ContestID: c.ID, Matricule: ballot.Matricule})
	if err != nil {
		return VoteResult{}, errors.Wrap(err, "checking voter matricule")
	}
	if exists {
		return VoteResult{}, ErrMatriculeAlreadyVoted
	}

	cand, err := svc.repo.GetCandidate(ctx, candidateID)
	if err != nil {
		if errors.Cause(err) == ErrCandidateNotFound {
			return VoteResult{}, ErrCandidateNotInContest
		}
		return VoteResult{}, err
	}
	if cand.ContestID != c.ID || cand.Status != StatusApproved {
		return VoteResult{}, ErrCandidateNotInContest
	}

	count, err := svc.repo.RecordVote(ctx, Vote{
		ContestID:      c.ID,
		CandidateID:    cand.ID,
		VoterEmail:     ballot.Email,
		VoterMatricule: ballot.Matricule,
		IPAddress:      rc.IPAddress,
		SessionToken:   rc.SessionToken,
		UserAgent:      rc.UserAgent,
		CreatedAt:      now,
	})
	if err != nil {
		return VoteResult{}, err
	}
	return VoteResult{CandidateID: cand.ID, VotesCount: count}, nil
}

// HasVoted reports whether a vote was cast in the contest from the same address and browser session.
func (svc *service) HasVoted(ctx context.Context, contestID string, rc RequestContext) (bool, error) {
	if rc.IPAddress == "" || rc.SessionToken == "" {
		return false, nil
	}
	return svc.repo.VoteExists(ctx, VoteFilter{
		ContestID:    contestID,
		IPAddress:    rc.IPAddress,
		SessionToken: rc.SessionToken,
	})
}

func (svc *service) Standings(ctx context.Context, contestID string) (Standings, error) {
	c, err := svc.repo.GetContest(ctx, GetFilter{ID: contestID})
	if err != nil {
		return Standings{}, err
	}
	cands, err := svc.repo.QueryCandidates(ctx, contestID, true)
	if err != nil {
		return Standings{}, errors.Wrap(err, "querying candidates")
	}
	total, standings := ComputeStandings(cands)
	return Standings{
		Contest:    c,
		IsOpen:     c.IsOpen(svc.nowFunc().UTC()),
		TotalVotes: total,
		Candidates: standings,
	}, nil
}

func (svc *service) Recount(ctx context.Context, contestID string) ([]Candidate, error) {
	if _, err := svc.repo.GetContest(ctx, GetFilter{ID: contestID}); err != nil {
		return nil, err
	}
	return svc.repo.Recount(ctx, contestID)
}

// ComputeStandings returns the total of votes and each candidate's share of it,
// rounded to one decimal. Shares are 0 when nobody voted.
func ComputeStandings(cands []Candidate) (int, []Standing) {
	total := 0
	for _, cand := range cands {
		total += cand.VotesCount
	}
	standings := make([]Standing, 0, len(cands))
	for _, cand := range cands {
		var pct float64
		if total > 0 {
			pct = core.Round(float64(cand.VotesCount)*100/float64(total), 1)
		}
		standings = append(standings, Standing{Candidate: cand, Percentage: pct})
	}
	return total, standings
}
