package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/neussi/comsas-uy1.com/core/contest"
)

type contestRepository struct {
	db *DB
}

var _ contest.Repository = (*contestRepository)(nil)

func NewContestRepository(db *DB) contest.Repository {
	return &contestRepository{db: db}
}

func (repo *contestRepository) CreateContest(_ context.Context, c contest.Contest) (contest.Contest, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, other := range repo.db.contests {
		if other.Slug == c.Slug {
			return contest.Contest{}, contest.ErrSlugExists
		}
	}
	c.ID = uuid.New().String()
	repo.db.contests[c.ID] = &c
	repo.db.track(c.ID)
	return c, nil
}

func (repo *contestRepository) UpdateContest(_ context.Context, c contest.Contest) (contest.Contest, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	orig, ok := repo.db.contests[c.ID]
	if !ok {
		return contest.Contest{}, contest.ErrContestNotFound
	}
	c.Slug, c.CreatedAt = orig.Slug, orig.CreatedAt
	repo.db.contests[c.ID] = &c
	return c, nil
}

func (repo *contestRepository) GetContest(_ context.Context, filter contest.GetFilter) (contest.Contest, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if filter.ID != "" {
		if c, ok := repo.db.contests[filter.ID]; ok {
			return *c, nil
		}
		return contest.Contest{}, contest.ErrContestNotFound
	}
	if filter.Slug != "" {
		for _, c := range repo.db.contests {
			if c.Slug == filter.Slug {
				return *c, nil
			}
		}
	}
	return contest.Contest{}, contest.ErrContestNotFound
}

func (repo *contestRepository) QueryContests(_ context.Context, activeOnly bool) ([]contest.Contest, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	contests := make([]contest.Contest, 0, len(repo.db.contests))
	for _, c := range repo.db.contests {
		if activeOnly && !c.IsActive {
			continue
		}
		contests = append(contests, *c)
	}
	sort.Slice(contests, func(i, j int) bool {
		if !contests[i].StartTime.Equal(contests[j].StartTime) {
			return contests[i].StartTime.After(contests[j].StartTime)
		}
		return repo.db.before(contests[j].ID, contests[i].ID)
	})
	return contests, nil
}

func (repo *contestRepository) CreateCandidate(_ context.Context, cand contest.Candidate) (contest.Candidate, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.contests[cand.ContestID]; !ok {
		return contest.Candidate{}, contest.ErrContestNotFound
	}
	cand.ID = uuid.New().String()
	cand.VotesCount = 0
	repo.db.candidates[cand.ID] = &cand
	repo.db.track(cand.ID)
	return cand, nil
}

func (repo *contestRepository) GetCandidate(_ context.Context, id string) (contest.Candidate, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if cand, ok := repo.db.candidates[id]; ok {
		return *cand, nil
	}
	return contest.Candidate{}, contest.ErrCandidateNotFound
}

func (repo *contestRepository) UpdateCandidateStatus(_ context.Context, id, status string) (contest.Candidate, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	cand, ok := repo.db.candidates[id]
	if !ok {
		return contest.Candidate{}, contest.ErrCandidateNotFound
	}
	cand.Status = status
	return *cand, nil
}

func (repo *contestRepository) QueryCandidates(_ context.Context, contestID string, approvedOnly bool) ([]contest.Candidate, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryCandidates(contestID, approvedOnly), nil
}

func (repo *contestRepository) queryCandidates(contestID string, approvedOnly bool) []contest.Candidate {
	cands := make([]contest.Candidate, 0)
	for _, cand := range repo.db.candidates {
		if cand.ContestID != contestID || (approvedOnly && cand.Status != contest.StatusApproved) {
			continue
		}
		cands = append(cands, *cand)
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].VotesCount != cands[j].VotesCount {
			return cands[i].VotesCount > cands[j].VotesCount
		}
		if cands[i].Name != cands[j].Name {
			return cands[i].Name < cands[j].Name
		}
		return cands[i].ID < cands[j].ID
	})
	return cands
}

func (repo *contestRepository) VoteExists(_ context.Context, filter contest.VoteFilter) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, v := range repo.db.votes {
		if v.ContestID != filter.ContestID {
			continue
		}
		switch {
		case filter.Email != "":
			if v.VoterEmail == filter.Email {
				return true, nil
			}
		case filter.Matricule != "":
			if v.VoterMatricule == filter.Matricule {
				return true, nil
			}
		case filter.IPAddress != "" && filter.SessionToken != "":
			if v.IPAddress == filter.IPAddress && v.SessionToken == filter.SessionToken {
				return true, nil
			}
		default:
			return false, nil
		}
	}
	return false, nil
}

func (repo *contestRepository) RecordVote(_ context.Context, v contest.Vote) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// email first, whatever the map order
	for _, other := range repo.db.votes {
		if other.ContestID == v.ContestID && other.VoterEmail == v.VoterEmail {
			return 0, contest.ErrEmailAlreadyVoted
		}
	}
	for _, other := range repo.db.votes {
		if other.ContestID == v.ContestID && other.VoterMatricule == v.VoterMatricule {
			return 0, contest.ErrMatriculeAlreadyVoted
		}
	}
	cand, ok := repo.db.candidates[v.CandidateID]
	if !ok || cand.ContestID != v.ContestID {
		return 0, contest.ErrCandidateNotInContest
	}

	v.ID = uuid.New().String()
	repo.db.votes[v.ID] = &v
	repo.db.track(v.ID)
	cand.VotesCount++
	return cand.VotesCount, nil
}

func (repo *contestRepository) Recount(_ context.Context, contestID string) ([]contest.Candidate, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	counts := make(map[string]int)
	for _, v := range repo.db.votes {
		if v.ContestID == contestID {
			counts[v.CandidateID]++
		}
	}
	for _, cand := range repo.db.candidates {
		if cand.ContestID == contestID {
			cand.VotesCount = counts[cand.ID]
		}
	}
	return repo.queryCandidates(contestID, false), nil
}
