package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/neussi/comsas-uy1.com/core/contest"
)

const (
	contestColumns   = "id, slug, title, description, start_time, end_time, is_active, allow_public_candidates, created_at"
	candidateColumns = "id, contest_id, name, description, video_url, status, votes_count, created_at"
)

type contestRepository struct {
	db *sqlx.DB
}

var _ contest.Repository = (*contestRepository)(nil) // interface compliance check

var errIdentityTaken = errors.New("voter identity taken")

func NewContestRepository(db *sqlx.DB) contest.Repository {
	return &contestRepository{db: db}
}

func (repo *contestRepository) CreateContest(ctx context.Context, c contest.Contest) (contest.Contest, error) {
	c.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(
		"INSERT INTO contests ("+contestColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		c.ID, c.Slug, c.Title, c.Description, c.StartTime.UTC(), c.EndTime.UTC(),
		c.IsActive, c.AllowPublicCandidates, c.CreatedAt.UTC(),
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return contest.Contest{}, contest.ErrSlugExists
		}
		return contest.Contest{}, errors.Wrap(err, "inserting contest")
	}
	return c, nil
}

func (repo *contestRepository) UpdateContest(ctx context.Context, c contest.Contest) (contest.Contest, error) {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`UPDATE contests SET
		title = ?, description = ?, start_time = ?, end_time = ?, is_active = ?, allow_public_candidates = ?
		WHERE id = ?`),
		c.Title, c.Description, c.StartTime.UTC(), c.EndTime.UTC(), c.IsActive, c.AllowPublicCandidates, c.ID,
	)
	if err != nil {
		return contest.Contest{}, errors.Wrap(err, "updating contest")
	}
	if err = affectedOne(res, contest.ErrContestNotFound, "updating contest"); err != nil {
		return contest.Contest{}, err
	}
	return c, nil
}

func (repo *contestRepository) GetContest(ctx context.Context, filter contest.GetFilter) (contest.Contest, error) {
	var w where
	switch {
	case filter.ID != "":
		w.add("id = ?", filter.ID)
	case filter.Slug != "":
		w.add("slug = ?", filter.Slug)
	default:
		return contest.Contest{}, contest.ErrContestNotFound
	}

	var c contest.Contest
	q := repo.db.Rebind("SELECT " + contestColumns + " FROM contests" + w.String())
	if err := sqlx.GetContext(ctx, repo.db, &c, q, w.args...); err != nil {
		return contest.Contest{}, trapNoRows(err, contest.ErrContestNotFound, "getting contest")
	}
	return c, nil
}

func (repo *contestRepository) QueryContests(ctx context.Context, activeOnly bool) ([]contest.Contest, error) {
	var w where
	if activeOnly {
		w.add("is_active = ?", true)
	}
	contests := make([]contest.Contest, 0)
	q := repo.db.Rebind("SELECT " + contestColumns + " FROM contests" + w.String() + " ORDER BY start_time DESC, created_at DESC")
	if err := sqlx.SelectContext(ctx, repo.db, &contests, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying contests")
	}
	return contests, nil
}

func (repo *contestRepository) CreateCandidate(ctx context.Context, cand contest.Candidate) (contest.Candidate, error) {
	cand.ID = uuid.New().String()
	cand.VotesCount = 0
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(
		"INSERT INTO candidates ("+candidateColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)"),
		cand.ID, cand.ContestID, cand.Name, cand.Description, cand.VideoURL, cand.Status, 0, cand.CreatedAt.UTC(),
	)
	if err != nil {
		return contest.Candidate{}, errors.Wrap(err, "inserting candidate")
	}
	return cand, nil
}

func (repo *contestRepository) GetCandidate(ctx context.Context, id string) (contest.Candidate, error) {
	var cand contest.Candidate
	q := repo.db.Rebind("SELECT " + candidateColumns + " FROM candidates WHERE id = ?")
	if err := sqlx.GetContext(ctx, repo.db, &cand, q, id); err != nil {
		return contest.Candidate{}, trapNoRows(err, contest.ErrCandidateNotFound, "getting candidate")
	}
	return cand, nil
}

func (repo *contestRepository) UpdateCandidateStatus(ctx context.Context, id, status string) (contest.Candidate, error) {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("UPDATE candidates SET status = ? WHERE id = ?"), status, id)
	if err != nil {
		return contest.Candidate{}, errors.Wrap(err, "updating candidate")
	}
	if err = affectedOne(res, contest.ErrCandidateNotFound, "updating candidate"); err != nil {
		return contest.Candidate{}, err
	}
	return repo.GetCandidate(ctx, id)
}

func (repo *contestRepository) QueryCandidates(ctx context.Context, contestID string, approvedOnly bool) ([]contest.Candidate, error) {
	return queryCandidates(ctx, repo.db, contestID, approvedOnly)
}

func queryCandidates(ctx context.Context, q sqlx.ExtContext, contestID string, approvedOnly bool) ([]contest.Candidate, error) {
	var w where
	w.add("contest_id = ?", contestID)
	if approvedOnly {
		w.add("status = ?", contest.StatusApproved)
	}
	cands := make([]contest.Candidate, 0)
	query := q.Rebind("SELECT " + candidateColumns + " FROM candidates" + w.String() + " ORDER BY votes_count DESC, name, id")
	if err := sqlx.SelectContext(ctx, q, &cands, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying candidates")
	}
	return cands, nil
}

func (repo *contestRepository) VoteExists(ctx context.Context, filter contest.VoteFilter) (bool, error) {
	var w where
	w.add("contest_id = ?", filter.ContestID)
	switch {
	case filter.Email != "":
		w.add("voter_email = ?", filter.Email)
	case filter.Matricule != "":
		w.add("voter_matricule = ?", filter.Matricule)
	case filter.IPAddress != "" && filter.SessionToken != "":
		w.add("ip_address = ?", filter.IPAddress)
		w.add("session_token = ?", filter.SessionToken)
	default:
		return false, nil
	}

	var n int
	q := repo.db.Rebind("SELECT COUNT(*) FROM votes" + w.String())
	if err := sqlx.GetContext(ctx, repo.db, &n, q, w.args...); err != nil {
		return false, errors.Wrap(err, "checking vote")
	}
	return n > 0, nil
}

func (repo *contestRepository) RecordVote(ctx context.Context, v contest.Vote) (int, error) {
	v.ID = uuid.New().String()
	var count int
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO votes
			(id, contest_id, candidate_id, voter_email, voter_matricule, ip_address, session_token, user_agent, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			v.ID, v.ContestID, v.CandidateID, v.VoterEmail, v.VoterMatricule,
			v.IPAddress, v.SessionToken, v.UserAgent, v.CreatedAt.UTC(),
		)
		if err != nil {
			if _, ok := uniqueViolation(err); ok {
				return errIdentityTaken
			}
			return errors.Wrap(err, "inserting vote")
		}

		q := tx.Rebind("UPDATE candidates SET votes_count = votes_count + 1 WHERE id = ? AND contest_id = ? RETURNING votes_count")
		if err = tx.QueryRowxContext(ctx, q, v.CandidateID, v.ContestID).Scan(&count); err != nil {
			return trapNoRows(err, contest.ErrCandidateNotInContest, "incrementing tally")
		}
		return nil
	})
	if err == errIdentityTaken {
		return 0, repo.takenIdentity(ctx, v)
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// takenIdentity tells which identity key of v is already used, email first.
// The database reports a single violated constraint, not necessarily that one.
func (repo *contestRepository) takenIdentity(ctx context.Context, v contest.Vote) error {
	exists, err := repo.VoteExists(ctx, contest.VoteFilter{ContestID: v.ContestID, Email: v.VoterEmail})
	if err != nil {
		return err
	}
	if exists {
		return contest.ErrEmailAlreadyVoted
	}
	return contest.ErrMatriculeAlreadyVoted
}

func (repo *contestRepository) Recount(ctx context.Context, contestID string) ([]contest.Candidate, error) {
	var cands []contest.Candidate
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE candidates
			SET votes_count = (SELECT COUNT(*) FROM votes v WHERE v.candidate_id = candidates.id)
			WHERE contest_id = ?`), contestID)
		if err != nil {
			return errors.Wrap(err, "recounting votes")
		}
		cands, err = queryCandidates(ctx, tx, contestID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cands, nil
}
