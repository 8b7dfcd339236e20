package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neussi/comsas-uy1.com/core/contest"
	"github.com/neussi/comsas-uy1.com/tests"
)

func TestContestRepository_RecordVote(t *testing.T) {
	repo := NewContestRepository(Open())
	ctx := context.Background()
	c := testutil.CreateOpenContest(t, repo, "miss-2026")
	alice := testutil.CreateCandidate(t, repo, c.ID, "Alice", contest.StatusApproved)

	vote := func(email, matricule string) contest.Vote {
		return contest.Vote{ContestID: c.ID, CandidateID: alice.ID, VoterEmail: email, VoterMatricule: matricule, CreatedAt: time.Now().UTC()}
	}
	for i, v := range []contest.Vote{vote("a@test.cm", "M1"), vote("b@test.cm", "M2")} {
		count, err := repo.RecordVote(ctx, v)
		require.NoError(t, err)
		assert.Equal(t, i+1, count)
	}

	tests := []struct {
		name    string
		vote    contest.Vote
		wantErr error
	}{
		{name: "email taken", vote: vote("a@test.cm", "M9"), wantErr: contest.ErrEmailAlreadyVoted},
		{name: "matricule taken", vote: vote("z@test.cm", "M1"), wantErr: contest.ErrMatriculeAlreadyVoted},
		{name: "both taken by the same vote", vote: vote("a@test.cm", "M1"), wantErr: contest.ErrEmailAlreadyVoted},
		{name: "email of one vote, matricule of another", vote: vote("a@test.cm", "M2"), wantErr: contest.ErrEmailAlreadyVoted},
		{name: "matricule of one vote, email of another", vote: vote("b@test.cm", "M1"), wantErr: contest.ErrEmailAlreadyVoted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// map iteration order changes between runs
			for i := 0; i < 20; i++ {
				_, err := repo.RecordVote(ctx, tt.vote)
				assert.Equal(t, tt.wantErr, err)
			}
		})
	}

	cand, err := repo.GetCandidate(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cand.VotesCount)
}
