package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neussi/comsas-uy1.com/core/sponsorship"
	"github.com/neussi/comsas-uy1.com/tests"
)

func TestSponsorshipRepository(t *testing.T) {
	repo := NewSponsorshipRepository(testutil.PrepareDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	sess := testutil.CreateSession(t, repo, "2026-2027", true)
	old := testutil.CreateSession(t, repo, "2025-2026", false)

	mentor1 := testutil.CreateMentor(t, repo, sess.ID, "m1@comsas.cm", sponsorship.SpecialtySoftware, []string{sponsorship.DomainWebDev}, 1, now.Add(-2*time.Hour))
	mentor2 := testutil.CreateMentor(t, repo, sess.ID, "m2@comsas.cm", sponsorship.SpecialtyNetwork, nil, 2, now.Add(-time.Hour))
	mentee1 := testutil.CreateMentee(t, repo, sess.ID, "e1@comsas.cm", sponsorship.SpecialtySoftware, []string{sponsorship.DomainWebDev}, now.Add(-2*time.Hour))
	mentee2 := testutil.CreateMentee(t, repo, sess.ID, "e2@comsas.cm", sponsorship.SpecialtyNetwork, nil, now.Add(-time.Hour))

	t.Run("sessions", func(t *testing.T) {
		got, err := repo.GetSession(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, "2026-2027", got.Name)
		assert.True(t, got.IsActive)

		_, err = repo.GetSession(ctx, "nope")
		assert.Equal(t, sponsorship.ErrSessionNotFound, err)

		active, err := repo.QuerySessions(ctx, true)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, sess.ID, active[0].ID)

		all, err := repo.QuerySessions(ctx, false)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		old.IsActive = true
		_, err = repo.UpdateSession(ctx, old)
		require.NoError(t, err)
		got, err = repo.GetSession(ctx, old.ID)
		require.NoError(t, err)
		assert.True(t, got.IsActive)

		_, err = repo.UpdateSession(ctx, sponsorship.Session{ID: "nope"})
		assert.Equal(t, sponsorship.ErrSessionNotFound, err)
	})

	t.Run("registrations are unique per session", func(t *testing.T) {
		_, err := repo.CreateMentor(ctx, sponsorship.Mentor{
			SessionID: sess.ID, FirstName: "X", LastName: "Y", Phone: "6", Email: "m1@comsas.cm",
			Level: "M2", Specialty: sponsorship.SpecialtySoftware, MaxMentees: 2, CreatedAt: now,
		})
		assert.Equal(t, sponsorship.ErrMentorExists, err)

		_, err = repo.CreateMentee(ctx, sponsorship.Mentee{
			SessionID: sess.ID, FirstName: "X", LastName: "Y", Phone: "6", Email: "e1@comsas.cm",
			Level: "L1", DesiredSpecialty: sponsorship.SpecialtySoftware, CreatedAt: now,
		})
		assert.Equal(t, sponsorship.ErrMenteeExists, err)

		// same email, other session
		testutil.CreateMentor(t, repo, old.ID, "m1@comsas.cm", sponsorship.SpecialtySoftware, nil, 2, now)
	})

	t.Run("tag sets survive storage", func(t *testing.T) {
		mentors, err := repo.QueryMentors(ctx, sponsorship.MentorFilter{SessionID: sess.ID, Specialty: sponsorship.SpecialtySoftware})
		require.NoError(t, err)
		require.Len(t, mentors, 1)
		assert.Equal(t, mentor1.ID, mentors[0].ID)
		assert.Equal(t, sponsorship.NewTagSet(sponsorship.DomainWebDev), mentors[0].ExpertiseDomains)
	})

	t.Run("matches", func(t *testing.T) {
		match, err := repo.CreateMatch(ctx, sponsorship.Match{SessionID: sess.ID, MentorID: mentor1.ID, MenteeID: mentee1.ID, IsActive: true, CreatedAt: now})
		require.NoError(t, err)

		// one active match per mentee
		_, err = repo.CreateMatch(ctx, sponsorship.Match{SessionID: sess.ID, MentorID: mentor2.ID, MenteeID: mentee1.ID, IsActive: true, CreatedAt: now})
		assert.Equal(t, sponsorship.ErrMatchExists, err)

		mentors, err := repo.QueryMentors(ctx, sponsorship.MentorFilter{SessionID: sess.ID})
		require.NoError(t, err)
		require.Len(t, mentors, 2)
		assert.Equal(t, 1, mentors[0].CurrentLoad)
		assert.Equal(t, 0, mentors[1].CurrentLoad)

		available, err := repo.QueryMentors(ctx, sponsorship.MentorFilter{SessionID: sess.ID, Available: true})
		require.NoError(t, err)
		require.Len(t, available, 1)
		assert.Equal(t, mentor2.ID, available[0].ID)

		unmatched, err := repo.QueryMentees(ctx, sponsorship.MenteeFilter{SessionID: sess.ID, Unmatched: true})
		require.NoError(t, err)
		require.Len(t, unmatched, 1)
		assert.Equal(t, mentee2.ID, unmatched[0].ID)

		details, err := repo.QueryMatches(ctx, sponsorship.MatchFilter{SessionID: sess.ID, ActiveOnly: true})
		require.NoError(t, err)
		require.Len(t, details, 1)
		assert.Equal(t, "2026-2027", details[0].SessionName)
		assert.Equal(t, "Mentor m1@comsas.cm", details[0].MentorName)
		assert.Equal(t, "e1@comsas.cm", details[0].MenteeEmail)

		// deactivation frees the mentor and the mentee
		match, err = repo.SetMatchActive(ctx, match.ID, false)
		require.NoError(t, err)
		assert.False(t, match.IsActive)

		unmatched, err = repo.QueryMentees(ctx, sponsorship.MenteeFilter{SessionID: sess.ID, Unmatched: true})
		require.NoError(t, err)
		assert.Len(t, unmatched, 2)

		// the pair cannot be recreated, but the mentee can get another mentor
		_, err = repo.CreateMatch(ctx, sponsorship.Match{SessionID: sess.ID, MentorID: mentor1.ID, MenteeID: mentee1.ID, IsActive: true, CreatedAt: now})
		assert.Equal(t, sponsorship.ErrMatchExists, err)
		_, err = repo.CreateMatch(ctx, sponsorship.Match{SessionID: sess.ID, MentorID: mentor2.ID, MenteeID: mentee1.ID, IsActive: true, CreatedAt: now})
		require.NoError(t, err)

		history, err := repo.QueryMatches(ctx, sponsorship.MatchFilter{SessionID: sess.ID})
		require.NoError(t, err)
		assert.Len(t, history, 2)

		_, err = repo.SetMatchActive(ctx, "nope", false)
		assert.Equal(t, sponsorship.ErrMatchNotFound, err)
	})
}

func TestSponsorshipRepository_mentorCapacity(t *testing.T) {
	repo := NewSponsorshipRepository(testutil.PrepareDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	sess := testutil.CreateSession(t, repo, "2026-2027", true)
	mentor := testutil.CreateMentor(t, repo, sess.ID, "m@comsas.cm", sponsorship.SpecialtySoftware, nil, 1, now)
	a := testutil.CreateMentee(t, repo, sess.ID, "a@comsas.cm", sponsorship.SpecialtySoftware, nil, now)
	b := testutil.CreateMentee(t, repo, sess.ID, "b@comsas.cm", sponsorship.SpecialtySoftware, nil, now)
	newMatch := func(mentorID, menteeID string) sponsorship.Match {
		return sponsorship.Match{SessionID: sess.ID, MentorID: mentorID, MenteeID: menteeID, IsActive: true, CreatedAt: now}
	}

	first, err := repo.CreateMatch(ctx, newMatch(mentor.ID, a.ID))
	require.NoError(t, err)

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{
			name:    "full mentor",
			run:     func() error { _, err := repo.CreateMatch(ctx, newMatch(mentor.ID, b.ID)); return err },
			wantErr: sponsorship.ErrMentorFull,
		},
		{
			name:    "unknown mentor",
			run:     func() error { _, err := repo.CreateMatch(ctx, newMatch("nope", b.ID)); return err },
			wantErr: sponsorship.ErrMentorNotFound,
		},
		{
			name: "deactivation frees the slot",
			run: func() error {
				if _, err := repo.SetMatchActive(ctx, first.ID, false); err != nil {
					return err
				}
				_, err := repo.CreateMatch(ctx, newMatch(mentor.ID, b.ID))
				return err
			},
		},
		{
			name:    "reactivation of a full mentor",
			run:     func() error { _, err := repo.SetMatchActive(ctx, first.ID, true); return err },
			wantErr: sponsorship.ErrMentorFull,
		},
		{
			name: "setting the current state is a no-op",
			run:  func() error { _, err := repo.SetMatchActive(ctx, first.ID, false); return err },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tt.run())
		})
	}

	mentors, err := repo.QueryMentors(ctx, sponsorship.MentorFilter{SessionID: sess.ID})
	require.NoError(t, err)
	require.Len(t, mentors, 1)
	assert.Equal(t, 1, mentors[0].CurrentLoad)
}
