package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/neussi/comsas-uy1.com/core/sponsorship"
)

const (
	sessionColumns = "id, name, start_date, end_date, is_active, created_at"

	mentorColumns = `m.id, m.session_id, m.first_name, m.last_name, m.phone, m.email, m.level, m.specialty,
	m.expertise_domains, m.max_mentees, m.created_at,
	(SELECT COUNT(*) FROM matches mt WHERE mt.mentor_id = m.id AND mt.is_active = ?) AS current_load`

	menteeColumns = `me.id, me.session_id, me.first_name, me.last_name, me.phone, me.email, me.level,
	me.desired_specialty, me.competencies, me.desired_domains, me.created_at`

	matchDetailQuery = `SELECT mt.id, mt.session_id, mt.mentor_id, mt.mentee_id, mt.is_active, mt.created_at,
	s.name AS session_name,
	mr.first_name || ' ' || mr.last_name AS mentor_name, mr.email AS mentor_email, mr.phone AS mentor_phone,
	me.first_name || ' ' || me.last_name AS mentee_name, me.email AS mentee_email, me.phone AS mentee_phone
	FROM matches mt
	JOIN sponsorship_sessions s ON s.id = mt.session_id
	JOIN mentors mr ON mr.id = mt.mentor_id
	JOIN mentees me ON me.id = mt.mentee_id`
)

type sponsorshipRepository struct {
	db *sqlx.DB
}

var _ sponsorship.Repository = (*sponsorshipRepository)(nil) // interface compliance check

func NewSponsorshipRepository(db *sqlx.DB) sponsorship.Repository {
	return &sponsorshipRepository{db: db}
}

func (repo *sponsorshipRepository) CreateSession(ctx context.Context, sess sponsorship.Session) (sponsorship.Session, error) {
	sess.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(
		"INSERT INTO sponsorship_sessions ("+sessionColumns+") VALUES (?, ?, ?, ?, ?, ?)"),
		sess.ID, sess.Name, sess.StartDate.UTC(), sess.EndDate.UTC(), sess.IsActive, sess.CreatedAt.UTC(),
	)
	if err != nil {
		return sponsorship.Session{}, errors.Wrap(err, "inserting session")
	}
	return sess, nil
}

func (repo *sponsorshipRepository) GetSession(ctx context.Context, id string) (sponsorship.Session, error) {
	var sess sponsorship.Session
	q := repo.db.Rebind("SELECT " + sessionColumns + " FROM sponsorship_sessions WHERE id = ?")
	if err := sqlx.GetContext(ctx, repo.db, &sess, q, id); err != nil {
		return sponsorship.Session{}, trapNoRows(err, sponsorship.ErrSessionNotFound, "getting session")
	}
	return sess, nil
}

func (repo *sponsorshipRepository) QuerySessions(ctx context.Context, activeOnly bool) ([]sponsorship.Session, error) {
	var w where
	if activeOnly {
		w.add("is_active = ?", true)
	}
	sessions := make([]sponsorship.Session, 0)
	q := repo.db.Rebind("SELECT " + sessionColumns + " FROM sponsorship_sessions" + w.String() + " ORDER BY start_date DESC, created_at DESC")
	if err := sqlx.SelectContext(ctx, repo.db, &sessions, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	return sessions, nil
}

func (repo *sponsorshipRepository) UpdateSession(ctx context.Context, sess sponsorship.Session) (sponsorship.Session, error) {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(
		"UPDATE sponsorship_sessions SET name = ?, start_date = ?, end_date = ?, is_active = ? WHERE id = ?"),
		sess.Name, sess.StartDate.UTC(), sess.EndDate.UTC(), sess.IsActive, sess.ID,
	)
	if err != nil {
		return sponsorship.Session{}, errors.Wrap(err, "updating session")
	}
	if err = affectedOne(res, sponsorship.ErrSessionNotFound, "updating session"); err != nil {
		return sponsorship.Session{}, err
	}
	return sess, nil
}

func (repo *sponsorshipRepository) CreateMentor(ctx context.Context, mentor sponsorship.Mentor) (sponsorship.Mentor, error) {
	mentor.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(`INSERT INTO mentors
		(id, session_id, first_name, last_name, phone, email, level, specialty, expertise_domains, max_mentees, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		mentor.ID, mentor.SessionID, mentor.FirstName, mentor.LastName, mentor.Phone, mentor.Email,
		mentor.Level, mentor.Specialty, mentor.ExpertiseDomains, mentor.MaxMentees, mentor.CreatedAt.UTC(),
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return sponsorship.Mentor{}, sponsorship.ErrMentorExists
		}
		return sponsorship.Mentor{}, errors.Wrap(err, "inserting mentor")
	}
	mentor.CurrentLoad = 0
	return mentor, nil
}

func (repo *sponsorshipRepository) QueryMentors(ctx context.Context, filter sponsorship.MentorFilter) ([]sponsorship.Mentor, error) {
	w := where{args: []interface{}{true}} // current_load subquery
	if filter.SessionID != "" {
		w.add("m.session_id = ?", filter.SessionID)
	}
	if filter.Specialty != "" {
		w.add("m.specialty = ?", filter.Specialty)
	}

	mentors := make([]sponsorship.Mentor, 0)
	q := repo.db.Rebind("SELECT " + mentorColumns + " FROM mentors m" + w.String() + " ORDER BY m.created_at, m.id")
	if err := sqlx.SelectContext(ctx, repo.db, &mentors, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying mentors")
	}
	if !filter.Available {
		return mentors, nil
	}
	available := mentors[:0]
	for _, mentor := range mentors {
		if mentor.HasCapacity() {
			available = append(available, mentor)
		}
	}
	return available, nil
}

func (repo *sponsorshipRepository) CreateMentee(ctx context.Context, mentee sponsorship.Mentee) (sponsorship.Mentee, error) {
	mentee.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(`INSERT INTO mentees
		(id, session_id, first_name, last_name, phone, email, level, desired_specialty, competencies, desired_domains, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		mentee.ID, mentee.SessionID, mentee.FirstName, mentee.LastName, mentee.Phone, mentee.Email,
		mentee.Level, mentee.DesiredSpecialty, mentee.Competencies, mentee.DesiredDomains, mentee.CreatedAt.UTC(),
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return sponsorship.Mentee{}, sponsorship.ErrMenteeExists
		}
		return sponsorship.Mentee{}, errors.Wrap(err, "inserting mentee")
	}
	return mentee, nil
}

func (repo *sponsorshipRepository) QueryMentees(ctx context.Context, filter sponsorship.MenteeFilter) ([]sponsorship.Mentee, error) {
	var w where
	if filter.SessionID != "" {
		w.add("me.session_id = ?", filter.SessionID)
	}
	if filter.Specialty != "" {
		w.add("me.desired_specialty = ?", filter.Specialty)
	}
	if filter.Unmatched {
		w.add("NOT EXISTS (SELECT 1 FROM matches mt WHERE mt.mentee_id = me.id AND mt.is_active = ?)", true)
	}

	mentees := make([]sponsorship.Mentee, 0)
	q := repo.db.Rebind("SELECT " + menteeColumns + " FROM mentees me" + w.String() + " ORDER BY me.created_at, me.id")
	if err := sqlx.SelectContext(ctx, repo.db, &mentees, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying mentees")
	}
	return mentees, nil
}

func (repo *sponsorshipRepository) CreateMatch(ctx context.Context, match sponsorship.Match) (sponsorship.Match, error) {
	match.ID = uuid.New().String()
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if match.IsActive {
			if err := reserveSlot(ctx, tx, match.MentorID); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO matches
			(id, session_id, mentor_id, mentee_id, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
			match.ID, match.SessionID, match.MentorID, match.MenteeID, match.IsActive, match.CreatedAt.UTC(),
		)
		if err != nil {
			if _, ok := uniqueViolation(err); ok {
				return sponsorship.ErrMatchExists
			}
			return errors.Wrap(err, "inserting match")
		}
		return nil
	})
	if err != nil {
		return sponsorship.Match{}, err
	}
	return match, nil
}

// reserveSlot locks the mentor row until tx ends and checks that the mentor can take one
// more active mentee. Writers for the same mentor queue on the lock, so the count they
// read includes every match committed before them, whichever process wrote it.
func reserveSlot(ctx context.Context, tx *sqlx.Tx, mentorID string) error {
	res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE mentors SET max_mentees = max_mentees WHERE id = ?"), mentorID)
	if err != nil {
		return errors.Wrap(err, "locking mentor")
	}
	if err = affectedOne(res, sponsorship.ErrMentorNotFound, "locking mentor"); err != nil {
		return err
	}

	var capacity struct {
		Max  int `db:"max_mentees"`
		Load int `db:"current_load"`
	}
	q := tx.Rebind(`SELECT m.max_mentees,
		(SELECT COUNT(*) FROM matches mt WHERE mt.mentor_id = m.id AND mt.is_active = ?) AS current_load
		FROM mentors m WHERE m.id = ?`)
	if err = sqlx.GetContext(ctx, tx, &capacity, q, true, mentorID); err != nil {
		return trapNoRows(err, sponsorship.ErrMentorNotFound, "counting mentor load")
	}
	if capacity.Load >= capacity.Max {
		return sponsorship.ErrMentorFull
	}
	return nil
}

func (repo *sponsorshipRepository) QueryMatches(ctx context.Context, filter sponsorship.MatchFilter) ([]sponsorship.MatchDetail, error) {
	var w where
	if filter.SessionID != "" {
		w.add("mt.session_id = ?", filter.SessionID)
	}
	if filter.MentorID != "" {
		w.add("mt.mentor_id = ?", filter.MentorID)
	}
	if filter.ActiveOnly {
		w.add("mt.is_active = ?", true)
	}

	details := make([]sponsorship.MatchDetail, 0)
	q := repo.db.Rebind(matchDetailQuery + w.String() + " ORDER BY mt.created_at, mt.id")
	if err := sqlx.SelectContext(ctx, repo.db, &details, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying matches")
	}
	return details, nil
}

func (repo *sponsorshipRepository) SetMatchActive(ctx context.Context, id string, active bool) (sponsorship.Match, error) {
	var match sponsorship.Match
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := tx.Rebind("SELECT id, session_id, mentor_id, mentee_id, is_active, created_at FROM matches WHERE id = ?")
		if err := sqlx.GetContext(ctx, tx, &match, q, id); err != nil {
			return trapNoRows(err, sponsorship.ErrMatchNotFound, "getting match")
		}
		if match.IsActive == active {
			return nil
		}
		if active {
			if err := reserveSlot(ctx, tx, match.MentorID); err != nil {
				return err
			}
		}

		_, err := tx.ExecContext(ctx, tx.Rebind("UPDATE matches SET is_active = ? WHERE id = ?"), active, id)
		if err != nil {
			if _, ok := uniqueViolation(err); ok {
				return sponsorship.ErrMatchExists
			}
			return errors.Wrap(err, "updating match")
		}
		match.IsActive = active
		return nil
	})
	if err != nil {
		return sponsorship.Match{}, err
	}
	return match, nil
}
