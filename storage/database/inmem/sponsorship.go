package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/neussi/comsas-uy1.com/core/sponsorship"
)

type sponsorshipRepository struct {
	db *DB
}

var _ sponsorship.Repository = (*sponsorshipRepository)(nil)

func NewSponsorshipRepository(db *DB) sponsorship.Repository {
	return &sponsorshipRepository{db: db}
}

func (repo *sponsorshipRepository) CreateSession(_ context.Context, sess sponsorship.Session) (sponsorship.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	sess.ID = uuid.New().String()
	repo.db.sessions[sess.ID] = &sess
	repo.db.track(sess.ID)
	return sess, nil
}

func (repo *sponsorshipRepository) GetSession(_ context.Context, id string) (sponsorship.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if sess, ok := repo.db.sessions[id]; ok {
		return *sess, nil
	}
	return sponsorship.Session{}, sponsorship.ErrSessionNotFound
}

func (repo *sponsorshipRepository) QuerySessions(_ context.Context, activeOnly bool) ([]sponsorship.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	sessions := make([]sponsorship.Session, 0, len(repo.db.sessions))
	for _, sess := range repo.db.sessions {
		if activeOnly && !sess.IsActive {
			continue
		}
		sessions = append(sessions, *sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].StartDate.Equal(sessions[j].StartDate) {
			return sessions[i].StartDate.After(sessions[j].StartDate)
		}
		return repo.db.before(sessions[j].ID, sessions[i].ID)
	})
	return sessions, nil
}

func (repo *sponsorshipRepository) UpdateSession(_ context.Context, sess sponsorship.Session) (sponsorship.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	orig, ok := repo.db.sessions[sess.ID]
	if !ok {
		return sponsorship.Session{}, sponsorship.ErrSessionNotFound
	}
	sess.CreatedAt = orig.CreatedAt
	repo.db.sessions[sess.ID] = &sess
	return sess, nil
}

func (repo *sponsorshipRepository) CreateMentor(_ context.Context, mentor sponsorship.Mentor) (sponsorship.Mentor, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.sessions[mentor.SessionID]; !ok {
		return sponsorship.Mentor{}, sponsorship.ErrSessionNotFound
	}
	for _, m := range repo.db.mentors {
		if m.SessionID == mentor.SessionID && m.Email == mentor.Email {
			return sponsorship.Mentor{}, sponsorship.ErrMentorExists
		}
	}
	mentor.ID = uuid.New().String()
	mentor.CurrentLoad = 0
	repo.db.mentors[mentor.ID] = &mentor
	repo.db.track(mentor.ID)
	return mentor, nil
}

// activeLoads counts active matches per mentor and reports which mentees are matched.
func (repo *sponsorshipRepository) activeLoads() (loads map[string]int, matched map[string]bool) {
	loads = make(map[string]int)
	matched = make(map[string]bool)
	for _, mt := range repo.db.matches {
		if mt.IsActive {
			loads[mt.MentorID]++
			matched[mt.MenteeID] = true
		}
	}
	return loads, matched
}

func (repo *sponsorshipRepository) QueryMentors(_ context.Context, filter sponsorship.MentorFilter) ([]sponsorship.Mentor, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	loads, _ := repo.activeLoads()
	mentors := make([]sponsorship.Mentor, 0)
	for _, m := range repo.db.mentors {
		if filter.SessionID != "" && m.SessionID != filter.SessionID {
			continue
		}
		if filter.Specialty != "" && m.Specialty != filter.Specialty {
			continue
		}
		mentor := *m
		mentor.CurrentLoad = loads[m.ID]
		if filter.Available && !mentor.HasCapacity() {
			continue
		}
		mentors = append(mentors, mentor)
	}
	sort.Slice(mentors, func(i, j int) bool {
		if !mentors[i].CreatedAt.Equal(mentors[j].CreatedAt) {
			return mentors[i].CreatedAt.Before(mentors[j].CreatedAt)
		}
		return repo.db.before(mentors[i].ID, mentors[j].ID)
	})
	return mentors, nil
}

func (repo *sponsorshipRepository) CreateMentee(_ context.Context, mentee sponsorship.Mentee) (sponsorship.Mentee, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.sessions[mentee.SessionID]; !ok {
		return sponsorship.Mentee{}, sponsorship.ErrSessionNotFound
	}
	for _, m := range repo.db.mentees {
		if m.SessionID == mentee.SessionID && m.Email == mentee.Email {
			return sponsorship.Mentee{}, sponsorship.ErrMenteeExists
		}
	}
	mentee.ID = uuid.New().String()
	repo.db.mentees[mentee.ID] = &mentee
	repo.db.track(mentee.ID)
	return mentee, nil
}

func (repo *sponsorshipRepository) QueryMentees(_ context.Context, filter sponsorship.MenteeFilter) ([]sponsorship.Mentee, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	_, matched := repo.activeLoads()
	mentees := make([]sponsorship.Mentee, 0)
	for _, m := range repo.db.mentees {
		if filter.SessionID != "" && m.SessionID != filter.SessionID {
			continue
		}
		if filter.Specialty != "" && m.DesiredSpecialty != filter.Specialty {
			continue
		}
		if filter.Unmatched && matched[m.ID] {
			continue
		}
		mentees = append(mentees, *m)
	}
	sort.Slice(mentees, func(i, j int) bool {
		if !mentees[i].CreatedAt.Equal(mentees[j].CreatedAt) {
			return mentees[i].CreatedAt.Before(mentees[j].CreatedAt)
		}
		return repo.db.before(mentees[i].ID, mentees[j].ID)
	})
	return mentees, nil
}

func (repo *sponsorshipRepository) CreateMatch(_ context.Context, match sponsorship.Match) (sponsorship.Match, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, mt := range repo.db.matches {
		if mt.MentorID == match.MentorID && mt.MenteeID == match.MenteeID {
			return sponsorship.Match{}, sponsorship.ErrMatchExists
		}
		if match.IsActive && mt.IsActive && mt.MenteeID == match.MenteeID {
			return sponsorship.Match{}, sponsorship.ErrMatchExists
		}
	}
	if match.IsActive {
		if err := repo.freeSlot(match.MentorID); err != nil {
			return sponsorship.Match{}, err
		}
	}
	match.ID = uuid.New().String()
	repo.db.matches[match.ID] = &match
	repo.db.track(match.ID)
	return match, nil
}

func (repo *sponsorshipRepository) QueryMatches(_ context.Context, filter sponsorship.MatchFilter) ([]sponsorship.MatchDetail, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	details := make([]sponsorship.MatchDetail, 0)
	for _, mt := range repo.db.matches {
		if filter.SessionID != "" && mt.SessionID != filter.SessionID {
			continue
		}
		if filter.MentorID != "" && mt.MentorID != filter.MentorID {
			continue
		}
		if filter.ActiveOnly && !mt.IsActive {
			continue
		}
		d := sponsorship.MatchDetail{Match: *mt}
		if sess, ok := repo.db.sessions[mt.SessionID]; ok {
			d.SessionName = sess.Name
		}
		if mentor, ok := repo.db.mentors[mt.MentorID]; ok {
			d.MentorName, d.MentorEmail, d.MentorPhone = mentor.FullName(), mentor.Email, mentor.Phone
		}
		if mentee, ok := repo.db.mentees[mt.MenteeID]; ok {
			d.MenteeName, d.MenteeEmail, d.MenteePhone = mentee.FullName(), mentee.Email, mentee.Phone
		}
		details = append(details, d)
	}
	sort.Slice(details, func(i, j int) bool { return repo.db.before(details[i].ID, details[j].ID) })
	return details, nil
}

func (repo *sponsorshipRepository) SetMatchActive(_ context.Context, id string, active bool) (sponsorship.Match, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	match, ok := repo.db.matches[id]
	if !ok {
		return sponsorship.Match{}, sponsorship.ErrMatchNotFound
	}
	if active && !match.IsActive {
		for _, mt := range repo.db.matches {
			if mt.ID != id && mt.IsActive && mt.MenteeID == match.MenteeID {
				return sponsorship.Match{}, sponsorship.ErrMatchExists
			}
		}
		if err := repo.freeSlot(match.MentorID); err != nil {
			return sponsorship.Match{}, err
		}
	}
	match.IsActive = active
	return *match, nil
}

// freeSlot checks that the mentor can take one more active mentee. Callers hold the write lock.
func (repo *sponsorshipRepository) freeSlot(mentorID string) error {
	mentor, ok := repo.db.mentors[mentorID]
	if !ok {
		return sponsorship.ErrMentorNotFound
	}
	var load int
	for _, mt := range repo.db.matches {
		if mt.IsActive && mt.MentorID == mentorID {
			load++
		}
	}
	if load >= mentor.MaxMentees {
		return sponsorship.ErrMentorFull
	}
	return nil
}
