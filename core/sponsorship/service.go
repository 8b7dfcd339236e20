package sponsorship

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/neussi/comsas-uy1.com/core"
)

var (
	// errors
	ErrSessionNotFound    = core.NewError(core.KindNotFound, "Session de parrainage introuvable.")
	ErrSessionInactive    = core.NewError(core.KindPrecondition, "Aucune session de parrainage active.")
	ErrMatchNotFound      = core.NewError(core.KindNotFound, "Binôme introuvable.")
	ErrMatchExists        = core.NewError(core.KindDuplicate, "Ce filleul a déjà un parrain.")
	ErrMentorNotFound     = core.NewError(core.KindNotFound, "Parrain introuvable.")
	ErrMentorFull         = core.NewError(core.KindPrecondition, "Ce parrain a atteint son nombre maximal de filleuls.")
	ErrMatchingInProgress = core.NewError(core.KindPrecondition, "Un appariement est déjà en cours pour cette session.")
	ErrMentorExists       = errors.New("un parrain avec cet email est déjà inscrit à cette session")
	ErrMenteeExists       = errors.New("un filleul avec cet email est déjà inscrit à cette session")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, sess Session) (Session, error)
		GetSession(ctx context.Context, id string) (Session, error)
		QuerySessions(ctx context.Context, activeOnly bool) ([]Session, error)
		UpdateSession(ctx context.Context, sess Session) (Session, error)

		// CreateMentor returns ErrMentorExists if the email is already registered in the session.
		CreateMentor(ctx context.Context, mentor Mentor) (Mentor, error)
		// QueryMentors fills Mentor.CurrentLoad and orders by creation time, then ID.
		QueryMentors(ctx context.Context, filter MentorFilter) ([]Mentor, error)

		// CreateMentee returns ErrMenteeExists if the email is already registered in the session.
		CreateMentee(ctx context.Context, mentee Mentee) (Mentee, error)
		// QueryMentees orders by creation time, then ID.
		QueryMentees(ctx context.Context, filter MenteeFilter) ([]Mentee, error)

		// CreateMatch returns ErrMatchExists when the mentee already has an active match
		// or the pair was already recorded, and ErrMentorFull when an active match would
		// exceed the mentor's capacity. The capacity check holds across processes.
		CreateMatch(ctx context.Context, match Match) (Match, error)
		QueryMatches(ctx context.Context, filter MatchFilter) ([]MatchDetail, error)
		// SetMatchActive returns ErrMentorFull when reactivating a match of a full mentor.
		SetMatchActive(ctx context.Context, id string, active bool) (Match, error)
	}

	Service interface {
		CreateSession(ctx context.Context, ns NewSession) (Session, error)
		GetSession(ctx context.Context, id string) (Session, error)
		QuerySessions(ctx context.Context, activeOnly bool) ([]Session, error)
		SetSessionActive(ctx context.Context, id string, active bool) (Session, error)

		RegisterMentor(ctx context.Context, sessionID string, nm NewMentor) (Mentor, error)
		RegisterMentee(ctx context.Context, sessionID string, nm NewMentee) (Mentee, error)
		QueryMentors(ctx context.Context, filter MentorFilter) ([]Mentor, error)
		QueryMentees(ctx context.Context, filter MenteeFilter) ([]Mentee, error)

		AutoMatch(ctx context.Context, sessionID string) (AssignmentResult, error)
		PreviewMatch(ctx context.Context, sessionID string) ([]Assignment, error)
		QueryMatches(ctx context.Context, filter MatchFilter) ([]MatchDetail, error)
		DeactivateMatch(ctx context.Context, id string) (Match, error)
		ExportMatchesCSV(ctx context.Context, sessionID string, w io.Writer) error
		Stats(ctx context.Context, sessionID string) (Stats, error)
	}

	service struct {
		repo     Repository
		mailSvc  core.EmailService
		notifier core.Notifier
		logger   core.Logger
		guard    *runGuard
		nowFunc  func() time.Time
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, notifier core.Notifier, logger core.Logger) Service {
	return &service{
		repo:     repo,
		mailSvc:  mailSvc,
		notifier: notifier,
		logger:   logger,
		guard:    newRunGuard(),
		nowFunc:  time.Now,
	}
}

func (svc *service) CreateSession(ctx context.Context, ns NewSession) (Session, error) {
	sess := Session{
		Name:      ns.Name,
		StartDate: ns.StartDate.UTC(),
		EndDate:   ns.EndDate.UTC(),
		IsActive:  ns.IsActive == nil || *ns.IsActive,
		CreatedAt: svc.nowFunc().UTC(),
	}
	return svc.repo.CreateSession(ctx, sess)
}

func (svc *service) GetSession(ctx context.Context, id string) (Session, error) {
	return svc.repo.GetSession(ctx, id)
}

func (svc *service) QuerySessions(ctx context.Context, activeOnly bool) ([]Session, error) {
	return svc.repo.QuerySessions(ctx, activeOnly)
}

func (svc *service) SetSessionActive(ctx context.Context, id string, active bool) (Session, error) {
	sess, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	sess.IsActive = active
	return svc.repo.UpdateSession(ctx, sess)
}

// activeSession loads the session and checks that it is open.
func (svc *service) activeSession(ctx context.Context, id string) (Session, error) {
	sess, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !sess.IsActive {
		return Session{}, ErrSessionInactive
	}
	return sess, nil
}

func (svc *service) RegisterMentor(ctx context.Context, sessionID string, nm NewMentor) (Mentor, error) {
	if _, err := svc.activeSession(ctx, sessionID); err != nil {
		return Mentor{}, err
	}
	if nm.MaxMentees <= 0 {
		nm.MaxMentees = DefaultMaxMentees
	}
	mentor, err := svc.repo.CreateMentor(ctx, Mentor{
		SessionID:        sessionID,
		FirstName:        nm.FirstName,
		LastName:         nm.LastName,
		Phone:            nm.Phone,
		Email:            nm.Email,
		Level:            nm.Level,
		Specialty:        nm.Specialty,
		ExpertiseDomains: nm.ExpertiseDomains,
		MaxMentees:       nm.MaxMentees,
		CreatedAt:        svc.nowFunc().UTC(),
	})
	if errors.Cause(err) == ErrMentorExists {
		return Mentor{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
	}
	return mentor, err
}

func (svc *service) RegisterMentee(ctx context.Context, sessionID string, nm NewMentee) (Mentee, error) {
	if _, err := svc.activeSession(ctx, sessionID); err != nil {
		return Mentee{}, err
	}
	mentee, err := svc.repo.CreateMentee(ctx, Mentee{
		SessionID:        sessionID,
		FirstName:        nm.FirstName,
		LastName:         nm.LastName,
		Phone:            nm.Phone,
		Email:            nm.Email,
		Level:            nm.Level,
		DesiredSpecialty: nm.DesiredSpecialty,
		Competencies:     nm.Competencies,
		DesiredDomains:   nm.DesiredDomains,
		CreatedAt:        svc.nowFunc().UTC(),
	})
	if errors.Cause(err) == ErrMenteeExists {
		return Mentee{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
	}
	return mentee, err
}

func (svc *service) QueryMentors(ctx context.Context, filter MentorFilter) ([]Mentor, error) {
	return svc.repo.QueryMentors(ctx, filter)
}

func (svc *service) QueryMentees(ctx context.Context, filter MenteeFilter) ([]Mentee, error) {
	return svc.repo.QueryMentees(ctx, filter)
}

// workingSet loads everything a matching pass needs.
func (svc *service) workingSet(ctx context.Context, sessionID string) ([]Mentor, []Mentee, []Match, error) {
	mentors, err := svc.repo.QueryMentors(ctx, MentorFilter{SessionID: sessionID})
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "querying mentors")
	}
	mentees, err := svc.repo.QueryMentees(ctx, MenteeFilter{SessionID: sessionID, Unmatched: true})
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "querying unmatched mentees")
	}
	details, err := svc.repo.QueryMatches(ctx, MatchFilter{SessionID: sessionID})
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "querying matches")
	}
	history := make([]Match, 0, len(details))
	for _, d := range details {
		history = append(history, d.Match)
	}
	return mentors, mentees, history, nil
}

// AutoMatch assigns every unmatched mentee of the session to its best eligible mentor.
// Mentees are processed in registration order and each mentor's load is bumped as soon
// as a match is stored, so the pass is greedy and order dependent. A mentee matched
// concurrently by someone else is skipped; any other storage failure stops the pass and
// the partial result is returned along with the error.
func (svc *service) AutoMatch(ctx context.Context, sessionID string) (AssignmentResult, error) {
	res := AssignmentResult{Matches: []Match{}}

	sess, err := svc.activeSession(ctx, sessionID)
	if err != nil {
		return res, err
	}
	if !svc.guard.acquire(sessionID) {
		return res, ErrMatchingInProgress
	}
	defer svc.guard.release(sessionID)

	mentors, mentees, history, err := svc.workingSet(ctx, sessionID)
	if err != nil {
		return res, err
	}

	m := newMatcher(mentors)
	pairs := newPairSet(history)
	created := make([]pairing, 0, len(mentees))
	defer func() { svc.announce(sess, res, created) }()

	for _, mentee := range mentees {
		match, mentor, err := svc.matchMentee(ctx, m, pairs, mentee)
		switch errors.Cause(err) {
		case nil:
		case errNoMentor:
			res.Unmatched++
			continue
		case ErrMatchExists:
			res.Skipped++
			continue
		default:
			return res, errors.Wrapf(err, "creating match for mentee %s", mentee.ID)
		}

		res.Created++
		res.Matches = append(res.Matches, match)
		created = append(created, pairing{Mentor: mentor, Mentee: mentee})
	}
	return res, nil
}

var errNoMentor = errors.New("no eligible mentor")

// matchMentee stores a match with the best mentor for mentee. A mentor found full by the
// store (filled by another pass since the working set was read) is dropped from the
// candidates and the next best one is tried.
func (svc *service) matchMentee(ctx context.Context, m *matcher, pairs pairSet, mentee Mentee) (Match, Mentor, error) {
	for {
		mentor, _, ok := m.best(mentee, pairs)
		if !ok {
			return Match{}, Mentor{}, errNoMentor
		}

		match, err := svc.repo.CreateMatch(ctx, Match{
			SessionID: mentee.SessionID,
			MentorID:  mentor.ID,
			MenteeID:  mentee.ID,
			IsActive:  true,
			CreatedAt: svc.nowFunc().UTC(),
		})
		if errors.Cause(err) == ErrMentorFull {
			m.fill(mentor.ID)
			continue
		}
		if err != nil {
			return Match{}, Mentor{}, err
		}

		m.assign(mentor.ID)
		pairs.add(mentor.ID, mentee.ID)
		return match, mentor, nil
	}
}

func (svc *service) PreviewMatch(ctx context.Context, sessionID string) ([]Assignment, error) {
	if _, err := svc.activeSession(ctx, sessionID); err != nil {
		return nil, err
	}
	mentors, mentees, history, err := svc.workingSet(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	assignments, _ := Plan(mentors, mentees, history)
	if assignments == nil {
		assignments = []Assignment{}
	}
	return assignments, nil
}

func (svc *service) QueryMatches(ctx context.Context, filter MatchFilter) ([]MatchDetail, error) {
	return svc.repo.QueryMatches(ctx, filter)
}

func (svc *service) DeactivateMatch(ctx context.Context, id string) (Match, error) {
	return svc.repo.SetMatchActive(ctx, id, false)
}

func (svc *service) Stats(ctx context.Context, sessionID string) (Stats, error) {
	if _, err := svc.repo.GetSession(ctx, sessionID); err != nil {
		return Stats{}, err
	}
	mentors, err := svc.repo.QueryMentors(ctx, MentorFilter{SessionID: sessionID})
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying mentors")
	}
	mentees, err := svc.repo.QueryMentees(ctx, MenteeFilter{SessionID: sessionID})
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying mentees")
	}
	pending, err := svc.repo.QueryMentees(ctx, MenteeFilter{SessionID: sessionID, Unmatched: true})
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying unmatched mentees")
	}

	stats := Stats{
		Mentors:        len(mentors),
		Mentees:        len(mentees),
		PendingMentees: len(pending),
	}
	for _, mentor := range mentors {
		stats.ActiveMatches += mentor.CurrentLoad
		if mentor.HasCapacity() {
			stats.FreeSlots += mentor.MaxMentees - mentor.CurrentLoad
		}
	}
	return stats, nil
}

type pairing struct {
	Session Session
	Mentor  Mentor
	Mentee  Mentee
}

// announce emails every new pair and posts a summary for the bureau.
func (svc *service) announce(sess Session, res AssignmentResult, created []pairing) {
	if len(created) > 0 && svc.mailSvc != nil {
		msgs := make([]*core.EmailMessage, 0, 2*len(created))
		for _, p := range created {
			p.Session = sess
			msgs = append(msgs,
				&core.EmailMessage{
					To:           []mail.Address{{Name: p.Mentor.FullName(), Address: p.Mentor.Email}},
					Subject:      "Nouveau filleul attribué",
					TemplateName: "match_mentor",
					TemplateData: p,
				},
				&core.EmailMessage{
					To:           []mail.Address{{Name: p.Mentee.FullName(), Address: p.Mentee.Email}},
					Subject:      "Votre parrain COMS.A.S",
					TemplateName: "match_mentee",
					TemplateData: p,
				},
			)
		}
		svc.mailSvc.SendMessages(msgs...)
	}
	summary := fmt.Sprintf("auto-match %s: created=%d unmatched=%d skipped=%d", sess.ID, res.Created, res.Unmatched, res.Skipped)
	if svc.logger != nil {
		svc.logger.Info(summary)
	}
	if svc.notifier != nil {
		svc.notifier.Notify(fmt.Sprintf(
			"Parrainage « %s » : %d binôme(s) créé(s), %d filleul(s) sans parrain, %d ignoré(s).",
			sess.Name, res.Created, res.Unmatched, res.Skipped,
		))
	}
}

// runGuard lets a single matching pass run per session within this process.
type runGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func newRunGuard() *runGuard {
	return &runGuard{running: make(map[string]struct{})}
}

func (g *runGuard) acquire(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.running[id]; ok {
		return false
	}
	g.running[id] = struct{}{}
	return true
}

func (g *runGuard) release(id string) {
	g.mu.Lock()
	delete(g.running, id)
	g.mu.Unlock()
}
