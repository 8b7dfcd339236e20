package sponsorship

// Scoring weights.
const (
	specialtyWeight = 10.0
	domainWeight    = 5.0
	loadPenalty     = 0.5
)

// Score rates how well mentor fits mentee given the mentor's current load:
// +10 on exact specialty match, +5 per shared domain, -0.5 per active mentee.
func Score(mentor Mentor, load int, mentee Mentee) float64 {
	var score float64
	if mentor.Specialty == mentee.DesiredSpecialty {
		score += specialtyWeight
	}
	score += domainWeight * float64(mentor.ExpertiseDomains.IntersectionSize(mentee.DesiredDomains))
	score -= loadPenalty * float64(load)
	return score
}

// Assignment is a planned (mentor, mentee) pair.
type Assignment struct {
	MentorID string  `json:"mentor_id"`
	MenteeID string  `json:"mentee_id"`
	Score    float64 `json:"score"`
}

// matcher is the working set of one greedy pass. Loads start at each mentor's
// CurrentLoad and must be bumped with assign right after an assignment is persisted,
// so that later mentees of the same pass see the updated capacity and penalty.
type matcher struct {
	mentors []Mentor // enumeration order decides ties
	loads   []int
	index   map[string]int
}

func newMatcher(mentors []Mentor) *matcher {
	m := &matcher{
		mentors: mentors,
		loads:   make([]int, len(mentors)),
		index:   make(map[string]int, len(mentors)),
	}
	for i, mentor := range mentors {
		m.loads[i] = mentor.CurrentLoad
		m.index[mentor.ID] = i
	}
	return m
}

// best returns the eligible mentor with the highest score for mentee.
// Mentors already paired with mentee in history are skipped. The first mentor
// encountered wins ties. ok is false when no mentor scores above 0.
func (m *matcher) best(mentee Mentee, history pairSet) (mentor Mentor, score float64, ok bool) {
	bestIdx := -1
	bestScore := 0.0
	for i, candidate := range m.mentors {
		if candidate.SessionID != mentee.SessionID || m.loads[i] >= candidate.MaxMentees {
			continue
		}
		if history.has(candidate.ID, mentee.ID) {
			continue
		}
		s := Score(candidate, m.loads[i], mentee)
		if bestIdx == -1 || s > bestScore {
			bestIdx, bestScore = i, s
		}
	}
	if bestIdx == -1 || bestScore <= 0 {
		return Mentor{}, 0, false
	}
	return m.mentors[bestIdx], bestScore, true
}

func (m *matcher) assign(mentorID string) {
	if i, ok := m.index[mentorID]; ok {
		m.loads[i]++
	}
}

// fill marks the mentor as having no free slot left.
func (m *matcher) fill(mentorID string) {
	if i, ok := m.index[mentorID]; ok {
		m.loads[i] = m.mentors[i].MaxMentees
	}
}

// pairSet holds the (mentor, mentee) pairs already used, active or not.
type pairSet map[string]map[string]struct{} // menteeID -> mentorIDs

func newPairSet(matches []Match) pairSet {
	ps := make(pairSet, len(matches))
	for _, mt := range matches {
		ps.add(mt.MentorID, mt.MenteeID)
	}
	return ps
}

func (ps pairSet) add(mentorID, menteeID string) {
	mentors, ok := ps[menteeID]
	if !ok {
		mentors = make(map[string]struct{}, 1)
		ps[menteeID] = mentors
	}
	mentors[mentorID] = struct{}{}
}

func (ps pairSet) has(mentorID, menteeID string) bool {
	_, ok := ps[menteeID][mentorID]
	return ok
}

// Plan runs the greedy pass in memory: mentees are taken in the given order and each
// one gets the best eligible mentor, updating loads as it goes. history lists the
// matches already recorded in the session. Nothing is persisted.
func Plan(mentors []Mentor, mentees []Mentee, history []Match) (assignments []Assignment, unmatched []Mentee) {
	m := newMatcher(mentors)
	pairs := newPairSet(history)
	for _, mentee := range mentees {
		mentor, score, ok := m.best(mentee, pairs)
		if !ok {
			unmatched = append(unmatched, mentee)
			continue
		}
		m.assign(mentor.ID)
		pairs.add(mentor.ID, mentee.ID)
		assignments = append(assignments, Assignment{MentorID: mentor.ID, MenteeID: mentee.ID, Score: score})
	}
	return assignments, unmatched
}
