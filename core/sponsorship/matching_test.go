package sponsorship

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func mentor(id, specialty string, maxMentees, load int, domains ...string) Mentor {
	return Mentor{
		ID:               id,
		SessionID:        "s1",
		Specialty:        specialty,
		ExpertiseDomains: NewTagSet(domains...),
		MaxMentees:       maxMentees,
		CurrentLoad:      load,
	}
}

func mentee(id, specialty string, domains ...string) Mentee {
	return Mentee{
		ID:               id,
		SessionID:        "s1",
		DesiredSpecialty: specialty,
		DesiredDomains:   NewTagSet(domains...),
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		mentor Mentor
		load   int
		mentee Mentee
		want   float64
	}{
		{
			name:   "specialty and domain",
			mentor: mentor("m", SpecialtySoftware, 2, 0, DomainWebDev),
			mentee: mentee("a", SpecialtySoftware, DomainWebDev),
			want:   15,
		},
		{
			name:   "nothing in common",
			mentor: mentor("n", SpecialtyNetwork, 2, 0),
			mentee: mentee("a", SpecialtySoftware, DomainWebDev),
			want:   0,
		},
		{
			name:   "two shared domains",
			mentor: mentor("m", SpecialtyDataScience, 3, 0, DomainDataScience, DomainResearch, DomainWebDev),
			mentee: mentee("a", SpecialtySoftware, DomainResearch, DomainDataScience),
			want:   10,
		},
		{
			name:   "load penalty",
			mentor: mentor("m", SpecialtySoftware, 3, 0),
			load:   2,
			mentee: mentee("a", SpecialtySoftware),
			want:   9,
		},
		{
			name:   "penalty can go negative",
			mentor: mentor("m", SpecialtyNetwork, 3, 0),
			load:   1,
			mentee: mentee("a", SpecialtySoftware),
			want:   -0.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.mentor, tt.load, tt.mentee))
		})
	}
}

func TestPlan(t *testing.T) {
	type result struct {
		pairs     map[string]string // mentee -> mentor
		unmatched []string
	}
	tests := []struct {
		name    string
		mentors []Mentor
		mentees []Mentee
		history []Match
		want    result
	}{
		{
			name: "best fit wins",
			mentors: []Mentor{
				mentor("n", SpecialtyNetwork, 2, 0),
				mentor("m", SpecialtySoftware, 2, 0, DomainWebDev),
			},
			mentees: []Mentee{mentee("a", SpecialtySoftware, DomainWebDev)},
			want:    result{pairs: map[string]string{"a": "m"}},
		},
		{
			name:    "capacity 1: first mentee only",
			mentors: []Mentor{mentor("m", SpecialtySoftware, 1, 0, DomainWebDev)},
			mentees: []Mentee{
				mentee("a", SpecialtySoftware, DomainWebDev),
				mentee("b", SpecialtySoftware, DomainWebDev),
			},
			want: result{pairs: map[string]string{"a": "m"}, unmatched: []string{"b"}},
		},
		{
			name: "same-pass load updates shift the second mentee",
			mentors: []Mentor{
				mentor("m1", SpecialtySoftware, 2, 0),
				mentor("m2", SpecialtySoftware, 2, 0),
			},
			mentees: []Mentee{
				mentee("a", SpecialtySoftware),
				mentee("b", SpecialtySoftware),
			},
			want: result{pairs: map[string]string{"a": "m1", "b": "m2"}},
		},
		{
			name:    "full mentor is not eligible",
			mentors: []Mentor{mentor("m", SpecialtySoftware, 2, 2, DomainWebDev)},
			mentees: []Mentee{mentee("a", SpecialtySoftware, DomainWebDev)},
			want:    result{pairs: map[string]string{}, unmatched: []string{"a"}},
		},
		{
			name:    "zero score is not enough",
			mentors: []Mentor{mentor("n", SpecialtyNetwork, 2, 0, DomainCybersecurity)},
			mentees: []Mentee{mentee("a", SpecialtySoftware, DomainWebDev)},
			want:    result{pairs: map[string]string{}, unmatched: []string{"a"}},
		},
		{
			name: "other session is ignored",
			mentors: []Mentor{
				{ID: "x", SessionID: "s2", Specialty: SpecialtySoftware, MaxMentees: 2},
			},
			mentees: []Mentee{mentee("a", SpecialtySoftware)},
			want:    result{pairs: map[string]string{}, unmatched: []string{"a"}},
		},
		{
			name: "historical pair is skipped",
			mentors: []Mentor{
				mentor("m", SpecialtySoftware, 2, 0, DomainWebDev),
				mentor("k", SpecialtySoftware, 2, 0),
			},
			mentees: []Mentee{mentee("a", SpecialtySoftware, DomainWebDev)},
			history: []Match{{MentorID: "m", MenteeID: "a", SessionID: "s1"}},
			want:    result{pairs: map[string]string{"a": "k"}},
		},
		{
			name: "ties go to the first mentor",
			mentors: []Mentor{
				mentor("m1", SpecialtySoftware, 2, 1),
				mentor("m2", SpecialtySoftware, 2, 1),
			},
			mentees: []Mentee{mentee("a", SpecialtySoftware)},
			want:    result{pairs: map[string]string{"a": "m1"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assignments, unmatched := Plan(tt.mentors, tt.mentees, tt.history)

			got := result{pairs: map[string]string{}}
			for _, a := range assignments {
				got.pairs[a.MenteeID] = a.MentorID
			}
			for _, m := range unmatched {
				got.unmatched = append(got.unmatched, m.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlan_capacityRespected(t *testing.T) {
	mentors := []Mentor{
		mentor("m1", SpecialtySoftware, 1, 0, DomainWebDev),
		mentor("m2", SpecialtyDataScience, 2, 1, DomainDataScience),
		mentor("m3", SpecialtySecurity, 3, 0, DomainCybersecurity, DomainWebDev),
	}
	var mentees []Mentee
	for i, specialty := range []string{SpecialtySoftware, SpecialtyDataScience, SpecialtySecurity, SpecialtySoftware, SpecialtyDataScience, SpecialtySecurity, SpecialtySoftware, SpecialtyNetwork} {
		mentees = append(mentees, mentee(string(rune('a'+i)), specialty, DomainWebDev))
	}

	assignments, unmatched := Plan(mentors, mentees, nil)

	loads := map[string]int{}
	for _, m := range mentors {
		loads[m.ID] = m.CurrentLoad
	}
	for _, a := range assignments {
		loads[a.MentorID]++
	}
	for _, m := range mentors {
		assert.LessOrEqual(t, loads[m.ID], m.MaxMentees, "mentor %s over capacity", m.ID)
	}
	assert.Equal(t, len(mentees), len(assignments)+len(unmatched))
	// 1 + 1 + 3 free slots
	assert.Len(t, assignments, 5)
}
