package inmemdb

import (
	"sync"

	"github.com/neussi/comsas-uy1.com/core/contact"
	"github.com/neussi/comsas-uy1.com/core/contest"
	"github.com/neussi/comsas-uy1.com/core/event"
	"github.com/neussi/comsas-uy1.com/core/member"
	"github.com/neussi/comsas-uy1.com/core/sponsorship"
	"github.com/neussi/comsas-uy1.com/core/user"
)

// DB is a process-local store enforcing the same unique constraints as the SQL schema.
// A single lock guards every table so that multi-table writes are atomic.
type DB struct {
	sync.RWMutex

	users map[string]*user.User

	sessions map[string]*sponsorship.Session
	mentors  map[string]*sponsorship.Mentor
	mentees  map[string]*sponsorship.Mentee
	matches  map[string]*sponsorship.Match

	contests   map[string]*contest.Contest
	candidates map[string]*contest.Candidate
	votes      map[string]*contest.Vote

	members       map[string]*member.Member
	events        map[string]*event.Event
	registrations map[string]*event.Registration
	messages      map[string]*contact.Message

	seq int64 // insertion order, breaks created_at ties
	ord map[string]int64
}

func Open() *DB {
	db := new(DB)
	db.reset()
	return db
}

// Close drops every table. The DB stays usable and empty.
func (db *DB) Close() error {
	db.Lock()
	defer db.Unlock()
	db.reset()
	return nil
}

func (db *DB) reset() {
	db.users = make(map[string]*user.User)
	db.sessions = make(map[string]*sponsorship.Session)
	db.mentors = make(map[string]*sponsorship.Mentor)
	db.mentees = make(map[string]*sponsorship.Mentee)
	db.matches = make(map[string]*sponsorship.Match)
	db.contests = make(map[string]*contest.Contest)
	db.candidates = make(map[string]*contest.Candidate)
	db.votes = make(map[string]*contest.Vote)
	db.members = make(map[string]*member.Member)
	db.events = make(map[string]*event.Event)
	db.registrations = make(map[string]*event.Registration)
	db.messages = make(map[string]*contact.Message)
	db.seq = 0
	db.ord = make(map[string]int64)
}

// track records the insertion rank of id. Callers hold the write lock.
func (db *DB) track(id string) {
	db.seq++
	db.ord[id] = db.seq
}

func (db *DB) before(id1, id2 string) bool {
	return db.ord[id1] < db.ord[id2]
}
