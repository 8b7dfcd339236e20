package contest

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/neussi/comsas-uy1.com/core"
)

// Candidate statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Contest struct {
	ID                    string    `json:"id" db:"id"`
	Slug                  string    `json:"slug" db:"slug"`
	Title                 string    `json:"title" db:"title"`
	Description           string    `json:"description" db:"description"`
	StartTime             time.Time `json:"start_time" db:"start_time"`
	EndTime               time.Time `json:"end_time" db:"end_time"`
	IsActive              bool      `json:"is_active" db:"is_active"`
	AllowPublicCandidates bool      `json:"allow_public_candidates" db:"allow_public_candidates"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
}

// IsOpen reports whether votes are accepted at now: active and start ≤ now ≤ end.
func (c Contest) IsOpen(now time.Time) bool {
	return c.IsActive && !now.Before(c.StartTime) && !now.After(c.EndTime)
}

type Candidate struct {
	ID          string    `json:"id" db:"id"`
	ContestID   string    `json:"contest_id" db:"contest_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	VideoURL    string    `json:"video_url" db:"video_url"`
	Status      string    `json:"status" db:"status"`
	VotesCount  int       `json:"votes_count" db:"votes_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Vote is immutable once stored.
type Vote struct {
	ID             string    `json:"id" db:"id"`
	ContestID      string    `json:"contest_id" db:"contest_id"`
	CandidateID    string    `json:"candidate_id" db:"candidate_id"`
	VoterEmail     string    `json:"voter_email" db:"voter_email"`
	VoterMatricule string    `json:"voter_matricule" db:"voter_matricule"`
	IPAddress      string    `json:"ip_address" db:"ip_address"`
	SessionToken   string    `json:"-" db:"session_token"`
	UserAgent      string    `json:"user_agent" db:"user_agent"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// RequestContext carries request metadata recorded with a vote. It is opaque to the ledger.
type RequestContext struct {
	IPAddress    string
	UserAgent    string
	SessionToken string
}

type VoteResult struct {
	CandidateID string `json:"candidate_id"`
	VotesCount  int    `json:"votes_count"`
}

// Standing is a candidate with its share of the contest's votes.
type Standing struct {
	Candidate
	Percentage float64 `json:"percentage"`
}

type Standings struct {
	Contest    Contest    `json:"contest"`
	IsOpen     bool       `json:"is_open"`
	TotalVotes int        `json:"total_votes"`
	Candidates []Standing `json:"candidates"`
}

// Ballot holds the two voter identity keys.
type Ballot struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Matricule string `json:"matricule" validate:"required,max=20,matricule"`
}

// Normalize lower-cases the email and upper-cases the matricule, both trimmed.
func (b *Ballot) Normalize() {
	b.Email = core.CleanString(b.Email, true /* lower */)
	b.Matricule = strings.ToUpper(core.CleanString(b.Matricule))
}

// Validate normalizes the ballot and only checks that both keys are present.
// Formats are checked by ValidateFormat, once the contest is known to be open.
func (b *Ballot) Validate() error {
	b.Normalize()
	if b.Email == "" || b.Matricule == "" {
		return core.NewValidationError(ErrIdentityRequired)
	}
	return nil
}

func (b *Ballot) ValidateFormat(validate *validator.Validate) error {
	if err := b.Validate(); err != nil {
		return err
	}
	return validate.Struct(b)
}

// NewContest contains information needed to create a contest.
type NewContest struct {
	Title                 string    `json:"title" validate:"required,notblank,max=200"`
	Slug                  string    `json:"slug" validate:"omitempty,max=200,slug"`
	Description           string    `json:"description"`
	StartTime             time.Time `json:"start_time" validate:"required"`
	EndTime               time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	IsActive              *bool     `json:"is_active"`
	AllowPublicCandidates bool      `json:"allow_public_candidates"`
}

func (nc *NewContest) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Slug = core.CleanString(nc.Slug, true /* lower */)
	if nc.Slug == "" {
		nc.Slug = Slugify(nc.Title)
	}
	return validate.Struct(nc)
}

// UpdateContest replaces the editable fields of a contest.
type UpdateContest struct {
	Title                 string    `json:"title" validate:"required,notblank,max=200"`
	Description           string    `json:"description"`
	StartTime             time.Time `json:"start_time" validate:"required"`
	EndTime               time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	IsActive              bool      `json:"is_active"`
	AllowPublicCandidates bool      `json:"allow_public_candidates"`
}

func (uc *UpdateContest) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	uc.Description = core.CleanString(uc.Description)
	return validate.Struct(uc)
}

type NewCandidate struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Description string `json:"description"`
	VideoURL    string `json:"video_url" validate:"omitempty,url"`
}

func (nc *NewCandidate) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	nc.VideoURL = core.CleanString(nc.VideoURL)
	return validate.Struct(nc)
}

type CandidateStatus struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected"`
}

func (cs *CandidateStatus) Validate(validate *validator.Validate) error {
	cs.Status = core.CleanString(cs.Status, true /* lower */)
	return validate.Struct(cs)
}

// GetFilter selects a single contest by ID or slug.
type GetFilter struct {
	ID   string
	Slug string
}

// VoteFilter matches votes of a contest on any of its non-empty identity fields.
// IPAddress and SessionToken are only used together.
type VoteFilter struct {
	ContestID    string
	Email        string
	Matricule    string
	IPAddress    string
	SessionToken string
}

var (
	slugRegex      = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	matriculeRegex = regexp.MustCompile(`^[A-Z0-9]+(?:[-/][A-Z0-9]+)*$`)
	slugSepRegex   = regexp.MustCompile(`[^a-z0-9]+`)
	unaccent       = strings.NewReplacer(
		"à", "a", "â", "a", "ä", "a", "ç", "c",
		"é", "e", "è", "e", "ê", "e", "ë", "e",
		"î", "i", "ï", "i", "ô", "o", "ö", "o",
		"ù", "u", "û", "u", "ü", "u", "ÿ", "y", "œ", "oe", "æ", "ae",
	)
)

// Slugify turns a title into a URL friendly slug, e.g. "Miss Master 2026" -> "miss-master-2026".
func Slugify(s string) string {
	s = unaccent.Replace(strings.ToLower(strings.TrimSpace(s)))
	s = slugSepRegex.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
