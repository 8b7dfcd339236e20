package sqlxrepos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/neussi/comsas-uy1.com/core/member"
)

const memberColumns = `id, full_name, birth_date, birth_place, level, promotion, phone, email, matricule,
	profession, address, member_type, bureau_post, bio, is_active, joined_at`

type memberRepository struct {
	db *sqlx.DB
}

var _ member.Repository = (*memberRepository)(nil) // interface compliance check

func NewMemberRepository(db *sqlx.DB) member.Repository {
	return &memberRepository{db: db}
}

func (repo *memberRepository) CreateMember(ctx context.Context, m member.Member) (member.Member, error) {
	m.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(
		"INSERT INTO members ("+memberColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		m.ID, m.FullName, m.BirthDate.UTC(), m.BirthPlace, m.Level, m.Promotion, m.Phone, m.Email, m.Matricule,
		m.Profession, m.Address, m.Type, m.BureauPost, m.Bio, m.IsActive, m.JoinedAt.UTC(),
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return member.Member{}, member.ErrMatriculeExists
		}
		return member.Member{}, errors.Wrap(err, "inserting member")
	}
	return m, nil
}

func (repo *memberRepository) GetMember(ctx context.Context, id string) (member.Member, error) {
	var m member.Member
	q := repo.db.Rebind("SELECT " + memberColumns + " FROM members WHERE id = ?")
	if err := sqlx.GetContext(ctx, repo.db, &m, q, id); err != nil {
		return member.Member{}, trapNoRows(err, member.ErrNotFound, "getting member")
	}
	return m, nil
}

func (repo *memberRepository) QueryMembers(ctx context.Context, filter member.QueryFilter) ([]member.Member, error) {
	var w where
	if filter.Type != "" {
		w.add("member_type = ?", filter.Type)
	}
	switch filter.Status {
	case member.StatusPending:
		w.add("is_active = ?", false)
	case member.StatusActive:
		w.add("is_active = ?", true)
	}
	if filter.Search != "" {
		s := "%" + strings.ToLower(filter.Search) + "%"
		w.add("(LOWER(full_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(promotion) LIKE ?)", s, s, s)
	}

	members := make([]member.Member, 0)
	q := repo.db.Rebind("SELECT " + memberColumns + " FROM members" + w.String() + " ORDER BY joined_at DESC, id")
	if err := sqlx.SelectContext(ctx, repo.db, &members, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying members")
	}
	return members, nil
}

func (repo *memberRepository) UpdateMember(ctx context.Context, m member.Member) (member.Member, error) {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`UPDATE members SET member_type = ?, bureau_post = ?,
		level = ?, promotion = ?, profession = ?, address = ?, bio = ? WHERE id = ?`),
		m.Type, m.BureauPost, m.Level, m.Promotion, m.Profession, m.Address, m.Bio, m.ID,
	)
	if err != nil {
		return member.Member{}, errors.Wrap(err, "updating member")
	}
	if err = affectedOne(res, member.ErrNotFound, "updating member"); err != nil {
		return member.Member{}, err
	}
	return repo.GetMember(ctx, m.ID)
}

func (repo *memberRepository) SetMemberActive(ctx context.Context, id string, active bool) (member.Member, error) {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("UPDATE members SET is_active = ? WHERE id = ?"), active, id)
	if err != nil {
		return member.Member{}, errors.Wrap(err, "activating member")
	}
	if err = affectedOne(res, member.ErrNotFound, "activating member"); err != nil {
		return member.Member{}, err
	}
	return repo.GetMember(ctx, id)
}

func (repo *memberRepository) DeletePendingMember(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM members WHERE id = ? AND is_active = ?"), id, false)
	if err != nil {
		return errors.Wrap(err, "deleting member")
	}
	if err = affectedOne(res, member.ErrNotFound, "deleting member"); err != member.ErrNotFound {
		return err
	}
	// nothing deleted: unknown or already approved
	if _, err = repo.GetMember(ctx, id); err != nil {
		return err
	}
	return member.ErrAlreadyApproved
}
