package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/neussi/comsas-uy1.com/core/member"
)

type memberRepository struct {
	db *DB
}

var _ member.Repository = (*memberRepository)(nil)

func NewMemberRepository(db *DB) member.Repository {
	return &memberRepository{db: db}
}

func (repo *memberRepository) CreateMember(_ context.Context, m member.Member) (member.Member, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, other := range repo.db.members {
		if other.Matricule == m.Matricule {
			return member.Member{}, member.ErrMatriculeExists
		}
	}
	m.ID = uuid.New().String()
	repo.db.members[m.ID] = &m
	repo.db.track(m.ID)
	return m, nil
}

func (repo *memberRepository) GetMember(_ context.Context, id string) (member.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if m, ok := repo.db.members[id]; ok {
		return *m, nil
	}
	return member.Member{}, member.ErrNotFound
}

func (repo *memberRepository) QueryMembers(_ context.Context, filter member.QueryFilter) ([]member.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	search := strings.ToLower(filter.Search)
	members := make([]member.Member, 0)
	for _, m := range repo.db.members {
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		if (filter.Status == member.StatusPending && m.IsActive) || (filter.Status == member.StatusActive && !m.IsActive) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(m.FullName), search) &&
			!strings.Contains(strings.ToLower(m.Email), search) && !strings.Contains(strings.ToLower(m.Promotion), search) {
			continue
		}
		members = append(members, *m)
	}
	sort.Slice(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.After(members[j].JoinedAt)
		}
		return repo.db.before(members[j].ID, members[i].ID)
	})
	return members, nil
}

func (repo *memberRepository) UpdateMember(_ context.Context, m member.Member) (member.Member, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	orig, ok := repo.db.members[m.ID]
	if !ok {
		return member.Member{}, member.ErrNotFound
	}
	orig.Type, orig.BureauPost = m.Type, m.BureauPost
	orig.Level, orig.Promotion, orig.Profession = m.Level, m.Promotion, m.Profession
	orig.Address, orig.Bio = m.Address, m.Bio
	return *orig, nil
}

func (repo *memberRepository) SetMemberActive(_ context.Context, id string, active bool) (member.Member, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	m, ok := repo.db.members[id]
	if !ok {
		return member.Member{}, member.ErrNotFound
	}
	m.IsActive = active
	return *m, nil
}

func (repo *memberRepository) DeletePendingMember(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	m, ok := repo.db.members[id]
	if !ok {
		return member.ErrNotFound
	}
	if m.IsActive {
		return member.ErrAlreadyApproved
	}
	delete(repo.db.members, id)
	return nil
}
