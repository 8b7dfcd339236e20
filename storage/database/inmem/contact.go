package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/neussi/comsas-uy1.com/core/contact"
)

type contactRepository struct {
	db *DB
}

var _ contact.Repository = (*contactRepository)(nil)

func NewContactRepository(db *DB) contact.Repository {
	return &contactRepository{db: db}
}

func (repo *contactRepository) CreateMessage(_ context.Context, m contact.Message) (contact.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	m.ID = uuid.New().String()
	repo.db.messages[m.ID] = &m
	repo.db.track(m.ID)
	return m, nil
}

func (repo *contactRepository) GetMessage(_ context.Context, id string) (contact.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if m, ok := repo.db.messages[id]; ok {
		return *m, nil
	}
	return contact.Message{}, contact.ErrNotFound
}

func (repo *contactRepository) QueryMessages(_ context.Context, filter contact.QueryFilter) ([]contact.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	msgs := make([]contact.Message, 0)
	for _, m := range repo.db.messages {
		if (filter.Status == contact.StatusRead && !m.IsRead) || (filter.Status == contact.StatusUnread && m.IsRead) {
			continue
		}
		msgs = append(msgs, *m)
	}
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
		}
		return repo.db.before(msgs[j].ID, msgs[i].ID)
	})
	return msgs, nil
}

func (repo *contactRepository) MarkMessage(_ context.Context, id string, replied bool) (contact.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	m, ok := repo.db.messages[id]
	if !ok {
		return contact.Message{}, contact.ErrNotFound
	}
	m.IsRead = true
	if replied {
		m.IsReplied = true
	}
	return *m, nil
}

func (repo *contactRepository) DeleteMessage(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.messages[id]; !ok {
		return contact.ErrNotFound
	}
	delete(repo.db.messages, id)
	return nil
}
