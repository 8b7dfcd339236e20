package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/neussi/comsas-uy1.com/core/contact"
)

const messageColumns = "id, full_name, email, phone, subject, body, is_read, is_replied, created_at"

type contactRepository struct {
	db *sqlx.DB
}

var _ contact.Repository = (*contactRepository)(nil) // interface compliance check

func NewContactRepository(db *sqlx.DB) contact.Repository {
	return &contactRepository{db: db}
}

func (repo *contactRepository) CreateMessage(ctx context.Context, m contact.Message) (contact.Message, error) {
	m.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(
		"INSERT INTO contact_messages ("+messageColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		m.ID, m.FullName, m.Email, m.Phone, m.Subject, m.Body, m.IsRead, m.IsReplied, m.CreatedAt.UTC(),
	)
	if err != nil {
		return contact.Message{}, errors.Wrap(err, "inserting message")
	}
	return m, nil
}

func (repo *contactRepository) GetMessage(ctx context.Context, id string) (contact.Message, error) {
	var m contact.Message
	q := repo.db.Rebind("SELECT " + messageColumns + " FROM contact_messages WHERE id = ?")
	if err := sqlx.GetContext(ctx, repo.db, &m, q, id); err != nil {
		return contact.Message{}, trapNoRows(err, contact.ErrNotFound, "getting message")
	}
	return m, nil
}

func (repo *contactRepository) QueryMessages(ctx context.Context, filter contact.QueryFilter) ([]contact.Message, error) {
	var w where
	switch filter.Status {
	case contact.StatusRead:
		w.add("is_read = ?", true)
	case contact.StatusUnread:
		w.add("is_read = ?", false)
	}
	msgs := make([]contact.Message, 0)
	q := repo.db.Rebind("SELECT " + messageColumns + " FROM contact_messages" + w.String() + " ORDER BY created_at DESC, id")
	if err := sqlx.SelectContext(ctx, repo.db, &msgs, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	return msgs, nil
}

func (repo *contactRepository) MarkMessage(ctx context.Context, id string, replied bool) (contact.Message, error) {
	q := "UPDATE contact_messages SET is_read = ? WHERE id = ?"
	args := []interface{}{true, id}
	if replied {
		q = "UPDATE contact_messages SET is_read = ?, is_replied = ? WHERE id = ?"
		args = []interface{}{true, true, id}
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return contact.Message{}, errors.Wrap(err, "marking message")
	}
	if err = affectedOne(res, contact.ErrNotFound, "marking message"); err != nil {
		return contact.Message{}, err
	}
	return repo.GetMessage(ctx, id)
}

func (repo *contactRepository) DeleteMessage(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM contact_messages WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting message")
	}
	return affectedOne(res, contact.ErrNotFound, "deleting message")
}
