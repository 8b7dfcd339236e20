package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neussi/comsas-uy1.com/core/contact"
	"github.com/neussi/comsas-uy1.com/tests"
)

func TestContactRepository(t *testing.T) {
	repo := NewContactRepository(testutil.PrepareDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	create := func(subject string, at time.Time) contact.Message {
		m, err := repo.CreateMessage(ctx, contact.Message{FullName: "Awa", Email: "awa@test.cm", Subject: subject, Body: "…", CreatedAt: at})
		require.NoError(t, err)
		return m
	}
	older := create("Adhésion", now.Add(-time.Hour))
	newer := create("Partenariat", now)

	m, err := repo.MarkMessage(ctx, older.ID, false)
	require.NoError(t, err)
	assert.True(t, m.IsRead)
	assert.False(t, m.IsReplied)

	m, err = repo.MarkMessage(ctx, older.ID, true)
	require.NoError(t, err)
	assert.True(t, m.IsReplied)

	// flags are never cleared
	m, err = repo.MarkMessage(ctx, older.ID, false)
	require.NoError(t, err)
	assert.True(t, m.IsReplied)

	tests := []struct {
		name   string
		status string
		want   []string
	}{
		{name: "all, newest first", want: []string{newer.ID, older.ID}},
		{name: "read", status: contact.StatusRead, want: []string{older.ID}},
		{name: "unread", status: contact.StatusUnread, want: []string{newer.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := repo.QueryMessages(ctx, contact.QueryFilter{Status: tt.status})
			require.NoError(t, err)
			ids := make([]string, 0, len(msgs))
			for _, m := range msgs {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	require.NoError(t, repo.DeleteMessage(ctx, older.ID))
	assert.Equal(t, contact.ErrNotFound, repo.DeleteMessage(ctx, older.ID))
	_, err = repo.GetMessage(ctx, older.ID)
	assert.Equal(t, contact.ErrNotFound, err)
	_, err = repo.MarkMessage(ctx, older.ID, true)
	assert.Equal(t, contact.ErrNotFound, err)
}
