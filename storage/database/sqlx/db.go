package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// withTx runs fn in a transaction, committing if it returns nil and rolling back otherwise.
// fn must only use tx: on SQLite the pool holds a single connection.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = errors.Wrap(tx.Commit(), "committing transaction")
	}()
	return fn(tx)
}

// uniqueViolation reports whether err is a unique constraint failure. The returned
// string identifies the constraint: its name on Postgres, the error text on SQLite
// (e.g. "UNIQUE constraint failed: votes.contest_id, votes.voter_email").
func uniqueViolation(err error) (string, bool) {
	switch e := errors.Cause(err).(type) {
	case *pq.Error:
		if e.Code == "23505" {
			return e.Constraint, true
		}
	case sqlite3.Error:
		if e.ExtendedCode == sqlite3.ErrConstraintUnique || e.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return e.Error(), true
		}
	}
	return "", false
}

// trapNoRows maps sql.ErrNoRows to notFound and wraps any other error with msg.
func trapNoRows(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// in expands the slice args of a "IN (?)" query and rebinds it for the driver.
func in(ext sqlx.ExtContext, query string, args ...interface{}) (string, []interface{}, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return ext.Rebind(q), a, nil
}

// where is a tiny condition builder producing "WHERE a AND b" with its args.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func affectedOne(res sql.Result, notFound error, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
