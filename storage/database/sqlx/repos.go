// Package sqlxrepos implements the domain repositories on PostgreSQL via sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/hatua/core"
)

var errDBUnavailable = core.NewUnavailableError("database unavailable")

// repoBase carries the shared handle and transaction plumbing.
type repoBase struct {
	db *sqlx.DB
}

// Atomic runs fn within a transaction; the *sqlx.Tx is handed to fn as a
// core.DBExecutor so the repository methods run on it via their exec arg.
func (r repoBase) Atomic(ctx context.Context, fn func(tx core.DBExecutor) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// ext resolves the executor for a call: the transaction when one was passed,
// the shared handle otherwise.
func (r repoBase) ext(exec []core.DBExecutor) sqlx.ExtContext {
	if len(exec) > 0 {
		if ext, ok := exec[0].(sqlx.ExtContext); ok {
			return ext
		}
	}
	return r.db
}

// trapErr maps driver-level errors to the domain taxonomy.
func trapErr(err error, notFound error) error {
	switch errors.Cause(err) {
	case nil:
		return nil
	case sql.ErrNoRows:
		return notFound
	case driver.ErrBadConn:
		return errDBUnavailable
	}
	return err
}
