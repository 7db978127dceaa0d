// Package inmemdb provides an in-memory implementation of the domain
// repositories. It backs tests and local tooling; the SQL implementation
// lives in storage/database/sqlx.
package inmemdb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/catalog"
	"github.com/trezcool/hatua/core/leaderboard"
	"github.com/trezcool/hatua/core/progress"
	"github.com/trezcool/hatua/core/user"
)

// interface compliance checks
var (
	_ user.Repository        = (*DB)(nil)
	_ catalog.Repository     = (*DB)(nil)
	_ progress.Repository    = (*DB)(nil)
	_ leaderboard.Repository = (*DB)(nil)
)

// DB is an in-memory database implementing every domain repository.
// All methods copy values in and out, so callers never share memory with the
// store.
type DB struct {
	mu sync.RWMutex

	users          map[string]user.User
	courses        map[string]catalog.Course
	modules        map[string]catalog.Module
	teams          map[string]catalog.Team
	moduleProgress map[string]progress.ModuleProgress // keyed by userID|moduleID
	courseProgress map[string]progress.CourseProgress // keyed by userID|courseID
	leaderboards   map[string][]leaderboard.Entry     // keyed by scope|scopeID
}

func NewDB() *DB {
	return &DB{
		users:          make(map[string]user.User),
		courses:        make(map[string]catalog.Course),
		modules:        make(map[string]catalog.Module),
		teams:          make(map[string]catalog.Team),
		moduleProgress: make(map[string]progress.ModuleProgress),
		courseProgress: make(map[string]progress.CourseProgress),
		leaderboards:   make(map[string][]leaderboard.Entry),
	}
}

// Atomic runs fn under the store's write lock. The sentinel executor handed
// to fn tells the repository methods they already run locked, so nesting them
// inside fn is safe.
func (db *DB) Atomic(ctx context.Context, fn func(tx core.DBExecutor) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(lockedExec{})
}

// lock acquires the write lock unless the call already runs within Atomic.
func (db *DB) lock(exec []core.DBExecutor) func() {
	if len(exec) > 0 {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

// rlock is lock's read-only counterpart.
func (db *DB) rlock(exec []core.DBExecutor) func() {
	if len(exec) > 0 {
		return func() {}
	}
	db.mu.RLock()
	return db.mu.RUnlock
}

func progressKey(userID, otherID string) string { return userID + "|" + otherID }

func scopeKey(scope leaderboard.Scope, scopeID string) string { return string(scope) + "|" + scopeID }

// lockedExec marks a call as already holding the store lock. The store does
// not speak SQL, so the executor methods only satisfy core.DBExecutor.
type lockedExec struct{}

var errNoSQL = errors.New("in-memory store does not execute SQL")

func (lockedExec) Exec(string, ...interface{}) (sql.Result, error) { return nil, errNoSQL }
func (lockedExec) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}
func (lockedExec) Query(string, ...interface{}) (*sql.Rows, error) { return nil, errNoSQL }
func (lockedExec) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errNoSQL
}
func (lockedExec) QueryRow(string, ...interface{}) *sql.Row { return nil }
func (lockedExec) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}
