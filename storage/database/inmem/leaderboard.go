package inmemdb

import (
	"context"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/leaderboard"
)

func (db *DB) ReplaceEntries(ctx context.Context, scope leaderboard.Scope, scopeID string, entries []leaderboard.Entry, exec ...core.DBExecutor) error {
	defer db.lock(exec)()

	db.leaderboards[scopeKey(scope, scopeID)] = append([]leaderboard.Entry(nil), entries...)
	return nil
}

func (db *DB) QueryEntries(ctx context.Context, scope leaderboard.Scope, scopeID string, limit int, exec ...core.DBExecutor) ([]leaderboard.Entry, error) {
	defer db.rlock(exec)()

	entries := db.leaderboards[scopeKey(scope, scopeID)]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return append([]leaderboard.Entry(nil), entries...), nil
}

func (db *DB) GetEntry(ctx context.Context, scope leaderboard.Scope, scopeID, subjectID string, exec ...core.DBExecutor) (leaderboard.Entry, error) {
	defer db.rlock(exec)()

	for _, entry := range db.leaderboards[scopeKey(scope, scopeID)] {
		if entry.SubjectID == subjectID {
			return entry, nil
		}
	}
	return leaderboard.Entry{}, leaderboard.ErrEntryNotFound
}
