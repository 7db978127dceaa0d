package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/leaderboard"
)

var _ leaderboard.Repository = (*leaderboardRepository)(nil)

type leaderboardRepository struct {
	repoBase
}

func NewLeaderboardRepository(db *sqlx.DB) *leaderboardRepository {
	return &leaderboardRepository{repoBase{db: db}}
}

type dbEntry struct {
	ID               string    `db:"id"`
	Scope            string    `db:"scope"`
	ScopeID          string    `db:"scope_id"`
	SubjectID        string    `db:"subject_id"`
	SubjectName      string    `db:"subject_name"`
	Points           int       `db:"total_points"`
	ModulesCompleted int       `db:"modules_completed"`
	TimeSpentMinutes int       `db:"time_spent_minutes"`
	QuizCorrect      int       `db:"quiz_correct_answers"`
	QuizTotal        int       `db:"quiz_total_questions"`
	MemberCount      int       `db:"member_count"`
	Score            float64   `db:"score"`
	Rank             int       `db:"rank"`
	CalculatedAt     time.Time `db:"calculated_at"`
}

func (e dbEntry) toCore() leaderboard.Entry {
	return leaderboard.Entry{
		ID:               e.ID,
		Scope:            leaderboard.Scope(e.Scope),
		ScopeID:          e.ScopeID,
		SubjectID:        e.SubjectID,
		SubjectName:      e.SubjectName,
		Points:           e.Points,
		ModulesCompleted: e.ModulesCompleted,
		TimeSpentMinutes: e.TimeSpentMinutes,
		QuizCorrect:      e.QuizCorrect,
		QuizTotal:        e.QuizTotal,
		MemberCount:      e.MemberCount,
		Score:            e.Score,
		Rank:             e.Rank,
		CalculatedAt:     e.CalculatedAt,
	}
}

const entryCols = `id, scope, scope_id, subject_id, subject_name, total_points, modules_completed, time_spent_minutes, quiz_correct_answers, quiz_total_questions, member_count, score, rank, calculated_at`

func (repo *leaderboardRepository) ReplaceEntries(ctx context.Context, scope leaderboard.Scope, scopeID string, entries []leaderboard.Entry, exec ...core.DBExecutor) error {
	ext := repo.ext(exec)
	if _, err := ext.ExecContext(ctx,
		`DELETE FROM leaderboard_entry WHERE scope = $1 AND scope_id = $2`, string(scope), scopeID,
	); err != nil {
		return errors.Wrap(err, "clearing leaderboard scope")
	}
	for _, entry := range entries {
		if _, err := ext.ExecContext(ctx,
			`INSERT INTO leaderboard_entry (`+entryCols+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			entry.ID, string(scope), scopeID, entry.SubjectID, entry.SubjectName,
			entry.Points, entry.ModulesCompleted, entry.TimeSpentMinutes,
			entry.QuizCorrect, entry.QuizTotal, entry.MemberCount,
			entry.Score, entry.Rank, entry.CalculatedAt,
		); err != nil {
			return errors.Wrap(err, "inserting leaderboard entry")
		}
	}
	return nil
}

func (repo *leaderboardRepository) QueryEntries(ctx context.Context, scope leaderboard.Scope, scopeID string, limit int, exec ...core.DBExecutor) ([]leaderboard.Entry, error) {
	query := `SELECT ` + entryCols + ` FROM leaderboard_entry
		 WHERE scope = $1 AND scope_id = $2 ORDER BY rank, subject_id`
	args := []interface{}{string(scope), scopeID}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	var rows []dbEntry
	if err := sqlx.SelectContext(ctx, repo.ext(exec), &rows, query, args...); err != nil {
		return nil, trapErr(err, nil)
	}
	entries := make([]leaderboard.Entry, 0, len(rows))
	for _, e := range rows {
		entries = append(entries, e.toCore())
	}
	return entries, nil
}

func (repo *leaderboardRepository) GetEntry(ctx context.Context, scope leaderboard.Scope, scopeID, subjectID string, exec ...core.DBExecutor) (leaderboard.Entry, error) {
	var e dbEntry
	err := sqlx.GetContext(ctx, repo.ext(exec), &e,
		`SELECT `+entryCols+` FROM leaderboard_entry WHERE scope = $1 AND scope_id = $2 AND subject_id = $3`,
		string(scope), scopeID, subjectID,
	)
	if err != nil {
		return leaderboard.Entry{}, trapErr(err, leaderboard.ErrEntryNotFound)
	}
	return e.toCore(), nil
}
