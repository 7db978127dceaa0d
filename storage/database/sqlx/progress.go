package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/progress"
)

var _ progress.Repository = (*progressRepository)(nil)

type progressRepository struct {
	repoBase
}

func NewProgressRepository(db *sqlx.DB) *progressRepository {
	return &progressRepository{repoBase{db: db}}
}

type dbModuleProgress struct {
	ID                string    `db:"id"`
	UserID            string    `db:"user_id"`
	ModuleID          string    `db:"module_id"`
	CourseID          string    `db:"course_id"`
	CompletionPercent int       `db:"completion_percentage"`
	TimeSpentMinutes  int       `db:"time_spent_minutes"`
	StartedAt         null.Time `db:"started_at"`
	CompletedAt       null.Time `db:"completed_at"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (mp dbModuleProgress) toCore() progress.ModuleProgress {
	return progress.ModuleProgress{
		ID:                mp.ID,
		UserID:            mp.UserID,
		ModuleID:          mp.ModuleID,
		CourseID:          mp.CourseID,
		CompletionPercent: mp.CompletionPercent,
		TimeSpentMinutes:  mp.TimeSpentMinutes,
		StartedAt:         mp.StartedAt.Time,
		CompletedAt:       mp.CompletedAt.Time,
		CreatedAt:         mp.CreatedAt,
		UpdatedAt:         mp.UpdatedAt,
	}
}

type dbCourseProgress struct {
	ID                string    `db:"id"`
	UserID            string    `db:"user_id"`
	CourseID          string    `db:"course_id"`
	CompletionPercent int       `db:"completion_percentage"`
	ModulesCompleted  int       `db:"modules_completed"`
	TotalModules      int       `db:"total_modules"`
	TimeSpentMinutes  int       `db:"time_spent_minutes"`
	PointsEarned      int       `db:"total_points_earned"`
	QuizCorrect       int       `db:"quiz_correct_answers"`
	QuizTotal         int       `db:"quiz_total_questions"`
	StartedAt         null.Time `db:"started_at"`
	CompletedAt       null.Time `db:"completed_at"`
	LastActivity      null.Time `db:"last_activity"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (cp dbCourseProgress) toCore() progress.CourseProgress {
	return progress.CourseProgress{
		ID:                cp.ID,
		UserID:            cp.UserID,
		CourseID:          cp.CourseID,
		CompletionPercent: cp.CompletionPercent,
		ModulesCompleted:  cp.ModulesCompleted,
		TotalModules:      cp.TotalModules,
		TimeSpentMinutes:  cp.TimeSpentMinutes,
		PointsEarned:      cp.PointsEarned,
		QuizCorrect:       cp.QuizCorrect,
		QuizTotal:         cp.QuizTotal,
		StartedAt:         cp.StartedAt.Time,
		CompletedAt:       cp.CompletedAt.Time,
		LastActivity:      cp.LastActivity.Time,
		CreatedAt:         cp.CreatedAt,
		UpdatedAt:         cp.UpdatedAt,
	}
}

func nullTime(t time.Time) null.Time { return null.NewTime(t, !t.IsZero()) }

const (
	moduleProgressCols = `id, user_id, module_id, course_id, completion_percentage, time_spent_minutes, started_at, completed_at, created_at, updated_at`
	courseProgressCols = `id, user_id, course_id, completion_percentage, modules_completed, total_modules, time_spent_minutes, total_points_earned, quiz_correct_answers, quiz_total_questions, started_at, completed_at, last_activity, created_at, updated_at`
)

func (repo *progressRepository) GetModuleProgress(ctx context.Context, userID, moduleID string, exec ...core.DBExecutor) (progress.ModuleProgress, error) {
	var mp dbModuleProgress
	err := sqlx.GetContext(ctx, repo.ext(exec), &mp,
		`SELECT `+moduleProgressCols+` FROM module_progress WHERE user_id = $1 AND module_id = $2`,
		userID, moduleID,
	)
	if err != nil {
		return progress.ModuleProgress{}, trapErr(err, progress.ErrModuleProgressNotFound)
	}
	return mp.toCore(), nil
}

func (repo *progressRepository) GetModuleProgressForCourse(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) ([]progress.ModuleProgress, error) {
	var rows []dbModuleProgress
	err := sqlx.SelectContext(ctx, repo.ext(exec), &rows,
		`SELECT `+moduleProgressCols+` FROM module_progress WHERE user_id = $1 AND course_id = $2 ORDER BY module_id`,
		userID, courseID,
	)
	if err != nil {
		return nil, trapErr(err, nil)
	}
	entries := make([]progress.ModuleProgress, 0, len(rows))
	for _, mp := range rows {
		entries = append(entries, mp.toCore())
	}
	return entries, nil
}

func (repo *progressRepository) QueryModuleProgressSince(ctx context.Context, userID string, since time.Time, exec ...core.DBExecutor) ([]progress.ModuleProgress, error) {
	var rows []dbModuleProgress
	err := sqlx.SelectContext(ctx, repo.ext(exec), &rows,
		`SELECT `+moduleProgressCols+` FROM module_progress WHERE user_id = $1 AND updated_at >= $2 ORDER BY updated_at`,
		userID, since,
	)
	if err != nil {
		return nil, trapErr(err, nil)
	}
	entries := make([]progress.ModuleProgress, 0, len(rows))
	for _, mp := range rows {
		entries = append(entries, mp.toCore())
	}
	return entries, nil
}

func (repo *progressRepository) SaveModuleProgress(ctx context.Context, mp progress.ModuleProgress, exec ...core.DBExecutor) (progress.ModuleProgress, error) {
	if mp.ID == "" {
		mp.ID = uuid.New().String()
	}
	_, err := repo.ext(exec).ExecContext(ctx,
		`INSERT INTO module_progress (`+moduleProgressCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (user_id, module_id) DO UPDATE
		 SET completion_percentage = EXCLUDED.completion_percentage,
		     time_spent_minutes = EXCLUDED.time_spent_minutes,
		     started_at = EXCLUDED.started_at,
		     completed_at = EXCLUDED.completed_at,
		     updated_at = EXCLUDED.updated_at`,
		mp.ID, mp.UserID, mp.ModuleID, mp.CourseID, mp.CompletionPercent, mp.TimeSpentMinutes,
		nullTime(mp.StartedAt), nullTime(mp.CompletedAt), mp.CreatedAt, mp.UpdatedAt,
	)
	return mp, trapErr(err, nil)
}

func (repo *progressRepository) GetCourseProgress(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (progress.CourseProgress, error) {
	var cp dbCourseProgress
	err := sqlx.GetContext(ctx, repo.ext(exec), &cp,
		`SELECT `+courseProgressCols+` FROM course_progress WHERE user_id = $1 AND course_id = $2`,
		userID, courseID,
	)
	if err != nil {
		return progress.CourseProgress{}, trapErr(err, progress.ErrCourseProgressNotFound)
	}
	return cp.toCore(), nil
}

func (repo *progressRepository) QueryCourseProgress(ctx context.Context, filter progress.CourseProgressFilter, exec ...core.DBExecutor) ([]progress.CourseProgress, error) {
	query := `SELECT ` + courseProgressCols + ` FROM course_progress`
	var (
		conds []string
		args  []interface{}
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conds = append(conds, fmt.Sprintf("course_id = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY user_id, course_id`

	var rows []dbCourseProgress
	if err := sqlx.SelectContext(ctx, repo.ext(exec), &rows, query, args...); err != nil {
		return nil, trapErr(err, nil)
	}
	aggs := make([]progress.CourseProgress, 0, len(rows))
	for _, cp := range rows {
		aggs = append(aggs, cp.toCore())
	}
	return aggs, nil
}

func (repo *progressRepository) SaveCourseProgress(ctx context.Context, cp progress.CourseProgress, exec ...core.DBExecutor) (progress.CourseProgress, error) {
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	_, err := repo.ext(exec).ExecContext(ctx,
		`INSERT INTO course_progress (`+courseProgressCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (user_id, course_id) DO UPDATE
		 SET completion_percentage = EXCLUDED.completion_percentage,
		     modules_completed = EXCLUDED.modules_completed,
		     total_modules = EXCLUDED.total_modules,
		     time_spent_minutes = EXCLUDED.time_spent_minutes,
		     total_points_earned = EXCLUDED.total_points_earned,
		     quiz_correct_answers = EXCLUDED.quiz_correct_answers,
		     quiz_total_questions = EXCLUDED.quiz_total_questions,
		     started_at = EXCLUDED.started_at,
		     completed_at = EXCLUDED.completed_at,
		     last_activity = EXCLUDED.last_activity,
		     updated_at = EXCLUDED.updated_at`,
		cp.ID, cp.UserID, cp.CourseID, cp.CompletionPercent, cp.ModulesCompleted, cp.TotalModules,
		cp.TimeSpentMinutes, cp.PointsEarned, cp.QuizCorrect, cp.QuizTotal,
		nullTime(cp.StartedAt), nullTime(cp.CompletedAt), nullTime(cp.LastActivity), cp.CreatedAt, cp.UpdatedAt,
	)
	return cp, trapErr(err, nil)
}
