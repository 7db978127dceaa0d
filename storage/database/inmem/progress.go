package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/progress"
)

func (db *DB) GetModuleProgress(ctx context.Context, userID, moduleID string, exec ...core.DBExecutor) (progress.ModuleProgress, error) {
	defer db.rlock(exec)()

	if mp, ok := db.moduleProgress[progressKey(userID, moduleID)]; ok {
		return mp, nil
	}
	return progress.ModuleProgress{}, progress.ErrModuleProgressNotFound
}

func (db *DB) GetModuleProgressForCourse(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) ([]progress.ModuleProgress, error) {
	defer db.rlock(exec)()

	var entries []progress.ModuleProgress
	for _, mp := range db.moduleProgress {
		if mp.UserID == userID && mp.CourseID == courseID {
			entries = append(entries, mp)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ModuleID < entries[j].ModuleID })
	return entries, nil
}

func (db *DB) QueryModuleProgressSince(ctx context.Context, userID string, since time.Time, exec ...core.DBExecutor) ([]progress.ModuleProgress, error) {
	defer db.rlock(exec)()

	var entries []progress.ModuleProgress
	for _, mp := range db.moduleProgress {
		if mp.UserID == userID && !mp.UpdatedAt.Before(since) {
			entries = append(entries, mp)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UpdatedAt.Before(entries[j].UpdatedAt) })
	return entries, nil
}

func (db *DB) SaveModuleProgress(ctx context.Context, mp progress.ModuleProgress, exec ...core.DBExecutor) (progress.ModuleProgress, error) {
	defer db.lock(exec)()

	if mp.ID == "" {
		mp.ID = uuid.New().String()
	}
	db.moduleProgress[progressKey(mp.UserID, mp.ModuleID)] = mp
	return mp, nil
}

func (db *DB) GetCourseProgress(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (progress.CourseProgress, error) {
	defer db.rlock(exec)()

	if cp, ok := db.courseProgress[progressKey(userID, courseID)]; ok {
		return cp, nil
	}
	return progress.CourseProgress{}, progress.ErrCourseProgressNotFound
}

func (db *DB) QueryCourseProgress(ctx context.Context, filter progress.CourseProgressFilter, exec ...core.DBExecutor) ([]progress.CourseProgress, error) {
	defer db.rlock(exec)()

	var rows []progress.CourseProgress
	for _, cp := range db.courseProgress {
		if filter.UserID != "" && cp.UserID != filter.UserID {
			continue
		}
		if filter.CourseID != "" && cp.CourseID != filter.CourseID {
			continue
		}
		rows = append(rows, cp)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].UserID != rows[j].UserID {
			return rows[i].UserID < rows[j].UserID
		}
		return rows[i].CourseID < rows[j].CourseID
	})
	return rows, nil
}

func (db *DB) SaveCourseProgress(ctx context.Context, cp progress.CourseProgress, exec ...core.DBExecutor) (progress.CourseProgress, error) {
	defer db.lock(exec)()

	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	db.courseProgress[progressKey(cp.UserID, cp.CourseID)] = cp
	return cp, nil
}
