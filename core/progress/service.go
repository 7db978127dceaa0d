package progress

import (
	"context"
	"fmt"
	"math"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/catalog"
	"github.com/trezcool/hatua/core/user"
)

var (
	// errors
	ErrModuleProgressNotFound = core.NewNotFoundError("module progress not found")
	ErrCourseProgressNotFound = core.NewNotFoundError("course progress not found")
	ErrNegativeTime           = core.NewInvalidArgumentError("time spent cannot be negative")
	ErrInvalidQuizResult      = core.NewInvalidArgumentError("quiz result counts must be non-negative and consistent")
)

type (
	Repository interface {
		// Atomic runs fn within a single transaction; the transaction is
		// handed to fn so the other methods can run on it via exec.
		Atomic(ctx context.Context, fn func(tx core.DBExecutor) error) error

		GetModuleProgress(ctx context.Context, userID, moduleID string, exec ...core.DBExecutor) (ModuleProgress, error)
		// GetModuleProgressForCourse returns the user's ledger entries for the course's modules.
		GetModuleProgressForCourse(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) ([]ModuleProgress, error)
		// QueryModuleProgressSince returns the user's ledger entries updated at or after since.
		QueryModuleProgressSince(ctx context.Context, userID string, since time.Time, exec ...core.DBExecutor) ([]ModuleProgress, error)
		// SaveModuleProgress upserts by (UserID, ModuleID).
		SaveModuleProgress(ctx context.Context, mp ModuleProgress, exec ...core.DBExecutor) (ModuleProgress, error)

		GetCourseProgress(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (CourseProgress, error)
		QueryCourseProgress(ctx context.Context, filter CourseProgressFilter, exec ...core.DBExecutor) ([]CourseProgress, error)
		// SaveCourseProgress upserts by (UserID, CourseID).
		SaveCourseProgress(ctx context.Context, cp CourseProgress, exec ...core.DBExecutor) (CourseProgress, error)
	}

	Service struct {
		db      core.DB
		repo    Repository
		usrSvc  *user.Service
		catSvc  *catalog.Service
		mailSvc core.EmailService
		logger  core.Logger
		conf    *core.Config
		keys    keyMutex
	}
)

func NewService(
	db core.DB,
	repo Repository,
	usrSvc *user.Service,
	catSvc *catalog.Service,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		db:      db,
		repo:    repo,
		usrSvc:  usrSvc,
		catSvc:  catSvc,
		mailSvc: mailSvc,
		logger:  logger,
		conf:    conf,
	}
}

// RecordActivity appends time spent on a module and optionally marks it
// completed, then recomputes the course aggregate in the same transaction.
// Completion is idempotent: once a module is completed it stays completed and
// later calls only accumulate time. Calls for the same (user, course) pair
// are serialized so concurrent writes on any of the course's modules, or a
// concurrent quiz result, never overwrite each other's aggregate;
// deltaMinutes is therefore strictly additive under concurrency.
func (svc *Service) RecordActivity(ctx context.Context, userID, moduleID string, deltaMinutes int, markCompleted bool) (CourseProgress, error) {
	if deltaMinutes < 0 {
		return CourseProgress{}, ErrNegativeTime
	}
	usr, err := svc.usrSvc.GetByID(ctx, userID)
	if err != nil {
		return CourseProgress{}, err
	}
	mod, err := svc.catSvc.GetModule(ctx, moduleID)
	if err != nil {
		return CourseProgress{}, err
	}

	// lock at the course level: the transaction below rewrites the shared
	// (user, course) aggregate, not just this module's row
	key := userID + "|" + mod.CourseID
	svc.keys.Lock(key)
	defer svc.keys.Unlock(key)

	now := time.Now().UTC()
	var (
		snapshot       CourseProgress
		courseJustDone bool
	)
	err = svc.repo.Atomic(ctx, func(tx core.DBExecutor) error {
		mp, err := svc.repo.GetModuleProgress(ctx, userID, moduleID, tx)
		if err == ErrModuleProgressNotFound {
			mp = ModuleProgress{
				ID:        uuid.New().String(),
				UserID:    userID,
				ModuleID:  moduleID,
				CourseID:  mod.CourseID,
				CreatedAt: now,
			}
		} else if err != nil {
			return err
		}

		if mp.StartedAt.IsZero() {
			mp.StartedAt = now
		}
		mp.TimeSpentMinutes += deltaMinutes
		if markCompleted && mp.CompletedAt.IsZero() {
			mp.CompletionPercent = 100
			mp.CompletedAt = now
		}
		mp.UpdatedAt = now
		if _, err = svc.repo.SaveModuleProgress(ctx, mp, tx); err != nil {
			return err
		}

		snapshot, courseJustDone, err = svc.recomputeCourse(ctx, tx, userID, mod.CourseID, now)
		return err
	})
	if err != nil {
		return CourseProgress{}, err
	}

	if courseJustDone {
		svc.notifyCourseCompleted(ctx, usr, mod.CourseID)
	}
	return snapshot, nil
}

// StartCourse opens the user's course aggregate so the course shows as
// in progress before any module activity. Idempotent.
func (svc *Service) StartCourse(ctx context.Context, userID, courseID string) (CourseProgress, error) {
	if _, err := svc.usrSvc.GetByID(ctx, userID); err != nil {
		return CourseProgress{}, err
	}
	crs, err := svc.catSvc.GetCourse(ctx, courseID)
	if err != nil {
		return CourseProgress{}, err
	}
	mods, err := svc.catSvc.GetModulesForCourse(ctx, crs.ID)
	if err != nil {
		return CourseProgress{}, err
	}

	key := userID + "|" + courseID
	svc.keys.Lock(key)
	defer svc.keys.Unlock(key)

	now := time.Now().UTC()
	cp, err := svc.repo.GetCourseProgress(ctx, userID, courseID)
	if err == ErrCourseProgressNotFound {
		cp = CourseProgress{
			ID:           uuid.New().String(),
			UserID:       userID,
			CourseID:     courseID,
			TotalModules: len(mods),
			StartedAt:    now,
			LastActivity: now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return svc.repo.SaveCourseProgress(ctx, cp)
	} else if err != nil {
		return CourseProgress{}, err
	}
	if cp.StartedAt.IsZero() {
		cp.StartedAt = now
		cp.UpdatedAt = now
		return svc.repo.SaveCourseProgress(ctx, cp)
	}
	return cp, nil
}

// RecordQuizResult accumulates quiz answers and points on the user's course
// aggregate.
func (svc *Service) RecordQuizResult(ctx context.Context, userID, courseID string, correct, total, points int) (CourseProgress, error) {
	if correct < 0 || total < 0 || correct > total || points < 0 {
		return CourseProgress{}, ErrInvalidQuizResult
	}
	if _, err := svc.usrSvc.GetByID(ctx, userID); err != nil {
		return CourseProgress{}, err
	}
	if _, err := svc.catSvc.GetCourse(ctx, courseID); err != nil {
		return CourseProgress{}, err
	}

	key := userID + "|" + courseID
	svc.keys.Lock(key)
	defer svc.keys.Unlock(key)

	now := time.Now().UTC()
	var snapshot CourseProgress
	err := svc.repo.Atomic(ctx, func(tx core.DBExecutor) error {
		cp, err := svc.repo.GetCourseProgress(ctx, userID, courseID, tx)
		if err == ErrCourseProgressNotFound {
			mods, merr := svc.catSvc.GetModulesForCourse(ctx, courseID)
			if merr != nil {
				return merr
			}
			cp = CourseProgress{
				ID:           uuid.New().String(),
				UserID:       userID,
				CourseID:     courseID,
				TotalModules: len(mods),
				StartedAt:    now,
				CreatedAt:    now,
			}
		} else if err != nil {
			return err
		}
		cp.QuizCorrect += correct
		cp.QuizTotal += total
		cp.PointsEarned += points
		cp.LastActivity = now
		cp.UpdatedAt = now
		snapshot, err = svc.repo.SaveCourseProgress(ctx, cp, tx)
		return err
	})
	if err != nil {
		return CourseProgress{}, err
	}
	return snapshot, nil
}

// GetCourseProgress returns the user's aggregate for a course.
func (svc *Service) GetCourseProgress(ctx context.Context, userID, courseID string) (CourseProgress, error) {
	return svc.repo.GetCourseProgress(ctx, userID, courseID)
}

// QueryCourseProgress returns aggregates matching the filter.
func (svc *Service) QueryCourseProgress(ctx context.Context, filter CourseProgressFilter) ([]CourseProgress, error) {
	return svc.repo.QueryCourseProgress(ctx, filter)
}

// GetModuleProgress returns the user's ledger entry for a module.
func (svc *Service) GetModuleProgress(ctx context.Context, userID, moduleID string) (ModuleProgress, error) {
	return svc.repo.GetModuleProgress(ctx, userID, moduleID)
}

// GetUserDashboard aggregates a user's courses, hours and points.
func (svc *Service) GetUserDashboard(ctx context.Context, userID string) (Dashboard, error) {
	if _, err := svc.usrSvc.GetByID(ctx, userID); err != nil {
		return Dashboard{}, err
	}
	courses, err := svc.catSvc.QueryCourses(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	rows, err := svc.repo.QueryCourseProgress(ctx, CourseProgressFilter{UserID: userID})
	if err != nil {
		return Dashboard{}, err
	}
	// points and hours span every course the user ever worked on, even ones
	// since moved back to draft or archived; only the course cards are
	// limited to the published catalog
	byCourse := make(map[string]CourseProgress, len(rows))
	totalMinutes := 0
	dash := Dashboard{Courses: make([]CourseOverview, 0, len(courses))}
	for _, cp := range rows {
		byCourse[cp.CourseID] = cp
		totalMinutes += cp.TimeSpentMinutes
		dash.TotalPoints += cp.PointsEarned
	}

	for _, crs := range courses {
		if !crs.IsPublished() {
			continue
		}
		dash.CourseStats.TotalCourses++
		ov := CourseOverview{Course: crs, Status: StatusNotStarted}
		if cp, ok := byCourse[crs.ID]; ok {
			ov.Status = cp.Status()
			ov.CompletionPercent = cp.CompletionPercent
			ov.ModulesCompleted = cp.ModulesCompleted
			ov.TotalModules = cp.TotalModules
		}
		switch ov.Status {
		case StatusCompleted:
			dash.CourseStats.CompletedCourses++
		case StatusInProgress:
			dash.CourseStats.ActiveCourses++
		default:
			dash.CourseStats.NotStartedCourses++
		}
		dash.Courses = append(dash.Courses, ov)
	}
	dash.TotalActiveHours = math.Round(float64(totalMinutes)/60*100) / 100
	return dash, nil
}

// recomputeCourse rebuilds the (user, course) aggregate from the course's
// module ledger entries on the given transaction. It reports whether this
// recomputation completed the course for the first time.
func (svc *Service) recomputeCourse(ctx context.Context, tx core.DBExecutor, userID, courseID string, now time.Time) (CourseProgress, bool, error) {
	mods, err := svc.catSvc.GetModulesForCourse(ctx, courseID)
	if err != nil {
		return CourseProgress{}, false, err
	}
	entries, err := svc.repo.GetModuleProgressForCourse(ctx, userID, courseID, tx)
	if err != nil {
		return CourseProgress{}, false, err
	}
	byModule := make(map[string]ModuleProgress, len(entries))
	for _, mp := range entries {
		byModule[mp.ModuleID] = mp
	}

	var (
		completed        int
		countedCompleted int
		countedTotal     int
		minutes          int
	)
	for _, mod := range mods {
		mp, ok := byModule[mod.ID]
		if ok {
			minutes += mp.TimeSpentMinutes
			if mp.Completed() {
				completed++
			}
		}
		if svc.conf.Progress.CountMandatoryOnly && !mod.IsMandatory {
			continue
		}
		countedTotal++
		if ok && mp.Completed() {
			countedCompleted++
		}
	}

	cp, err := svc.repo.GetCourseProgress(ctx, userID, courseID, tx)
	if err == ErrCourseProgressNotFound {
		cp = CourseProgress{
			ID:        uuid.New().String(),
			UserID:    userID,
			CourseID:  courseID,
			StartedAt: now,
			CreatedAt: now,
		}
	} else if err != nil {
		return CourseProgress{}, false, err
	}

	cp.CompletionPercent = completionPercent(countedCompleted, countedTotal)
	cp.ModulesCompleted = completed
	cp.TotalModules = len(mods)
	cp.TimeSpentMinutes = minutes
	cp.LastActivity = now
	cp.UpdatedAt = now
	if cp.StartedAt.IsZero() {
		cp.StartedAt = now
	}
	justDone := false
	if cp.CompletionPercent >= 100 && cp.CompletedAt.IsZero() {
		cp.CompletedAt = now
		justDone = true
	}
	cp, err = svc.repo.SaveCourseProgress(ctx, cp, tx)
	return cp, justDone, err
}

func (svc *Service) notifyCourseCompleted(ctx context.Context, usr user.User, courseID string) {
	crs, err := svc.catSvc.GetCourse(ctx, courseID)
	if err != nil {
		svc.logger.Error("getting completed course", "course_id", courseID, "error", err)
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("Congratulations! You completed %q", crs.Title),
		TemplateName: "course_completed",
		TemplateData: struct {
			Name        string
			CourseTitle string
		}{usr.Name, crs.Title},
	})
}
