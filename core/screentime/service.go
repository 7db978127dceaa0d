package screentime

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/catalog"
	"github.com/trezcool/hatua/core/progress"
	"github.com/trezcool/hatua/core/user"
)

// ErrInvalidWindow is returned for non-positive analytics windows.
var ErrInvalidWindow = core.NewInvalidArgumentError("window must be a positive number of days")

const dateLayout = "2006-01-02"

// Service produces read-only time reports from the progress ledger; it never
// mutates progress rows.
type Service struct {
	progRepo progress.Repository
	usrSvc   *user.Service
	catSvc   *catalog.Service
}

func NewService(progRepo progress.Repository, usrSvc *user.Service, catSvc *catalog.Service) *Service {
	return &Service{progRepo: progRepo, usrSvc: usrSvc, catSvc: catSvc}
}

// ModuleScreentime reports a user's time on one module against its estimate.
func (svc *Service) ModuleScreentime(ctx context.Context, userID, moduleID string) (ModuleScreentime, error) {
	if _, err := svc.usrSvc.GetByID(ctx, userID); err != nil {
		return ModuleScreentime{}, err
	}
	mod, err := svc.catSvc.GetModule(ctx, moduleID)
	if err != nil {
		return ModuleScreentime{}, err
	}
	minutes := 0
	mp, err := svc.progRepo.GetModuleProgress(ctx, userID, moduleID)
	if err == nil {
		minutes = mp.TimeSpentMinutes
	} else if err != progress.ErrModuleProgressNotFound {
		return ModuleScreentime{}, err
	}
	return ModuleScreentime{
		ModuleID:          mod.ID,
		Title:             mod.Title,
		Minutes:           minutes,
		Formatted:         formatMinutes(minutes),
		EstimatedMinutes:  mod.EstimatedDurationMinutes,
		EfficiencyPercent: efficiency(minutes, mod.EstimatedDurationMinutes),
	}, nil
}

// CourseScreentime reports a user's time on a course with a per-module
// breakdown.
func (svc *Service) CourseScreentime(ctx context.Context, userID, courseID string) (CourseScreentime, error) {
	if _, err := svc.usrSvc.GetByID(ctx, userID); err != nil {
		return CourseScreentime{}, err
	}
	crs, err := svc.catSvc.GetCourse(ctx, courseID)
	if err != nil {
		return CourseScreentime{}, err
	}
	mods, err := svc.catSvc.GetModulesForCourse(ctx, courseID)
	if err != nil {
		return CourseScreentime{}, err
	}
	entries, err := svc.progRepo.GetModuleProgressForCourse(ctx, userID, courseID)
	if err != nil {
		return CourseScreentime{}, err
	}
	byModule := make(map[string]progress.ModuleProgress, len(entries))
	for _, mp := range entries {
		byModule[mp.ModuleID] = mp
	}

	report := CourseScreentime{
		CourseID: crs.ID,
		Title:    crs.Title,
		Modules:  make([]ModuleScreentime, 0, len(mods)),
	}
	for _, mod := range mods {
		minutes := byModule[mod.ID].TimeSpentMinutes
		report.TotalMinutes += minutes
		report.EstimatedMinutes += mod.EstimatedDurationMinutes
		if minutes > 0 {
			report.ModulesWithActivity++
		}
		report.Modules = append(report.Modules, ModuleScreentime{
			ModuleID:          mod.ID,
			Title:             mod.Title,
			Minutes:           minutes,
			Formatted:         formatMinutes(minutes),
			EstimatedMinutes:  mod.EstimatedDurationMinutes,
			EfficiencyPercent: efficiency(minutes, mod.EstimatedDurationMinutes),
		})
	}
	report.Formatted = formatMinutes(report.TotalMinutes)
	report.EfficiencyPercent = efficiency(report.TotalMinutes, report.EstimatedMinutes)
	return report, nil
}

// TotalScreentime sums a user's time across all courses, largest first.
func (svc *Service) TotalScreentime(ctx context.Context, userID string) (TotalScreentime, error) {
	if _, err := svc.usrSvc.GetByID(ctx, userID); err != nil {
		return TotalScreentime{}, err
	}
	rows, err := svc.progRepo.QueryCourseProgress(ctx, progress.CourseProgressFilter{UserID: userID})
	if err != nil {
		return TotalScreentime{}, err
	}
	report := TotalScreentime{Courses: make([]CourseTotal, 0, len(rows))}
	for _, cp := range rows {
		crs, err := svc.catSvc.GetCourse(ctx, cp.CourseID)
		if err != nil {
			return TotalScreentime{}, err
		}
		report.TotalMinutes += cp.TimeSpentMinutes
		report.Courses = append(report.Courses, CourseTotal{
			CourseID:  cp.CourseID,
			Title:     crs.Title,
			Minutes:   cp.TimeSpentMinutes,
			Formatted: formatMinutes(cp.TimeSpentMinutes),
		})
	}
	sort.Slice(report.Courses, func(i, j int) bool {
		if report.Courses[i].Minutes != report.Courses[j].Minutes {
			return report.Courses[i].Minutes > report.Courses[j].Minutes
		}
		return report.Courses[i].CourseID < report.Courses[j].CourseID
	})
	report.Formatted = formatMinutes(report.TotalMinutes)
	report.TotalHours = math.Round(float64(report.TotalMinutes)/60*100) / 100
	return report, nil
}

// Analytics buckets a user's module activity by UTC calendar date over the
// trailing windowDays days. A module's accumulated minutes land in the bucket
// of its last update, so the buckets are stable regardless of the server's
// local timezone.
func (svc *Service) Analytics(ctx context.Context, userID string, windowDays int) (Analytics, error) {
	if windowDays <= 0 {
		return Analytics{}, ErrInvalidWindow
	}
	if _, err := svc.usrSvc.GetByID(ctx, userID); err != nil {
		return Analytics{}, err
	}

	now := time.Now().UTC()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -(windowDays - 1))
	rows, err := svc.progRepo.QueryModuleProgressSince(ctx, userID, since)
	if err != nil {
		return Analytics{}, err
	}

	buckets := make(map[string]int)
	report := Analytics{WindowDays: windowDays}
	for _, mp := range rows {
		date := mp.UpdatedAt.UTC().Format(dateLayout)
		buckets[date] += mp.TimeSpentMinutes
		report.TotalMinutes += mp.TimeSpentMinutes
	}

	dates := make([]string, 0, len(buckets))
	for date := range buckets {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	report.DailyBreakdown = make([]DailyScreentime, 0, len(dates))
	for _, date := range dates {
		report.DailyBreakdown = append(report.DailyBreakdown, DailyScreentime{
			Date:      date,
			Minutes:   buckets[date],
			Formatted: formatMinutes(buckets[date]),
		})
	}
	report.DaysActive = len(buckets)
	report.Formatted = formatMinutes(report.TotalMinutes)
	return report, nil
}
