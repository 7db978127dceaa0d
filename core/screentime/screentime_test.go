package screentime_test

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/hatua/core/catalog"
	"github.com/trezcool/hatua/core/progress"
	"github.com/trezcool/hatua/core/screentime"
	"github.com/trezcool/hatua/core/user"
	"github.com/trezcool/hatua/storage/database/inmem"
)

func setup(t *testing.T) (*screentime.Service, *inmemdb.DB) {
	t.Helper()
	db := inmemdb.NewDB()
	svc := screentime.NewService(db, user.NewService(nil, db), catalog.NewService(nil, db))
	return svc, db
}

func createUser(t *testing.T, repo user.Repository, uname string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      uname,
		Username:  uname,
		Email:     uname + "@test.cd",
		Roles:     []string{user.RoleTrainee},
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func createCourse(t *testing.T, repo catalog.Repository, title string) catalog.Course {
	t.Helper()
	now := time.Now().UTC()
	crs, err := repo.CreateCourse(context.Background(), catalog.Course{
		Title:     title,
		Status:    catalog.CourseStatusPublished,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return crs
}

func createModule(t *testing.T, repo catalog.Repository, courseID, title string, seq, estMinutes int) catalog.Module {
	t.Helper()
	now := time.Now().UTC()
	mod, err := repo.CreateModule(context.Background(), catalog.Module{
		CourseID:                 courseID,
		Title:                    title,
		SequenceOrder:            seq,
		IsMandatory:              true,
		EstimatedDurationMinutes: estMinutes,
		CreatedAt:                now,
		UpdatedAt:                now,
	})
	if err != nil {
		t.Fatalf("createModule() failed: %v", err)
	}
	return mod
}

func spendTime(t *testing.T, repo progress.Repository, userID string, mod catalog.Module, minutes int, updatedAt time.Time) {
	t.Helper()
	_, err := repo.SaveModuleProgress(context.Background(), progress.ModuleProgress{
		UserID:           userID,
		ModuleID:         mod.ID,
		CourseID:         mod.CourseID,
		TimeSpentMinutes: minutes,
		StartedAt:        updatedAt,
		CreatedAt:        updatedAt,
		UpdatedAt:        updatedAt,
	})
	if err != nil {
		t.Fatalf("spendTime() failed: %v", err)
	}
}

func TestService_ModuleScreentime(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	usr := createUser(t, db, "jane")
	crs := createCourse(t, db, "Go Basics")

	tests := []struct {
		name           string
		estMinutes     int
		minutes        int
		wantEfficiency int
		wantFormatted  string
	}{
		{name: "under estimate", estMinutes: 60, minutes: 30, wantEfficiency: 50, wantFormatted: "0h 30m"},
		{name: "on estimate", estMinutes: 60, minutes: 60, wantEfficiency: 100, wantFormatted: "1h 0m"},
		{name: "over estimate is capped", estMinutes: 60, minutes: 90, wantEfficiency: 100, wantFormatted: "1h 30m"},
		{name: "rounded", estMinutes: 60, minutes: 50, wantEfficiency: 83, wantFormatted: "0h 50m"},
		{name: "no estimate", estMinutes: 0, minutes: 45, wantEfficiency: 0, wantFormatted: "0h 45m"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := createModule(t, db, crs.ID, tt.name, i+1, tt.estMinutes)
			spendTime(t, db, usr.ID, mod, tt.minutes, now)

			report, err := svc.ModuleScreentime(ctx, usr.ID, mod.ID)
			if err != nil {
				t.Fatalf("ModuleScreentime() failed: %v", err)
			}
			if report.Minutes != tt.minutes {
				t.Errorf("Minutes = %v, want %v", report.Minutes, tt.minutes)
			}
			if report.EfficiencyPercent != tt.wantEfficiency {
				t.Errorf("EfficiencyPercent = %v, want %v", report.EfficiencyPercent, tt.wantEfficiency)
			}
			if report.Formatted != tt.wantFormatted {
				t.Errorf("Formatted = %v, want %v", report.Formatted, tt.wantFormatted)
			}
		})
	}

	t.Run("no activity yet", func(t *testing.T) {
		mod := createModule(t, db, crs.ID, "Untouched", 99, 60)
		report, err := svc.ModuleScreentime(ctx, usr.ID, mod.ID)
		if err != nil {
			t.Fatalf("ModuleScreentime() failed: %v", err)
		}
		if report.Minutes != 0 {
			t.Errorf("Minutes = %v, want 0", report.Minutes)
		}
		if report.Formatted != "0h 0m" {
			t.Errorf("Formatted = %v, want 0h 0m", report.Formatted)
		}
	})

	t.Run("unknown module", func(t *testing.T) {
		if _, err := svc.ModuleScreentime(ctx, usr.ID, "nope"); err != catalog.ErrModuleNotFound {
			t.Errorf("ModuleScreentime() error = %v, want %v", err, catalog.ErrModuleNotFound)
		}
	})
}

func TestService_CourseScreentime(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	usr := createUser(t, db, "jane")
	crs := createCourse(t, db, "Go Basics")
	mod1 := createModule(t, db, crs.ID, "Syntax", 1, 60)
	mod2 := createModule(t, db, crs.ID, "Types", 2, 30)
	createModule(t, db, crs.ID, "Interfaces", 3, 30) // untouched

	spendTime(t, db, usr.ID, mod1, 60, now)
	spendTime(t, db, usr.ID, mod2, 30, now)

	report, err := svc.CourseScreentime(ctx, usr.ID, crs.ID)
	if err != nil {
		t.Fatalf("CourseScreentime() failed: %v", err)
	}
	if report.TotalMinutes != 90 {
		t.Errorf("TotalMinutes = %v, want 90", report.TotalMinutes)
	}
	if report.Formatted != "1h 30m" {
		t.Errorf("Formatted = %v, want 1h 30m", report.Formatted)
	}
	if report.EstimatedMinutes != 120 {
		t.Errorf("EstimatedMinutes = %v, want 120", report.EstimatedMinutes)
	}
	if report.EfficiencyPercent != 75 {
		t.Errorf("EfficiencyPercent = %v, want 75", report.EfficiencyPercent)
	}
	if report.ModulesWithActivity != 2 {
		t.Errorf("ModulesWithActivity = %v, want 2", report.ModulesWithActivity)
	}
	if len(report.Modules) != 3 {
		t.Errorf("len(Modules) = %v, want 3", len(report.Modules))
	}
}

func TestService_TotalScreentime(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	usr := createUser(t, db, "jane")
	crs1 := createCourse(t, db, "Go Basics")
	crs2 := createCourse(t, db, "Advanced Go")

	_, err := db.SaveCourseProgress(ctx, progress.CourseProgress{
		UserID: usr.ID, CourseID: crs1.ID, TimeSpentMinutes: 30,
		StartedAt: now, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("SaveCourseProgress() failed: %v", err)
	}
	_, err = db.SaveCourseProgress(ctx, progress.CourseProgress{
		UserID: usr.ID, CourseID: crs2.ID, TimeSpentMinutes: 120,
		StartedAt: now, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("SaveCourseProgress() failed: %v", err)
	}

	report, err := svc.TotalScreentime(ctx, usr.ID)
	if err != nil {
		t.Fatalf("TotalScreentime() failed: %v", err)
	}
	if report.TotalMinutes != 150 {
		t.Errorf("TotalMinutes = %v, want 150", report.TotalMinutes)
	}
	if report.TotalHours != 2.5 {
		t.Errorf("TotalHours = %v, want 2.5", report.TotalHours)
	}
	if len(report.Courses) != 2 {
		t.Fatalf("len(Courses) = %v, want 2", len(report.Courses))
	}
	// largest first
	if report.Courses[0].CourseID != crs2.ID {
		t.Errorf("Courses[0].CourseID = %v, want %v", report.Courses[0].CourseID, crs2.ID)
	}
	if report.Courses[0].Formatted != "2h 0m" {
		t.Errorf("Courses[0].Formatted = %v, want 2h 0m", report.Courses[0].Formatted)
	}
}

func TestService_Analytics(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	usr := createUser(t, db, "jane")
	crs := createCourse(t, db, "Go Basics")
	mod1 := createModule(t, db, crs.ID, "Syntax", 1, 60)
	mod2 := createModule(t, db, crs.ID, "Types", 2, 60)
	mod3 := createModule(t, db, crs.ID, "Interfaces", 3, 60)

	spendTime(t, db, usr.ID, mod1, 45, now)
	spendTime(t, db, usr.ID, mod2, 30, now.AddDate(0, 0, -2))
	spendTime(t, db, usr.ID, mod3, 60, now.AddDate(0, 0, -10)) // outside the window

	if _, err := svc.Analytics(ctx, usr.ID, 0); err != screentime.ErrInvalidWindow {
		t.Errorf("Analytics() error = %v, want %v", err, screentime.ErrInvalidWindow)
	}

	report, err := svc.Analytics(ctx, usr.ID, 7)
	if err != nil {
		t.Fatalf("Analytics() failed: %v", err)
	}
	if report.WindowDays != 7 {
		t.Errorf("WindowDays = %v, want 7", report.WindowDays)
	}
	if report.TotalMinutes != 75 {
		t.Errorf("TotalMinutes = %v, want 75", report.TotalMinutes)
	}
	if report.DaysActive != 2 {
		t.Errorf("DaysActive = %v, want 2", report.DaysActive)
	}
	if len(report.DailyBreakdown) != 2 {
		t.Fatalf("len(DailyBreakdown) = %v, want 2", len(report.DailyBreakdown))
	}
	// oldest first
	wantFirst := now.AddDate(0, 0, -2).Format("2006-01-02")
	if report.DailyBreakdown[0].Date != wantFirst {
		t.Errorf("DailyBreakdown[0].Date = %v, want %v", report.DailyBreakdown[0].Date, wantFirst)
	}
	if report.DailyBreakdown[0].Minutes != 30 {
		t.Errorf("DailyBreakdown[0].Minutes = %v, want 30", report.DailyBreakdown[0].Minutes)
	}
	if report.DailyBreakdown[1].Minutes != 45 {
		t.Errorf("DailyBreakdown[1].Minutes = %v, want 45", report.DailyBreakdown[1].Minutes)
	}

	// widening the window picks the older activity up
	report, err = svc.Analytics(ctx, usr.ID, 30)
	if err != nil {
		t.Fatalf("Analytics() failed: %v", err)
	}
	if report.TotalMinutes != 135 {
		t.Errorf("TotalMinutes = %v, want 135", report.TotalMinutes)
	}
	if report.DaysActive != 3 {
		t.Errorf("DaysActive = %v, want 3", report.DaysActive)
	}
}
