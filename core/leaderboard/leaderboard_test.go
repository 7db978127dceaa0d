package leaderboard_test

import (
	"context"
	"io/ioutil"
	"log"
	"testing"
	"time"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/catalog"
	"github.com/trezcool/hatua/core/leaderboard"
	"github.com/trezcool/hatua/core/progress"
	"github.com/trezcool/hatua/core/user"
	"github.com/trezcool/hatua/services/logger"
	"github.com/trezcool/hatua/storage/database/inmem"
)

func setup(t *testing.T) (*leaderboard.Service, *inmemdb.DB, *core.Config) {
	t.Helper()
	conf := core.LoadConfig()
	db := inmemdb.NewDB()
	svc := leaderboard.NewService(
		db,
		db,
		user.NewService(nil, db),
		catalog.NewService(nil, db),
		logsvc.NewStdLogger(log.New(ioutil.Discard, "", 0)),
		conf,
	)
	return svc, db, conf
}

func createTrainee(t *testing.T, repo user.Repository, name, uname string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     uname + "@test.cd",
		Roles:     []string{user.RoleTrainee},
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createTrainee() failed: %v", err)
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

func saveProgress(t *testing.T, repo progress.Repository, userID, courseID string, points, modules, percent, quizC, quizT int) {
	t.Helper()
	now := time.Now().UTC()
	_, err := repo.SaveCourseProgress(context.Background(), progress.CourseProgress{
		UserID:            userID,
		CourseID:          courseID,
		CompletionPercent: percent,
		ModulesCompleted:  modules,
		PointsEarned:      points,
		QuizCorrect:       quizC,
		QuizTotal:         quizT,
		StartedAt:         now,
		LastActivity:      now,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		t.Fatalf("saveProgress() failed: %v", err)
	}
}

func TestService_Recalculate_global(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()

	alice := createTrainee(t, db, "Alice", "alice")
	bob := createTrainee(t, db, "Bob", "bob")
	carol := createTrainee(t, db, "Carol", "carol") // no activity at all
	crs := createCourse(t, db, "Go Basics")

	saveProgress(t, db, alice.ID, crs.ID, 100, 2, 100, 8, 10)
	saveProgress(t, db, bob.ID, crs.ID, 50, 1, 50, 5, 10)

	entries, err := svc.Recalculate(ctx, leaderboard.ScopeGlobal, "")
	if err != nil {
		t.Fatalf("Recalculate() failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %v, want 3", len(entries))
	}

	// weights: points*1 + modules*40 + accuracy*30
	wants := []struct {
		subjectID string
		rank      int
		score     float64
	}{
		{subjectID: alice.ID, rank: 1, score: 100 + 2*40 + 0.8*30},
		{subjectID: bob.ID, rank: 2, score: 50 + 1*40 + 0.5*30},
		{subjectID: carol.ID, rank: 3, score: 0},
	}
	for i, want := range wants {
		got := entries[i]
		if got.SubjectID != want.subjectID {
			t.Errorf("entries[%d].SubjectID = %v, want %v", i, got.SubjectID, want.subjectID)
		}
		if got.Rank != want.rank {
			t.Errorf("entries[%d].Rank = %v, want %v", i, got.Rank, want.rank)
		}
		if got.Score != want.score {
			t.Errorf("entries[%d].Score = %v, want %v", i, got.Score, want.score)
		}
	}

	// recalculating without new activity yields the same ranking
	again, err := svc.Recalculate(ctx, leaderboard.ScopeGlobal, "")
	if err != nil {
		t.Fatalf("Recalculate() failed: %v", err)
	}
	if len(again) != len(entries) {
		t.Fatalf("len(again) = %v, want %v", len(again), len(entries))
	}
	for i := range again {
		if again[i].SubjectID != entries[i].SubjectID || again[i].Rank != entries[i].Rank || again[i].Score != entries[i].Score {
			t.Errorf("again[%d] = %+v, want %+v", i, again[i], entries[i])
		}
	}
}

func TestService_Recalculate_denseRanks(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()

	alice := createTrainee(t, db, "Alice", "alice")
	bob := createTrainee(t, db, "Bob", "bob")
	carol := createTrainee(t, db, "Carol", "carol")
	crs := createCourse(t, db, "Go Basics")

	// alice and bob tie, carol trails
	saveProgress(t, db, alice.ID, crs.ID, 100, 1, 100, 0, 0)
	saveProgress(t, db, bob.ID, crs.ID, 100, 1, 100, 0, 0)
	saveProgress(t, db, carol.ID, crs.ID, 10, 0, 10, 0, 0)

	entries, err := svc.Recalculate(ctx, leaderboard.ScopeGlobal, "")
	if err != nil {
		t.Fatalf("Recalculate() failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %v, want 3", len(entries))
	}
	if entries[0].Rank != 1 || entries[1].Rank != 1 {
		t.Errorf("tied ranks = %v, %v; want 1, 1", entries[0].Rank, entries[1].Rank)
	}
	if entries[2].Rank != 2 {
		t.Errorf("next rank = %v, want 2", entries[2].Rank)
	}
	if entries[2].SubjectID != carol.ID {
		t.Errorf("entries[2].SubjectID = %v, want %v", entries[2].SubjectID, carol.ID)
	}
}

func TestService_Recalculate_course(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()

	alice := createTrainee(t, db, "Alice", "alice")
	bob := createTrainee(t, db, "Bob", "bob")
	crs := createCourse(t, db, "Go Basics")
	other := createCourse(t, db, "Advanced Go")

	saveProgress(t, db, alice.ID, crs.ID, 80, 2, 100, 0, 0)
	saveProgress(t, db, bob.ID, other.ID, 500, 5, 100, 0, 0) // other course only

	t.Run("unknown scope", func(t *testing.T) {
		if _, err := svc.Recalculate(ctx, leaderboard.Scope("lol"), ""); err != leaderboard.ErrUnknownScope {
			t.Errorf("Recalculate() error = %v, want %v", err, leaderboard.ErrUnknownScope)
		}
	})

	t.Run("missing course id", func(t *testing.T) {
		if _, err := svc.Recalculate(ctx, leaderboard.ScopeCourse, ""); err != leaderboard.ErrScopeIDMissing {
			t.Errorf("Recalculate() error = %v, want %v", err, leaderboard.ErrScopeIDMissing)
		}
	})

	t.Run("unknown course", func(t *testing.T) {
		if _, err := svc.Recalculate(ctx, leaderboard.ScopeCourse, "nope"); err != catalog.ErrCourseNotFound {
			t.Errorf("Recalculate() error = %v, want %v", err, catalog.ErrCourseNotFound)
		}
	})

	t.Run("only participants are ranked", func(t *testing.T) {
		entries, err := svc.Recalculate(ctx, leaderboard.ScopeCourse, crs.ID)
		if err != nil {
			t.Fatalf("Recalculate() failed: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("len(entries) = %v, want 1", len(entries))
		}
		if entries[0].SubjectID != alice.ID {
			t.Errorf("SubjectID = %v, want %v", entries[0].SubjectID, alice.ID)
		}
		if entries[0].Rank != 1 {
			t.Errorf("Rank = %v, want 1", entries[0].Rank)
		}
	})
}

func TestService_Recalculate_team(t *testing.T) {
	svc, db, conf := setup(t)
	ctx := context.Background()

	alice := createTrainee(t, db, "Alice", "alice")
	bob := createTrainee(t, db, "Bob", "bob")
	carol := createTrainee(t, db, "Carol", "carol")
	crs := createCourse(t, db, "Go Basics")

	now := time.Now().UTC()
	sharks, err := db.CreateTeam(ctx, catalog.Team{Name: "Sharks", MemberIDs: []string{alice.ID, bob.ID}, CreatedAt: now})
	if err != nil {
		t.Fatalf("CreateTeam() failed: %v", err)
	}
	minnows, err := db.CreateTeam(ctx, catalog.Team{Name: "Minnows", MemberIDs: []string{carol.ID}, CreatedAt: now})
	if err != nil {
		t.Fatalf("CreateTeam() failed: %v", err)
	}
	if _, err = db.CreateTeam(ctx, catalog.Team{Name: "Ghosts", CreatedAt: now}); err != nil { // no members
		t.Fatalf("CreateTeam() failed: %v", err)
	}

	saveProgress(t, db, alice.ID, crs.ID, 100, 2, 100, 0, 0)
	saveProgress(t, db, bob.ID, crs.ID, 50, 1, 50, 0, 0)
	// carol has no activity

	entries, err := svc.Recalculate(ctx, leaderboard.ScopeTeam, "")
	if err != nil {
		t.Fatalf("Recalculate() failed: %v", err)
	}
	if len(entries) != 2 { // memberless teams are skipped
		t.Fatalf("len(entries) = %v, want 2", len(entries))
	}

	// avg member completion weighted against per-member points
	w := conf.Leaderboard
	wantScore := ((100.0+50.0)/2)*w.TeamCompletionWeight + ((100.0+50.0)/2)*w.TeamPointsWeight

	if entries[0].SubjectID != sharks.ID {
		t.Errorf("entries[0].SubjectID = %v, want %v", entries[0].SubjectID, sharks.ID)
	}
	if entries[0].Score != wantScore {
		t.Errorf("entries[0].Score = %v, want %v", entries[0].Score, wantScore)
	}
	if entries[0].MemberCount != 2 {
		t.Errorf("entries[0].MemberCount = %v, want 2", entries[0].MemberCount)
	}
	if entries[0].Points != 150 {
		t.Errorf("entries[0].Points = %v, want 150", entries[0].Points)
	}
	if entries[1].SubjectID != minnows.ID {
		t.Errorf("entries[1].SubjectID = %v, want %v", entries[1].SubjectID, minnows.ID)
	}
	if entries[1].Score != 0 {
		t.Errorf("entries[1].Score = %v, want 0", entries[1].Score)
	}
	if entries[0].Rank != 1 || entries[1].Rank != 2 {
		t.Errorf("ranks = %v, %v; want 1, 2", entries[0].Rank, entries[1].Rank)
	}
}

func TestService_Top_and_SubjectRank(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()

	alice := createTrainee(t, db, "Alice", "alice")
	bob := createTrainee(t, db, "Bob", "bob")
	carol := createTrainee(t, db, "Carol", "carol")
	crs := createCourse(t, db, "Go Basics")

	saveProgress(t, db, alice.ID, crs.ID, 100, 2, 100, 0, 0)
	saveProgress(t, db, bob.ID, crs.ID, 50, 1, 50, 0, 0)

	if _, err := svc.Top(ctx, leaderboard.Scope("lol"), "", 0); err != leaderboard.ErrUnknownScope {
		t.Errorf("Top() error = %v, want %v", err, leaderboard.ErrUnknownScope)
	}

	// reads before any calculation see an empty board
	entries, err := svc.Top(ctx, leaderboard.ScopeGlobal, "", 0)
	if err != nil {
		t.Fatalf("Top() failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %v, want 0", len(entries))
	}

	if _, err = svc.Recalculate(ctx, leaderboard.ScopeGlobal, ""); err != nil {
		t.Fatalf("Recalculate() failed: %v", err)
	}

	entries, err = svc.Top(ctx, leaderboard.ScopeGlobal, "", 2)
	if err != nil {
		t.Fatalf("Top() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %v, want 2", len(entries))
	}
	if entries[0].SubjectID != alice.ID || entries[1].SubjectID != bob.ID {
		t.Errorf("top = %v, %v; want %v, %v", entries[0].SubjectID, entries[1].SubjectID, alice.ID, bob.ID)
	}

	entry, err := svc.SubjectRank(ctx, leaderboard.ScopeGlobal, "", carol.ID)
	if err != nil {
		t.Fatalf("SubjectRank() failed: %v", err)
	}
	if entry.Rank != 3 {
		t.Errorf("carol's rank = %v, want 3", entry.Rank)
	}

	if _, err = svc.SubjectRank(ctx, leaderboard.ScopeGlobal, "", "nope"); err != leaderboard.ErrEntryNotFound {
		t.Errorf("SubjectRank() error = %v, want %v", err, leaderboard.ErrEntryNotFound)
	}
}
