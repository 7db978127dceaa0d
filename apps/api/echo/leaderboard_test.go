package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/hatua/core/leaderboard"
	"github.com/trezcool/hatua/core/progress"
	"github.com/trezcool/hatua/core/user"
)

func Test_leaderboardApi(t *testing.T) {
	ctx := context.Background()

	alice := createUser(t, "Alice", "alicelb", "alicelb@test.cd", "", []string{user.RoleTrainee}, true)
	bob := createUser(t, "Bob", "boblb", "boblb@test.cd", "", []string{user.RoleTrainee}, true)
	trainer := createUser(t, "Coach", "coachlb", "coachlb@test.cd", "", []string{user.RoleTrainer}, true)
	crs := createCourse(t, "Leaderboard Course")

	now := time.Now().UTC()
	for _, seed := range []struct {
		userID string
		points int
	}{
		{userID: alice.ID, points: 100},
		{userID: bob.ID, points: 50},
	} {
		_, err := db.SaveCourseProgress(ctx, progress.CourseProgress{
			UserID:       seed.userID,
			CourseID:     crs.ID,
			PointsEarned: seed.points,
			StartedAt:    now,
			LastActivity: now,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			t.Fatalf("SaveCourseProgress() failed: %v", err)
		}
	}

	t.Run("recalculate needs staff", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/leaderboard/recalculate", getToken(t, alice))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unknown scope", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/leaderboard?scope=lol", getToken(t, alice))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "unknown leaderboard scope"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("trainer recalculates the course board", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/leaderboard/recalculate?scope=course&course_id="+crs.ID, getToken(t, trainer))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var entries []leaderboard.Entry
		if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
			t.Fatalf("unmarshalling entries: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("len(entries) = %v, want 2", len(entries))
		}
		if entries[0].SubjectID != alice.ID || entries[0].Rank != 1 {
			t.Errorf("entries[0] = %v (rank %v), want %v (rank 1)", entries[0].SubjectID, entries[0].Rank, alice.ID)
		}
		if entries[1].SubjectID != bob.ID || entries[1].Rank != 2 {
			t.Errorf("entries[1] = %v (rank %v), want %v (rank 2)", entries[1].SubjectID, entries[1].Rank, bob.ID)
		}
	})

	t.Run("top serves the stored board", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/leaderboard?scope=course&course_id="+crs.ID+"&limit=1", getToken(t, bob))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var entries []leaderboard.Entry
		if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
			t.Fatalf("unmarshalling entries: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("len(entries) = %v, want 1", len(entries))
		}
		if entries[0].SubjectID != alice.ID {
			t.Errorf("entries[0].SubjectID = %v, want %v", entries[0].SubjectID, alice.ID)
		}
	})

	t.Run("own rank", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/leaderboard/me?scope=course&course_id="+crs.ID, getToken(t, bob))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var entry leaderboard.Entry
		if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
			t.Fatalf("unmarshalling entry: %v", err)
		}
		if entry.Rank != 2 {
			t.Errorf("Rank = %v, want 2", entry.Rank)
		}
	})

	t.Run("no rank on an uncalculated board", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/leaderboard/me?scope=team", getToken(t, bob))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "leaderboard entry not found"})}
		checkCodeAndData(t, tt, rec)
	})
}
