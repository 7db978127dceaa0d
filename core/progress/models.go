package progress

import (
	"time"

	"github.com/trezcool/hatua/core/catalog"
)

// Status of a user's progress through a module or course.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// DeriveStatus is the single canonical mapping from progress fields to a
// Status. Completion requires both the percentage and the completion
// timestamp so the two can never disagree.
func DeriveStatus(completionPercent int, startedAt, completedAt time.Time) Status {
	switch {
	case completionPercent >= 100 && !completedAt.IsZero():
		return StatusCompleted
	case !startedAt.IsZero():
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

// ModuleProgress is a user's ledger entry for a single module.
// Unique per (UserID, ModuleID); created lazily on first activity.
// Lock state is never stored here: it is always computed by the Sequencer.
type ModuleProgress struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	ModuleID          string    `json:"module_id"`
	CourseID          string    `json:"course_id"`
	CompletionPercent int       `json:"completion_percentage"`
	TimeSpentMinutes  int       `json:"time_spent_minutes"`
	StartedAt         time.Time `json:"started_at"`   // UTC; zero when not started
	CompletedAt       time.Time `json:"completed_at"` // UTC; set exactly once
	CreatedAt         time.Time `json:"created_at"`   // UTC
	UpdatedAt         time.Time `json:"updated_at"`   // UTC; last activity marker
}

func (mp ModuleProgress) Status() Status {
	return DeriveStatus(mp.CompletionPercent, mp.StartedAt, mp.CompletedAt)
}

func (mp ModuleProgress) Completed() bool { return mp.Status() == StatusCompleted }

// CourseProgress is the per-(user, course) aggregate. It is recomputed from
// the course's ModuleProgress rows after every module write; quiz stats and
// points are accumulated by RecordQuizResult.
type CourseProgress struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	CourseID          string    `json:"course_id"`
	CompletionPercent int       `json:"completion_percentage"`
	ModulesCompleted  int       `json:"modules_completed"`
	TotalModules      int       `json:"total_modules"`
	TimeSpentMinutes  int       `json:"time_spent_minutes"`
	PointsEarned      int       `json:"total_points_earned"`
	QuizCorrect       int       `json:"quiz_correct_answers"`
	QuizTotal         int       `json:"quiz_total_questions"`
	StartedAt         time.Time `json:"started_at"`    // UTC
	CompletedAt       time.Time `json:"completed_at"`  // UTC; set exactly once
	LastActivity      time.Time `json:"last_activity"` // UTC
	CreatedAt         time.Time `json:"created_at"`    // UTC
	UpdatedAt         time.Time `json:"updated_at"`    // UTC
}

func (cp CourseProgress) Status() Status {
	return DeriveStatus(cp.CompletionPercent, cp.StartedAt, cp.CompletedAt)
}

// ModuleAccess pairs a module with a user's progress and its computed lock state.
type ModuleAccess struct {
	Module   catalog.Module `json:"module"`
	Progress ModuleProgress `json:"progress"`
	Status   Status         `json:"status"`
	Locked   bool           `json:"locked"`
}

// CourseProgressFilter narrows QueryCourseProgress; zero fields match all.
type CourseProgressFilter struct {
	UserID   string
	CourseID string
}

// CourseStats summarizes a user's courses by derived status.
type CourseStats struct {
	TotalCourses      int `json:"total_courses"`
	ActiveCourses     int `json:"active_courses"`
	NotStartedCourses int `json:"not_started_courses"`
	CompletedCourses  int `json:"completed_courses"`
}

// Dashboard aggregates a user's learning metrics for the dashboard view.
type Dashboard struct {
	TotalActiveHours float64          `json:"total_active_hours"`
	TotalPoints      int              `json:"total_points"`
	CourseStats      CourseStats      `json:"course_stats"`
	Courses          []CourseOverview `json:"courses"`
}

// CourseOverview is a course with the user's progress folded in.
type CourseOverview struct {
	Course            catalog.Course `json:"course"`
	Status            Status         `json:"status"`
	CompletionPercent int            `json:"completion_percentage"`
	ModulesCompleted  int            `json:"modules_completed"`
	TotalModules      int            `json:"total_modules"`
}

// completionPercent computes the course completion percentage for the given
// counts; 0 when the denominator is 0.
func completionPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return 100 * completed / total
}
