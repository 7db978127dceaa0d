package leaderboard

import "time"

// Scope selects the candidate set a ranking is computed over.
type Scope string

const (
	ScopeGlobal Scope = "global" // all active trainees
	ScopeCourse Scope = "course" // users with progress on one course
	ScopeTeam   Scope = "team"   // all teams with at least one member
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeGlobal, ScopeCourse, ScopeTeam:
		return true
	}
	return false
}

// Entry is one ranked row. The table holds the last computed ranking per
// scope; Recalculate overwrites a scope's rows wholesale, so reads always see
// the last known good snapshot.
//
// SubjectID is a user ID for global/course scope and a team ID for team scope.
// ScopeID is the course ID for course scope and empty otherwise.
type Entry struct {
	ID               string    `json:"id"`
	Scope            Scope     `json:"scope"`
	ScopeID          string    `json:"scope_id,omitempty"`
	SubjectID        string    `json:"subject_id"`
	SubjectName      string    `json:"subject_name"`
	Points           int       `json:"total_points"`
	ModulesCompleted int       `json:"modules_completed"`
	TimeSpentMinutes int       `json:"time_spent_minutes"`
	QuizCorrect      int       `json:"quiz_correct_answers"`
	QuizTotal        int       `json:"quiz_total_questions"`
	MemberCount      int       `json:"member_count,omitempty"` // team scope only
	Score            float64   `json:"score"`
	Rank             int       `json:"rank"`
	CalculatedAt     time.Time `json:"calculated_at"` // UTC
}
