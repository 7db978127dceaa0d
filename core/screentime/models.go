package screentime

import "fmt"

// ModuleScreentime is a user's time report for one module.
type ModuleScreentime struct {
	ModuleID          string `json:"module_id"`
	Title             string `json:"title"`
	Minutes           int    `json:"minutes"`
	Formatted         string `json:"formatted"`
	EstimatedMinutes  int    `json:"estimated_minutes"`
	EfficiencyPercent int    `json:"efficiency_percent"`
}

// CourseScreentime is a user's time report for one course with a per-module
// breakdown.
type CourseScreentime struct {
	CourseID            string             `json:"course_id"`
	Title               string             `json:"title"`
	TotalMinutes        int                `json:"total_minutes"`
	Formatted           string             `json:"formatted"`
	EstimatedMinutes    int                `json:"estimated_minutes"`
	EfficiencyPercent   int                `json:"efficiency_percent"`
	ModulesWithActivity int                `json:"modules_with_activity"`
	Modules             []ModuleScreentime `json:"modules"`
}

// CourseTotal is one course's share of a user's total screen time.
type CourseTotal struct {
	CourseID  string `json:"course_id"`
	Title     string `json:"title"`
	Minutes   int    `json:"minutes"`
	Formatted string `json:"formatted"`
}

// TotalScreentime sums a user's time across all courses, largest first.
type TotalScreentime struct {
	TotalMinutes int           `json:"total_minutes"`
	Formatted    string        `json:"formatted"`
	TotalHours   float64       `json:"total_hours"`
	Courses      []CourseTotal `json:"courses"`
}

// DailyScreentime is one calendar day's activity within an analytics window.
type DailyScreentime struct {
	Date      string `json:"date"` // UTC, YYYY-MM-DD
	Minutes   int    `json:"minutes"`
	Formatted string `json:"formatted"`
}

// Analytics is a user's activity report over a trailing window of days.
type Analytics struct {
	WindowDays     int               `json:"window_days"`
	TotalMinutes   int               `json:"total_minutes"`
	Formatted      string            `json:"formatted"`
	DaysActive     int               `json:"days_active"`
	DailyBreakdown []DailyScreentime `json:"daily_breakdown"`
}

// formatMinutes renders minutes as "1h 30m".
func formatMinutes(minutes int) string {
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// efficiency reports how actual time compares to the estimate as a
// percentage, capped at 100; 0 when there is no estimate.
func efficiency(actualMinutes, estimatedMinutes int) int {
	if estimatedMinutes <= 0 {
		return 0
	}
	pct := (100*actualMinutes + estimatedMinutes/2) / estimatedMinutes // round half up
	if pct > 100 {
		return 100
	}
	return pct
}
