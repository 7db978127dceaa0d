package catalog

import (
	"time"

	"github.com/trezcool/hatua/core"
)

// Course statuses
const (
	CourseStatusDraft     = "draft"
	CourseStatusPublished = "published"
	CourseStatusArchived  = "archived"
)

type Course struct {
	ID                     string    `json:"id"`
	Title                  string    `json:"title"`
	Description            string    `json:"description,omitempty"`
	Status                 string    `json:"status"`
	IsMandatory            bool      `json:"is_mandatory"`
	EstimatedDurationHours int       `json:"estimated_duration_hours"`
	PassingCriteria        int       `json:"passing_criteria"`
	CreatedAt              time.Time `json:"created_at"` // UTC
	UpdatedAt              time.Time `json:"updated_at"` // UTC
}

func (c Course) IsPublished() bool { return c.Status == CourseStatusPublished }

// Module is a course's content unit (video/quiz/PDF/etc.), ordered by
// SequenceOrder; SequenceOrder is unique within a course.
type Module struct {
	ID                       string    `json:"id"`
	CourseID                 string    `json:"course_id"`
	Title                    string    `json:"title"`
	Description              string    `json:"description,omitempty"`
	SequenceOrder            int       `json:"sequence_order"`
	IsMandatory              bool      `json:"is_mandatory"`
	EstimatedDurationMinutes int       `json:"estimated_duration_minutes"`
	CreatedAt                time.Time `json:"created_at"` // UTC
	UpdatedAt                time.Time `json:"updated_at"` // UTC
}

type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MemberIDs []string  `json:"member_ids"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title                  string `json:"title" validate:"required"`
	Description            string `json:"description"`
	Status                 string `json:"status" validate:"omitempty,oneof=draft published archived"`
	IsMandatory            bool   `json:"is_mandatory"`
	EstimatedDurationHours int    `json:"estimated_duration_hours" validate:"min=0"`
	PassingCriteria        int    `json:"passing_criteria" validate:"min=0,max=100"`
}

func (nc *NewCourse) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	if nc.Status == "" {
		nc.Status = CourseStatusDraft
	}
	return core.Validate.Struct(nc)
}

// NewModule contains information needed to create a new Module.
type NewModule struct {
	CourseID                 string `json:"course_id" validate:"required"`
	Title                    string `json:"title" validate:"required"`
	Description              string `json:"description"`
	SequenceOrder            int    `json:"sequence_order" validate:"min=1"`
	IsMandatory              *bool  `json:"is_mandatory"`
	EstimatedDurationMinutes int    `json:"estimated_duration_minutes" validate:"min=0"`
}

func (nm *NewModule) Validate() error {
	nm.Title = core.CleanString(nm.Title)
	return core.Validate.Struct(nm)
}

// NewTeam contains information needed to create a new Team.
type NewTeam struct {
	Name      string   `json:"name" validate:"required"`
	MemberIDs []string `json:"member_ids"`
}

func (nt *NewTeam) Validate() error {
	nt.Name = core.CleanString(nt.Name)
	return core.Validate.Struct(nt)
}
