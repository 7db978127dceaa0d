package catalog

import (
	"context"
	"time"

	"github.com/trezcool/hatua/core"
)

var (
	// errors
	ErrCourseNotFound = core.NewNotFoundError("course not found")
	ErrModuleNotFound = core.NewNotFoundError("module not found")
	ErrTeamNotFound   = core.NewNotFoundError("team not found")
	ErrSequenceTaken  = core.NewConflictError("a module with this sequence order already exists in this course")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		QueryCourses(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Course, error)

		CreateModule(ctx context.Context, mod Module, exec ...core.DBExecutor) (Module, error)
		GetModule(ctx context.Context, id string, exec ...core.DBExecutor) (Module, error)
		// GetModulesForCourse returns the course's modules ordered by SequenceOrder ascending.
		GetModulesForCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Module, error)

		CreateTeam(ctx context.Context, team Team, exec ...core.DBExecutor) (Team, error)
		GetTeam(ctx context.Context, id string, exec ...core.DBExecutor) (Team, error)
		// QueryTeams returns all teams with their member IDs populated.
		QueryTeams(ctx context.Context, exec ...core.DBExecutor) ([]Team, error)
	}

	Service struct {
		db   core.DB
		repo Repository
	}
)

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

func (svc *Service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Title:                  nc.Title,
		Description:            nc.Description,
		Status:                 nc.Status,
		IsMandatory:            nc.IsMandatory,
		EstimatedDurationHours: nc.EstimatedDurationHours,
		PassingCriteria:        nc.PassingCriteria,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) QueryCourses(ctx context.Context, ordering ...core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, ordering)
}

func (svc *Service) CreateModule(ctx context.Context, nm NewModule) (Module, error) {
	if _, err := svc.repo.GetCourse(ctx, nm.CourseID); err != nil {
		return Module{}, err
	}

	// SequenceOrder is a total order per course
	mods, err := svc.repo.GetModulesForCourse(ctx, nm.CourseID)
	if err != nil {
		return Module{}, err
	}
	for _, mod := range mods {
		if mod.SequenceOrder == nm.SequenceOrder {
			return Module{}, ErrSequenceTaken
		}
	}

	mandatory := true
	if nm.IsMandatory != nil {
		mandatory = *nm.IsMandatory
	}
	now := time.Now().UTC()
	mod := Module{
		CourseID:                 nm.CourseID,
		Title:                    nm.Title,
		Description:              nm.Description,
		SequenceOrder:            nm.SequenceOrder,
		IsMandatory:              mandatory,
		EstimatedDurationMinutes: nm.EstimatedDurationMinutes,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	return svc.repo.CreateModule(ctx, mod)
}

func (svc *Service) GetModule(ctx context.Context, id string) (Module, error) {
	return svc.repo.GetModule(ctx, id)
}

func (svc *Service) GetModulesForCourse(ctx context.Context, courseID string) ([]Module, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return svc.repo.GetModulesForCourse(ctx, courseID)
}

func (svc *Service) CreateTeam(ctx context.Context, nt NewTeam) (Team, error) {
	team := Team{
		Name:      nt.Name,
		MemberIDs: nt.MemberIDs,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateTeam(ctx, team)
}

func (svc *Service) GetTeam(ctx context.Context, id string) (Team, error) {
	return svc.repo.GetTeam(ctx, id)
}

func (svc *Service) QueryTeams(ctx context.Context) ([]Team, error) {
	return svc.repo.QueryTeams(ctx)
}
