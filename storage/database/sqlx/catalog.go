package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/catalog"
)

var _ catalog.Repository = (*catalogRepository)(nil)

type catalogRepository struct {
	repoBase
}

func NewCatalogRepository(db *sqlx.DB) *catalogRepository {
	return &catalogRepository{repoBase{db: db}}
}

type dbCourse struct {
	ID                     string    `db:"id"`
	Title                  string    `db:"title"`
	Description            string    `db:"description"`
	Status                 string    `db:"status"`
	IsMandatory            bool      `db:"is_mandatory"`
	EstimatedDurationHours int       `db:"estimated_duration_hours"`
	PassingCriteria        int       `db:"passing_criteria"`
	CreatedAt              time.Time `db:"created_at"`
	UpdatedAt              time.Time `db:"updated_at"`
}

func (c dbCourse) toCore() catalog.Course { return catalog.Course(c) }

type dbModule struct {
	ID                       string    `db:"id"`
	CourseID                 string    `db:"course_id"`
	Title                    string    `db:"title"`
	Description              string    `db:"description"`
	SequenceOrder            int       `db:"sequence_order"`
	IsMandatory              bool      `db:"is_mandatory"`
	EstimatedDurationMinutes int       `db:"estimated_duration_minutes"`
	CreatedAt                time.Time `db:"created_at"`
	UpdatedAt                time.Time `db:"updated_at"`
}

func (m dbModule) toCore() catalog.Module { return catalog.Module(m) }

type dbTeam struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

const (
	courseCols = `id, title, description, status, is_mandatory, estimated_duration_hours, passing_criteria, created_at, updated_at`
	moduleCols = `id, course_id, title, description, sequence_order, is_mandatory, estimated_duration_minutes, created_at, updated_at`
)

func (repo *catalogRepository) CreateCourse(ctx context.Context, crs catalog.Course, exec ...core.DBExecutor) (catalog.Course, error) {
	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	_, err := repo.ext(exec).ExecContext(ctx,
		`INSERT INTO course (`+courseCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		crs.ID, crs.Title, crs.Description, crs.Status, crs.IsMandatory,
		crs.EstimatedDurationHours, crs.PassingCriteria, crs.CreatedAt, crs.UpdatedAt,
	)
	return crs, trapErr(err, nil)
}

func (repo *catalogRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (catalog.Course, error) {
	var c dbCourse
	err := sqlx.GetContext(ctx, repo.ext(exec), &c, `SELECT `+courseCols+` FROM course WHERE id = $1`, id)
	if err != nil {
		return catalog.Course{}, trapErr(err, catalog.ErrCourseNotFound)
	}
	return c.toCore(), nil
}

func (repo *catalogRepository) QueryCourses(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]catalog.Course, error) {
	query := `SELECT ` + courseCols + ` FROM course ORDER BY `
	if len(ordering) > 0 {
		for i, ord := range ordering {
			if i > 0 {
				query += ", "
			}
			query += ord.String()
		}
	} else {
		query += "id"
	}

	var rows []dbCourse
	if err := sqlx.SelectContext(ctx, repo.ext(exec), &rows, query); err != nil {
		return nil, trapErr(err, nil)
	}
	courses := make([]catalog.Course, 0, len(rows))
	for _, c := range rows {
		courses = append(courses, c.toCore())
	}
	return courses, nil
}

func (repo *catalogRepository) CreateModule(ctx context.Context, mod catalog.Module, exec ...core.DBExecutor) (catalog.Module, error) {
	if mod.ID == "" {
		mod.ID = uuid.New().String()
	}
	_, err := repo.ext(exec).ExecContext(ctx,
		`INSERT INTO module (`+moduleCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		mod.ID, mod.CourseID, mod.Title, mod.Description, mod.SequenceOrder,
		mod.IsMandatory, mod.EstimatedDurationMinutes, mod.CreatedAt, mod.UpdatedAt,
	)
	return mod, trapErr(err, nil)
}

func (repo *catalogRepository) GetModule(ctx context.Context, id string, exec ...core.DBExecutor) (catalog.Module, error) {
	var m dbModule
	err := sqlx.GetContext(ctx, repo.ext(exec), &m, `SELECT `+moduleCols+` FROM module WHERE id = $1`, id)
	if err != nil {
		return catalog.Module{}, trapErr(err, catalog.ErrModuleNotFound)
	}
	return m.toCore(), nil
}

func (repo *catalogRepository) GetModulesForCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]catalog.Module, error) {
	var rows []dbModule
	err := sqlx.SelectContext(ctx, repo.ext(exec), &rows,
		`SELECT `+moduleCols+` FROM module WHERE course_id = $1 ORDER BY sequence_order`, courseID)
	if err != nil {
		return nil, trapErr(err, nil)
	}
	mods := make([]catalog.Module, 0, len(rows))
	for _, m := range rows {
		mods = append(mods, m.toCore())
	}
	return mods, nil
}

func (repo *catalogRepository) CreateTeam(ctx context.Context, team catalog.Team, exec ...core.DBExecutor) (catalog.Team, error) {
	if team.ID == "" {
		team.ID = uuid.New().String()
	}
	err := repo.Atomic(ctx, func(tx core.DBExecutor) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO team (id, name, created_at) VALUES ($1, $2, $3)`,
			team.ID, team.Name, team.CreatedAt,
		); err != nil {
			return errors.Wrap(err, "creating team")
		}
		for _, memberID := range team.MemberIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO team_member (team_id, user_id) VALUES ($1, $2)`,
				team.ID, memberID,
			); err != nil {
				return errors.Wrap(err, "adding team member")
			}
		}
		return nil
	})
	return team, trapErr(err, nil)
}

func (repo *catalogRepository) GetTeam(ctx context.Context, id string, exec ...core.DBExecutor) (catalog.Team, error) {
	ext := repo.ext(exec)
	var t dbTeam
	err := sqlx.GetContext(ctx, ext, &t, `SELECT id, name, created_at FROM team WHERE id = $1`, id)
	if err != nil {
		return catalog.Team{}, trapErr(err, catalog.ErrTeamNotFound)
	}
	team := catalog.Team{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt}
	err = sqlx.SelectContext(ctx, ext, &team.MemberIDs,
		`SELECT user_id FROM team_member WHERE team_id = $1 ORDER BY user_id`, id)
	return team, trapErr(err, nil)
}

func (repo *catalogRepository) QueryTeams(ctx context.Context, exec ...core.DBExecutor) ([]catalog.Team, error) {
	ext := repo.ext(exec)
	var rows []dbTeam
	if err := sqlx.SelectContext(ctx, ext, &rows, `SELECT id, name, created_at FROM team ORDER BY id`); err != nil {
		return nil, trapErr(err, nil)
	}
	teams := make([]catalog.Team, 0, len(rows))
	for _, t := range rows {
		team := catalog.Team{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt}
		if err := sqlx.SelectContext(ctx, ext, &team.MemberIDs,
			`SELECT user_id FROM team_member WHERE team_id = $1 ORDER BY user_id`, t.ID); err != nil {
			return nil, trapErr(err, nil)
		}
		teams = append(teams, team)
	}
	return teams, nil
}
