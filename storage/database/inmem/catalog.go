package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/catalog"
)

func (db *DB) CreateCourse(ctx context.Context, crs catalog.Course, exec ...core.DBExecutor) (catalog.Course, error) {
	defer db.lock(exec)()

	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	db.courses[crs.ID] = crs
	return crs, nil
}

func (db *DB) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (catalog.Course, error) {
	defer db.rlock(exec)()

	if crs, ok := db.courses[id]; ok {
		return crs, nil
	}
	return catalog.Course{}, catalog.ErrCourseNotFound
}

func (db *DB) QueryCourses(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]catalog.Course, error) {
	defer db.rlock(exec)()

	var courses []catalog.Course
	for _, crs := range db.courses {
		courses = append(courses, crs)
	}
	sort.Slice(courses, func(i, j int) bool {
		for _, ord := range ordering {
			if ord.Field == "created_at" && !courses[i].CreatedAt.Equal(courses[j].CreatedAt) {
				if ord.Ascending {
					return courses[i].CreatedAt.Before(courses[j].CreatedAt)
				}
				return courses[i].CreatedAt.After(courses[j].CreatedAt)
			}
		}
		return courses[i].ID < courses[j].ID
	})
	return courses, nil
}

func (db *DB) CreateModule(ctx context.Context, mod catalog.Module, exec ...core.DBExecutor) (catalog.Module, error) {
	defer db.lock(exec)()

	if mod.ID == "" {
		mod.ID = uuid.New().String()
	}
	db.modules[mod.ID] = mod
	return mod, nil
}

func (db *DB) GetModule(ctx context.Context, id string, exec ...core.DBExecutor) (catalog.Module, error) {
	defer db.rlock(exec)()

	if mod, ok := db.modules[id]; ok {
		return mod, nil
	}
	return catalog.Module{}, catalog.ErrModuleNotFound
}

func (db *DB) GetModulesForCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]catalog.Module, error) {
	defer db.rlock(exec)()

	var mods []catalog.Module
	for _, mod := range db.modules {
		if mod.CourseID == courseID {
			mods = append(mods, mod)
		}
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].SequenceOrder < mods[j].SequenceOrder })
	return mods, nil
}

func (db *DB) CreateTeam(ctx context.Context, team catalog.Team, exec ...core.DBExecutor) (catalog.Team, error) {
	defer db.lock(exec)()

	if team.ID == "" {
		team.ID = uuid.New().String()
	}
	team.MemberIDs = append([]string(nil), team.MemberIDs...)
	db.teams[team.ID] = team
	return team, nil
}

func (db *DB) GetTeam(ctx context.Context, id string, exec ...core.DBExecutor) (catalog.Team, error) {
	defer db.rlock(exec)()

	if team, ok := db.teams[id]; ok {
		team.MemberIDs = append([]string(nil), team.MemberIDs...)
		return team, nil
	}
	return catalog.Team{}, catalog.ErrTeamNotFound
}

func (db *DB) QueryTeams(ctx context.Context, exec ...core.DBExecutor) ([]catalog.Team, error) {
	defer db.rlock(exec)()

	var teams []catalog.Team
	for _, team := range db.teams {
		team.MemberIDs = append([]string(nil), team.MemberIDs...)
		teams = append(teams, team)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return teams, nil
}
