package progress

import (
	"context"

	"github.com/trezcool/hatua/core/catalog"
)

// ListAccessibleModules returns the course's modules in sequence order with
// the user's progress and the computed lock state folded in.
//
// Unlock policy: the first module in a course is always unlocked; any other
// module is unlocked once every mandatory module earlier in the sequence is
// completed. Optional modules never gate their successors. Lock state is
// computed on every call and never persisted, so catalog edits take effect
// immediately.
func (svc *Service) ListAccessibleModules(ctx context.Context, userID, courseID string) ([]ModuleAccess, error) {
	if _, err := svc.usrSvc.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := svc.catSvc.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	mods, err := svc.catSvc.GetModulesForCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	entries, err := svc.repo.GetModuleProgressForCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	byModule := make(map[string]ModuleProgress, len(entries))
	for _, mp := range entries {
		byModule[mp.ModuleID] = mp
	}

	access := make([]ModuleAccess, 0, len(mods))
	mandatoryDone := true // all mandatory modules seen so far are completed
	for i, mod := range mods {
		mp := byModule[mod.ID]
		access = append(access, ModuleAccess{
			Module:   mod,
			Progress: mp,
			Status:   mp.Status(),
			Locked:   i > 0 && !mandatoryDone,
		})
		if mod.IsMandatory && !mp.Completed() {
			mandatoryDone = false
		}
	}
	return access, nil
}

// IsUnlocked reports whether the user may access the module.
func (svc *Service) IsUnlocked(ctx context.Context, userID, moduleID string) (bool, error) {
	mod, err := svc.catSvc.GetModule(ctx, moduleID)
	if err != nil {
		return false, err
	}
	access, err := svc.ListAccessibleModules(ctx, userID, mod.CourseID)
	if err != nil {
		return false, err
	}
	for _, ma := range access {
		if ma.Module.ID == mod.ID {
			return !ma.Locked, nil
		}
	}
	return false, catalog.ErrModuleNotFound
}
