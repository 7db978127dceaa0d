package main

import (
	"context"

	"github.com/trezcool/hatua/core/catalog"
)

// seedCatalog loads a small sample catalog for local development.
func (cli *commandLine) seedCatalog() error {
	ctx := context.Background()
	catSvc := catalog.NewService(cli.db, cli.catRepo)

	courses := []struct {
		course  catalog.NewCourse
		modules []catalog.NewModule
	}{
		{
			course: catalog.NewCourse{
				Title:                  "Onboarding Essentials",
				Description:            "Company tools, policies and ways of working.",
				Status:                 catalog.CourseStatusPublished,
				IsMandatory:            true,
				EstimatedDurationHours: 4,
				PassingCriteria:        80,
			},
			modules: []catalog.NewModule{
				{Title: "Welcome", SequenceOrder: 1, EstimatedDurationMinutes: 30},
				{Title: "Security Basics", SequenceOrder: 2, EstimatedDurationMinutes: 60},
				{Title: "Bonus: Office Tour", SequenceOrder: 3, IsMandatory: boolPtr(false), EstimatedDurationMinutes: 20},
				{Title: "Tooling Setup", SequenceOrder: 4, EstimatedDurationMinutes: 90},
			},
		},
		{
			course: catalog.NewCourse{
				Title:                  "Effective Communication",
				Description:            "Writing and presenting for distributed teams.",
				Status:                 catalog.CourseStatusPublished,
				EstimatedDurationHours: 3,
				PassingCriteria:        70,
			},
			modules: []catalog.NewModule{
				{Title: "Async Writing", SequenceOrder: 1, EstimatedDurationMinutes: 45},
				{Title: "Presentations", SequenceOrder: 2, EstimatedDurationMinutes: 60},
			},
		},
	}

	for _, seed := range courses {
		crs, err := catSvc.CreateCourse(ctx, seed.course)
		if err != nil {
			return err
		}
		for _, nm := range seed.modules {
			nm.CourseID = crs.ID
			if _, err = catSvc.CreateModule(ctx, nm); err != nil {
				return err
			}
		}
		logger.Printf("seeded course %q with %d modules", crs.Title, len(seed.modules))
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
