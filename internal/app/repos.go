package app

import (
	"gorm.io/gorm"

	"github.com/jomapps/aladdin-sub006/internal/data/repos"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

type Repos struct {
	Projects  repos.ProjectRepo
	Gathered  repos.GatherItemRepo
	Qualified repos.QualifiedItemRepo
	Runs      repos.PipelineRunRepo
	Events    repos.PipelineEventRepo
	Profiles  repos.DepartmentProfileRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Projects:  repos.NewProjectRepo(db, log),
		Gathered:  repos.NewGatherItemRepo(db, log),
		Qualified: repos.NewQualifiedItemRepo(db, log),
		Runs:      repos.NewPipelineRunRepo(db, log),
		Events:    repos.NewPipelineEventRepo(db, log),
		Profiles:  repos.NewDepartmentProfileRepo(db, log),
	}
}
