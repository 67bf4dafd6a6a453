package db

import (
	"fmt"

	"gorm.io/gorm"
)

func EnsureItemIndexes(db *gorm.DB) error {
	// Project listing filtered by department, newest first.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_gather_item_project_department
		ON gather_item (project_id, department, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_gather_item_project_department: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_qualified_item_project_department
		ON qualified_item (project_id, department, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_qualified_item_project_department: %w", err)
	}

	// Per-run inspection and knowledge-base sync read by run + phase.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_qualified_item_run_phase
		ON qualified_item (run_id, phase);
	`).Error; err != nil {
		return fmt.Errorf("create idx_qualified_item_run_phase: %w", err)
	}

	return nil
}

func EnsurePipelineIndexes(db *gorm.DB) error {
	// Latest-runs listing per project.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_pipeline_run_project_started
		ON pipeline_run (project_id, started_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_pipeline_run_project_started: %w", err)
	}

	// Audit ledger pagination per project.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_pipeline_event_project_created
		ON pipeline_event (project_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_pipeline_event_project_created: %w", err)
	}

	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureItemIndexes(s.db); err != nil {
		s.log.Error("Item index migration failed", "error", err)
		return err
	}
	if err := EnsurePipelineIndexes(s.db); err != nil {
		s.log.Error("Pipeline index migration failed", "error", err)
		return err
	}

	return nil
}
