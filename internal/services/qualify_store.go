package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jomapps/aladdin-sub006/internal/data/graph"
	"github.com/jomapps/aladdin-sub006/internal/data/repos"
	"github.com/jomapps/aladdin-sub006/internal/domain"
	"github.com/jomapps/aladdin-sub006/internal/pkg/dbctx"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
	"github.com/jomapps/aladdin-sub006/internal/platform/neo4jdb"
	"github.com/jomapps/aladdin-sub006/internal/qualify"
)

// QualifyStore backs the qualification runner with Postgres rows and the
// Neo4j knowledge graph. It implements every persistence-facing
// dependency the runner declares.
type QualifyStore interface {
	qualify.IntakeSource
	qualify.QualifiedSink
	qualify.KnowledgeIngester
	qualify.ErrorRecorder
	qualify.RunStore
}

type qualifyStore struct {
	db        *gorm.DB
	log       *logger.Logger
	graphDB   *neo4jdb.Client
	projects  repos.ProjectRepo
	runs      repos.PipelineRunRepo
	events    repos.PipelineEventRepo
	gathered  repos.GatherItemRepo
	qualified repos.QualifiedItemRepo
}

func NewQualifyStore(
	db *gorm.DB,
	baseLog *logger.Logger,
	graphDB *neo4jdb.Client,
	projects repos.ProjectRepo,
	runs repos.PipelineRunRepo,
	events repos.PipelineEventRepo,
	gathered repos.GatherItemRepo,
	qualified repos.QualifiedItemRepo,
) QualifyStore {
	return &qualifyStore{
		db:        db,
		log:       baseLog.With("service", "QualifyStore"),
		graphDB:   graphDB,
		projects:  projects,
		runs:      runs,
		events:    events,
		gathered:  gathered,
		qualified: qualified,
	}
}

func (s *qualifyStore) FetchIntakeRows(ctx context.Context, projectID uuid.UUID, department string) ([]qualify.IntakeRow, error) {
	items, err := s.gathered.ListByProjectDepartment(dbctx.New(ctx), projectID, department)
	if err != nil {
		return nil, fmt.Errorf("list gather items: %w", err)
	}
	rows := make([]qualify.IntakeRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, qualify.IntakeRow{
			ID:         item.ID,
			Department: item.Department,
			Kind:       item.Kind,
			Summary:    item.Summary,
			Content:    json.RawMessage(item.Content),
		})
	}
	return rows, nil
}

func (s *qualifyStore) PersistQualifiedRows(ctx context.Context, projectID, runID uuid.UUID, rows []qualify.QualifiedRow) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now()
	items := make([]*domain.QualifiedItem, 0, len(rows))
	for _, row := range rows {
		item := &domain.QualifiedItem{
			ID:           uuid.New(),
			ProjectID:    projectID,
			RunID:        runID,
			Department:   row.Department,
			Phase:        row.Phase,
			SourceItemID: row.SourceItemID,
			Content:      datatypes.JSON(row.Content),
			Score:        row.Score,
			CreatedAt:    now,
		}
		if len(row.CrossRefs) > 0 {
			refs, err := json.Marshal(row.CrossRefs)
			if err != nil {
				return fmt.Errorf("encode cross refs: %w", err)
			}
			item.CrossRefs = datatypes.JSON(refs)
		}
		items = append(items, item)
	}
	if _, err := s.qualified.Create(dbctx.New(ctx), items); err != nil {
		return fmt.Errorf("persist qualified items: %w", err)
	}
	return nil
}

// IngestToKnowledgeBase syncs the run's persisted qualified items into
// Neo4j. It reads the rows back from Postgres so graph nodes carry the
// stored item ids rather than ephemeral in-memory ones.
func (s *qualifyStore) IngestToKnowledgeBase(ctx context.Context, projectID, runID uuid.UUID, rows []qualify.QualifiedRow) error {
	items, err := s.qualified.ListByRun(dbctx.New(ctx), runID)
	if err != nil {
		return fmt.Errorf("load qualified items: %w", err)
	}
	if len(items) != len(rows) {
		s.log.Warn("qualified row count mismatch at ingest",
			"run_id", runID.String(),
			"persisted", len(items),
			"reported", len(rows),
		)
	}
	if err := graph.UpsertQualifiedKnowledgeGraph(ctx, s.graphDB, s.log, projectID, runID, items); err != nil {
		return fmt.Errorf("sync knowledge graph: %w", err)
	}
	return nil
}

func (s *qualifyStore) RecordDurableError(ctx context.Context, projectID, runID uuid.UUID, phase string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	detail := map[string]any{"error": msg}
	department := ""
	var phaseErr *qualify.PhaseError
	var persistErr *qualify.PersistError
	switch {
	case errors.As(cause, &phaseErr):
		departments := phaseErr.Departments()
		detail["departments"] = departments
		if len(departments) == 1 {
			department = departments[0]
		}
	case errors.As(cause, &persistErr):
		department = persistErr.Department
	}
	payload, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("encode error detail: %w", err)
	}

	runRef := runID
	event := &domain.PipelineEvent{
		ID:         uuid.New(),
		ProjectID:  projectID,
		RunID:      &runRef,
		Kind:       string(domain.PipelineEventError),
		Phase:      phase,
		Department: department,
		Message:    msg,
		Detail:     datatypes.JSON(payload),
		CreatedAt:  time.Now(),
	}
	if _, err := s.events.Create(dbctx.New(ctx), []*domain.PipelineEvent{event}); err != nil {
		return fmt.Errorf("record durable error: %w", err)
	}
	return nil
}

func (s *qualifyStore) CreateRun(ctx context.Context, projectID, runID uuid.UUID) error {
	now := time.Now()
	run := &domain.PipelineRun{
		ID:        runID,
		ProjectID: projectID,
		Status:    string(domain.RunStatusLocked),
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.runs.Create(dbctx.New(ctx), run); err != nil {
		return fmt.Errorf("create pipeline run: %w", err)
	}
	return nil
}

func (s *qualifyStore) MarkRunRunning(ctx context.Context, projectID, runID uuid.UUID, phase string) error {
	if err := s.runs.UpdateFields(dbctx.New(ctx), runID, map[string]interface{}{
		"status": string(domain.RunStatusRunning),
		"phase":  phase,
	}); err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}
	if err := s.projects.UpdateFields(dbctx.New(ctx), projectID, map[string]interface{}{
		"qualify_status":     string(domain.QualifyStatusRunning),
		"last_qualify_error": "",
	}); err != nil {
		return fmt.Errorf("mark project running: %w", err)
	}
	return nil
}

func (s *qualifyStore) MarkRunPhase(ctx context.Context, runID uuid.UUID, phase string) error {
	if err := s.runs.UpdateFields(dbctx.New(ctx), runID, map[string]interface{}{
		"phase": phase,
	}); err != nil {
		return fmt.Errorf("record run phase: %w", err)
	}
	return nil
}

func (s *qualifyStore) MarkRunFailed(ctx context.Context, projectID, runID uuid.UUID, phase string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	updated, err := s.runs.UpdateFieldsUnlessStatus(dbctx.New(ctx), runID,
		[]string{string(domain.RunStatusSucceeded), string(domain.RunStatusFailed)},
		map[string]interface{}{
			"status":      string(domain.RunStatusFailed),
			"phase":       phase,
			"error":       msg,
			"finished_at": time.Now(),
		})
	if err != nil {
		return fmt.Errorf("mark run failed: %w", err)
	}
	if !updated {
		s.log.Warn("run already terminal, failure not recorded on run row",
			"run_id", runID.String(),
			"phase", phase,
		)
	}
	if err := s.projects.UpdateFields(dbctx.New(ctx), projectID, map[string]interface{}{
		"qualify_status":     string(domain.QualifyStatusFailed),
		"last_qualify_error": msg,
	}); err != nil {
		return fmt.Errorf("mark project failed: %w", err)
	}
	return nil
}

func (s *qualifyStore) MarkRunSucceeded(ctx context.Context, projectID, runID uuid.UUID, qualified int) error {
	detail, err := json.Marshal(map[string]any{"qualified_rows": qualified})
	if err != nil {
		return fmt.Errorf("encode run detail: %w", err)
	}
	if err := s.runs.UpdateFields(dbctx.New(ctx), runID, map[string]interface{}{
		"status":      string(domain.RunStatusSucceeded),
		"error":       "",
		"detail":      datatypes.JSON(detail),
		"finished_at": time.Now(),
	}); err != nil {
		return fmt.Errorf("mark run succeeded: %w", err)
	}
	return nil
}

// PromoteProject flips the project to qualified and appends the
// promotion row to the event ledger. The ledger write is best effort;
// the project row is the source of truth.
func (s *qualifyStore) PromoteProject(ctx context.Context, projectID, runID uuid.UUID) error {
	now := time.Now()
	if err := s.projects.UpdateFields(dbctx.New(ctx), projectID, map[string]interface{}{
		"qualify_status":     string(domain.QualifyStatusQualified),
		"qualified_at":       now,
		"last_qualify_error": "",
	}); err != nil {
		return fmt.Errorf("promote project: %w", err)
	}

	runRef := runID
	event := &domain.PipelineEvent{
		ID:        uuid.New(),
		ProjectID: projectID,
		RunID:     &runRef,
		Kind:      string(domain.PipelineEventPromotion),
		Message:   "project qualified",
		CreatedAt: now,
	}
	if _, err := s.events.Create(dbctx.New(ctx), []*domain.PipelineEvent{event}); err != nil {
		s.log.Error("record promotion event failed",
			"project_id", projectID.String(),
			"run_id", runID.String(),
			"error", err,
		)
	}
	return nil
}

func (s *qualifyStore) LatestRun(ctx context.Context, projectID uuid.UUID) (*qualify.RunRecord, error) {
	run, err := s.runs.GetLatestByProject(dbctx.New(ctx), projectID)
	if err != nil {
		return nil, fmt.Errorf("load latest run: %w", err)
	}
	if run == nil {
		return nil, nil
	}
	return &qualify.RunRecord{
		RunID:      run.ID,
		ProjectID:  run.ProjectID,
		Status:     qualify.RunStatus(run.Status),
		Phase:      run.Phase,
		Error:      run.Error,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}, nil
}
