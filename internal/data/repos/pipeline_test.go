package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/jomapps/aladdin-sub006/internal/data/repos/testutil"
	"github.com/jomapps/aladdin-sub006/internal/domain"
	"github.com/jomapps/aladdin-sub006/internal/pkg/dbctx"
)

func TestPipelineRunRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.WithTx(context.Background(), tx)

	repo := NewPipelineRunRepo(db, testutil.Logger(t))
	projectID := uuid.New()

	older := &domain.PipelineRun{
		ID:        uuid.New(),
		ProjectID: projectID,
		Status:    string(domain.RunStatusFailed),
		StartedAt: time.Now().Add(-2 * time.Hour),
		CreatedAt: time.Now().Add(-2 * time.Hour),
		UpdatedAt: time.Now().Add(-2 * time.Hour),
	}
	newer := &domain.PipelineRun{
		ID:        uuid.New(),
		ProjectID: projectID,
		Status:    string(domain.RunStatusLocked),
		StartedAt: time.Now(),
	}
	if _, err := repo.Create(dbc, older); err != nil {
		t.Fatalf("Create older: %v", err)
	}
	if _, err := repo.Create(dbc, newer); err != nil {
		t.Fatalf("Create newer: %v", err)
	}

	latest, err := repo.GetLatestByProject(dbc, projectID)
	if err != nil {
		t.Fatalf("GetLatestByProject: %v", err)
	}
	if latest == nil || latest.ID != newer.ID {
		t.Fatalf("GetLatestByProject: got %+v", latest)
	}

	ok, err := repo.UpdateFieldsUnlessStatus(dbc, newer.ID,
		[]string{string(domain.RunStatusSucceeded), string(domain.RunStatusFailed)},
		map[string]interface{}{"status": string(domain.RunStatusRunning)})
	if err != nil {
		t.Fatalf("UpdateFieldsUnlessStatus: %v", err)
	}
	if !ok {
		t.Fatal("UpdateFieldsUnlessStatus: expected update of locked run")
	}

	// Terminal rows must not be reopened.
	ok, err = repo.UpdateFieldsUnlessStatus(dbc, older.ID,
		[]string{string(domain.RunStatusSucceeded), string(domain.RunStatusFailed)},
		map[string]interface{}{"status": string(domain.RunStatusRunning)})
	if err != nil {
		t.Fatalf("UpdateFieldsUnlessStatus terminal: %v", err)
	}
	if ok {
		t.Fatal("UpdateFieldsUnlessStatus: failed run should be immutable")
	}

	runs, err := repo.ListByProject(dbc, projectID, 10)
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListByProject: expected 2, got %d", len(runs))
	}
}

func TestPipelineEventRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.WithTx(context.Background(), tx)

	repo := NewPipelineEventRepo(db, testutil.Logger(t))
	projectID := uuid.New()
	runID := uuid.New()

	events := []*domain.PipelineEvent{
		{
			ProjectID:  projectID,
			RunID:      &runID,
			Kind:       string(domain.PipelineEventError),
			Phase:      "foundation",
			Department: "world",
			Message:    "workflow failed",
			Detail:     datatypes.JSON([]byte(`{"attempt":1}`)),
		},
		{
			ProjectID: projectID,
			RunID:     &runID,
			Kind:      string(domain.PipelineEventPromotion),
			Message:   "project qualified",
		},
	}
	created, err := repo.Create(dbc, events)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("Create: expected 2, got %d", len(created))
	}

	byRun, err := repo.ListByRun(dbc, runID)
	if err != nil {
		t.Fatalf("ListByRun: %v", err)
	}
	if len(byRun) != 2 {
		t.Fatalf("ListByRun: expected 2, got %d", len(byRun))
	}

	byProject, err := repo.ListByProject(dbc, projectID, 10)
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	if len(byProject) != 2 {
		t.Fatalf("ListByProject: expected 2, got %d", len(byProject))
	}
}
