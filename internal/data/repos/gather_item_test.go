package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/jomapps/aladdin-sub006/internal/data/repos/testutil"
	"github.com/jomapps/aladdin-sub006/internal/domain"
	"github.com/jomapps/aladdin-sub006/internal/pkg/dbctx"
)

func TestGatherAndQualifiedItemRepos(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.WithTx(context.Background(), tx)

	log := testutil.Logger(t)
	gatherRepo := NewGatherItemRepo(db, log)
	qualifiedRepo := NewQualifiedItemRepo(db, log)

	projectID := uuid.New()
	runID := uuid.New()

	items := []*domain.GatherItem{
		{
			ProjectID:  projectID,
			Department: "character",
			Kind:       "profile",
			Summary:    "protagonist sketch",
			Content:    datatypes.JSON([]byte(`{"name":"Mira"}`)),
		},
		{
			ProjectID:  projectID,
			Department: "character",
			Kind:       "profile",
			Summary:    "antagonist sketch",
			Content:    datatypes.JSON([]byte(`{"name":"Vex"}`)),
		},
		{
			ProjectID:  projectID,
			Department: "world",
			Kind:       "location",
			Content:    datatypes.JSON([]byte(`{"name":"Red Canyon"}`)),
		},
	}
	if _, err := gatherRepo.Create(dbc, items); err != nil {
		t.Fatalf("gather Create: %v", err)
	}

	characterRows, err := gatherRepo.ListByProjectDepartment(dbc, projectID, "character")
	if err != nil {
		t.Fatalf("ListByProjectDepartment: %v", err)
	}
	if len(characterRows) != 2 {
		t.Fatalf("ListByProjectDepartment: expected 2, got %d", len(characterRows))
	}

	count, err := gatherRepo.CountByProject(dbc, projectID)
	if err != nil {
		t.Fatalf("CountByProject: %v", err)
	}
	if count != 3 {
		t.Fatalf("CountByProject: expected 3, got %d", count)
	}

	sourceID := items[0].ID
	qualified := []*domain.QualifiedItem{
		{
			ProjectID:    projectID,
			RunID:        runID,
			Department:   "character",
			Phase:        "foundation",
			SourceItemID: &sourceID,
			Content:      datatypes.JSON([]byte(`{"name":"Mira","arc":"redemption"}`)),
			Score:        0.92,
		},
	}
	if _, err := qualifiedRepo.Create(dbc, qualified); err != nil {
		t.Fatalf("qualified Create: %v", err)
	}

	byRun, err := qualifiedRepo.ListByRun(dbc, runID)
	if err != nil {
		t.Fatalf("qualified ListByRun: %v", err)
	}
	if len(byRun) != 1 || byRun[0].Department != "character" {
		t.Fatalf("qualified ListByRun: got %+v", byRun)
	}

	byProject, err := qualifiedRepo.ListByProject(dbc, projectID, 10, 0)
	if err != nil {
		t.Fatalf("qualified ListByProject: %v", err)
	}
	if len(byProject) != 1 {
		t.Fatalf("qualified ListByProject: expected 1, got %d", len(byProject))
	}
}
