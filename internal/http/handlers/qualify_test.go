package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jomapps/aladdin-sub006/internal/domain"
	pkgerrors "github.com/jomapps/aladdin-sub006/internal/pkg/errors"
	"github.com/jomapps/aladdin-sub006/internal/qualify"
)

type fakeQualifyService struct {
	startRunID uuid.UUID
	startErr   error
}

func (f *fakeQualifyService) StartRun(ctx context.Context, projectID uuid.UUID) (uuid.UUID, error) {
	return f.startRunID, f.startErr
}

func (f *fakeQualifyService) Status(ctx context.Context, projectID uuid.UUID) (*qualify.RunStatusView, error) {
	return &qualify.RunStatusView{ProjectID: projectID, Status: qualify.RunStatusIdle}, nil
}

func (f *fakeQualifyService) RunHistory(ctx context.Context, projectID uuid.UUID, limit int) ([]*domain.PipelineRun, error) {
	return nil, nil
}

func (f *fakeQualifyService) Events(ctx context.Context, projectID uuid.UUID, limit int) ([]*domain.PipelineEvent, error) {
	return nil, nil
}

func (f *fakeQualifyService) Plan() qualify.Plan { return qualify.Plan{} }

func (f *fakeQualifyService) Drain(timeout time.Duration) error { return nil }

func newQualifyRouter(svc *fakeQualifyService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewQualifyHandler(svc)
	r.POST("/api/projects/:id/qualify", h.StartQualify)
	return r
}

func TestStartQualifyAccepted(t *testing.T) {
	t.Parallel()
	runID := uuid.New()
	r := newQualifyRouter(&fakeQualifyService{startRunID: runID})

	req := httptest.NewRequest(http.MethodPost, "/api/projects/"+uuid.New().String()+"/qualify", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusAccepted, rec.Body.String())
	}
	var body struct {
		RunID uuid.UUID `json:"run_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.RunID != runID {
		t.Fatalf("unexpected run id: got=%s want=%s", body.RunID, runID)
	}
}

func TestStartQualifyLockConflict(t *testing.T) {
	t.Parallel()
	r := newQualifyRouter(&fakeQualifyService{startErr: qualify.ErrLockConflict})

	req := httptest.NewRequest(http.MethodPost, "/api/projects/"+uuid.New().String()+"/qualify", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusConflict)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != "qualify_locked" {
		t.Fatalf("unexpected error code: got=%q", body.Error.Code)
	}
}

func TestStartQualifyUnknownProject(t *testing.T) {
	t.Parallel()
	projectID := uuid.New()
	r := newQualifyRouter(&fakeQualifyService{
		startErr: fmt.Errorf("project %s: %w", projectID, pkgerrors.ErrNotFound),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/projects/"+projectID.String()+"/qualify", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusNotFound)
	}
}

func TestStartQualifyRejectsBadProjectID(t *testing.T) {
	t.Parallel()
	r := newQualifyRouter(&fakeQualifyService{})

	req := httptest.NewRequest(http.MethodPost, "/api/projects/not-a-uuid/qualify", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
}
