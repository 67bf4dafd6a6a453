package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/jomapps/aladdin-sub006/internal/data/repos"
	"github.com/jomapps/aladdin-sub006/internal/domain"
	"github.com/jomapps/aladdin-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/jomapps/aladdin-sub006/internal/pkg/errors"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

type CreateProjectInput struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type GatherItemInput struct {
	Department string          `json:"department"`
	Kind       string          `json:"kind"`
	Summary    string          `json:"summary"`
	Content    json.RawMessage `json:"content"`
}

// ProjectService manages projects and their gathered intake rows, the
// raw material qualification runs consume.
type ProjectService interface {
	CreateProject(ctx context.Context, input CreateProjectInput) (*domain.Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	ListProjects(ctx context.Context, limit, offset int) ([]*domain.Project, error)
	AddGatherItems(ctx context.Context, projectID uuid.UUID, inputs []GatherItemInput) ([]*domain.GatherItem, error)
	ListGatherItems(ctx context.Context, projectID uuid.UUID, department string) ([]*domain.GatherItem, error)
	ListQualifiedItems(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*domain.QualifiedItem, error)
}

type projectService struct {
	log         *logger.Logger
	projects    repos.ProjectRepo
	gathered    repos.GatherItemRepo
	qualified   repos.QualifiedItemRepo
	notify      RunNotifier
	departments map[string]bool
}

// NewProjectService accepts the plan's department names so intake rows
// for departments no phase would ever read are rejected at the door.
func NewProjectService(
	baseLog *logger.Logger,
	projects repos.ProjectRepo,
	gathered repos.GatherItemRepo,
	qualified repos.QualifiedItemRepo,
	notify RunNotifier,
	departments []string,
) ProjectService {
	known := make(map[string]bool, len(departments))
	for _, dep := range departments {
		known[dep] = true
	}
	return &projectService{
		log:         baseLog.With("service", "ProjectService"),
		projects:    projects,
		gathered:    gathered,
		qualified:   qualified,
		notify:      notify,
		departments: known,
	}
}

func (s *projectService) CreateProject(ctx context.Context, input CreateProjectInput) (*domain.Project, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("project title required: %w", pkgerrors.ErrInvalidArgument)
	}
	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = slugify(title)
	}
	if slug == "" {
		return nil, fmt.Errorf("project slug required: %w", pkgerrors.ErrInvalidArgument)
	}

	now := time.Now()
	project := &domain.Project{
		ID:            uuid.New(),
		Title:         title,
		Slug:          slug,
		QualifyStatus: string(domain.QualifyStatusNone),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	created, err := s.projects.Create(dbctx.New(ctx), project)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	s.log.Info("project created", "project_id", created.ID.String(), "slug", created.Slug)
	return created, nil
}

func (s *projectService) GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	project, err := s.projects.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", id, pkgerrors.ErrNotFound)
	}
	return project, nil
}

func (s *projectService) ListProjects(ctx context.Context, limit, offset int) ([]*domain.Project, error) {
	return s.projects.List(dbctx.New(ctx), limit, offset)
}

func (s *projectService) AddGatherItems(ctx context.Context, projectID uuid.UUID, inputs []GatherItemInput) ([]*domain.GatherItem, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return []*domain.GatherItem{}, nil
	}

	now := time.Now()
	items := make([]*domain.GatherItem, 0, len(inputs))
	for i, input := range inputs {
		dep := strings.TrimSpace(input.Department)
		if !s.departments[dep] {
			return nil, fmt.Errorf("item %d: unknown department %q: %w", i, input.Department, pkgerrors.ErrInvalidArgument)
		}
		if strings.TrimSpace(input.Kind) == "" {
			return nil, fmt.Errorf("item %d: kind required: %w", i, pkgerrors.ErrInvalidArgument)
		}
		if len(input.Content) == 0 || !json.Valid(input.Content) {
			return nil, fmt.Errorf("item %d: content must be valid JSON: %w", i, pkgerrors.ErrInvalidArgument)
		}
		items = append(items, &domain.GatherItem{
			ID:         uuid.New(),
			ProjectID:  projectID,
			Department: dep,
			Kind:       strings.TrimSpace(input.Kind),
			Summary:    strings.TrimSpace(input.Summary),
			Content:    datatypes.JSON(input.Content),
			CreatedAt:  now,
		})
	}

	created, err := s.gathered.Create(dbctx.New(ctx), items)
	if err != nil {
		return nil, fmt.Errorf("create gather items: %w", err)
	}

	if s.notify != nil {
		counts := make(map[string]int)
		for _, item := range created {
			counts[item.Department]++
		}
		for dep, count := range counts {
			s.notify.GatherItemsAdded(ctx, projectID, dep, count)
		}
	}
	s.log.Info("gather items added", "project_id", projectID.String(), "count", len(created))
	return created, nil
}

func (s *projectService) ListGatherItems(ctx context.Context, projectID uuid.UUID, department string) ([]*domain.GatherItem, error) {
	if strings.TrimSpace(department) == "" {
		return nil, fmt.Errorf("department required: %w", pkgerrors.ErrInvalidArgument)
	}
	return s.gathered.ListByProjectDepartment(dbctx.New(ctx), projectID, department)
}

func (s *projectService) ListQualifiedItems(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*domain.QualifiedItem, error) {
	return s.qualified.ListByProject(dbctx.New(ctx), projectID, limit, offset)
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
