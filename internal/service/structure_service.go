package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusplan/timetable-api/internal/models"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
)

type sectionRepository interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.Section, int, error)
	FindByID(ctx context.Context, id string) (*models.Section, error)
	Create(ctx context.Context, section *models.Section) error
	Delete(ctx context.Context, id string) error
	ListGroups(ctx context.Context, sectionID string) ([]models.Group, error)
	CreateGroup(ctx context.Context, group *models.Group) error
	DeleteGroup(ctx context.Context, id string) error
}

// CreateSectionRequest describes payload for creating a section.
type CreateSectionRequest struct {
	BatchID string `json:"batch_id" validate:"required"`
	Name    string `json:"name" validate:"required"`
}

// CreateGroupRequest subdivides a section.
type CreateGroupRequest struct {
	Name string `json:"name" validate:"required"`
}

// StructureService manages sections and their groups.
type StructureService struct {
	repo      sectionRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStructureService instantiates StructureService.
func NewStructureService(repo sectionRepository, validate *validator.Validate, logger *zap.Logger) *StructureService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StructureService{repo: repo, validator: validate, logger: logger}
}

// ListSections returns sections matching the filter.
func (s *StructureService) ListSections(ctx context.Context, filter models.SectionFilter) ([]models.Section, int, error) {
	sections, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	return sections, total, nil
}

// GetSection returns one section with its groups.
func (s *StructureService) GetSection(ctx context.Context, id string) (*models.Section, error) {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "section")
	}
	groups, err := s.repo.ListGroups(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	section.Groups = groups
	return section, nil
}

// CreateSection validates and stores a section.
func (s *StructureService) CreateSection(ctx context.Context, req CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	section := &models.Section{BatchID: req.BatchID, Name: req.Name}
	if err := s.repo.Create(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	return section, nil
}

// DeleteSection removes a section.
func (s *StructureService) DeleteSection(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return lookupError(err, "section")
	}
	return s.repo.Delete(ctx, id)
}

// CreateGroup adds a group to a section.
func (s *StructureService) CreateGroup(ctx context.Context, sectionID string, req CreateGroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	if _, err := s.repo.FindByID(ctx, sectionID); err != nil {
		return nil, lookupError(err, "section")
	}
	group := &models.Group{SectionID: sectionID, Name: req.Name}
	if err := s.repo.CreateGroup(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	return group, nil
}

// DeleteGroup removes a group from its section.
func (s *StructureService) DeleteGroup(ctx context.Context, id string) error {
	return s.repo.DeleteGroup(ctx, id)
}
