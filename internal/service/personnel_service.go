package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/campusplan/timetable-api/internal/models"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
)

type personnelRepository interface {
	List(ctx context.Context, filter models.PersonnelFilter) ([]models.Personnel, int, error)
	FindByID(ctx context.Context, id string) (*models.Personnel, error)
	Create(ctx context.Context, person *models.Personnel) error
	Update(ctx context.Context, person *models.Personnel) error
	Delete(ctx context.Context, id string) error
}

// CreatePersonnelRequest describes payload for creating a staff member.
type CreatePersonnelRequest struct {
	Name  string   `json:"name" validate:"required"`
	Email string   `json:"email" validate:"required,email"`
	Roles []string `json:"roles" validate:"required,min=1,dive,required"`
}

// UpdatePersonnelRequest updates an existing staff member.
type UpdatePersonnelRequest struct {
	Name  string   `json:"name" validate:"required"`
	Email string   `json:"email" validate:"required,email"`
	Roles []string `json:"roles" validate:"required,min=1,dive,required"`
}

// PersonnelService manages staff masters.
type PersonnelService struct {
	repo      personnelRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPersonnelService instantiates PersonnelService.
func NewPersonnelService(repo personnelRepository, validate *validator.Validate, logger *zap.Logger) *PersonnelService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersonnelService{repo: repo, validator: validate, logger: logger}
}

// List returns personnel matching the filter.
func (s *PersonnelService) List(ctx context.Context, filter models.PersonnelFilter) ([]models.Personnel, int, error) {
	people, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list personnel")
	}
	return people, total, nil
}

// Get returns one staff member.
func (s *PersonnelService) Get(ctx context.Context, id string) (*models.Personnel, error) {
	person, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "personnel")
	}
	return person, nil
}

// Create validates and stores a staff member.
func (s *PersonnelService) Create(ctx context.Context, req CreatePersonnelRequest) (*models.Personnel, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid personnel payload")
	}
	person := &models.Personnel{Name: req.Name, Email: req.Email, Roles: pq.StringArray(req.Roles)}
	if err := s.repo.Create(ctx, person); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create personnel")
	}
	return person, nil
}

// Update modifies a staff member.
func (s *PersonnelService) Update(ctx context.Context, id string, req UpdatePersonnelRequest) (*models.Personnel, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid personnel payload")
	}
	person, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "personnel")
	}
	person.Name = req.Name
	person.Email = req.Email
	person.Roles = pq.StringArray(req.Roles)
	if err := s.repo.Update(ctx, person); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update personnel")
	}
	return person, nil
}

// Delete removes a staff member.
func (s *PersonnelService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return lookupError(err, "personnel")
	}
	return s.repo.Delete(ctx, id)
}
