package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusplan/timetable-api/internal/dto"
	"github.com/campusplan/timetable-api/internal/models"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
)

type preferenceRepository interface {
	Upsert(ctx context.Context, pref *models.PersonnelPreference) error
	ListByInstance(ctx context.Context, instanceID string) ([]models.PersonnelPreference, error)
	Delete(ctx context.Context, id string) error
}

type preferenceInstanceReader interface {
	FindByID(ctx context.Context, id string) (*models.ScheduleInstance, error)
}

type preferenceTemplateReader interface {
	FindTemplateByID(ctx context.Context, id string) (*models.ActivityTemplate, error)
}

// PreferenceService records personnel activity preferences. Preferences can
// only change while their instance is collecting them.
type PreferenceService struct {
	repo      preferenceRepository
	instances preferenceInstanceReader
	personnel personnelFinder
	templates preferenceTemplateReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPreferenceService instantiates PreferenceService.
func NewPreferenceService(repo preferenceRepository, instances preferenceInstanceReader, personnel personnelFinder, templates preferenceTemplateReader, validate *validator.Validate, logger *zap.Logger) *PreferenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferenceService{repo: repo, instances: instances, personnel: personnel, templates: templates, validator: validate, logger: logger}
}

// Upsert records or replaces a ranked preference.
func (s *PreferenceService) Upsert(ctx context.Context, instanceID string, req dto.PreferenceUpsertRequest) (*models.PersonnelPreference, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preference payload")
	}
	instance, err := s.instances.FindByID(ctx, instanceID)
	if err != nil {
		return nil, lookupError(err, "schedule instance")
	}
	if instance.Status != models.InstanceStatusPreferencesOpen {
		return nil, appErrors.Clone(appErrors.ErrConflict, "instance is not collecting preferences")
	}
	if _, err := s.personnel.FindByID(ctx, req.PersonnelID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "personnel does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify personnel")
	}
	if _, err := s.templates.FindTemplateByID(ctx, req.ActivityTemplateID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "activity template does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify activity template")
	}

	pref := &models.PersonnelPreference{
		PersonnelID:        req.PersonnelID,
		ScheduleInstanceID: instanceID,
		ActivityTemplateID: req.ActivityTemplateID,
		Rank:               req.Rank,
	}
	if err := s.repo.Upsert(ctx, pref); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save preference")
	}
	return pref, nil
}

// ListByInstance returns every preference recorded for an instance.
func (s *PreferenceService) ListByInstance(ctx context.Context, instanceID string) ([]models.PersonnelPreference, error) {
	if _, err := s.instances.FindByID(ctx, instanceID); err != nil {
		return nil, lookupError(err, "schedule instance")
	}
	prefs, err := s.repo.ListByInstance(ctx, instanceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list preferences")
	}
	return prefs, nil
}

// Delete removes one preference.
func (s *PreferenceService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
