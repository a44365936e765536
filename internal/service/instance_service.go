package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/campusplan/timetable-api/internal/models"
	"github.com/campusplan/timetable-api/internal/timegrid"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
)

type instanceRepository interface {
	List(ctx context.Context, filter models.InstanceFilter) ([]models.ScheduleInstance, int, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleInstance, error)
	Create(ctx context.Context, instance *models.ScheduleInstance) error
	Update(ctx context.Context, instance *models.ScheduleInstance) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.InstanceStatus) error
	Delete(ctx context.Context, id string) error
	AssignResource(ctx context.Context, instanceID, resource, resourceID string) error
	UnassignResource(ctx context.Context, instanceID, resource, resourceID string) error
	ListResourceIDs(ctx context.Context, instanceID, resource string) ([]string, error)
}

type instanceTemplateReader interface {
	FindByID(ctx context.Context, id string) (*models.AvailabilityTemplate, error)
}

type poolMemberChecker interface {
	Exists(ctx context.Context, resource, id string) error
}

const instanceDateLayout = "2006-01-02"

// CreateInstanceRequest describes payload for creating a schedule instance.
type CreateInstanceRequest struct {
	Name                   string                   `json:"name" validate:"required"`
	StartDate              string                   `json:"start_date" validate:"required"`
	EndDate                string                   `json:"end_date" validate:"required"`
	AvailabilityTemplateID *string                  `json:"availability_template_id"`
	RoomStickinessWeight   int                      `json:"room_stickiness_weight" validate:"min=0"`
	SpacingPreference      models.SpacingPreference `json:"spacing_preference"`
	TimePreferences        []models.TimePreference  `json:"time_preferences"`
}

// UpdateInstanceRequest updates an existing schedule instance.
type UpdateInstanceRequest struct {
	Name                   string                   `json:"name" validate:"required"`
	StartDate              string                   `json:"start_date" validate:"required"`
	EndDate                string                   `json:"end_date" validate:"required"`
	AvailabilityTemplateID *string                  `json:"availability_template_id"`
	RoomStickinessWeight   int                      `json:"room_stickiness_weight" validate:"min=0"`
	SpacingPreference      models.SpacingPreference `json:"spacing_preference"`
	TimePreferences        []models.TimePreference  `json:"time_preferences"`
}

// InstancePool lists the ids pooled into an instance per resource kind.
type InstancePool struct {
	Courses   []string `json:"courses"`
	Sections  []string `json:"sections"`
	Personnel []string `json:"personnel"`
	Rooms     []string `json:"rooms"`
}

// InstanceService manages schedule instance lifecycle and resource pooling.
type InstanceService struct {
	repo      instanceRepository
	templates instanceTemplateReader
	members   poolMemberChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInstanceService instantiates InstanceService.
func NewInstanceService(repo instanceRepository, templates instanceTemplateReader, members poolMemberChecker, validate *validator.Validate, logger *zap.Logger) *InstanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstanceService{repo: repo, templates: templates, members: members, validator: validate, logger: logger}
}

// List returns schedule instances matching the filter.
func (s *InstanceService) List(ctx context.Context, filter models.InstanceFilter) ([]models.ScheduleInstance, int, error) {
	instances, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule instances")
	}
	return instances, total, nil
}

// Get returns one schedule instance.
func (s *InstanceService) Get(ctx context.Context, id string) (*models.ScheduleInstance, error) {
	instance, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "schedule instance")
	}
	return instance, nil
}

// Create validates and stores a new DRAFT instance.
func (s *InstanceService) Create(ctx context.Context, req CreateInstanceRequest) (*models.ScheduleInstance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule instance payload")
	}
	instance := &models.ScheduleInstance{Status: models.InstanceStatusDraft}
	if err := s.applyRequest(ctx, instance, req.Name, req.StartDate, req.EndDate, req.AvailabilityTemplateID, req.RoomStickinessWeight, req.SpacingPreference, req.TimePreferences); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, instance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule instance")
	}
	return instance, nil
}

// Update modifies an instance's settings. Locked instances cannot change.
func (s *InstanceService) Update(ctx context.Context, id string, req UpdateInstanceRequest) (*models.ScheduleInstance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule instance payload")
	}
	instance, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "schedule instance")
	}
	if instance.Status == models.InstanceStatusLocked {
		return nil, appErrors.Clone(appErrors.ErrLocked, "cannot modify an instance while a solve is in progress")
	}
	if err := s.applyRequest(ctx, instance, req.Name, req.StartDate, req.EndDate, req.AvailabilityTemplateID, req.RoomStickinessWeight, req.SpacingPreference, req.TimePreferences); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, instance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule instance")
	}
	return instance, nil
}

// Delete removes an instance. Locked instances cannot be deleted.
func (s *InstanceService) Delete(ctx context.Context, id string) error {
	instance, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "schedule instance")
	}
	if instance.Status == models.InstanceStatusLocked {
		return appErrors.Clone(appErrors.ErrLocked, "cannot delete an instance while a solve is in progress")
	}
	return s.repo.Delete(ctx, id)
}

// SetStatus moves an instance to a new lifecycle phase. LOCKED is owned by
// the solve lifecycle and cannot be entered manually.
func (s *InstanceService) SetStatus(ctx context.Context, id string, status models.InstanceStatus) (*models.ScheduleInstance, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", status))
	}
	if status == models.InstanceStatusLocked {
		return nil, appErrors.Clone(appErrors.ErrValidation, "LOCKED is managed by the solve lifecycle")
	}
	instance, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "schedule instance")
	}
	if err := instance.Transition(status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "illegal status transition")
	}
	if err := s.repo.UpdateStatus(ctx, nil, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update instance status")
	}
	return instance, nil
}

// AssignResource adds a shared resource to the instance's pool.
func (s *InstanceService) AssignResource(ctx context.Context, id, resource, resourceID string) error {
	instance, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "schedule instance")
	}
	if instance.Status == models.InstanceStatusLocked {
		return appErrors.Clone(appErrors.ErrLocked, "cannot modify the pool while a solve is in progress")
	}
	if s.members != nil {
		if err := s.members.Exists(ctx, resource, resourceID); err != nil {
			return err
		}
	}
	if err := s.repo.AssignResource(ctx, id, resource, resourceID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign resource")
	}
	return nil
}

// UnassignResource removes a shared resource from the instance's pool.
func (s *InstanceService) UnassignResource(ctx context.Context, id, resource, resourceID string) error {
	instance, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "schedule instance")
	}
	if instance.Status == models.InstanceStatusLocked {
		return appErrors.Clone(appErrors.ErrLocked, "cannot modify the pool while a solve is in progress")
	}
	if err := s.repo.UnassignResource(ctx, id, resource, resourceID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unassign resource")
	}
	return nil
}

// Pool returns every pooled resource id grouped by kind.
func (s *InstanceService) Pool(ctx context.Context, id string) (*InstancePool, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, lookupError(err, "schedule instance")
	}
	pool := &InstancePool{}
	kinds := []struct {
		resource string
		target   *[]string
	}{
		{"course", &pool.Courses},
		{"section", &pool.Sections},
		{"personnel", &pool.Personnel},
		{"room", &pool.Rooms},
	}
	for _, kind := range kinds {
		ids, err := s.repo.ListResourceIDs(ctx, id, kind.resource)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pooled resources")
		}
		*kind.target = ids
	}
	return pool, nil
}

func (s *InstanceService) applyRequest(ctx context.Context, instance *models.ScheduleInstance, name, startDate, endDate string, templateID *string, stickiness int, spacing models.SpacingPreference, timePrefs []models.TimePreference) error {
	start, err := time.Parse(instanceDateLayout, startDate)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse(instanceDateLayout, endDate)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "end_date must be YYYY-MM-DD")
	}
	if !end.After(start) {
		return appErrors.Clone(appErrors.ErrValidation, "end_date must be after start_date")
	}

	if spacing == "" {
		spacing = models.SpacingPreferenceNone
	}
	switch spacing {
	case models.SpacingPreferenceNone, models.SpacingPreferenceSpread, models.SpacingPreferenceCluster:
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown spacing preference %q", spacing))
	}

	for _, pref := range timePrefs {
		if _, err := timegrid.TimeToSlot(pref.Time); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time preference")
		}
		if pref.Rank < 1 {
			return appErrors.Clone(appErrors.ErrValidation, "time preference rank must be positive")
		}
	}
	prefBytes, err := json.Marshal(timePrefs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode time preferences")
	}

	if templateID != nil {
		if _, err := s.templates.FindByID(ctx, *templateID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("availability template %s does not exist", *templateID))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify availability template")
		}
	}

	instance.Name = name
	instance.StartDate = start
	instance.EndDate = end
	instance.AvailabilityTemplateID = templateID
	instance.RoomStickinessWeight = stickiness
	instance.SpacingPreference = spacing
	instance.TimePreferences = types.JSONText(prefBytes)
	return nil
}
