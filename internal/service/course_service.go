package service

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/campusplan/timetable-api/internal/models"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	ListTemplates(ctx context.Context, courseID string) ([]models.ActivityTemplate, error)
	FindTemplateByID(ctx context.Context, id string) (*models.ActivityTemplate, error)
	CreateTemplate(ctx context.Context, template *models.ActivityTemplate) error
	DeleteTemplate(ctx context.Context, id string) error
}

// CreateCourseRequest describes payload for creating a course.
type CreateCourseRequest struct {
	Code  string `json:"code" validate:"required"`
	Title string `json:"title" validate:"required"`
}

// UpdateCourseRequest updates an existing course.
type UpdateCourseRequest struct {
	Code  string `json:"code" validate:"required"`
	Title string `json:"title" validate:"required"`
}

// CreateActivityTemplateRequest adds a recurring activity to a course.
type CreateActivityTemplateRequest struct {
	Title           string                        `json:"title" validate:"required"`
	DurationMinutes int                           `json:"duration_minutes" validate:"required,min=1"`
	RoomType        string                        `json:"room_type" validate:"required"`
	AttendeeLevel   models.AttendeeLevel          `json:"attendee_level" validate:"required"`
	Requirements    []models.PersonnelRequirement `json:"requirements"`
}

// CourseService manages shared course masters and their activity templates.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService instantiates CourseService.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// List returns courses matching the filter.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, total, nil
}

// Get returns one course with its activity templates.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "course")
	}
	templates, err := s.repo.ListTemplates(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity templates")
	}
	course.ActivityTemplates = templates
	return course, nil
}

// Create validates and stores a course.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{Code: req.Code, Title: req.Title}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Update modifies a course.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "course")
	}
	course.Code = req.Code
	course.Title = req.Title
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Delete removes a course.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return lookupError(err, "course")
	}
	return s.repo.Delete(ctx, id)
}

// AddTemplate attaches an activity template to a course.
func (s *CourseService) AddTemplate(ctx context.Context, courseID string, req CreateActivityTemplateRequest) (*models.ActivityTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity template payload")
	}
	if !req.AttendeeLevel.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "attendee_level must be SECTION or GROUP")
	}
	if _, err := s.repo.FindByID(ctx, courseID); err != nil {
		return nil, lookupError(err, "course")
	}

	requirements := req.Requirements
	if requirements == nil {
		requirements = []models.PersonnelRequirement{}
	}
	for _, requirement := range requirements {
		if requirement.Role == "" || requirement.Count < 1 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "each requirement needs a role and a positive count")
		}
	}
	reqBytes, err := json.Marshal(requirements)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode requirements")
	}

	template := &models.ActivityTemplate{
		CourseID:        courseID,
		Title:           req.Title,
		DurationMinutes: req.DurationMinutes,
		RoomType:        req.RoomType,
		AttendeeLevel:   req.AttendeeLevel,
		Requirements:    types.JSONText(reqBytes),
	}
	if err := s.repo.CreateTemplate(ctx, template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create activity template")
	}
	return template, nil
}

// RemoveTemplate detaches an activity template from its course.
func (s *CourseService) RemoveTemplate(ctx context.Context, templateID string) error {
	if _, err := s.repo.FindTemplateByID(ctx, templateID); err != nil {
		return lookupError(err, "activity template")
	}
	return s.repo.DeleteTemplate(ctx, templateID)
}
