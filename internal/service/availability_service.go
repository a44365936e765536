package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusplan/timetable-api/internal/models"
	"github.com/campusplan/timetable-api/internal/timegrid"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
)

type availabilityTemplateRepository interface {
	List(ctx context.Context) ([]models.AvailabilityTemplate, error)
	FindByID(ctx context.Context, id string) (*models.AvailabilityTemplate, error)
	Create(ctx context.Context, template *models.AvailabilityTemplate) error
	ReplaceBlocks(ctx context.Context, templateID string, blocks []models.AvailabilityBlock) error
	Delete(ctx context.Context, id string) error
	CountReferences(ctx context.Context, id string) (int, error)
}

// AvailabilityBlockRequest is one day/time interval in a template payload.
type AvailabilityBlockRequest struct {
	DayOfWeek string `json:"day_of_week" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// CreateAvailabilityTemplateRequest describes payload for creating a template.
type CreateAvailabilityTemplateRequest struct {
	Name   string                     `json:"name" validate:"required"`
	Blocks []AvailabilityBlockRequest `json:"blocks" validate:"dive"`
}

// ReplaceBlocksRequest swaps a template's block set wholesale.
type ReplaceBlocksRequest struct {
	Blocks []AvailabilityBlockRequest `json:"blocks" validate:"dive"`
}

// ResolvedAvailability is the solver-facing view of a template: the deduped,
// ascending set of global slot indices plus the distinct days they span.
type ResolvedAvailability struct {
	Slots []int    `json:"time_slots"`
	Days  []string `json:"days"`
}

// AvailabilityService manages availability templates and resolves them into
// the flat slot domain the solver consumes.
type AvailabilityService struct {
	repo      availabilityTemplateRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService instantiates AvailabilityService.
func NewAvailabilityService(repo availabilityTemplateRepository, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, validator: validate, logger: logger}
}

// List returns all availability templates.
func (s *AvailabilityService) List(ctx context.Context) ([]models.AvailabilityTemplate, error) {
	templates, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability templates")
	}
	return templates, nil
}

// Get returns a template with its blocks.
func (s *AvailabilityService) Get(ctx context.Context, id string) (*models.AvailabilityTemplate, error) {
	template, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "availability template")
	}
	return template, nil
}

// Create validates and stores a template with its blocks.
func (s *AvailabilityService) Create(ctx context.Context, req CreateAvailabilityTemplateRequest) (*models.AvailabilityTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability template payload")
	}
	blocks, err := buildBlocks(req.Blocks)
	if err != nil {
		return nil, err
	}
	template := &models.AvailabilityTemplate{Name: req.Name, Blocks: blocks}
	if err := s.repo.Create(ctx, template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability template")
	}
	return template, nil
}

// ReplaceBlocks swaps the block set of an existing template.
func (s *AvailabilityService) ReplaceBlocks(ctx context.Context, templateID string, req ReplaceBlocksRequest) (*models.AvailabilityTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability blocks payload")
	}
	if _, err := s.repo.FindByID(ctx, templateID); err != nil {
		return nil, lookupError(err, "availability template")
	}
	blocks, err := buildBlocks(req.Blocks)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceBlocks(ctx, templateID, blocks); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace availability blocks")
	}
	template, err := s.repo.FindByID(ctx, templateID)
	if err != nil {
		return nil, lookupError(err, "availability template")
	}
	return template, nil
}

// Delete removes a template unless a schedule instance still references it.
func (s *AvailabilityService) Delete(ctx context.Context, id string) error {
	count, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check template references")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "availability template is referenced by schedule instances")
	}
	return s.repo.Delete(ctx, id)
}

// ResolveTemplate loads a template and flattens it into global slots.
func (s *AvailabilityService) ResolveTemplate(ctx context.Context, templateID string) (*ResolvedAvailability, error) {
	template, err := s.repo.FindByID(ctx, templateID)
	if err != nil {
		return nil, lookupError(err, "availability template")
	}
	return Resolve(template)
}

// Resolve flattens a template's blocks into the sorted, deduped set of global
// slot indices and the distinct days covered. Overlapping blocks collapse. A
// template without blocks cannot host a solve.
func Resolve(template *models.AvailabilityTemplate) (*ResolvedAvailability, error) {
	if template == nil || len(template.Blocks) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "availability template has no blocks")
	}

	slotSet := make(map[int]struct{})
	daySet := make(map[int]struct{})
	for _, block := range template.Blocks {
		dayIdx, err := timegrid.DayIndex(block.DayOfWeek)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability block day")
		}
		start, err := timegrid.TimeToSlot(block.StartTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability block start")
		}
		end, err := timegrid.TimeToSlot(block.EndTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability block end")
		}
		if end <= start {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("availability block %s ends before it starts", block.ID))
		}
		daySet[dayIdx] = struct{}{}
		for slot := start; slot < end; slot++ {
			slotSet[timegrid.GlobalSlot(dayIdx, slot)] = struct{}{}
		}
	}

	slots := make([]int, 0, len(slotSet))
	for slot := range slotSet {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	days := make([]string, 0, len(daySet))
	for idx, day := range timegrid.Weekdays {
		if _, ok := daySet[idx]; ok {
			days = append(days, day)
		}
	}

	return &ResolvedAvailability{Slots: slots, Days: days}, nil
}

func buildBlocks(reqs []AvailabilityBlockRequest) ([]models.AvailabilityBlock, error) {
	blocks := make([]models.AvailabilityBlock, 0, len(reqs))
	for i, req := range reqs {
		day, err := timegrid.CanonicalDay(req.DayOfWeek)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("block %d: %v", i, err))
		}
		start, err := timegrid.TimeToSlot(req.StartTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("block %d: %v", i, err))
		}
		end, err := timegrid.TimeToSlot(req.EndTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("block %d: %v", i, err))
		}
		if end <= start {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("block %d: end must be after start", i))
		}
		blocks = append(blocks, models.AvailabilityBlock{
			DayOfWeek: day,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
		})
	}
	return blocks, nil
}
