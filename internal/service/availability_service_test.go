package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusplan/timetable-api/internal/models"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
)

type availabilityRepoStub struct {
	templates  map[string]*models.AvailabilityTemplate
	references int
	created    *models.AvailabilityTemplate
}

func (m *availabilityRepoStub) List(ctx context.Context) ([]models.AvailabilityTemplate, error) {
	out := make([]models.AvailabilityTemplate, 0, len(m.templates))
	for _, template := range m.templates {
		out = append(out, *template)
	}
	return out, nil
}

func (m *availabilityRepoStub) FindByID(ctx context.Context, id string) (*models.AvailabilityTemplate, error) {
	template, ok := m.templates[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *template
	return &cp, nil
}

func (m *availabilityRepoStub) Create(ctx context.Context, template *models.AvailabilityTemplate) error {
	m.created = template
	return nil
}

func (m *availabilityRepoStub) ReplaceBlocks(ctx context.Context, templateID string, blocks []models.AvailabilityBlock) error {
	m.templates[templateID].Blocks = blocks
	return nil
}

func (m *availabilityRepoStub) Delete(ctx context.Context, id string) error {
	delete(m.templates, id)
	return nil
}

func (m *availabilityRepoStub) CountReferences(ctx context.Context, id string) (int, error) {
	return m.references, nil
}

func TestResolveMergesOverlappingBlocks(t *testing.T) {
	template := &models.AvailabilityTemplate{
		ID:   "tpl-1",
		Name: "Core week",
		Blocks: []models.AvailabilityBlock{
			{DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "11:00"},
			{DayOfWeek: "MONDAY", StartTime: "10:00", EndTime: "12:00"},
		},
	}

	resolved, err := Resolve(template)
	require.NoError(t, err)

	// MONDAY 09:00-12:00 is slots 18..23 on day 0.
	assert.Equal(t, []int{18, 19, 20, 21, 22, 23}, resolved.Slots)
	assert.Equal(t, []string{"MONDAY"}, resolved.Days)
}

func TestResolveLowercaseDayKeepsDayListed(t *testing.T) {
	template := &models.AvailabilityTemplate{
		ID: "tpl-1",
		Blocks: []models.AvailabilityBlock{
			{DayOfWeek: "monday", StartTime: "09:00", EndTime: "10:00"},
		},
	}

	resolved, err := Resolve(template)
	require.NoError(t, err)

	assert.Equal(t, []string{"MONDAY"}, resolved.Days)
	assert.Equal(t, []int{18, 19}, resolved.Slots)
}

func TestResolveOrdersDaysAndSlots(t *testing.T) {
	template := &models.AvailabilityTemplate{
		ID: "tpl-1",
		Blocks: []models.AvailabilityBlock{
			{DayOfWeek: "WEDNESDAY", StartTime: "08:00", EndTime: "09:00"},
			{DayOfWeek: "MONDAY", StartTime: "08:00", EndTime: "09:00"},
		},
	}

	resolved, err := Resolve(template)
	require.NoError(t, err)

	assert.Equal(t, []string{"MONDAY", "WEDNESDAY"}, resolved.Days)
	assert.Equal(t, []int{16, 17, 2*48 + 16, 2*48 + 17}, resolved.Slots)
}

func TestResolveEmptyTemplateFails(t *testing.T) {
	_, err := Resolve(&models.AvailabilityTemplate{ID: "tpl-1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestResolveRejectsInvertedBlock(t *testing.T) {
	_, err := Resolve(&models.AvailabilityTemplate{
		ID: "tpl-1",
		Blocks: []models.AvailabilityBlock{
			{DayOfWeek: "MONDAY", StartTime: "11:00", EndTime: "09:00"},
		},
	})
	require.Error(t, err)
}

func TestCreateTemplateRejectsOffBoundaryTime(t *testing.T) {
	repo := &availabilityRepoStub{templates: map[string]*models.AvailabilityTemplate{}}
	service := NewAvailabilityService(repo, validator.New(), zap.NewNop())

	_, err := service.Create(context.Background(), CreateAvailabilityTemplateRequest{
		Name: "Oddball",
		Blocks: []AvailabilityBlockRequest{
			{DayOfWeek: "MONDAY", StartTime: "09:15", EndTime: "10:00"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestCreateTemplateCanonicalizesDayNames(t *testing.T) {
	repo := &availabilityRepoStub{templates: map[string]*models.AvailabilityTemplate{}}
	service := NewAvailabilityService(repo, validator.New(), zap.NewNop())

	template, err := service.Create(context.Background(), CreateAvailabilityTemplateRequest{
		Name: "Lowercase input",
		Blocks: []AvailabilityBlockRequest{
			{DayOfWeek: "monday", StartTime: "09:00", EndTime: "10:00"},
		},
	})
	require.NoError(t, err)
	require.Len(t, template.Blocks, 1)
	assert.Equal(t, "MONDAY", template.Blocks[0].DayOfWeek)
}

func TestGetTemplateUnknownIDIsNotFound(t *testing.T) {
	repo := &availabilityRepoStub{templates: map[string]*models.AvailabilityTemplate{}}
	service := NewAvailabilityService(repo, validator.New(), zap.NewNop())

	_, err := service.Get(context.Background(), "tpl-missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestDeleteTemplateBlockedByReferences(t *testing.T) {
	repo := &availabilityRepoStub{
		templates:  map[string]*models.AvailabilityTemplate{"tpl-1": {ID: "tpl-1"}},
		references: 2,
	}
	service := NewAvailabilityService(repo, validator.New(), zap.NewNop())

	err := service.Delete(context.Background(), "tpl-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
