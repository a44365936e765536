package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/campusplan/timetable-api/internal/models"
	appErrors "github.com/campusplan/timetable-api/pkg/errors"
)

type courseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type sectionFinder interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

type personnelFinder interface {
	FindByID(ctx context.Context, id string) (*models.Personnel, error)
}

type roomFinder interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

// PoolMembership verifies that a resource id refers to an existing shared
// master before it enters an instance pool.
type PoolMembership struct {
	courses   courseFinder
	sections  sectionFinder
	personnel personnelFinder
	rooms     roomFinder
}

// NewPoolMembership wires the per-kind lookups.
func NewPoolMembership(courses courseFinder, sections sectionFinder, personnel personnelFinder, rooms roomFinder) *PoolMembership {
	return &PoolMembership{courses: courses, sections: sections, personnel: personnel, rooms: rooms}
}

// Exists returns nil when the resource id is a known master of the given kind.
func (p *PoolMembership) Exists(ctx context.Context, resource, id string) error {
	var err error
	switch resource {
	case "course":
		_, err = p.courses.FindByID(ctx, id)
	case "section":
		_, err = p.sections.FindByID(ctx, id)
	case "personnel":
		_, err = p.personnel.FindByID(ctx, id)
	case "room":
		_, err = p.rooms.FindByID(ctx, id)
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown resource kind %q", resource))
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s %s does not exist", resource, id))
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify pooled resource")
	}
	return nil
}
