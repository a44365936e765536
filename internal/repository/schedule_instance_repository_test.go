package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campusplan/timetable-api/internal/models"
)

func newInstanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func instanceRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "name", "start_date", "end_date", "status", "availability_template_id", "room_stickiness_weight", "spacing_preference", "time_preferences", "created_at", "updated_at"})
	for _, id := range ids {
		rows.AddRow(id, "Autumn term", time.Now(), time.Now().AddDate(0, 4, 0), "DRAFT", "avail-1", 5, "NONE", []byte(`[]`), time.Now(), time.Now())
	}
	return rows
}

func TestScheduleInstanceRepositoryListWithStatusFilter(t *testing.T) {
	db, mock, cleanup := newInstanceRepoMock(t)
	defer cleanup()

	repo := NewScheduleInstanceRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_instances WHERE 1=1 AND status = $1 ORDER BY start_date DESC")).
		WithArgs(models.InstanceStatusDraft).
		WillReturnRows(instanceRows("inst-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schedule_instances WHERE 1=1 AND status = $1")).
		WithArgs(models.InstanceStatusDraft).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	instances, total, err := repo.List(context.Background(), models.InstanceFilter{Status: models.InstanceStatusDraft})
	require.NoError(t, err)
	require.Len(t, instances, 1)
	require.Equal(t, 1, total)
	require.Equal(t, models.InstanceStatusDraft, instances[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleInstanceRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newInstanceRepoMock(t)
	defer cleanup()

	repo := NewScheduleInstanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_instances")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	instance := &models.ScheduleInstance{
		Name:      "Autumn term",
		StartDate: time.Now(),
		EndDate:   time.Now().AddDate(0, 4, 0),
		Status:    models.InstanceStatusDraft,
	}
	require.NoError(t, repo.Create(context.Background(), instance))
	require.NotEmpty(t, instance.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleInstanceRepositoryUpdateStatusInTx(t *testing.T) {
	db, mock, cleanup := newInstanceRepoMock(t)
	defer cleanup()

	repo := NewScheduleInstanceRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_instances SET status = $1")).
		WithArgs(models.InstanceStatusCompleted, sqlmock.AnyArg(), "inst-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(context.Background(), tx, "inst-1", models.InstanceStatusCompleted))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleInstanceRepositoryUpdateStatusWithoutTx(t *testing.T) {
	db, mock, cleanup := newInstanceRepoMock(t)
	defer cleanup()

	repo := NewScheduleInstanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_instances SET status = $1")).
		WithArgs(models.InstanceStatusLocked, sqlmock.AnyArg(), "inst-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), nil, "inst-1", models.InstanceStatusLocked))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleInstanceRepositoryPoolMembership(t *testing.T) {
	db, mock, cleanup := newInstanceRepoMock(t)
	defer cleanup()

	repo := NewScheduleInstanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_instance_courses")).
		WithArgs("inst-1", "crs-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT resource_id FROM schedule_instance_courses WHERE schedule_instance_id = $1 ORDER BY resource_id ASC")).
		WithArgs("inst-1").
		WillReturnRows(sqlmock.NewRows([]string{"resource_id"}).AddRow("crs-1"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_instance_courses WHERE schedule_instance_id = $1 AND resource_id = $2")).
		WithArgs("inst-1", "crs-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AssignResource(context.Background(), "inst-1", "course", "crs-1"))

	ids, err := repo.ListResourceIDs(context.Background(), "inst-1", "course")
	require.NoError(t, err)
	require.Equal(t, []string{"crs-1"}, ids)

	require.NoError(t, repo.UnassignResource(context.Background(), "inst-1", "course", "crs-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleInstanceRepositoryRejectsUnknownResource(t *testing.T) {
	db, _, cleanup := newInstanceRepoMock(t)
	defer cleanup()

	repo := NewScheduleInstanceRepository(db)
	require.Error(t, repo.AssignResource(context.Background(), "inst-1", "vehicle", "v-1"))
	_, err := repo.ListResourceIDs(context.Background(), "inst-1", "vehicle")
	require.Error(t, err)
}
