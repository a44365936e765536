package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/campusplan/timetable-api/internal/models"
)

func newEventRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func eventRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "schedule_instance_id", "activity_template_id", "day_of_week", "start_time", "end_time", "room_id", "personnel_ids", "attendee_section_id", "attendee_group_id", "created_at", "updated_at"})
	for _, id := range ids {
		rows.AddRow(id, "inst-1", "tpl-1", "MONDAY", "09:00", "10:00", "room-1", "{per-1}", "sec-1", nil, time.Now(), time.Now())
	}
	return rows
}

func TestEventRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduled_events WHERE 1=1 AND schedule_instance_id = $1 AND day_of_week = $2 AND $3 = ANY(personnel_ids)")).
		WithArgs("inst-1", "MONDAY", "per-1").
		WillReturnRows(eventRows("evt-1"))

	events, err := repo.List(context.Background(), models.EventFilter{
		ScheduleInstanceID: "inst-1",
		DayOfWeek:          "MONDAY",
		PersonnelID:        "per-1",
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "evt-1", events[0].ID)
	require.Equal(t, pq.StringArray{"per-1"}, events[0].PersonnelIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryListByDaySpansInstances(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduled_events WHERE day_of_week = $1 ORDER BY start_time ASC")).
		WithArgs("MONDAY").
		WillReturnRows(eventRows("evt-1", "evt-2"))

	events, err := repo.ListByDay(context.Background(), "MONDAY")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryDeleteAndBulkInsertShareTx(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scheduled_events WHERE schedule_instance_id = $1")).
		WithArgs("inst-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scheduled_events")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByInstance(context.Background(), tx, "inst-1"))

	sectionID := "sec-1"
	events := []models.ScheduledEvent{{
		ScheduleInstanceID: "inst-1",
		ActivityTemplateID: "tpl-1",
		DayOfWeek:          "MONDAY",
		StartTime:          "09:00",
		EndTime:            "10:00",
		PersonnelIDs:       pq.StringArray{"per-1"},
		AttendeeSectionID:  &sectionID,
	}}
	require.NoError(t, repo.BulkInsert(context.Background(), tx, events))
	require.NotEmpty(t, events[0].ID)
	require.False(t, events[0].UpdatedAt.IsZero())

	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryUpdateAssignment(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE scheduled_events SET room_id =")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	roomID := "room-2"
	event := &models.ScheduledEvent{ID: "evt-1", RoomID: &roomID, PersonnelIDs: pq.StringArray{}}
	require.NoError(t, repo.UpdateAssignment(context.Background(), event))
	require.False(t, event.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
