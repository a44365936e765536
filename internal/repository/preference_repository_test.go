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

func newPreferenceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPreferenceRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newPreferenceRepoMock(t)
	defer cleanup()

	repo := NewPreferenceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO personnel_preferences")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	pref := &models.PersonnelPreference{
		PersonnelID:        "per-1",
		ScheduleInstanceID: "inst-1",
		ActivityTemplateID: "tpl-1",
		Rank:               2,
	}
	require.NoError(t, repo.Upsert(context.Background(), pref))
	require.NotEmpty(t, pref.ID)
	require.False(t, pref.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferenceRepositoryListByInstance(t *testing.T) {
	db, mock, cleanup := newPreferenceRepoMock(t)
	defer cleanup()

	repo := NewPreferenceRepository(db)
	rows := sqlmock.NewRows([]string{"id", "personnel_id", "schedule_instance_id", "activity_template_id", "rank", "created_at", "updated_at"}).
		AddRow("pref-1", "per-1", "inst-1", "tpl-1", 1, time.Now(), time.Now()).
		AddRow("pref-2", "per-1", "inst-1", "tpl-2", 2, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM personnel_preferences WHERE schedule_instance_id = $1 ORDER BY personnel_id ASC, rank ASC")).
		WithArgs("inst-1").
		WillReturnRows(rows)

	prefs, err := repo.ListByInstance(context.Background(), "inst-1")
	require.NoError(t, err)
	require.Len(t, prefs, 2)
	require.Equal(t, 1, prefs[0].Rank)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferenceRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newPreferenceRepoMock(t)
	defer cleanup()

	repo := NewPreferenceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM personnel_preferences WHERE id = $1")).
		WithArgs("pref-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "pref-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
