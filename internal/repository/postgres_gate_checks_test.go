package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitelink-data/internal/domain"
)

func setupGateChecksMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresGateChecksRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresGateChecksRepository(db)
}

func TestCreateGateCheck_Success(t *testing.T) {
	db, mock, repo := setupGateChecksMock(t)
	defer db.Close()

	startedAt := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO gate_checks`).
		WithArgs("tenant-1", "lot-1", "framing_to_roofing", "user-1", startedAt).
		WillReturnRows(sqlmock.NewRows([]string{"gate_check_id"}).AddRow("gc-1"))
	mock.ExpectExec(`INSERT INTO gate_check_items`).
		WithArgs("tenant-1", "gc-1", "anchor_bolts", "Anchor bolts torqued and capped", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO gate_check_items`).
		WithArgs("tenant-1", "gc-1", "wall_plumb", "Walls plumb within tolerance", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := repo.CreateGateCheck(context.Background(), "tenant-1",
		&domain.GateCheck{
			LotID:      "lot-1",
			Transition: domain.TransitionFramingToRoofing,
			CheckedBy:  "user-1",
			StartedAt:  startedAt,
		},
		[]*domain.GateCheckItem{
			{ItemCode: "anchor_bolts", ItemLabel: "Anchor bolts torqued and capped", SortOrder: 1},
			{ItemCode: "wall_plumb", ItemLabel: "Walls plumb within tolerance", SortOrder: 2},
		})
	require.NoError(t, err)
	assert.Equal(t, "gc-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGateCheck_AlreadyInFlight(t *testing.T) {
	db, mock, repo := setupGateChecksMock(t)
	defer db.Close()

	startedAt := time.Now()
	mock.ExpectBegin()
	// 部分唯一索引：同一 (lot, transition) 只允许一条 in_progress
	mock.ExpectQuery(`INSERT INTO gate_checks`).
		WithArgs("tenant-1", "lot-1", "framing_to_roofing", "user-1", startedAt).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.CreateGateCheck(context.Background(), "tenant-1",
		&domain.GateCheck{
			LotID:      "lot-1",
			Transition: domain.TransitionFramingToRoofing,
			CheckedBy:  "user-1",
			StartedAt:  startedAt,
		}, nil)
	assert.ErrorIs(t, err, domain.ErrGateCheckInFlight)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteGateCheck_Success(t *testing.T) {
	db, mock, repo := setupGateChecksMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`UPDATE gate_checks`).
		WithArgs("tenant-1", "gc-1", "passed", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CompleteGateCheck(context.Background(), "tenant-1", "gc-1", &Completion{
		Status:      domain.GateCheckPassed,
		CompletedAt: now,
		ReleasedAt:  &now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteGateCheck_ItemsStillPending(t *testing.T) {
	db, mock, repo := setupGateChecksMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`UPDATE gate_checks`).
		WithArgs("tenant-1", "gc-1", "failed", now, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status FROM gate_checks`).
		WithArgs("tenant-1", "gc-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("in_progress"))

	err := repo.CompleteGateCheck(context.Background(), "tenant-1", "gc-1", &Completion{
		Status:      domain.GateCheckFailed,
		CompletedAt: now,
	})
	assert.ErrorIs(t, err, domain.ErrItemsPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteGateCheck_AlreadyTerminal(t *testing.T) {
	db, mock, repo := setupGateChecksMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`UPDATE gate_checks`).
		WithArgs("tenant-1", "gc-1", "passed", now, now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status FROM gate_checks`).
		WithArgs("tenant-1", "gc-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("failed"))

	err := repo.CompleteGateCheck(context.Background(), "tenant-1", "gc-1", &Completion{
		Status:      domain.GateCheckPassed,
		CompletedAt: now,
		ReleasedAt:  &now,
	})
	assert.ErrorIs(t, err, domain.ErrGateCheckDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}
