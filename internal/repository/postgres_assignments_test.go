package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitelink-data/internal/domain"
)

func setupAssignmentsMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresAssignmentsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresAssignmentsRepository(db)
}

func TestFindCrewForLotPhase_MostRecentActive(t *testing.T) {
	db, mock, repo := setupAssignmentsMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT crew_id::text`).
		WithArgs("tenant-1", "lot-1", "roof").
		WillReturnRows(sqlmock.NewRows([]string{"crew_id"}).AddRow("crew-9"))

	crewID, err := repo.FindCrewForLotPhase(context.Background(), "tenant-1", "lot-1", domain.PhaseRoof)
	require.NoError(t, err)
	assert.Equal(t, "crew-9", crewID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCrewForLotPhase_NoAssignment(t *testing.T) {
	db, mock, repo := setupAssignmentsMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT crew_id::text`).
		WithArgs("tenant-1", "lot-1", "roof").
		WillReturnError(sql.ErrNoRows)

	crewID, err := repo.FindCrewForLotPhase(context.Background(), "tenant-1", "lot-1", domain.PhaseRoof)
	require.NoError(t, err)
	assert.Equal(t, "", crewID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAssignment_DuplicateActive(t *testing.T) {
	db, mock, repo := setupAssignmentsMock(t)
	defer db.Close()

	// 部分唯一索引冲突映射为领域错误
	mock.ExpectQuery(`INSERT INTO phase_assignments`).
		WithArgs("tenant-1", "lot-1", "roof", "crew-9", "assigned", "user-1").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.CreateAssignment(context.Background(), "tenant-1", &domain.PhaseAssignment{
		LotID:      "lot-1",
		PhaseID:    domain.PhaseRoof,
		CrewID:     "crew-9",
		AssignedBy: "user-1",
	})
	assert.ErrorIs(t, err, domain.ErrAssignmentActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAssignment_InvalidPhase(t *testing.T) {
	db, _, repo := setupAssignmentsMock(t)
	defer db.Close()

	_, err := repo.CreateAssignment(context.Background(), "tenant-1", &domain.PhaseAssignment{
		LotID:      "lot-1",
		PhaseID:    domain.PhaseID("landscaping"),
		CrewID:     "crew-9",
		AssignedBy: "user-1",
	})
	assert.ErrorIs(t, err, domain.ErrPhaseNotFound)
}
