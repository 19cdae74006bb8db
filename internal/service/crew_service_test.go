package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sitelink-data/internal/domain"
	"sitelink-data/internal/repository"
)

type crewFixture struct {
	lotsRepo        *repository.MemoryLotsRepository
	crewsRepo       *repository.MemoryCrewsRepository
	assignmentsRepo *repository.MemoryAssignmentsRepository
	service         CrewService
	routing         RoutingService
	lotID           string
	crewID          string
}

func newCrewFixture(t *testing.T) *crewFixture {
	f := &crewFixture{
		lotsRepo:        repository.NewMemoryLotsRepository(),
		crewsRepo:       repository.NewMemoryCrewsRepository(),
		assignmentsRepo: repository.NewMemoryAssignmentsRepository(),
	}
	logger := zap.NewNop()
	f.service = NewCrewService(f.crewsRepo, f.assignmentsRepo, f.lotsRepo, logger)
	f.routing = NewRoutingService(f.assignmentsRepo, logger)

	ctx := context.Background()
	lotID, err := f.lotsRepo.CreateLot(ctx, testTenant, &domain.Lot{
		JobsiteID: "22222222-2222-2222-2222-222222222222",
		LotNumber: "L-104",
		Status:    domain.LotInProgress,
	})
	require.NoError(t, err)
	f.lotID = lotID

	crewID, err := f.crewsRepo.CreateCrew(ctx, testTenant, &domain.Crew{
		CrewName:  "Northside Framers",
		LeadName:  "Pat Reyes",
		Specialty: "framing",
	})
	require.NoError(t, err)
	f.crewID = crewID

	return f
}

func (f *crewFixture) assign(t *testing.T, phase domain.PhaseID) *domain.PhaseAssignment {
	a, err := f.service.AssignCrew(context.Background(), AssignCrewRequest{
		TenantID:   testTenant,
		LotID:      f.lotID,
		Phase:      phase,
		CrewID:     f.crewID,
		AssignedBy: "super-1",
	})
	require.NoError(t, err)
	return a
}

func TestAssignCrew(t *testing.T) {
	f := newCrewFixture(t)

	a := f.assign(t, domain.PhaseWalls1)
	assert.Equal(t, domain.AssignmentAssigned, a.Status)
	assert.Equal(t, f.crewID, a.CrewID)
	assert.Equal(t, domain.PhaseWalls1, a.PhaseID)
}

func TestAssignCrew_DuplicateActiveRejected(t *testing.T) {
	f := newCrewFixture(t)

	f.assign(t, domain.PhaseWalls1)

	_, err := f.service.AssignCrew(context.Background(), AssignCrewRequest{
		TenantID:   testTenant,
		LotID:      f.lotID,
		Phase:      domain.PhaseWalls1,
		CrewID:     f.crewID,
		AssignedBy: "super-1",
	})
	assert.ErrorIs(t, err, domain.ErrAssignmentActive)
}

func TestAssignCrew_CancelledFreesSlot(t *testing.T) {
	f := newCrewFixture(t)
	ctx := context.Background()

	a := f.assign(t, domain.PhaseWalls1)

	_, err := f.service.SetAssignmentStatus(ctx, testTenant, a.AssignmentID, domain.AssignmentCancelled)
	require.NoError(t, err)

	// 取消后可以重新派工
	replacement := f.assign(t, domain.PhaseWalls1)
	assert.NotEqual(t, a.AssignmentID, replacement.AssignmentID)
}

func TestAssignCrew_UnknownPhaseOrCrew(t *testing.T) {
	f := newCrewFixture(t)
	ctx := context.Background()

	_, err := f.service.AssignCrew(ctx, AssignCrewRequest{
		TenantID:   testTenant,
		LotID:      f.lotID,
		Phase:      domain.PhaseID("landscaping"),
		CrewID:     f.crewID,
		AssignedBy: "super-1",
	})
	assert.ErrorIs(t, err, domain.ErrPhaseNotFound)

	_, err = f.service.AssignCrew(ctx, AssignCrewRequest{
		TenantID:   testTenant,
		LotID:      f.lotID,
		Phase:      domain.PhaseWalls1,
		CrewID:     "44444444-4444-4444-4444-444444444444",
		AssignedBy: "super-1",
	})
	assert.ErrorIs(t, err, domain.ErrCrewNotFound)
}

func TestSetAssignmentStatus_StateMachine(t *testing.T) {
	f := newCrewFixture(t)
	ctx := context.Background()

	a := f.assign(t, domain.PhaseWalls1)

	// assigned → completed 非法（必须先 started）
	_, err := f.service.SetAssignmentStatus(ctx, testTenant, a.AssignmentID, domain.AssignmentCompleted)
	assert.ErrorIs(t, err, domain.ErrInvalidAssignmentStatus)

	started, err := f.service.SetAssignmentStatus(ctx, testTenant, a.AssignmentID, domain.AssignmentStarted)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStarted, started.Status)
	assert.NotNil(t, started.StartedAt)

	completed, err := f.service.SetAssignmentStatus(ctx, testTenant, a.AssignmentID, domain.AssignmentCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	// completed 之后只能取消
	_, err = f.service.SetAssignmentStatus(ctx, testTenant, a.AssignmentID, domain.AssignmentStarted)
	assert.ErrorIs(t, err, domain.ErrInvalidAssignmentStatus)

	cancelled, err := f.service.SetAssignmentStatus(ctx, testTenant, a.AssignmentID, domain.AssignmentCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentCancelled, cancelled.Status)

	// cancelled 是终态
	_, err = f.service.SetAssignmentStatus(ctx, testTenant, a.AssignmentID, domain.AssignmentCancelled)
	assert.ErrorIs(t, err, domain.ErrInvalidAssignmentStatus)
}

func TestRouting_CrewLotsAndPhases(t *testing.T) {
	f := newCrewFixture(t)
	ctx := context.Background()

	f.assign(t, domain.PhaseWalls1)
	f.assign(t, domain.PhaseWalls2)

	lots, err := f.routing.FindLotsForCrew(ctx, testTenant, f.crewID)
	require.NoError(t, err)
	assert.Equal(t, []string{f.lotID}, lots)

	phases, err := f.routing.FindPhasesForCrewOnLot(ctx, testTenant, f.crewID, f.lotID)
	require.NoError(t, err)
	assert.Equal(t, []domain.PhaseID{domain.PhaseWalls1, domain.PhaseWalls2}, phases)

	crewID, err := f.routing.FindCrewForLotPhase(ctx, testTenant, f.lotID, domain.PhaseWalls1)
	require.NoError(t, err)
	assert.Equal(t, f.crewID, crewID)

	// 未派工阶段路由为空
	crewID, err = f.routing.FindCrewForLotPhase(ctx, testTenant, f.lotID, domain.PhaseRoof)
	require.NoError(t, err)
	assert.Equal(t, "", crewID)
}
