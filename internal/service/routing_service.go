package service

import (
	"context"

	"go.uber.org/zap"

	"sitelink-data/internal/domain"
	"sitelink-data/internal/repository"
)

// RoutingService 班组路由服务接口
// 全部只读；派工在决策期间变化导致的读旧值是可接受的
type RoutingService interface {
	// FindCrewForLotPhase 解析 (lot, phase) 当前责任班组；无则返回 ""
	FindCrewForLotPhase(ctx context.Context, tenantID, lotID string, phase domain.PhaseID) (string, error)

	// FindLotsForCrew 班组名下有活动派工的地块
	FindLotsForCrew(ctx context.Context, tenantID, crewID string) ([]string, error)

	// FindPhasesForCrewOnLot 班组在某地块上的活动阶段
	FindPhasesForCrewOnLot(ctx context.Context, tenantID, crewID, lotID string) ([]domain.PhaseID, error)
}

type routingService struct {
	assignmentsRepo repository.AssignmentsRepository
	logger          *zap.Logger
}

// NewRoutingService 创建 RoutingService 实例
func NewRoutingService(assignmentsRepo repository.AssignmentsRepository, logger *zap.Logger) RoutingService {
	return &routingService{assignmentsRepo: assignmentsRepo, logger: logger}
}

func (s *routingService) FindCrewForLotPhase(ctx context.Context, tenantID, lotID string, phase domain.PhaseID) (string, error) {
	if !phase.Valid() {
		return "", domain.ErrPhaseNotFound
	}
	return s.assignmentsRepo.FindCrewForLotPhase(ctx, tenantID, lotID, phase)
}

func (s *routingService) FindLotsForCrew(ctx context.Context, tenantID, crewID string) ([]string, error) {
	return s.assignmentsRepo.FindLotsForCrew(ctx, tenantID, crewID)
}

func (s *routingService) FindPhasesForCrewOnLot(ctx context.Context, tenantID, crewID, lotID string) ([]domain.PhaseID, error) {
	return s.assignmentsRepo.FindPhasesForCrewOnLot(ctx, tenantID, crewID, lotID)
}
