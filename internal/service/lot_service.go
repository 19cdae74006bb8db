package service

import (
	"context"

	"go.uber.org/zap"

	"sitelink-data/internal/domain"
	"sitelink-data/internal/events"
	"sitelink-data/internal/repository"
)

// LotService 地块服务接口
type LotService interface {
	// GetLot 获取地块
	GetLot(ctx context.Context, tenantID, lotID string) (*domain.Lot, error)

	// ListLots 批量查询地块
	ListLots(ctx context.Context, tenantID string, filters *repository.LotFilters, page, size int) ([]*domain.Lot, int, error)

	// CreateLot 创建地块（工地开盘时）
	CreateLot(ctx context.Context, req CreateLotRequest) (*domain.Lot, error)

	// AdvanceLot 推进地块到下一阶段：先咨询推进规则，被阻塞时拒绝并返回判定结果
	AdvanceLot(ctx context.Context, req AdvanceLotRequest) (*domain.Lot, *Decision, error)

	// ReassignPhase 主管显式改派阶段（绕过推进规则，用于纠错）
	ReassignPhase(ctx context.Context, req ReassignPhaseRequest) (*domain.Lot, error)
}

type lotService struct {
	lotsRepo    repository.LotsRepository
	advancement AdvancementService
	publisher   events.Publisher
	logger      *zap.Logger
}

// NewLotService 创建 LotService 实例
func NewLotService(
	lotsRepo repository.LotsRepository,
	advancement AdvancementService,
	publisher events.Publisher,
	logger *zap.Logger,
) LotService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &lotService{
		lotsRepo:    lotsRepo,
		advancement: advancement,
		publisher:   publisher,
		logger:      logger,
	}
}

// CreateLotRequest 创建地块请求
type CreateLotRequest struct {
	TenantID  string
	JobsiteID string
	LotNumber string
	Sellable  bool
}

// AdvanceLotRequest 推进地块请求
type AdvanceLotRequest struct {
	TenantID    string
	LotID       string
	RequestedBy string
	// SkipOptional 跳过可选阶段（如无地下室地块跳过 backframe_basement）
	SkipOptional bool
}

// ReassignPhaseRequest 主管改派阶段请求
type ReassignPhaseRequest struct {
	TenantID     string
	LotID        string
	Phase        domain.PhaseID
	ReassignedBy string
}

func (s *lotService) GetLot(ctx context.Context, tenantID, lotID string) (*domain.Lot, error) {
	return s.lotsRepo.GetLot(ctx, tenantID, lotID)
}

func (s *lotService) ListLots(ctx context.Context, tenantID string, filters *repository.LotFilters, page, size int) ([]*domain.Lot, int, error) {
	return s.lotsRepo.ListLots(ctx, tenantID, filters, page, size)
}

func (s *lotService) CreateLot(ctx context.Context, req CreateLotRequest) (*domain.Lot, error) {
	lot := &domain.Lot{
		JobsiteID: req.JobsiteID,
		LotNumber: req.LotNumber,
		Status:    domain.LotPending,
		Sellable:  req.Sellable,
	}

	lotID, err := s.lotsRepo.CreateLot(ctx, req.TenantID, lot)
	if err != nil {
		return nil, err
	}

	return s.lotsRepo.GetLot(ctx, req.TenantID, lotID)
}

// AdvanceLot 推进地块到下一阶段
// 未开工地块（current_phase 为空）直接进入第一阶段，不经过推进规则
func (s *lotService) AdvanceLot(ctx context.Context, req AdvanceLotRequest) (*domain.Lot, *Decision, error) {
	lot, err := s.lotsRepo.GetLot(ctx, req.TenantID, req.LotID)
	if err != nil {
		return nil, nil, err
	}

	if lot.CurrentPhase == nil {
		first := domain.Phases()[0]
		if err := s.lotsRepo.SetLotPhase(ctx, req.TenantID, req.LotID, first.ID, domain.LotStatusForPhase(first.ID)); err != nil {
			return nil, nil, err
		}
		return s.finishAdvance(ctx, req, first.ID)
	}

	current := *lot.CurrentPhase

	decision, err := s.advancement.CanAdvance(ctx, req.TenantID, req.LotID, current)
	if err != nil {
		return nil, nil, err
	}
	if !decision.Allowed {
		return lot, decision, domain.ErrAdvancementBlocked
	}

	next, err := domain.NextPhase(current)
	if err != nil {
		return nil, nil, err
	}
	// 被跳过的可选阶段若映射到过渡点，该检查仍须先通过：
	// 跳过 backframe_basement 不免除 trades_to_backframe 检查
	for req.SkipOptional && next != nil && next.IsOptional {
		skipDecision, err := s.advancement.CanAdvance(ctx, req.TenantID, req.LotID, next.ID)
		if err != nil {
			return nil, nil, err
		}
		if !skipDecision.Allowed {
			return lot, skipDecision, domain.ErrAdvancementBlocked
		}
		next, err = domain.NextPhase(next.ID)
		if err != nil {
			return nil, nil, err
		}
	}

	if next == nil {
		// 终点阶段：收尾，不再有下一个阶段
		if err := s.lotsRepo.SetLotStatus(ctx, req.TenantID, req.LotID, domain.LotCompleted); err != nil {
			return nil, nil, err
		}
		s.advancement.InvalidateFlowStatus(ctx, req.TenantID, req.LotID)
		updated, err := s.lotsRepo.GetLot(ctx, req.TenantID, req.LotID)
		if err != nil {
			return nil, nil, err
		}
		s.logger.Info("lot completed",
			zap.String("lot_id", req.LotID),
			zap.String("requested_by", req.RequestedBy))
		return updated, decision, nil
	}

	if err := s.lotsRepo.SetLotPhase(ctx, req.TenantID, req.LotID, next.ID, domain.LotStatusForPhase(next.ID)); err != nil {
		return nil, nil, err
	}
	return s.finishAdvance(ctx, req, next.ID)
}

func (s *lotService) finishAdvance(ctx context.Context, req AdvanceLotRequest, phase domain.PhaseID) (*domain.Lot, *Decision, error) {
	s.advancement.InvalidateFlowStatus(ctx, req.TenantID, req.LotID)

	updated, err := s.lotsRepo.GetLot(ctx, req.TenantID, req.LotID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("lot advanced",
		zap.String("lot_id", req.LotID),
		zap.String("phase", string(phase)),
		zap.String("requested_by", req.RequestedBy))

	s.publisher.Publish(ctx, events.EventLotPhaseAdvanced, map[string]any{
		"tenant_id": req.TenantID,
		"lot_id":    req.LotID,
		"phase":     string(phase),
		"by":        req.RequestedBy,
	})

	return updated, &Decision{Allowed: true}, nil
}

// ReassignPhase 主管显式改派阶段
func (s *lotService) ReassignPhase(ctx context.Context, req ReassignPhaseRequest) (*domain.Lot, error) {
	if _, err := domain.GetPhase(req.Phase); err != nil {
		return nil, err
	}

	if err := s.lotsRepo.SetLotPhase(ctx, req.TenantID, req.LotID, req.Phase, domain.LotStatusForPhase(req.Phase)); err != nil {
		return nil, err
	}
	s.advancement.InvalidateFlowStatus(ctx, req.TenantID, req.LotID)

	s.logger.Info("lot phase reassigned",
		zap.String("lot_id", req.LotID),
		zap.String("phase", string(req.Phase)),
		zap.String("reassigned_by", req.ReassignedBy))

	return s.lotsRepo.GetLot(ctx, req.TenantID, req.LotID)
}
