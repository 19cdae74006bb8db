package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sitelink-data/internal/domain"
	"sitelink-data/internal/repository"
	"sitelink-data/internal/store"
)

// flowStatusTTL 流程状态读模型缓存时长（展示用数据，允许短暂过期）
const flowStatusTTL = 30 * time.Second

// Decision 推进判定结果
type Decision struct {
	Allowed  bool     `json:"allowed"`
	Blockers []string `json:"blockers"`
}

// PhaseFlowEntry 单阶段流程状态（展示用读模型）
type PhaseFlowEntry struct {
	PhaseID             domain.PhaseID          `json:"phase_id"`
	Name                string                  `json:"name"`
	SortOrder           int                     `json:"sort_order"`
	IsBackframe         bool                    `json:"is_backframe"`
	IsOptional          bool                    `json:"is_optional"`
	OpenBlockingCount   int                     `json:"open_blocking_count"`
	RequiredTransition  *domain.Transition      `json:"required_transition,omitempty"`
	GateCheckStatus     *domain.GateCheckStatus `json:"gate_check_status,omitempty"`
	GateCheckReleasedAt *time.Time              `json:"gate_check_released_at,omitempty"`
}

// LotPhaseFlowStatus 地块流程状态读模型
type LotPhaseFlowStatus struct {
	LotID        string           `json:"lot_id"`
	CurrentPhase *domain.PhaseID  `json:"current_phase"`
	Status       domain.LotStatus `json:"status"`
	Phases       []PhaseFlowEntry `json:"phases"`
}

// FlowStatusInvalidator 流程状态缓存失效入口
// 写路径（阶段变更、闸口检查、阻塞问题）在落库后调用，缩短读模型的过期窗口
type FlowStatusInvalidator interface {
	InvalidateFlowStatus(ctx context.Context, tenantID, lotID string)
}

// AdvancementService 阶段推进规则服务接口
type AdvancementService interface {
	FlowStatusInvalidator

	// CanAdvance 纯判定：不做任何写入，调用方负责据此拒绝阶段变更请求
	CanAdvance(ctx context.Context, tenantID, lotID string, current domain.PhaseID) (*Decision, error)

	// GetLotPhaseFlowStatus 聚合各阶段阻塞计数与各过渡点最近检查状态（展示用，不做推进判定）
	GetLotPhaseFlowStatus(ctx context.Context, tenantID, lotID string) (*LotPhaseFlowStatus, error)
}

type advancementService struct {
	itemsRepo  repository.HouseItemsRepository
	checksRepo repository.GateChecksRepository
	lotsRepo   repository.LotsRepository
	kv         store.KV // 可为 nil：无 Redis 时直查
	logger     *zap.Logger
}

// NewAdvancementService 创建 AdvancementService 实例
func NewAdvancementService(
	itemsRepo repository.HouseItemsRepository,
	checksRepo repository.GateChecksRepository,
	lotsRepo repository.LotsRepository,
	kv store.KV,
	logger *zap.Logger,
) AdvancementService {
	return &advancementService{
		itemsRepo:  itemsRepo,
		checksRepo: checksRepo,
		lotsRepo:   lotsRepo,
		kv:         kv,
		logger:     logger,
	}
}

// CanAdvance 判定地块是否允许离开当前阶段
// 1. 当前阶段存在未解决阻塞问题 → 阻塞
// 2. 当前阶段映射到过渡点时，最近一次闸口检查必须为 passed → 否则阻塞
func (s *advancementService) CanAdvance(ctx context.Context, tenantID, lotID string, current domain.PhaseID) (*Decision, error) {
	if !current.Valid() {
		return nil, domain.ErrPhaseNotFound
	}
	if _, err := s.lotsRepo.GetLot(ctx, tenantID, lotID); err != nil {
		return nil, err
	}

	var blockers []string

	count, err := s.itemsRepo.CountBlocking(ctx, tenantID, lotID, &current)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		blockers = append(blockers, fmt.Sprintf("%d open blocking item(s) on phase %s", count, current))
	}

	if transition, required := domain.RequiredTransition(current); required {
		latest, _, err := s.checksRepo.GetLatestGateCheck(ctx, tenantID, lotID, transition)
		if err != nil {
			return nil, err
		}
		switch {
		case latest == nil:
			blockers = append(blockers, fmt.Sprintf("gate check %s has not been performed", transition))
		case latest.Status != domain.GateCheckPassed:
			blockers = append(blockers, fmt.Sprintf("latest gate check %s is %s, a passed check is required", transition, latest.Status))
		}
	}

	return &Decision{Allowed: len(blockers) == 0, Blockers: blockers}, nil
}

func flowStatusCacheKey(tenantID, lotID string) string {
	return fmt.Sprintf("flow-status:%s:%s", tenantID, lotID)
}

// InvalidateFlowStatus 丢弃缓存的流程状态，下次读取重新聚合
func (s *advancementService) InvalidateFlowStatus(ctx context.Context, tenantID, lotID string) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Delete(ctx, flowStatusCacheKey(tenantID, lotID)); err != nil {
		s.logger.Warn("failed to invalidate flow status cache",
			zap.String("lot_id", lotID),
			zap.Error(err))
	}
}

// GetLotPhaseFlowStatus 聚合流程状态（带短 TTL 缓存）
func (s *advancementService) GetLotPhaseFlowStatus(ctx context.Context, tenantID, lotID string) (*LotPhaseFlowStatus, error) {
	cacheKey := flowStatusCacheKey(tenantID, lotID)

	if s.kv != nil {
		if cached, err := s.kv.Get(ctx, cacheKey); err == nil {
			var status LotPhaseFlowStatus
			if err := json.Unmarshal([]byte(cached), &status); err == nil {
				return &status, nil
			}
		}
	}

	lot, err := s.lotsRepo.GetLot(ctx, tenantID, lotID)
	if err != nil {
		return nil, err
	}

	counts, err := s.itemsRepo.CountBlockingByPhase(ctx, tenantID, lotID)
	if err != nil {
		return nil, err
	}

	status := &LotPhaseFlowStatus{
		LotID:        lotID,
		CurrentPhase: lot.CurrentPhase,
		Status:       lot.Status,
	}

	for _, phase := range domain.Phases() {
		entry := PhaseFlowEntry{
			PhaseID:           phase.ID,
			Name:              phase.Name,
			SortOrder:         phase.SortOrder,
			IsBackframe:       phase.IsBackframe,
			IsOptional:        phase.IsOptional,
			OpenBlockingCount: counts[phase.ID],
		}

		if transition, required := domain.RequiredTransition(phase.ID); required {
			t := transition
			entry.RequiredTransition = &t
			latest, _, err := s.checksRepo.GetLatestGateCheck(ctx, tenantID, lotID, transition)
			if err != nil {
				return nil, err
			}
			if latest != nil {
				gs := latest.Status
				entry.GateCheckStatus = &gs
				entry.GateCheckReleasedAt = latest.ReleasedAt
			}
		}

		status.Phases = append(status.Phases, entry)
	}

	if s.kv != nil {
		if b, err := json.Marshal(status); err == nil {
			if err := s.kv.Set(ctx, cacheKey, string(b), flowStatusTTL); err != nil {
				s.logger.Warn("failed to cache flow status", zap.Error(err))
			}
		}
	}

	return status, nil
}
