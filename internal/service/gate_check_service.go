package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sitelink-data/internal/domain"
	"sitelink-data/internal/events"
	"sitelink-data/internal/repository"
)

// GateCheckService 闸口检查服务接口
// 状态机：in_progress → passed | failed，终态后不可再变更
type GateCheckService interface {
	// Start 从模板实例化一次检查（模板为空时拒绝创建）
	Start(ctx context.Context, req StartGateCheckRequest) (*domain.GateCheck, []*domain.GateCheckItem, error)

	// RecordItemResult 记录单个检查项结果（不触发完成评估）
	RecordItemResult(ctx context.Context, req RecordItemResultRequest) (*domain.GateCheckItem, error)

	// LinkDeficiency 关联失败检查项与为其上报的房屋问题
	LinkDeficiency(ctx context.Context, tenantID, itemID, houseItemID string) error

	// Complete 计算最终通过/失败并写入终态
	Complete(ctx context.Context, tenantID, gateCheckID string) (*domain.GateCheck, error)

	// GetLatest 获取 (lot, transition) 最近一次检查；无则返回 (nil, nil, nil)
	GetLatest(ctx context.Context, tenantID, lotID string, transition domain.Transition) (*domain.GateCheck, []*domain.GateCheckItem, error)

	// Get 获取检查详情
	Get(ctx context.Context, tenantID, gateCheckID string) (*domain.GateCheck, []*domain.GateCheckItem, error)
}

type gateCheckService struct {
	checksRepo    repository.GateChecksRepository
	templatesRepo repository.TemplatesRepository
	lotsRepo      repository.LotsRepository
	itemsRepo     repository.HouseItemsRepository
	cache         FlowStatusInvalidator // 可为 nil：无缓存时不需要失效
	publisher     events.Publisher
	logger        *zap.Logger
}

// NewGateCheckService 创建 GateCheckService 实例
func NewGateCheckService(
	checksRepo repository.GateChecksRepository,
	templatesRepo repository.TemplatesRepository,
	lotsRepo repository.LotsRepository,
	itemsRepo repository.HouseItemsRepository,
	cache FlowStatusInvalidator,
	publisher events.Publisher,
	logger *zap.Logger,
) GateCheckService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &gateCheckService{
		checksRepo:    checksRepo,
		templatesRepo: templatesRepo,
		lotsRepo:      lotsRepo,
		itemsRepo:     itemsRepo,
		cache:         cache,
		publisher:     publisher,
		logger:        logger,
	}
}

// StartGateCheckRequest 开始检查请求
type StartGateCheckRequest struct {
	TenantID   string
	LotID      string
	Transition domain.Transition
	CheckedBy  string
}

// RecordItemResultRequest 记录检查项结果请求
type RecordItemResultRequest struct {
	TenantID string
	ItemID   string
	Result   domain.ItemResult // pass | fail | na
	PhotoURL *string
	Notes    *string
}

// Start 从模板实例化一次检查
func (s *gateCheckService) Start(ctx context.Context, req StartGateCheckRequest) (*domain.GateCheck, []*domain.GateCheckItem, error) {
	if !req.Transition.Valid() {
		return nil, nil, domain.ErrInvalidTransition
	}

	if _, err := s.lotsRepo.GetLot(ctx, req.TenantID, req.LotID); err != nil {
		return nil, nil, err
	}

	templates, err := s.templatesRepo.GetTemplateItems(ctx, req.Transition)
	if err != nil {
		return nil, nil, err
	}
	// 空清单的检查没有意义，必须阻止创建
	if len(templates) == 0 {
		return nil, nil, domain.ErrEmptyTemplate
	}

	check := &domain.GateCheck{
		LotID:      req.LotID,
		Transition: req.Transition,
		CheckedBy:  req.CheckedBy,
		Status:     domain.GateCheckInProgress,
		StartedAt:  time.Now(),
	}

	// 快照：item_code/item_label/sort_order 拷贝到实例，is_blocking 留在模板
	items := make([]*domain.GateCheckItem, 0, len(templates))
	for _, t := range templates {
		items = append(items, &domain.GateCheckItem{
			ItemCode:  t.ItemCode,
			ItemLabel: t.ItemLabel,
			SortOrder: t.SortOrder,
			Result:    domain.ResultPending,
		})
	}

	gateCheckID, err := s.checksRepo.CreateGateCheck(ctx, req.TenantID, check, items)
	if err != nil {
		return nil, nil, err
	}
	if s.cache != nil {
		s.cache.InvalidateFlowStatus(ctx, req.TenantID, req.LotID)
	}

	s.logger.Info("gate check started",
		zap.String("gate_check_id", gateCheckID),
		zap.String("lot_id", req.LotID),
		zap.String("transition", string(req.Transition)),
		zap.Int("item_count", len(items)))

	return s.checksRepo.GetGateCheck(ctx, req.TenantID, gateCheckID)
}

// RecordItemResult 记录单个检查项结果
// 并发更新同一检查项为 last-writer-wins（实践中一项同时只有一名检查员操作）
func (s *gateCheckService) RecordItemResult(ctx context.Context, req RecordItemResultRequest) (*domain.GateCheckItem, error) {
	if !req.Result.Valid() || req.Result == domain.ResultPending {
		return nil, domain.ErrInvalidItemResult
	}

	item, err := s.checksRepo.GetGateCheckItem(ctx, req.TenantID, req.ItemID)
	if err != nil {
		return nil, err
	}

	// 终态检查的检查项不可再改
	check, _, err := s.checksRepo.GetGateCheck(ctx, req.TenantID, item.GateCheckID)
	if err != nil {
		return nil, err
	}
	if check.Status.Terminal() {
		return nil, domain.ErrGateCheckDone
	}

	return s.checksRepo.UpdateItemResult(ctx, req.TenantID, req.ItemID, &repository.ItemResultUpdate{
		Result:   req.Result,
		PhotoURL: req.PhotoURL,
		Notes:    req.Notes,
	})
}

// LinkDeficiency 关联检查项与房屋问题
func (s *gateCheckService) LinkDeficiency(ctx context.Context, tenantID, itemID, houseItemID string) error {
	if _, err := s.itemsRepo.GetHouseItem(ctx, tenantID, houseItemID); err != nil {
		return err
	}
	return s.checksRepo.LinkDeficiency(ctx, tenantID, itemID, houseItemID)
}

// Complete 计算最终通过/失败并写入终态
// 结果取自实例（谁/何时/什么照片归实例），is_blocking 取自模板当前值
// （哪些行致命归模板）——进行中的检查始终按最新策略判定
func (s *gateCheckService) Complete(ctx context.Context, tenantID, gateCheckID string) (*domain.GateCheck, error) {
	check, items, err := s.checksRepo.GetGateCheck(ctx, tenantID, gateCheckID)
	if err != nil {
		return nil, err
	}
	if check.Status.Terminal() {
		return nil, domain.ErrGateCheckDone
	}

	for _, item := range items {
		if item.Result == domain.ResultPending {
			return nil, domain.ErrItemsPending
		}
	}

	templates, err := s.templatesRepo.GetTemplateItems(ctx, check.Transition)
	if err != nil {
		return nil, err
	}
	blocking := make(map[string]bool, len(templates))
	for _, t := range templates {
		blocking[t.ItemCode] = t.IsBlocking
	}

	status := domain.GateCheckPassed
	for _, item := range items {
		if item.Result != domain.ResultFail {
			continue
		}
		isBlocking, known := blocking[item.ItemCode]
		if !known {
			// 快照后模板行被删：该行不再参与策略判定
			s.logger.Warn("gate check item no longer in template, treated as non-blocking",
				zap.String("gate_check_id", gateCheckID),
				zap.String("item_code", item.ItemCode))
			continue
		}
		if isBlocking {
			status = domain.GateCheckFailed
			break
		}
	}

	now := time.Now()
	completion := &repository.Completion{
		Status:      status,
		CompletedAt: now,
	}
	if status == domain.GateCheckPassed {
		completion.ReleasedAt = &now
	}

	if err := s.checksRepo.CompleteGateCheck(ctx, tenantID, gateCheckID, completion); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.InvalidateFlowStatus(ctx, tenantID, check.LotID)
	}

	completed, _, err := s.checksRepo.GetGateCheck(ctx, tenantID, gateCheckID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("gate check completed",
		zap.String("gate_check_id", gateCheckID),
		zap.String("lot_id", check.LotID),
		zap.String("transition", string(check.Transition)),
		zap.String("status", string(completed.Status)))

	s.publisher.Publish(ctx, events.EventGateCheckCompleted, map[string]any{
		"tenant_id":     tenantID,
		"gate_check_id": gateCheckID,
		"lot_id":        check.LotID,
		"transition":    string(check.Transition),
		"status":        string(completed.Status),
	})

	return completed, nil
}

// GetLatest 获取 (lot, transition) 最近一次检查
func (s *gateCheckService) GetLatest(ctx context.Context, tenantID, lotID string, transition domain.Transition) (*domain.GateCheck, []*domain.GateCheckItem, error) {
	if !transition.Valid() {
		return nil, nil, domain.ErrInvalidTransition
	}
	return s.checksRepo.GetLatestGateCheck(ctx, tenantID, lotID, transition)
}

// Get 获取检查详情
func (s *gateCheckService) Get(ctx context.Context, tenantID, gateCheckID string) (*domain.GateCheck, []*domain.GateCheckItem, error) {
	return s.checksRepo.GetGateCheck(ctx, tenantID, gateCheckID)
}
