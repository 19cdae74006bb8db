package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sitelink-data/internal/domain"
	"sitelink-data/internal/events"
	"sitelink-data/internal/repository"
)

// HouseItemService 房屋问题台账服务接口
type HouseItemService interface {
	// Report 上报问题：照片必填，safety 类型强制 blocking，责任班组经路由自动填写
	Report(ctx context.Context, req ReportHouseItemRequest) (*domain.HouseItem, error)

	// Resolve 解决问题：resolved_photo 必填，重复解决报冲突（不支持重开）
	Resolve(ctx context.Context, req ResolveHouseItemRequest) (*domain.HouseItem, error)

	// List 查询某地块的问题记录，按上报时间倒序
	List(ctx context.Context, tenantID, lotID string, filters *repository.HouseItemFilters, page, size int) ([]*domain.HouseItem, int, error)

	// CountBlocking 未解决阻塞问题计数（推进规则的输入）
	CountBlocking(ctx context.Context, tenantID, lotID string, phase *domain.PhaseID) (int, error)
}

// houseItemService 实现
type houseItemService struct {
	itemsRepo repository.HouseItemsRepository
	lotsRepo  repository.LotsRepository
	routing   RoutingService
	cache     FlowStatusInvalidator // 可为 nil：无缓存时不需要失效
	publisher events.Publisher
	logger    *zap.Logger
}

// NewHouseItemService 创建 HouseItemService 实例
func NewHouseItemService(
	itemsRepo repository.HouseItemsRepository,
	lotsRepo repository.LotsRepository,
	routing RoutingService,
	cache FlowStatusInvalidator,
	publisher events.Publisher,
	logger *zap.Logger,
) HouseItemService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &houseItemService{
		itemsRepo: itemsRepo,
		lotsRepo:  lotsRepo,
		routing:   routing,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

// ReportHouseItemRequest 上报问题请求
type ReportHouseItemRequest struct {
	TenantID        string
	LotID           string
	PhaseID         *domain.PhaseID // 可选：未指定阶段的问题不参与按阶段的阻塞计数
	Type            domain.ItemType
	Severity        domain.Severity
	Title           string
	Description     *string
	PhotoURL        string // 必填
	Blocking        *bool  // 可选：safety 类型忽略此值，强制 TRUE
	ReportedBy      string
	GateCheckItemID *string // 针对某闸口检查项上报时关联
}

// ResolveHouseItemRequest 解决问题请求
type ResolveHouseItemRequest struct {
	TenantID       string
	ItemID         string
	ResolvedBy     string
	ResolvedPhoto  string // 必填
	ResolutionNote *string
}

// Report 上报问题
func (s *houseItemService) Report(ctx context.Context, req ReportHouseItemRequest) (*domain.HouseItem, error) {
	if req.PhotoURL == "" {
		return nil, domain.ErrPhotoRequired
	}
	if !req.Type.Valid() {
		return nil, domain.ErrInvalidItemType
	}
	if !req.Severity.Valid() {
		return nil, domain.ErrInvalidSeverity
	}
	if req.PhaseID != nil && !req.PhaseID.Valid() {
		return nil, domain.ErrPhaseNotFound
	}

	// 地块必须存在
	if _, err := s.lotsRepo.GetLot(ctx, req.TenantID, req.LotID); err != nil {
		return nil, err
	}

	// blocking 规则：safety 强制 TRUE，否则取调用方值，默认 FALSE
	blocking := false
	if req.Type == domain.ItemSafety {
		blocking = true
	} else if req.Blocking != nil {
		blocking = *req.Blocking
	}

	// 责任班组路由：取 (lot, phase) 当前活动派工的班组；无派工则留空
	var crewID *string
	if req.PhaseID != nil {
		routed, err := s.routing.FindCrewForLotPhase(ctx, req.TenantID, req.LotID, *req.PhaseID)
		if err != nil {
			s.logger.Warn("crew routing failed, item left unattributed",
				zap.String("lot_id", req.LotID),
				zap.String("phase_id", string(*req.PhaseID)),
				zap.Error(err))
		} else if routed != "" {
			crewID = &routed
		}
	}

	item := &domain.HouseItem{
		LotID:           req.LotID,
		PhaseID:         req.PhaseID,
		CrewID:          crewID,
		Type:            req.Type,
		Severity:        req.Severity,
		Title:           req.Title,
		Description:     req.Description,
		PhotoURL:        req.PhotoURL,
		Status:          domain.ItemOpen,
		Blocking:        blocking,
		ReportedBy:      req.ReportedBy,
		ReportedAt:      time.Now(),
		GateCheckItemID: req.GateCheckItemID,
	}

	itemID, err := s.itemsRepo.CreateHouseItem(ctx, req.TenantID, item)
	if err != nil {
		return nil, err
	}

	created, err := s.itemsRepo.GetHouseItem(ctx, req.TenantID, itemID)
	if err != nil {
		return nil, err
	}

	// 阻塞问题改变流程状态读模型的计数
	if created.Blocking && s.cache != nil {
		s.cache.InvalidateFlowStatus(ctx, req.TenantID, req.LotID)
	}

	s.logger.Info("house item reported",
		zap.String("item_id", itemID),
		zap.String("lot_id", req.LotID),
		zap.String("type", string(req.Type)),
		zap.Bool("blocking", created.Blocking))

	fields := map[string]any{
		"tenant_id": req.TenantID,
		"item_id":   itemID,
		"lot_id":    req.LotID,
		"type":      string(req.Type),
		"severity":  string(req.Severity),
		"blocking":  created.Blocking,
	}
	if created.CrewID != nil {
		fields["crew_id"] = *created.CrewID
	}
	s.publisher.Publish(ctx, events.EventHouseItemReported, fields)

	return created, nil
}

// Resolve 解决问题
func (s *houseItemService) Resolve(ctx context.Context, req ResolveHouseItemRequest) (*domain.HouseItem, error) {
	if req.ResolvedPhoto == "" {
		return nil, domain.ErrResolvedPhotoRequired
	}

	err := s.itemsRepo.ResolveHouseItem(ctx, req.TenantID, req.ItemID, &repository.Resolution{
		ResolvedBy:     req.ResolvedBy,
		ResolvedPhoto:  req.ResolvedPhoto,
		ResolutionNote: req.ResolutionNote,
		ResolvedAt:     time.Now(),
	})
	if err != nil {
		return nil, err
	}

	resolved, err := s.itemsRepo.GetHouseItem(ctx, req.TenantID, req.ItemID)
	if err != nil {
		return nil, err
	}

	if resolved.Blocking && s.cache != nil {
		s.cache.InvalidateFlowStatus(ctx, req.TenantID, resolved.LotID)
	}

	s.logger.Info("house item resolved",
		zap.String("item_id", req.ItemID),
		zap.String("resolved_by", req.ResolvedBy))

	s.publisher.Publish(ctx, events.EventHouseItemResolved, map[string]any{
		"tenant_id":   req.TenantID,
		"item_id":     req.ItemID,
		"lot_id":      resolved.LotID,
		"resolved_by": req.ResolvedBy,
	})

	return resolved, nil
}

// List 查询问题记录
func (s *houseItemService) List(ctx context.Context, tenantID, lotID string, filters *repository.HouseItemFilters, page, size int) ([]*domain.HouseItem, int, error) {
	return s.itemsRepo.ListHouseItems(ctx, tenantID, lotID, filters, page, size)
}

// CountBlocking 未解决阻塞问题计数
func (s *houseItemService) CountBlocking(ctx context.Context, tenantID, lotID string, phase *domain.PhaseID) (int, error) {
	return s.itemsRepo.CountBlocking(ctx, tenantID, lotID, phase)
}
