package repository

import (
	"context"
	"time"

	"sitelink-data/internal/domain"
)

// HouseItemFilters 房屋问题查询过滤器
type HouseItemFilters struct {
	PhaseID  domain.PhaseID
	CrewID   string
	Status   domain.ItemStatus
	Type     domain.ItemType
	Blocking *bool
}

// Resolution 解决信息（一次性写入，字段全有）
type Resolution struct {
	ResolvedBy     string
	ResolvedPhoto  string
	ResolutionNote *string
	ResolvedAt     time.Time
}

// HouseItemsRepository 房屋问题Repository接口
// 本层不做班组路由：crew_id 由上层在咨询路由后传入
type HouseItemsRepository interface {
	// GetHouseItem 获取问题记录
	GetHouseItem(ctx context.Context, tenantID, itemID string) (*domain.HouseItem, error)

	// ListHouseItems 查询某地块的问题记录，按上报时间倒序
	ListHouseItems(ctx context.Context, tenantID, lotID string, filters *HouseItemFilters, page, size int) ([]*domain.HouseItem, int, error)

	// CreateHouseItem 创建问题记录
	CreateHouseItem(ctx context.Context, tenantID string, item *domain.HouseItem) (string, error)

	// ResolveHouseItem 条件更新：仅从非 resolved 状态写入解决字段
	// 已解决返回 domain.ErrAlreadyResolved；不存在返回 domain.ErrHouseItemNotFound
	// 并发解决同一问题时恰有一方成功
	ResolveHouseItem(ctx context.Context, tenantID, itemID string, res *Resolution) error

	// CountBlocking 统计 blocking=TRUE 且 status<>'resolved' 的问题数，可按阶段过滤
	// 这是推进规则对本组件的唯一输入
	CountBlocking(ctx context.Context, tenantID, lotID string, phase *domain.PhaseID) (int, error)

	// CountBlockingByPhase 按阶段分组统计未解决阻塞问题数（流程状态读模型用）
	CountBlockingByPhase(ctx context.Context, tenantID, lotID string) (map[domain.PhaseID]int, error)
}
