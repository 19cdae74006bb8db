package repository

import (
	"context"
	"time"

	"sitelink-data/internal/domain"
)

// ItemResultUpdate 检查项结果更新（last-writer-wins，无合并）
type ItemResultUpdate struct {
	Result   domain.ItemResult
	PhotoURL *string
	Notes    *string
}

// Completion 闸口检查完成写入
type Completion struct {
	Status      domain.GateCheckStatus // passed | failed
	CompletedAt time.Time
	ReleasedAt  *time.Time // 仅 passed 时非空
}

// GateChecksRepository 闸口检查Repository接口
type GateChecksRepository interface {
	// CreateGateCheck 创建检查并快照全部检查项（单事务）
	// 同一 (lot, transition) 已有 in_progress 检查时返回 domain.ErrGateCheckInFlight
	CreateGateCheck(ctx context.Context, tenantID string, check *domain.GateCheck, items []*domain.GateCheckItem) (string, error)

	// GetGateCheck 获取检查及其全部检查项（按 sort_order）
	GetGateCheck(ctx context.Context, tenantID, gateCheckID string) (*domain.GateCheck, []*domain.GateCheckItem, error)

	// GetLatestGateCheck 获取 (lot, transition) 最近一次检查（按开始时间）；无则返回 (nil, nil, nil)
	GetLatestGateCheck(ctx context.Context, tenantID, lotID string, transition domain.Transition) (*domain.GateCheck, []*domain.GateCheckItem, error)

	// GetGateCheckItem 获取单个检查项
	GetGateCheckItem(ctx context.Context, tenantID, itemID string) (*domain.GateCheckItem, error)

	// UpdateItemResult 更新单个检查项结果（不触发完成评估）
	UpdateItemResult(ctx context.Context, tenantID, itemID string, upd *ItemResultUpdate) (*domain.GateCheckItem, error)

	// LinkDeficiency 关联检查项与因其上报的房屋问题
	LinkDeficiency(ctx context.Context, tenantID, itemID, houseItemID string) error

	// CompleteGateCheck 条件写入终态
	// 写入与"无 pending 项"校验在同一事务边界完成，防止 TOCTOU：
	// 仍有 pending 返回 domain.ErrItemsPending；已是终态返回 domain.ErrGateCheckDone
	CompleteGateCheck(ctx context.Context, tenantID, gateCheckID string, c *Completion) error
}

// TemplatesRepository 闸口检查模板Repository接口
type TemplatesRepository interface {
	// GetTemplateItems 获取某过渡点的模板行（按 sort_order）；未配置时返回空切片
	GetTemplateItems(ctx context.Context, transition domain.Transition) ([]*domain.GateCheckTemplate, error)
}
