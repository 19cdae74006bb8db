package repository

import (
	"context"

	"sitelink-data/internal/domain"
)

// LotFilters 地块查询过滤器
type LotFilters struct {
	JobsiteID    string           // 所属工地
	Status       domain.LotStatus // 生命周期状态
	CurrentPhase domain.PhaseID   // 当前阶段
	Sellable     *bool            // 是否可售
}

// LotsRepository 地块Repository接口
type LotsRepository interface {
	// GetLot 获取地块
	GetLot(ctx context.Context, tenantID, lotID string) (*domain.Lot, error)

	// ListLots 批量查询地块（支持过滤和分页）
	ListLots(ctx context.Context, tenantID string, filters *LotFilters, page, size int) ([]*domain.Lot, int, error)

	// CreateLot 创建地块（工地开盘时）
	CreateLot(ctx context.Context, tenantID string, lot *domain.Lot) (string, error)

	// SetLotPhase 推进/改派地块阶段（同时更新状态）
	SetLotPhase(ctx context.Context, tenantID, lotID string, phase domain.PhaseID, status domain.LotStatus) error

	// SetLotStatus 仅更新地块状态
	SetLotStatus(ctx context.Context, tenantID, lotID string, status domain.LotStatus) error
}
