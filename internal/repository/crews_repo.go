package repository

import (
	"context"

	"sitelink-data/internal/domain"
)

// CrewsRepository 班组Repository接口
type CrewsRepository interface {
	// GetCrew 获取班组
	GetCrew(ctx context.Context, tenantID, crewID string) (*domain.Crew, error)

	// ListCrews 批量查询班组
	ListCrews(ctx context.Context, tenantID string, page, size int) ([]*domain.Crew, int, error)

	// CreateCrew 创建班组
	CreateCrew(ctx context.Context, tenantID string, crew *domain.Crew) (string, error)
}
