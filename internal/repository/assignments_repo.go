package repository

import (
	"context"
	"time"

	"sitelink-data/internal/domain"
)

// AssignmentFilters 派工查询过滤器
type AssignmentFilters struct {
	LotID   string
	CrewID  string
	PhaseID domain.PhaseID
	Status  domain.AssignmentStatus
}

// AssignmentsRepository 派工Repository接口
// 路由查询（FindCrewForLotPhase 等）只读，允许无限并发；
// 决策期间派工变更导致的读旧值是可接受的，不做防护
type AssignmentsRepository interface {
	// GetAssignment 获取派工记录
	GetAssignment(ctx context.Context, tenantID, assignmentID string) (*domain.PhaseAssignment, error)

	// ListAssignments 批量查询派工记录
	ListAssignments(ctx context.Context, tenantID string, filters *AssignmentFilters, page, size int) ([]*domain.PhaseAssignment, int, error)

	// CreateAssignment 创建派工（同一 lot+phase 已有活动派工时返回 domain.ErrAssignmentActive）
	CreateAssignment(ctx context.Context, tenantID string, a *domain.PhaseAssignment) (string, error)

	// SetAssignmentStatus 更新派工状态（started/completed 时写入对应时间戳）
	SetAssignmentStatus(ctx context.Context, tenantID, assignmentID string, status domain.AssignmentStatus, at time.Time) error

	// FindCrewForLotPhase 解析 (lot, phase) 当前责任班组
	// 多条活动记录并存时（历史数据异常）按创建时间最新者优先；无则返回 ""
	FindCrewForLotPhase(ctx context.Context, tenantID, lotID string, phase domain.PhaseID) (string, error)

	// FindLotsForCrew 班组名下有活动派工的地块（去重）
	FindLotsForCrew(ctx context.Context, tenantID, crewID string) ([]string, error)

	// FindPhasesForCrewOnLot 班组在某地块上的活动阶段（用于圈定班组长可见的问题范围）
	FindPhasesForCrewOnLot(ctx context.Context, tenantID, crewID, lotID string) ([]domain.PhaseID, error)
}
