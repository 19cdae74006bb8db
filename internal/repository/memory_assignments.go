package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitelink-data/internal/domain"
)

// MemoryAssignmentsRepository 内存实现
// 与 Postgres 实现保持同样的活动派工唯一约束和最新者优先路由语义
type MemoryAssignmentsRepository struct {
	mu          sync.RWMutex
	assignments map[string]map[string]*domain.PhaseAssignment // tenantID -> assignmentID -> assignment
}

func NewMemoryAssignmentsRepository() *MemoryAssignmentsRepository {
	return &MemoryAssignmentsRepository{assignments: map[string]map[string]*domain.PhaseAssignment{}}
}

var _ AssignmentsRepository = (*MemoryAssignmentsRepository)(nil)

func (r *MemoryAssignmentsRepository) GetAssignment(_ context.Context, tenantID, assignmentID string) (*domain.PhaseAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.assignments[tenantID][assignmentID]
	if !ok {
		return nil, domain.ErrAssignmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryAssignmentsRepository) ListAssignments(_ context.Context, tenantID string, filters *AssignmentFilters, page, size int) ([]*domain.PhaseAssignment, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.PhaseAssignment
	for _, a := range r.assignments[tenantID] {
		if filters != nil {
			if filters.LotID != "" && a.LotID != filters.LotID {
				continue
			}
			if filters.CrewID != "" && a.CrewID != filters.CrewID {
				continue
			}
			if filters.PhaseID != "" && a.PhaseID != filters.PhaseID {
				continue
			}
			if filters.Status != "" && a.Status != filters.Status {
				continue
			}
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	total := len(out)
	return paginate(out, page, size), total, nil
}

func (r *MemoryAssignmentsRepository) CreateAssignment(_ context.Context, tenantID string, a *domain.PhaseAssignment) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !a.PhaseID.Valid() {
		return "", domain.ErrPhaseNotFound
	}

	// 模拟部分唯一索引：同一 (lot, phase) 不允许两条活动记录
	for _, existing := range r.assignments[tenantID] {
		if existing.LotID == a.LotID && existing.PhaseID == a.PhaseID && existing.Status != domain.AssignmentCancelled {
			return "", domain.ErrAssignmentActive
		}
	}

	if r.assignments[tenantID] == nil {
		r.assignments[tenantID] = map[string]*domain.PhaseAssignment{}
	}

	id := uuid.NewString()
	cp := *a
	cp.AssignmentID = id
	cp.TenantID = tenantID
	if cp.Status == "" {
		cp.Status = domain.AssignmentAssigned
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	r.assignments[tenantID][id] = &cp

	return id, nil
}

// ForceCreateAssignment 测试用：绕过活动派工唯一约束直接插入
// 用于构造"多条活动记录并存"的历史数据异常场景
func (r *MemoryAssignmentsRepository) ForceCreateAssignment(tenantID string, a *domain.PhaseAssignment) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.assignments[tenantID] == nil {
		r.assignments[tenantID] = map[string]*domain.PhaseAssignment{}
	}

	id := uuid.NewString()
	cp := *a
	cp.AssignmentID = id
	cp.TenantID = tenantID
	if cp.Status == "" {
		cp.Status = domain.AssignmentAssigned
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	r.assignments[tenantID][id] = &cp

	return id
}

func (r *MemoryAssignmentsRepository) SetAssignmentStatus(_ context.Context, tenantID, assignmentID string, status domain.AssignmentStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !status.Valid() {
		return domain.ErrInvalidAssignmentStatus
	}

	a, ok := r.assignments[tenantID][assignmentID]
	if !ok {
		return domain.ErrAssignmentNotFound
	}
	a.Status = status
	switch status {
	case domain.AssignmentStarted:
		a.StartedAt = &at
	case domain.AssignmentCompleted:
		a.CompletedAt = &at
	}
	return nil
}

func (r *MemoryAssignmentsRepository) FindCrewForLotPhase(_ context.Context, tenantID, lotID string, phase domain.PhaseID) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *domain.PhaseAssignment
	for _, a := range r.assignments[tenantID] {
		if a.LotID != lotID || a.PhaseID != phase || a.Status == domain.AssignmentCancelled {
			continue
		}
		if best == nil || a.CreatedAt.After(best.CreatedAt) {
			best = a
		}
	}
	if best == nil {
		return "", nil
	}
	return best.CrewID, nil
}

func (r *MemoryAssignmentsRepository) FindLotsForCrew(_ context.Context, tenantID, crewID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]bool{}
	var lots []string
	for _, a := range r.assignments[tenantID] {
		if a.CrewID != crewID || a.Status == domain.AssignmentCancelled || seen[a.LotID] {
			continue
		}
		seen[a.LotID] = true
		lots = append(lots, a.LotID)
	}
	sort.Strings(lots)
	return lots, nil
}

func (r *MemoryAssignmentsRepository) FindPhasesForCrewOnLot(_ context.Context, tenantID, crewID, lotID string) ([]domain.PhaseID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[domain.PhaseID]bool{}
	var phases []domain.PhaseID
	for _, a := range r.assignments[tenantID] {
		if a.CrewID != crewID || a.LotID != lotID || a.Status == domain.AssignmentCancelled || seen[a.PhaseID] {
			continue
		}
		seen[a.PhaseID] = true
		phases = append(phases, a.PhaseID)
	}
	sort.Slice(phases, func(i, j int) bool { return phases[i] < phases[j] })
	return phases, nil
}
