package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitelink-data/internal/domain"
)

// MemoryLotsRepository 内存实现：用于 DB 未就绪时的联测与单元测试
// - 按 tenant_id 隔离
// - IDs 使用 uuid
type MemoryLotsRepository struct {
	mu   sync.RWMutex
	lots map[string]map[string]*domain.Lot // tenantID -> lotID -> lot
}

func NewMemoryLotsRepository() *MemoryLotsRepository {
	return &MemoryLotsRepository{lots: map[string]map[string]*domain.Lot{}}
}

var _ LotsRepository = (*MemoryLotsRepository)(nil)

func (r *MemoryLotsRepository) GetLot(_ context.Context, tenantID, lotID string) (*domain.Lot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lot, ok := r.lots[tenantID][lotID]
	if !ok {
		return nil, domain.ErrLotNotFound
	}
	cp := *lot
	return &cp, nil
}

func (r *MemoryLotsRepository) ListLots(_ context.Context, tenantID string, filters *LotFilters, page, size int) ([]*domain.Lot, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Lot
	for _, lot := range r.lots[tenantID] {
		if filters != nil {
			if filters.JobsiteID != "" && lot.JobsiteID != filters.JobsiteID {
				continue
			}
			if filters.Status != "" && lot.Status != filters.Status {
				continue
			}
			if filters.CurrentPhase != "" && (lot.CurrentPhase == nil || *lot.CurrentPhase != filters.CurrentPhase) {
				continue
			}
			if filters.Sellable != nil && lot.Sellable != *filters.Sellable {
				continue
			}
		}
		cp := *lot
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].JobsiteID != out[j].JobsiteID {
			return out[i].JobsiteID < out[j].JobsiteID
		}
		return out[i].LotNumber < out[j].LotNumber
	})

	total := len(out)
	return paginate(out, page, size), total, nil
}

func (r *MemoryLotsRepository) CreateLot(_ context.Context, tenantID string, lot *domain.Lot) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lots[tenantID] == nil {
		r.lots[tenantID] = map[string]*domain.Lot{}
	}

	id := uuid.NewString()
	cp := *lot
	cp.LotID = id
	cp.TenantID = tenantID
	if cp.Status == "" {
		cp.Status = domain.LotPending
	}
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.lots[tenantID][id] = &cp

	return id, nil
}

func (r *MemoryLotsRepository) SetLotPhase(_ context.Context, tenantID, lotID string, phase domain.PhaseID, status domain.LotStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lot, ok := r.lots[tenantID][lotID]
	if !ok {
		return domain.ErrLotNotFound
	}
	p := phase
	lot.CurrentPhase = &p
	lot.Status = status
	lot.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryLotsRepository) SetLotStatus(_ context.Context, tenantID, lotID string, status domain.LotStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lot, ok := r.lots[tenantID][lotID]
	if !ok {
		return domain.ErrLotNotFound
	}
	lot.Status = status
	lot.UpdatedAt = time.Now()
	return nil
}

// paginate 内存分页辅助
func paginate[T any](items []T, page, size int) []T {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
