package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitelink-data/internal/domain"
)

// MemoryHouseItemsRepository 内存实现
type MemoryHouseItemsRepository struct {
	mu    sync.RWMutex
	items map[string]map[string]*domain.HouseItem // tenantID -> itemID -> item
}

func NewMemoryHouseItemsRepository() *MemoryHouseItemsRepository {
	return &MemoryHouseItemsRepository{items: map[string]map[string]*domain.HouseItem{}}
}

var _ HouseItemsRepository = (*MemoryHouseItemsRepository)(nil)

func (r *MemoryHouseItemsRepository) GetHouseItem(_ context.Context, tenantID, itemID string) (*domain.HouseItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[tenantID][itemID]
	if !ok {
		return nil, domain.ErrHouseItemNotFound
	}
	cp := *item
	return &cp, nil
}

func (r *MemoryHouseItemsRepository) ListHouseItems(_ context.Context, tenantID, lotID string, filters *HouseItemFilters, page, size int) ([]*domain.HouseItem, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.HouseItem
	for _, item := range r.items[tenantID] {
		if item.LotID != lotID {
			continue
		}
		if filters != nil {
			if filters.PhaseID != "" && (item.PhaseID == nil || *item.PhaseID != filters.PhaseID) {
				continue
			}
			if filters.CrewID != "" && (item.CrewID == nil || *item.CrewID != filters.CrewID) {
				continue
			}
			if filters.Status != "" && item.Status != filters.Status {
				continue
			}
			if filters.Type != "" && item.Type != filters.Type {
				continue
			}
			if filters.Blocking != nil && item.Blocking != *filters.Blocking {
				continue
			}
		}
		cp := *item
		out = append(out, &cp)
	}

	// 上报时间倒序
	sort.Slice(out, func(i, j int) bool { return out[i].ReportedAt.After(out[j].ReportedAt) })

	total := len(out)
	return paginate(out, page, size), total, nil
}

func (r *MemoryHouseItemsRepository) CreateHouseItem(_ context.Context, tenantID string, item *domain.HouseItem) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.PhotoURL == "" {
		return "", domain.ErrPhotoRequired
	}

	if r.items[tenantID] == nil {
		r.items[tenantID] = map[string]*domain.HouseItem{}
	}

	id := uuid.NewString()
	cp := *item
	cp.ItemID = id
	cp.TenantID = tenantID
	if cp.Status == "" {
		cp.Status = domain.ItemOpen
	}
	if cp.ReportedAt.IsZero() {
		cp.ReportedAt = time.Now()
	}
	r.items[tenantID][id] = &cp

	return id, nil
}

func (r *MemoryHouseItemsRepository) ResolveHouseItem(_ context.Context, tenantID, itemID string, res *Resolution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res == nil || res.ResolvedPhoto == "" {
		return domain.ErrResolvedPhotoRequired
	}

	item, ok := r.items[tenantID][itemID]
	if !ok {
		return domain.ErrHouseItemNotFound
	}
	if item.Status == domain.ItemResolved {
		return domain.ErrAlreadyResolved
	}

	item.Status = domain.ItemResolved
	by := res.ResolvedBy
	at := res.ResolvedAt
	photo := res.ResolvedPhoto
	item.ResolvedBy = &by
	item.ResolvedAt = &at
	item.ResolvedPhoto = &photo
	item.ResolutionNote = res.ResolutionNote
	return nil
}

func (r *MemoryHouseItemsRepository) CountBlocking(_ context.Context, tenantID, lotID string, phase *domain.PhaseID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, item := range r.items[tenantID] {
		if item.LotID != lotID || !item.Blocking || item.Status == domain.ItemResolved {
			continue
		}
		if phase != nil && (item.PhaseID == nil || *item.PhaseID != *phase) {
			continue
		}
		count++
	}
	return count, nil
}

func (r *MemoryHouseItemsRepository) CountBlockingByPhase(_ context.Context, tenantID, lotID string) (map[domain.PhaseID]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := map[domain.PhaseID]int{}
	for _, item := range r.items[tenantID] {
		if item.LotID != lotID || !item.Blocking || item.Status == domain.ItemResolved || item.PhaseID == nil {
			continue
		}
		counts[*item.PhaseID]++
	}
	return counts, nil
}
