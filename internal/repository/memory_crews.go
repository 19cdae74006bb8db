package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitelink-data/internal/domain"
)

// MemoryCrewsRepository 内存实现
type MemoryCrewsRepository struct {
	mu    sync.RWMutex
	crews map[string]map[string]*domain.Crew // tenantID -> crewID -> crew
}

func NewMemoryCrewsRepository() *MemoryCrewsRepository {
	return &MemoryCrewsRepository{crews: map[string]map[string]*domain.Crew{}}
}

var _ CrewsRepository = (*MemoryCrewsRepository)(nil)

func (r *MemoryCrewsRepository) GetCrew(_ context.Context, tenantID, crewID string) (*domain.Crew, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	crew, ok := r.crews[tenantID][crewID]
	if !ok {
		return nil, domain.ErrCrewNotFound
	}
	cp := *crew
	return &cp, nil
}

func (r *MemoryCrewsRepository) ListCrews(_ context.Context, tenantID string, page, size int) ([]*domain.Crew, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Crew
	for _, crew := range r.crews[tenantID] {
		cp := *crew
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CrewName < out[j].CrewName })

	total := len(out)
	return paginate(out, page, size), total, nil
}

func (r *MemoryCrewsRepository) CreateCrew(_ context.Context, tenantID string, crew *domain.Crew) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.crews[tenantID] == nil {
		r.crews[tenantID] = map[string]*domain.Crew{}
	}

	id := uuid.NewString()
	cp := *crew
	cp.CrewID = id
	cp.TenantID = tenantID
	cp.CreatedAt = time.Now()
	r.crews[tenantID][id] = &cp

	return id, nil
}
