package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"sitelink-data/internal/domain"
)

// MemoryGateChecksRepository 内存实现
// 与 Postgres 实现保持同样的并发语义：
// 同一 (lot, transition) 最多一条 in_progress；完成写入前重验 pending
type MemoryGateChecksRepository struct {
	mu     sync.Mutex
	checks map[string]map[string]*domain.GateCheck     // tenantID -> gateCheckID -> check
	items  map[string]map[string]*domain.GateCheckItem // tenantID -> itemID -> item
}

func NewMemoryGateChecksRepository() *MemoryGateChecksRepository {
	return &MemoryGateChecksRepository{
		checks: map[string]map[string]*domain.GateCheck{},
		items:  map[string]map[string]*domain.GateCheckItem{},
	}
}

var _ GateChecksRepository = (*MemoryGateChecksRepository)(nil)

func (r *MemoryGateChecksRepository) CreateGateCheck(_ context.Context, tenantID string, check *domain.GateCheck, items []*domain.GateCheckItem) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.checks[tenantID] {
		if existing.LotID == check.LotID && existing.Transition == check.Transition &&
			existing.Status == domain.GateCheckInProgress {
			return "", domain.ErrGateCheckInFlight
		}
	}

	if r.checks[tenantID] == nil {
		r.checks[tenantID] = map[string]*domain.GateCheck{}
	}
	if r.items[tenantID] == nil {
		r.items[tenantID] = map[string]*domain.GateCheckItem{}
	}

	id := uuid.NewString()
	cp := *check
	cp.GateCheckID = id
	cp.TenantID = tenantID
	cp.Status = domain.GateCheckInProgress
	r.checks[tenantID][id] = &cp

	for _, item := range items {
		itemCp := *item
		itemCp.GateCheckItemID = uuid.NewString()
		itemCp.TenantID = tenantID
		itemCp.GateCheckID = id
		itemCp.Result = domain.ResultPending
		r.items[tenantID][itemCp.GateCheckItemID] = &itemCp
	}

	return id, nil
}

func (r *MemoryGateChecksRepository) itemsForCheck(tenantID, gateCheckID string) []*domain.GateCheckItem {
	var out []*domain.GateCheckItem
	for _, item := range r.items[tenantID] {
		if item.GateCheckID == gateCheckID {
			cp := *item
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

func (r *MemoryGateChecksRepository) GetGateCheck(_ context.Context, tenantID, gateCheckID string) (*domain.GateCheck, []*domain.GateCheckItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	check, ok := r.checks[tenantID][gateCheckID]
	if !ok {
		return nil, nil, domain.ErrGateCheckNotFound
	}
	cp := *check
	return &cp, r.itemsForCheck(tenantID, gateCheckID), nil
}

func (r *MemoryGateChecksRepository) GetLatestGateCheck(_ context.Context, tenantID, lotID string, transition domain.Transition) (*domain.GateCheck, []*domain.GateCheckItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *domain.GateCheck
	for _, check := range r.checks[tenantID] {
		if check.LotID != lotID || check.Transition != transition {
			continue
		}
		if latest == nil || check.StartedAt.After(latest.StartedAt) {
			latest = check
		}
	}
	if latest == nil {
		return nil, nil, nil
	}
	cp := *latest
	return &cp, r.itemsForCheck(tenantID, cp.GateCheckID), nil
}

func (r *MemoryGateChecksRepository) GetGateCheckItem(_ context.Context, tenantID, itemID string) (*domain.GateCheckItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[tenantID][itemID]
	if !ok {
		return nil, domain.ErrGateCheckItemNotFound
	}
	cp := *item
	return &cp, nil
}

func (r *MemoryGateChecksRepository) UpdateItemResult(_ context.Context, tenantID, itemID string, upd *ItemResultUpdate) (*domain.GateCheckItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[tenantID][itemID]
	if !ok {
		return nil, domain.ErrGateCheckItemNotFound
	}
	item.Result = upd.Result
	item.PhotoURL = upd.PhotoURL
	item.Notes = upd.Notes
	cp := *item
	return &cp, nil
}

func (r *MemoryGateChecksRepository) LinkDeficiency(_ context.Context, tenantID, itemID, houseItemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[tenantID][itemID]
	if !ok {
		return domain.ErrGateCheckItemNotFound
	}
	item.DeficiencyID = &houseItemID
	return nil
}

func (r *MemoryGateChecksRepository) CompleteGateCheck(_ context.Context, tenantID, gateCheckID string, c *Completion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	check, ok := r.checks[tenantID][gateCheckID]
	if !ok {
		return domain.ErrGateCheckNotFound
	}
	if check.Status.Terminal() {
		return domain.ErrGateCheckDone
	}
	// 与写入同一临界区内重验 pending
	for _, item := range r.items[tenantID] {
		if item.GateCheckID == gateCheckID && item.Result == domain.ResultPending {
			return domain.ErrItemsPending
		}
	}

	check.Status = c.Status
	at := c.CompletedAt
	check.CompletedAt = &at
	check.ReleasedAt = c.ReleasedAt
	return nil
}

// MemoryTemplatesRepository 内存实现：从领域层种子数据提供模板
type MemoryTemplatesRepository struct {
	mu        sync.RWMutex
	templates map[domain.Transition][]*domain.GateCheckTemplate
}

func NewMemoryTemplatesRepository() *MemoryTemplatesRepository {
	r := &MemoryTemplatesRepository{templates: map[domain.Transition][]*domain.GateCheckTemplate{}}
	for _, t := range domain.Transitions() {
		for _, tmpl := range domain.SeedTemplates(t) {
			cp := tmpl
			cp.TemplateID = uuid.NewString()
			r.templates[t] = append(r.templates[t], &cp)
		}
	}
	return r
}

// NewEmptyTemplatesRepository 测试用：不含任何模板行
func NewEmptyTemplatesRepository() *MemoryTemplatesRepository {
	return &MemoryTemplatesRepository{templates: map[domain.Transition][]*domain.GateCheckTemplate{}}
}

var _ TemplatesRepository = (*MemoryTemplatesRepository)(nil)

func (r *MemoryTemplatesRepository) GetTemplateItems(_ context.Context, transition domain.Transition) ([]*domain.GateCheckTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src := r.templates[transition]
	out := make([]*domain.GateCheckTemplate, 0, len(src))
	for _, t := range src {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

// SetBlocking 测试用：修改某模板行的 is_blocking（模拟检查进行中模板被编辑）
func (r *MemoryTemplatesRepository) SetBlocking(transition domain.Transition, itemCode string, blocking bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.templates[transition] {
		if t.ItemCode == itemCode {
			t.IsBlocking = blocking
		}
	}
}
