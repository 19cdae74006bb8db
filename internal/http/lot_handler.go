package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"sitelink-data/internal/domain"
	"sitelink-data/internal/repository"
	"sitelink-data/internal/service"
)

// LotHandler 地块 Handler
// 负责 /site/api/v1/lots 前缀下的全部路由，含地块子资源
// （问题台账、闸口检查查询）的分发
type LotHandler struct {
	lotService       service.LotService
	advancement      service.AdvancementService
	houseItemService service.HouseItemService
	gateCheckService service.GateCheckService
	logger           *zap.Logger
}

// NewLotHandler 创建地块 Handler
func NewLotHandler(
	lotService service.LotService,
	advancement service.AdvancementService,
	houseItemService service.HouseItemService,
	gateCheckService service.GateCheckService,
	logger *zap.Logger,
) *LotHandler {
	return &LotHandler{
		lotService:       lotService,
		advancement:      advancement,
		houseItemService: houseItemService,
		gateCheckService: gateCheckService,
		logger:           logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *LotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/site/api/v1/lots")
	path = strings.TrimPrefix(path, "/")

	// /lots
	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.ListLots(w, r)
		case http.MethodPost:
			h.CreateLot(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	parts := strings.Split(path, "/")
	lotID := parts[0]

	switch {
	// /lots/{id}
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.GetLot(w, r, lotID)
	// /lots/{id}/advance
	case len(parts) == 2 && parts[1] == "advance" && r.Method == http.MethodPost:
		h.AdvanceLot(w, r, lotID)
	// /lots/{id}/can-advance
	case len(parts) == 2 && parts[1] == "can-advance" && r.Method == http.MethodGet:
		h.CanAdvance(w, r, lotID)
	// /lots/{id}/flow-status
	case len(parts) == 2 && parts[1] == "flow-status" && r.Method == http.MethodGet:
		h.FlowStatus(w, r, lotID)
	// /lots/{id}/phase
	case len(parts) == 2 && parts[1] == "phase" && r.Method == http.MethodPut:
		h.ReassignPhase(w, r, lotID)
	// /lots/{id}/house-items
	case len(parts) == 2 && parts[1] == "house-items" && r.Method == http.MethodGet:
		h.ListHouseItems(w, r, lotID)
	case len(parts) == 2 && parts[1] == "house-items" && r.Method == http.MethodPost:
		h.ReportHouseItem(w, r, lotID)
	// /lots/{id}/house-items/export
	case len(parts) == 3 && parts[1] == "house-items" && parts[2] == "export" && r.Method == http.MethodGet:
		h.ExportHouseItems(w, r, lotID)
	// /lots/{id}/gate-checks/latest?transition=
	case len(parts) == 3 && parts[1] == "gate-checks" && parts[2] == "latest" && r.Method == http.MethodGet:
		h.LatestGateCheck(w, r, lotID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func pageSizeFromQuery(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	return page, size
}

// ListLots 查询地块列表
func (h *LotHandler) ListLots(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filters := &repository.LotFilters{
		JobsiteID:    q.Get("jobsite_id"),
		Status:       domain.LotStatus(q.Get("status")),
		CurrentPhase: domain.PhaseID(q.Get("current_phase")),
	}
	page, size := pageSizeFromQuery(r)

	lots, total, err := h.lotService.ListLots(r.Context(), tenantID, filters, page, size)
	if err != nil {
		h.logger.Error("failed to list lots", zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": lots,
		"total": total,
	}))
}

// GetLot 获取地块
func (h *LotHandler) GetLot(w http.ResponseWriter, r *http.Request, lotID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	lot, err := h.lotService.GetLot(r.Context(), tenantID, lotID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(lot))
}

// CreateLot 创建地块
func (h *LotHandler) CreateLot(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	var body struct {
		JobsiteID string `json:"jobsite_id"`
		LotNumber string `json:"lot_number"`
		Sellable  bool   `json:"sellable"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	lot, err := h.lotService.CreateLot(r.Context(), service.CreateLotRequest{
		TenantID:  tenantID,
		JobsiteID: body.JobsiteID,
		LotNumber: body.LotNumber,
		Sellable:  body.Sellable,
	})
	if err != nil {
		h.logger.Error("failed to create lot", zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(lot))
}

// AdvanceLot 推进地块到下一阶段
func (h *LotHandler) AdvanceLot(w http.ResponseWriter, r *http.Request, lotID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}
	userID, ok := actorFromReq(w, r)
	if !ok {
		return
	}

	var body struct {
		SkipOptional bool `json:"skip_optional"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	lot, decision, err := h.lotService.AdvanceLot(r.Context(), service.AdvanceLotRequest{
		TenantID:     tenantID,
		LotID:        lotID,
		RequestedBy:  userID,
		SkipOptional: body.SkipOptional,
	})
	if err != nil {
		// 被推进规则拒绝时把阻塞原因一并返回
		if errors.Is(err, domain.ErrAdvancementBlocked) {
			writeJSON(w, http.StatusConflict, Ok(map[string]any{
				"lot":      lot,
				"decision": decision,
			}))
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"lot":      lot,
		"decision": decision,
	}))
}

// CanAdvance 推进判定（只读）
func (h *LotHandler) CanAdvance(w http.ResponseWriter, r *http.Request, lotID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	lot, err := h.lotService.GetLot(r.Context(), tenantID, lotID)
	if err != nil {
		writeError(w, err)
		return
	}
	if lot.CurrentPhase == nil {
		writeJSON(w, http.StatusOK, Ok(&service.Decision{Allowed: true}))
		return
	}

	decision, err := h.advancement.CanAdvance(r.Context(), tenantID, lotID, *lot.CurrentPhase)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(decision))
}

// FlowStatus 流程状态读模型
func (h *LotHandler) FlowStatus(w http.ResponseWriter, r *http.Request, lotID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	status, err := h.advancement.GetLotPhaseFlowStatus(r.Context(), tenantID, lotID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(status))
}

// ReassignPhase 主管改派阶段
func (h *LotHandler) ReassignPhase(w http.ResponseWriter, r *http.Request, lotID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}
	userID, ok := actorFromReq(w, r)
	if !ok {
		return
	}

	var body struct {
		Phase string `json:"phase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	lot, err := h.lotService.ReassignPhase(r.Context(), service.ReassignPhaseRequest{
		TenantID:     tenantID,
		LotID:        lotID,
		Phase:        domain.PhaseID(body.Phase),
		ReassignedBy: userID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(lot))
}

func houseItemFiltersFromQuery(r *http.Request) *repository.HouseItemFilters {
	q := r.URL.Query()
	filters := &repository.HouseItemFilters{
		PhaseID: domain.PhaseID(q.Get("phase_id")),
		CrewID:  q.Get("crew_id"),
		Status:  domain.ItemStatus(q.Get("status")),
		Type:    domain.ItemType(q.Get("type")),
	}
	if v := q.Get("blocking"); v != "" {
		b := v == "true"
		filters.Blocking = &b
	}
	return filters
}

// ListHouseItems 查询地块问题列表
func (h *LotHandler) ListHouseItems(w http.ResponseWriter, r *http.Request, lotID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	page, size := pageSizeFromQuery(r)
	items, total, err := h.houseItemService.List(r.Context(), tenantID, lotID, houseItemFiltersFromQuery(r), page, size)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": total,
	}))
}

// ReportHouseItem 上报问题
func (h *LotHandler) ReportHouseItem(w http.ResponseWriter, r *http.Request, lotID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}
	userID, ok := actorFromReq(w, r)
	if !ok {
		return
	}

	var body struct {
		PhaseID         *string `json:"phase_id"`
		Type            string  `json:"type"`
		Severity        string  `json:"severity"`
		Title           string  `json:"title"`
		Description     *string `json:"description"`
		PhotoURL        string  `json:"photo_url"`
		Blocking        *bool   `json:"blocking"`
		GateCheckItemID *string `json:"gate_check_item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	req := service.ReportHouseItemRequest{
		TenantID:        tenantID,
		LotID:           lotID,
		Type:            domain.ItemType(body.Type),
		Severity:        domain.Severity(body.Severity),
		Title:           body.Title,
		Description:     body.Description,
		PhotoURL:        body.PhotoURL,
		Blocking:        body.Blocking,
		ReportedBy:      userID,
		GateCheckItemID: body.GateCheckItemID,
	}
	if body.PhaseID != nil {
		p := domain.PhaseID(*body.PhaseID)
		req.PhaseID = &p
	}

	item, err := h.houseItemService.Report(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(item))
}

// ExportHouseItems 导出问题台账 Excel
func (h *LotHandler) ExportHouseItems(w http.ResponseWriter, r *http.Request, lotID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	// 导出不分页：一次取全量
	items, _, err := h.houseItemService.List(r.Context(), tenantID, lotID, houseItemFiltersFromQuery(r), 1, 10000)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := GenerateHouseItemExport(items)
	if err != nil {
		h.logger.Error("failed to generate house item export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="house_items.xlsx"`)
	_, _ = w.Write(data)
}

// LatestGateCheck 查询 (lot, transition) 最近一次检查
func (h *LotHandler) LatestGateCheck(w http.ResponseWriter, r *http.Request, lotID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	transition := domain.Transition(r.URL.Query().Get("transition"))
	check, items, err := h.gateCheckService.GetLatest(r.Context(), tenantID, lotID, transition)
	if err != nil {
		writeError(w, err)
		return
	}
	if check == nil {
		writeJSON(w, http.StatusOK, Ok[any](nil))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"check": check,
		"items": items,
	}))
}
