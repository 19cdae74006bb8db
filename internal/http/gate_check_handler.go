package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"sitelink-data/internal/domain"
	"sitelink-data/internal/service"
)

// GateCheckHandler 闸口检查 Handler
// 负责 /site/api/v1/gate-checks 与 /site/api/v1/gate-check-items 两个前缀
type GateCheckHandler struct {
	gateCheckService service.GateCheckService
	logger           *zap.Logger
}

// NewGateCheckHandler 创建闸口检查 Handler
func NewGateCheckHandler(gateCheckService service.GateCheckService, logger *zap.Logger) *GateCheckHandler {
	return &GateCheckHandler{
		gateCheckService: gateCheckService,
		logger:           logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *GateCheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// /gate-check-items/{id}/result | /gate-check-items/{id}/link-deficiency
	if strings.HasPrefix(r.URL.Path, "/site/api/v1/gate-check-items/") {
		path := strings.TrimPrefix(r.URL.Path, "/site/api/v1/gate-check-items/")
		parts := strings.Split(path, "/")
		switch {
		case len(parts) == 2 && parts[1] == "result" && r.Method == http.MethodPut:
			h.RecordItemResult(w, r, parts[0])
		case len(parts) == 2 && parts[1] == "link-deficiency" && r.Method == http.MethodPut:
			h.LinkDeficiency(w, r, parts[0])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/site/api/v1/gate-checks")
	path = strings.TrimPrefix(path, "/")

	// /gate-checks
	if path == "" {
		if r.Method == http.MethodPost {
			h.Start(w, r)
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(path, "/")
	switch {
	// /gate-checks/{id}
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.Get(w, r, parts[0])
	// /gate-checks/{id}/complete
	case len(parts) == 2 && parts[1] == "complete" && r.Method == http.MethodPost:
		h.Complete(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Start 开始一次闸口检查
func (h *GateCheckHandler) Start(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}
	userID, ok := actorFromReq(w, r)
	if !ok {
		return
	}

	var body struct {
		LotID      string `json:"lot_id"`
		Transition string `json:"transition"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	check, items, err := h.gateCheckService.Start(r.Context(), service.StartGateCheckRequest{
		TenantID:   tenantID,
		LotID:      body.LotID,
		Transition: domain.Transition(body.Transition),
		CheckedBy:  userID,
	})
	if err != nil {
		h.logger.Warn("failed to start gate check",
			zap.String("lot_id", body.LotID),
			zap.String("transition", body.Transition),
			zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"check": check,
		"items": items,
	}))
}

// Get 获取检查详情
func (h *GateCheckHandler) Get(w http.ResponseWriter, r *http.Request, gateCheckID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	check, items, err := h.gateCheckService.Get(r.Context(), tenantID, gateCheckID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"check": check,
		"items": items,
	}))
}

// Complete 完成检查，计算通过/失败
func (h *GateCheckHandler) Complete(w http.ResponseWriter, r *http.Request, gateCheckID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	check, err := h.gateCheckService.Complete(r.Context(), tenantID, gateCheckID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(check))
}

// RecordItemResult 记录检查项结果
func (h *GateCheckHandler) RecordItemResult(w http.ResponseWriter, r *http.Request, itemID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	var body struct {
		Result   string  `json:"result"`
		PhotoURL *string `json:"photo_url"`
		Notes    *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	item, err := h.gateCheckService.RecordItemResult(r.Context(), service.RecordItemResultRequest{
		TenantID: tenantID,
		ItemID:   itemID,
		Result:   domain.ItemResult(body.Result),
		PhotoURL: body.PhotoURL,
		Notes:    body.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(item))
}

// LinkDeficiency 关联失败检查项与房屋问题
func (h *GateCheckHandler) LinkDeficiency(w http.ResponseWriter, r *http.Request, itemID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	var body struct {
		HouseItemID string `json:"house_item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	if err := h.gateCheckService.LinkDeficiency(r.Context(), tenantID, itemID, body.HouseItemID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"linked": true}))
}
