package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"sitelink-data/internal/service"
)

// HouseItemHandler 房屋问题 Handler
// 地块维度的查询/上报路由挂在 LotHandler 下，这里只处理按问题 ID 的操作
type HouseItemHandler struct {
	houseItemService service.HouseItemService
	logger           *zap.Logger
}

// NewHouseItemHandler 创建房屋问题 Handler
func NewHouseItemHandler(houseItemService service.HouseItemService, logger *zap.Logger) *HouseItemHandler {
	return &HouseItemHandler{
		houseItemService: houseItemService,
		logger:           logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *HouseItemHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/site/api/v1/house-items/")
	parts := strings.Split(path, "/")

	switch {
	// /house-items/{id}/resolve
	case len(parts) == 2 && parts[1] == "resolve" && r.Method == http.MethodPost:
		h.Resolve(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Resolve 解决问题
func (h *HouseItemHandler) Resolve(w http.ResponseWriter, r *http.Request, itemID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}
	userID, ok := actorFromReq(w, r)
	if !ok {
		return
	}

	var body struct {
		ResolvedPhoto  string  `json:"resolved_photo"`
		ResolutionNote *string `json:"resolution_note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	item, err := h.houseItemService.Resolve(r.Context(), service.ResolveHouseItemRequest{
		TenantID:       tenantID,
		ItemID:         itemID,
		ResolvedBy:     userID,
		ResolvedPhoto:  body.ResolvedPhoto,
		ResolutionNote: body.ResolutionNote,
	})
	if err != nil {
		h.logger.Warn("failed to resolve house item",
			zap.String("item_id", itemID),
			zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(item))
}
