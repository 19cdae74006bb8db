package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"sitelink-data/internal/domain"
	"sitelink-data/internal/repository"
	"sitelink-data/internal/service"
)

// CrewHandler 班组与派工 Handler
// 负责 /site/api/v1/crews 与 /site/api/v1/assignments 两个前缀
type CrewHandler struct {
	crewService service.CrewService
	routing     service.RoutingService
	logger      *zap.Logger
}

// NewCrewHandler 创建班组 Handler
func NewCrewHandler(crewService service.CrewService, routing service.RoutingService, logger *zap.Logger) *CrewHandler {
	return &CrewHandler{
		crewService: crewService,
		routing:     routing,
		logger:      logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *CrewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// /assignments | /assignments/{id}/status
	if strings.HasPrefix(r.URL.Path, "/site/api/v1/assignments") {
		path := strings.TrimPrefix(r.URL.Path, "/site/api/v1/assignments")
		path = strings.TrimPrefix(path, "/")
		if path == "" {
			switch r.Method {
			case http.MethodGet:
				h.ListAssignments(w, r)
			case http.MethodPost:
				h.AssignCrew(w, r)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
			return
		}
		parts := strings.Split(path, "/")
		if len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPut {
			h.SetAssignmentStatus(w, r, parts[0])
			return
		}
		w.WriteHeader(http.StatusNotFound)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/site/api/v1/crews")
	path = strings.TrimPrefix(path, "/")

	// /crews
	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.ListCrews(w, r)
		case http.MethodPost:
			h.CreateCrew(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	parts := strings.Split(path, "/")
	crewID := parts[0]

	switch {
	// /crews/{id}
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.GetCrew(w, r, crewID)
	// /crews/{id}/lots
	case len(parts) == 2 && parts[1] == "lots" && r.Method == http.MethodGet:
		h.CrewLots(w, r, crewID)
	// /crews/{id}/lots/{lotId}/phases
	case len(parts) == 4 && parts[1] == "lots" && parts[3] == "phases" && r.Method == http.MethodGet:
		h.CrewPhasesOnLot(w, r, crewID, parts[2])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListCrews 查询班组列表
func (h *CrewHandler) ListCrews(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	page, size := pageSizeFromQuery(r)
	crews, total, err := h.crewService.ListCrews(r.Context(), tenantID, page, size)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": crews,
		"total": total,
	}))
}

// GetCrew 获取班组
func (h *CrewHandler) GetCrew(w http.ResponseWriter, r *http.Request, crewID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	crew, err := h.crewService.GetCrew(r.Context(), tenantID, crewID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(crew))
}

// CreateCrew 创建班组
func (h *CrewHandler) CreateCrew(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	var body struct {
		CrewName        string  `json:"crew_name"`
		LeadName        string  `json:"lead_name"`
		Specialty       string  `json:"specialty"`
		InsuranceNumber *string `json:"insurance_number"`
		InsuranceExpiry *string `json:"insurance_expiry"` // RFC3339 日期
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	req := service.CreateCrewRequest{
		TenantID:        tenantID,
		CrewName:        body.CrewName,
		LeadName:        body.LeadName,
		Specialty:       body.Specialty,
		InsuranceNumber: body.InsuranceNumber,
	}
	if body.InsuranceExpiry != nil {
		expiry, err := time.Parse(time.RFC3339, *body.InsuranceExpiry)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid insurance_expiry, expect RFC3339"))
			return
		}
		req.InsuranceExpiry = &expiry
	}

	crew, err := h.crewService.CreateCrew(r.Context(), req)
	if err != nil {
		h.logger.Error("failed to create crew", zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(crew))
}

// AssignCrew 派工
func (h *CrewHandler) AssignCrew(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}
	userID, ok := actorFromReq(w, r)
	if !ok {
		return
	}

	var body struct {
		LotID  string `json:"lot_id"`
		Phase  string `json:"phase"`
		CrewID string `json:"crew_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	assignment, err := h.crewService.AssignCrew(r.Context(), service.AssignCrewRequest{
		TenantID:   tenantID,
		LotID:      body.LotID,
		Phase:      domain.PhaseID(body.Phase),
		CrewID:     body.CrewID,
		AssignedBy: userID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(assignment))
}

// SetAssignmentStatus 推进派工状态
func (h *CrewHandler) SetAssignmentStatus(w http.ResponseWriter, r *http.Request, assignmentID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	assignment, err := h.crewService.SetAssignmentStatus(r.Context(), tenantID, assignmentID, domain.AssignmentStatus(body.Status))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(assignment))
}

// ListAssignments 查询派工记录
func (h *CrewHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filters := &repository.AssignmentFilters{
		LotID:   q.Get("lot_id"),
		CrewID:  q.Get("crew_id"),
		PhaseID: domain.PhaseID(q.Get("phase_id")),
		Status:  domain.AssignmentStatus(q.Get("status")),
	}
	page, size := pageSizeFromQuery(r)

	assignments, total, err := h.crewService.ListAssignments(r.Context(), tenantID, filters, page, size)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": assignments,
		"total": total,
	}))
}

// CrewLots 班组名下有活动派工的地块
func (h *CrewHandler) CrewLots(w http.ResponseWriter, r *http.Request, crewID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	lotIDs, err := h.routing.FindLotsForCrew(r.Context(), tenantID, crewID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"lot_ids": lotIDs}))
}

// CrewPhasesOnLot 班组在某地块上的活动阶段
func (h *CrewHandler) CrewPhasesOnLot(w http.ResponseWriter, r *http.Request, crewID, lotID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	phases, err := h.routing.FindPhasesForCrewOnLot(r.Context(), tenantID, crewID, lotID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"phases": phases}))
}
