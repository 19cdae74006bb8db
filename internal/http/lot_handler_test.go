package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sitelink-data/internal/domain"
	"sitelink-data/internal/repository"
	"sitelink-data/internal/service"
)

const (
	testTenant = "11111111-1111-1111-1111-111111111111"
	testUser   = "55555555-5555-5555-5555-555555555555"
)

func setupRouter(t *testing.T) (*Router, *repository.MemoryLotsRepository) {
	logger := zap.NewNop()

	lotsRepo := repository.NewMemoryLotsRepository()
	crewsRepo := repository.NewMemoryCrewsRepository()
	assignmentsRepo := repository.NewMemoryAssignmentsRepository()
	itemsRepo := repository.NewMemoryHouseItemsRepository()
	checksRepo := repository.NewMemoryGateChecksRepository()
	templatesRepo := repository.NewMemoryTemplatesRepository()

	routing := service.NewRoutingService(assignmentsRepo, logger)
	advancement := service.NewAdvancementService(itemsRepo, checksRepo, lotsRepo, nil, logger)
	lotService := service.NewLotService(lotsRepo, advancement, nil, logger)
	houseItemService := service.NewHouseItemService(itemsRepo, lotsRepo, routing, advancement, nil, logger)
	gateCheckService := service.NewGateCheckService(checksRepo, templatesRepo, lotsRepo, itemsRepo, advancement, nil, logger)
	crewService := service.NewCrewService(crewsRepo, assignmentsRepo, lotsRepo, logger)

	router := NewRouter(logger)
	router.RegisterSiteRoutes(
		NewLotHandler(lotService, advancement, houseItemService, gateCheckService, logger),
		NewHouseItemHandler(houseItemService, logger),
		NewGateCheckHandler(gateCheckService, logger),
		NewCrewHandler(crewService, routing, logger),
	)

	return router, lotsRepo
}

func doJSON(t *testing.T, router *Router, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Tenant-Id", testTenant)
	req.Header.Set("X-User-Id", testUser)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	var res map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestLotHandler_CreateAndGet(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/site/api/v1/lots", map[string]any{
		"jobsite_id": "22222222-2222-2222-2222-222222222222",
		"lot_number": "L-201",
	})
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeResult(t, w)
	assert.Equal(t, float64(2000), res["code"])
	lot := res["result"].(map[string]any)
	lotID := lot["LotID"].(string)
	require.NotEmpty(t, lotID)

	w = doJSON(t, router, http.MethodGet, "/site/api/v1/lots/"+lotID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// 未知地块 404
	w = doJSON(t, router, http.MethodGet, "/site/api/v1/lots/33333333-3333-3333-3333-333333333333", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLotHandler_MissingTenantHeader(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/site/api/v1/lots", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLotHandler_AdvanceBlockedReturnsConflict(t *testing.T) {
	router, lotsRepo := setupRouter(t)

	phase := domain.PhaseWalls2
	lotID, err := lotsRepo.CreateLot(context.Background(), testTenant, &domain.Lot{
		JobsiteID:    "22222222-2222-2222-2222-222222222222",
		LotNumber:    "L-202",
		CurrentPhase: &phase,
		Status:       domain.LotInProgress,
	})
	require.NoError(t, err)

	// walls_2 没有通过的 framing_to_roofing 检查：推进被拒，409 带判定结果
	w := doJSON(t, router, http.MethodPost, "/site/api/v1/lots/"+lotID+"/advance", map[string]any{})
	require.Equal(t, http.StatusConflict, w.Code)
	res := decodeResult(t, w)
	result := res["result"].(map[string]any)
	decision := result["decision"].(map[string]any)
	assert.Equal(t, false, decision["allowed"])
	blockers := decision["blockers"].([]any)
	require.Len(t, blockers, 1)
	assert.Contains(t, blockers[0].(string), "framing_to_roofing")
}

func TestGateCheckHandler_StartRecordComplete(t *testing.T) {
	router, lotsRepo := setupRouter(t)

	lotID, err := lotsRepo.CreateLot(context.Background(), testTenant, &domain.Lot{
		JobsiteID: "22222222-2222-2222-2222-222222222222",
		LotNumber: "L-203",
		Status:    domain.LotInProgress,
	})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodPost, "/site/api/v1/gate-checks", map[string]any{
		"lot_id":     lotID,
		"transition": "backframe_to_final",
	})
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeResult(t, w)
	result := res["result"].(map[string]any)
	check := result["check"].(map[string]any)
	items := result["items"].([]any)
	gateCheckID := check["GateCheckID"].(string)
	require.Len(t, items, 10)

	// 未记录结果就完成：400
	w = doJSON(t, router, http.MethodPost, "/site/api/v1/gate-checks/"+gateCheckID+"/complete", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, raw := range items {
		itemID := raw.(map[string]any)["GateCheckItemID"].(string)
		w = doJSON(t, router, http.MethodPut, "/site/api/v1/gate-check-items/"+itemID+"/result", map[string]any{
			"result": "pass",
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/site/api/v1/gate-checks/"+gateCheckID+"/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res = decodeResult(t, w)
	completed := res["result"].(map[string]any)
	assert.Equal(t, "passed", completed["Status"])

	// latest 返回刚完成的检查
	w = doJSON(t, router, http.MethodGet, "/site/api/v1/lots/"+lotID+"/gate-checks/latest?transition=backframe_to_final", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHouseItemHandler_ReportAndResolve(t *testing.T) {
	router, lotsRepo := setupRouter(t)

	lotID, err := lotsRepo.CreateLot(context.Background(), testTenant, &domain.Lot{
		JobsiteID: "22222222-2222-2222-2222-222222222222",
		LotNumber: "L-204",
		Status:    domain.LotInProgress,
	})
	require.NoError(t, err)

	// 无照片上报：400
	w := doJSON(t, router, http.MethodPost, "/site/api/v1/lots/"+lotID+"/house-items", map[string]any{
		"type":     "safety",
		"severity": "high",
		"title":    "Exposed rebar",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/site/api/v1/lots/"+lotID+"/house-items", map[string]any{
		"type":      "safety",
		"severity":  "high",
		"title":     "Exposed rebar",
		"photo_url": "https://p/rebar.jpg",
	})
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeResult(t, w)
	item := res["result"].(map[string]any)
	itemID := item["ItemID"].(string)
	assert.Equal(t, true, item["Blocking"]) // safety 强制阻塞

	w = doJSON(t, router, http.MethodPost, "/site/api/v1/house-items/"+itemID+"/resolve", map[string]any{
		"resolved_photo": "https://p/rebar-capped.jpg",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// 重复解决：409
	w = doJSON(t, router, http.MethodPost, "/site/api/v1/house-items/"+itemID+"/resolve", map[string]any{
		"resolved_photo": "https://p/again.jpg",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}
