package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterSiteRoutes 注册工作流引擎全部路由
// 各 Handler 自带前缀内的路径分发（见各自 ServeHTTP）
func (r *Router) RegisterSiteRoutes(
	lots *LotHandler,
	houseItems *HouseItemHandler,
	gateChecks *GateCheckHandler,
	crews *CrewHandler,
) {
	r.HandleHandler("/site/api/v1/lots", lots)
	r.HandleHandler("/site/api/v1/lots/", lots)

	r.HandleHandler("/site/api/v1/house-items/", houseItems)

	r.HandleHandler("/site/api/v1/gate-checks", gateChecks)
	r.HandleHandler("/site/api/v1/gate-checks/", gateChecks)
	r.HandleHandler("/site/api/v1/gate-check-items/", gateChecks)

	r.HandleHandler("/site/api/v1/crews", crews)
	r.HandleHandler("/site/api/v1/crews/", crews)
	r.HandleHandler("/site/api/v1/assignments", crews)
	r.HandleHandler("/site/api/v1/assignments/", crews)
}
