package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/metrics"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（方法 + 路径通配符模式）
type Router struct {
	mux     *http.ServeMux
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewRouter(m *metrics.Metrics, logger *zap.Logger) *Router {
	return &Router{
		mux:     http.NewServeMux(),
		metrics: m,
		logger:  logger,
	}
}

// Handle registers h under pattern and records its latency labelled by pattern.
func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, r.instrument(pattern, h))
}

// HandleHandler 支持 http.Handler 接口（用于 /metrics 等，不计入延迟指标）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (r *Router) instrument(pattern string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, req)
		r.metrics.ObserveRequest(pattern, strconv.Itoa(rec.status), time.Since(start))
	}
}

// RegisterPublicRoutes 居民端（无需登录）
func (r *Router) RegisterPublicRoutes(api *API) {
	r.Handle("POST /public/api/v1/census", api.SubmitHousehold)
	r.Handle("GET /public/api/v1/census/check", api.CheckExisting)
	r.Handle("GET /public/api/v1/people/lookup", api.LookupPerson)

	r.Handle("GET /public/api/v1/finance/summary", api.PublicFinanceSummary)

	r.Handle("POST /public/api/v1/letters", api.SubmitLetter)
	r.Handle("GET /public/api/v1/letters", api.TrackLetters)

	r.Handle("POST /public/api/v1/reports", api.SubmitReport)
	r.Handle("POST /public/api/v1/dues", api.SubmitDues)

	r.Handle("GET /public/api/v1/waste-bank/prices", api.WastePrices)
	r.Handle("GET /public/api/v1/waste-bank/balance", api.WasteBalance)
	r.Handle("GET /public/api/v1/waste-bank/leaderboard", api.WasteLeaderboard)

	r.Handle("GET /public/api/v1/bulletins", api.ListBulletins)
}

// RegisterAuthRoutes 登录 / 登出 / 当前用户
func (r *Router) RegisterAuthRoutes(api *API) {
	r.Handle("POST /auth/api/v1/login", api.Login)
	r.Handle("POST /auth/api/v1/logout", api.Logout)
	r.Handle("GET /auth/api/v1/me", api.withPrincipal(api.Me))
}

// RegisterAdminRoutes 管理端：每个路由先鉴权（功能矩阵），再取数
func (r *Router) RegisterAdminRoutes(api *API) {
	const p = "/admin/api/v1"

	r.Handle("GET "+p+"/dashboard", api.requireFeature(access.FeatureDashboard, api.DashboardStats))

	// people
	r.Handle("GET "+p+"/people", api.requireFeature(access.FeaturePeople, api.ListPeople))
	r.Handle("GET "+p+"/people/households", api.requireFeature(access.FeaturePeople, api.ListHouseholds))
	r.Handle("GET "+p+"/people/export", api.requireFeature(access.FeaturePeople, api.ExportPeople))
	r.Handle("POST "+p+"/people", api.requireFeature(access.FeaturePeople, api.CreatePerson))
	r.Handle("PUT "+p+"/people/{id}", api.requireFeature(access.FeaturePeople, api.UpdatePerson))
	r.Handle("DELETE "+p+"/people/{id}", api.requireFeature(access.FeaturePeople, api.DeletePerson))
	r.Handle("GET "+p+"/map/households", api.requireFeature(access.FeatureMap, api.ListHouseholds))

	// finance
	r.Handle("GET "+p+"/finance", api.requireFeature(access.FeatureFinance, api.ListTransactions))
	r.Handle("GET "+p+"/finance/export", api.requireFeature(access.FeatureFinance, api.ExportFinance))
	r.Handle("POST "+p+"/finance", api.requireFeature(access.FeatureFinance, api.CreateTransaction))
	r.Handle("DELETE "+p+"/finance/{id}", api.requireFeature(access.FeatureFinance, api.DeleteTransaction))

	// dues verification
	r.Handle("GET "+p+"/dues", api.requireFeature(access.FeatureVerification, api.ListDues))
	r.Handle("POST "+p+"/dues/{id}/verify", api.requireFeature(access.FeatureVerification, api.VerifyDues))

	// letters
	r.Handle("GET "+p+"/letters", api.requireFeature(access.FeatureLetters, api.ListLetters))
	r.Handle("POST "+p+"/letters/{id}/approve", api.requireFeature(access.FeatureLetters, api.ApproveLetter))
	r.Handle("POST "+p+"/letters/{id}/reject", api.requireFeature(access.FeatureLetters, api.RejectLetter))

	// incident reports
	r.Handle("GET "+p+"/reports", api.requireFeature(access.FeatureIncidentReports, api.ListReports))
	r.Handle("PUT "+p+"/reports/{id}/status", api.requireFeature(access.FeatureIncidentReports, api.UpdateReportStatus))
	r.Handle("DELETE "+p+"/reports/{id}", api.requireFeature(access.FeatureIncidentReports, api.DeleteReport))

	// bulletins
	r.Handle("POST "+p+"/bulletins", api.requireFeature(access.FeatureBulletin, api.CreateBulletin))
	r.Handle("DELETE "+p+"/bulletins/{id}", api.requireFeature(access.FeatureBulletin, api.DeleteBulletin))

	// waste bank
	r.Handle("GET "+p+"/waste-bank/deposits", api.requireFeature(access.FeatureWasteBank, api.ListDeposits))
	r.Handle("POST "+p+"/waste-bank/deposits", api.requireFeature(access.FeatureWasteBank, api.CreateDeposit))
	r.Handle("GET "+p+"/waste-bank/leaderboard", api.requireFeature(access.FeatureWasteBank, api.AdminLeaderboard))
}

// RegisterOpsRoutes 健康检查与 Prometheus
func (r *Router) RegisterOpsRoutes(metricsHandler http.Handler) {
	r.Handle("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})
	r.HandleHandler("GET /metrics", metricsHandler)
}
