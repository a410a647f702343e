package httpapi

import (
	"net/http"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/service"

	"go.uber.org/zap"
)

// API 汇总所有 handler 依赖的服务
type API struct {
	Auth      service.AuthService
	Access    service.AccessService
	Census    service.CensusService
	Finance   service.FinanceService
	Dues      service.DuesService
	Letters   service.LetterService
	Reports   service.ReportService
	Bulletins service.BulletinService
	WasteBank service.WasteBankService
	Dashboard service.DashboardService
	Logger    *zap.Logger
}

type principalHandler func(w http.ResponseWriter, r *http.Request, p *access.Principal)

// withPrincipal resolves the bearer session into a principal. Role and scope are read
// from admin_roles on every request.
func (a *API) withPrincipal(h principalHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, a.Logger, r, service.ErrUnauthenticated)
			return
		}
		p, err := a.Auth.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, a.Logger, r, err)
			return
		}
		h(w, r, p)
	}
}

// requireFeature rejects the request before any data is fetched when the role lacks feature.
func (a *API) requireFeature(feature access.Feature, h principalHandler) http.HandlerFunc {
	return a.withPrincipal(func(w http.ResponseWriter, r *http.Request, p *access.Principal) {
		if err := a.Access.Authorize(p, feature); err != nil {
			writeError(w, a.Logger, r, err)
			return
		}
		h(w, r, p)
	})
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, a.Logger, r, err)
}
