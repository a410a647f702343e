package httpapi

import (
	"net/http"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/service"
)

// Login 邮箱 + 密码 → 会话 token
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	req.IPAddress = clientIP(r)

	resp, err := a.Auth.Login(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Logout 删除会话；没有 token 时也返回成功
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		if err := a.Auth.Logout(r.Context(), token); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// Me 当前管理员的角色、范围与可用功能
func (a *API) Me(w http.ResponseWriter, _ *http.Request, p *access.Principal) {
	writeJSON(w, http.StatusOK, Ok(a.Auth.Me(p)))
}
