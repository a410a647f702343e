package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"
	"github.com/Fadhlan-athha/manajemen-warga/internal/metrics"
	"github.com/Fadhlan-athha/manajemen-warga/internal/notify"
	"github.com/Fadhlan-athha/manajemen-warga/internal/repository"
	"github.com/Fadhlan-athha/manajemen-warga/internal/service"
	"github.com/Fadhlan-athha/manajemen-warga/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memUploader struct{}

func (memUploader) Enabled() bool { return true }

func (memUploader) Store(_ context.Context, key, _ string, body io.Reader) (string, error) {
	_, _ = io.ReadAll(body)
	return "https://files.test/" + key, nil
}

type countingLetters struct {
	service.LetterService
	lists int
}

func (c *countingLetters) List(ctx context.Context, p *access.Principal) ([]*domain.LetterRequest, error) {
	c.lists++
	return c.LetterService.List(ctx, p)
}

type testServer struct {
	srv     *httptest.Server
	auth    service.AuthService
	letters *countingLetters
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	people := repository.NewMemoryPeopleRepo()
	ledger := repository.NewMemoryLedgerRepo()
	admins := repository.NewMemoryAdminRolesRepo()
	accessSvc := service.NewAccessService(admins, access.DefaultMatrix(), m, logger)
	dispatcher := notify.NewDispatcher(notify.Noop{}, logger)
	t.Cleanup(dispatcher.Wait)
	sessions := store.NewSessionStore(store.NewMemoryKV(), time.Hour)

	letters := &countingLetters{LetterService: service.NewLetterService(ledger, people, accessSvc, memUploader{}, logger)}
	api := &API{
		Auth:      service.NewAuthService(admins, sessions, accessSvc, logger),
		Access:    accessSvc,
		Census:    service.NewCensusService(people, accessSvc, memUploader{}, m, logger),
		Finance:   service.NewFinanceService(ledger, accessSvc, logger),
		Dues:      service.NewDuesService(ledger, people, accessSvc, memUploader{}, logger),
		Letters:   letters,
		Reports:   service.NewReportService(ledger, accessSvc, dispatcher, logger),
		Bulletins: service.NewBulletinService(ledger, dispatcher, logger),
		WasteBank: service.NewWasteBankService(ledger, people, accessSvc, nil, logger),
		Dashboard: service.NewDashboardService(people, ledger, logger),
		Logger:    logger,
	}

	router := NewRouter(m, logger)
	router.RegisterPublicRoutes(api)
	router.RegisterAuthRoutes(api)
	router.RegisterAdminRoutes(api)
	router.RegisterOpsRoutes(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return &testServer{srv: ts, auth: api.Auth, letters: letters}
}

type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (s *testServer) login(t *testing.T, role access.Role, subdivision string) string {
	t.Helper()
	email := string(role) + subdivision + "@rw05.id"
	req := service.SeedAdminRequest{Email: email, Password: "password-123", Role: role, DisplayName: email}
	if subdivision != "" {
		req.SubdivisionCode = &subdivision
	}
	require.NoError(t, s.auth.SeedAdmin(context.Background(), req))

	status, env := s.do(t, http.MethodPost, "/auth/api/v1/login", "", map[string]any{"email": email, "password": "password-123"})
	require.Equal(t, http.StatusOK, status, env.Message)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &out))
	return out.Token
}

func household(kk, rt string, confirm bool, niks ...string) map[string]any {
	members := make([]map[string]any, 0, len(niks))
	for i, nik := range niks {
		role := "Anak"
		if i == 0 {
			role = "Kepala Keluarga"
		}
		members = append(members, map[string]any{"national_id": nik, "full_name": "Warga " + nik[:4], "role": role})
	}
	return map[string]any{
		"family_card_number": kk,
		"subdivision":        rt,
		"members":            members,
		"confirm_overwrite":  confirm,
	}
}

func TestCensusSubmission_ConflictThenOverwrite(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/public/api/v1/census", "", household("3201000000009999", "01", false, "1111111111111111", "2222222222222222"))
	require.Equal(t, http.StatusCreated, status)

	status, env := s.do(t, http.MethodGet, "/public/api/v1/census/check?field=national_id&value=1111111111111111", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"exists":true}`, string(env.Result))

	status, env = s.do(t, http.MethodPost, "/public/api/v1/census", "", household("3201000000008888", "01", false, "1111111111111111"))
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, ResultConflict, env.Code)
	assert.Contains(t, string(env.Result), `"value":"1111111111111111"`)

	status, _ = s.do(t, http.MethodPost, "/public/api/v1/census", "", household("3201000000008888", "01", true, "1111111111111111"))
	assert.Equal(t, http.StatusCreated, status)
}

func TestCensusCheck_InvalidValue(t *testing.T) {
	s := newTestServer(t)
	status, env := s.do(t, http.MethodGet, "/public/api/v1/census/check?field=national_id&value=123", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ResultError, env.Code)
}

func TestCensusSubmission_MultipartPhoto(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	payload, err := json.Marshal(household("3201000000007777", "03", false, "3333333333333333"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("payload", string(payload)))
	fw, err := mw.CreateFormFile("photo", "kk.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("\xff\xd8\xff\xe0 jpeg"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/public/api/v1/census", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	status, env := s.send(t, req)
	require.Equal(t, http.StatusCreated, status, env.Message)

	var out service.SubmitHouseholdResponse
	require.NoError(t, json.Unmarshal(env.Result, &out))
	assert.True(t, strings.HasPrefix(out.PhotoURL, "https://files.test/kk/"))
}

func TestAdmin_RequiresSession(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/admin/api/v1/people", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, ResultTokenExpired, env.Code)

	status, _ = s.do(t, http.MethodGet, "/admin/api/v1/people", "not-a-session", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAdmin_FeatureCheckedBeforeFetch(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, access.RoleTreasurer, "02")

	status, _ := s.do(t, http.MethodGet, "/admin/api/v1/letters", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, 0, s.letters.lists)

	sec := s.login(t, access.RoleSecretary, "02")
	status, _ = s.do(t, http.MethodGet, "/admin/api/v1/letters", sec, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, s.letters.lists)
}

func TestAdmin_TreasurerFinanceIsScoped(t *testing.T) {
	s := newTestServer(t)
	rw := s.login(t, access.RoleTopLevelCoordinator, "")
	treasurer := s.login(t, access.RoleTreasurer, "02")

	for _, rt := range []string{"01", "01", "02"} {
		status, env := s.do(t, http.MethodPost, "/admin/api/v1/finance", rw, map[string]any{
			"type": "Pemasukan", "category": "Donasi", "amount": 10000, "subdivision": rt,
		})
		require.Equal(t, http.StatusCreated, status, env.Message)
	}

	status, env := s.do(t, http.MethodGet, "/admin/api/v1/finance", treasurer, nil)
	require.Equal(t, http.StatusOK, status)
	var list service.FinanceListResponse
	require.NoError(t, json.Unmarshal(env.Result, &list))
	require.Len(t, list.Items, 1)
	for _, tx := range list.Items {
		assert.Equal(t, "02", tx.Subdivision)
	}

	// deleting a row from another subdivision is a scope violation
	status, env = s.do(t, http.MethodGet, "/admin/api/v1/finance", rw, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Result, &list))
	var foreign string
	for _, tx := range list.Items {
		if tx.Subdivision == "01" {
			foreign = tx.ID
		}
	}
	status, _ = s.do(t, http.MethodDelete, "/admin/api/v1/finance/"+foreign, treasurer, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAuth_MeAndLogout(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, access.RoleSubdivisionCoordinator, "04")

	status, env := s.do(t, http.MethodGet, "/auth/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	var me service.MeResponse
	require.NoError(t, json.Unmarshal(env.Result, &me))
	assert.Equal(t, "rt:04", me.Scope)
	assert.NotContains(t, me.Features, access.FeatureSettings)

	status, _ = s.do(t, http.MethodPost, "/auth/api/v1/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodGet, "/auth/api/v1/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodPost, "/auth/api/v1/login", "", map[string]any{"email": "x@y.z", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestOpsRoutes(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, status)

	// latency is observed after the response is written
	require.Eventually(t, func() bool {
		resp, err := http.Get(s.srv.URL + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		return err == nil && strings.Contains(string(body), `warga_http_request_duration_seconds_count{route="GET /healthz",status="200"}`)
	}, time.Second, 20*time.Millisecond)
}
