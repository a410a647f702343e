package httpapi

import (
	"net/http"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/service"
)

// ============================================
// Finance
// ============================================

func (a *API) ListTransactions(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	resp, err := a.Finance.List(r.Context(), p)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (a *API) CreateTransaction(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	var req service.CreateTransactionRequest
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	t, err := a.Finance.Create(r.Context(), p, req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(t))
}

func (a *API) DeleteTransaction(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	if err := a.Finance.Delete(r.Context(), p, r.PathValue("id")); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

func (a *API) ExportFinance(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	data, err := a.Finance.Export(r.Context(), p)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeXLSX(w, "laporan-keuangan.xlsx", data)
}

// ============================================
// Dues
// ============================================

func (a *API) ListDues(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	items, err := a.Dues.List(r.Context(), p)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}

func (a *API) VerifyDues(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	rec, err := a.Dues.Verify(r.Context(), p, r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

// ============================================
// Letters
// ============================================

func (a *API) ListLetters(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	items, err := a.Letters.List(r.Context(), p)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}

// ApproveLetter JSON 或 multipart: payload + document
func (a *API) ApproveLetter(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	var req service.ApproveLetterRequest
	doc, err := readSubmission(w, r, &req, "document")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	req.Document = doc

	l, err := a.Letters.Approve(r.Context(), p, r.PathValue("id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(l))
}

func (a *API) RejectLetter(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	l, err := a.Letters.Reject(r.Context(), p, r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(l))
}

// ============================================
// Incident reports
// ============================================

func (a *API) ListReports(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	items, err := a.Reports.List(r.Context(), p)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}

func (a *API) UpdateReportStatus(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := readBodyJSON(r, maxJSONBody, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if err := a.Reports.UpdateStatus(r.Context(), p, r.PathValue("id"), payload.Status); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true, "status": payload.Status}))
}

func (a *API) DeleteReport(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	if err := a.Reports.Delete(r.Context(), p, r.PathValue("id")); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// ============================================
// Bulletins
// ============================================

func (a *API) CreateBulletin(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	var req service.CreateBulletinRequest
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	b, err := a.Bulletins.Create(r.Context(), p, req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(b))
}

func (a *API) DeleteBulletin(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	if err := a.Bulletins.Delete(r.Context(), p, r.PathValue("id")); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// ============================================
// Waste bank
// ============================================

func (a *API) ListDeposits(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	items, err := a.WasteBank.List(r.Context(), p)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}

func (a *API) CreateDeposit(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	var req service.DepositRequest
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	d, err := a.WasteBank.Deposit(r.Context(), p, req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(d))
}

// AdminLeaderboard 与公开排行榜同源（全 RW）
func (a *API) AdminLeaderboard(w http.ResponseWriter, r *http.Request, _ *access.Principal) {
	a.WasteLeaderboard(w, r)
}
