package httpapi

import (
	"net/http"

	"github.com/Fadhlan-athha/manajemen-warga/internal/service"
)

// SubmitHousehold 整户提交（JSON 或 multipart: payload + photo）
func (a *API) SubmitHousehold(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitHouseholdRequest
	photo, err := readSubmission(w, r, &req, "photo")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	req.Photo = photo

	resp, err := a.Census.SubmitHousehold(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

// CheckExisting ?field=national_id|family_card_number&value=
func (a *API) CheckExisting(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	exists, err := a.Census.CheckExisting(r.Context(), q.Get("field"), q.Get("value"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"exists": exists}))
}

// LookupPerson 按 NIK 自动填充姓名
func (a *API) LookupPerson(w http.ResponseWriter, r *http.Request) {
	p, err := a.Census.Lookup(r.Context(), r.URL.Query().Get("nik"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(p))
}

func (a *API) PublicFinanceSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := a.Finance.PublicSummary(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(sum))
}

func (a *API) SubmitLetter(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitLetterRequest
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	l, err := a.Letters.Submit(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(l))
}

// TrackLetters ?nik=
func (a *API) TrackLetters(w http.ResponseWriter, r *http.Request) {
	items, err := a.Letters.Track(r.Context(), r.URL.Query().Get("nik"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}

// SubmitReport panic button
func (a *API) SubmitReport(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitReportRequest
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	rep, err := a.Reports.Submit(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(rep))
}

// SubmitDues JSON 或 multipart: payload + proof
func (a *API) SubmitDues(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitDuesRequest
	proof, err := readSubmission(w, r, &req, "proof")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	req.Proof = proof

	rec, err := a.Dues.Submit(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(rec))
}

func (a *API) WastePrices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Ok(a.WasteBank.Prices()))
}

// WasteBalance ?nik=
func (a *API) WasteBalance(w http.ResponseWriter, r *http.Request) {
	b, err := a.WasteBank.Balance(r.Context(), r.URL.Query().Get("nik"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(b))
}

func (a *API) WasteLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := a.WasteBank.Leaderboard(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": board}))
}

func (a *API) ListBulletins(w http.ResponseWriter, r *http.Request) {
	items, err := a.Bulletins.List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}
