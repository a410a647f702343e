package httpapi

import (
	"net/http"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/repository"
	"github.com/Fadhlan-athha/manajemen-warga/internal/service"
)

func peopleFilter(r *http.Request) repository.PeopleFilter {
	q := r.URL.Query()
	return repository.PeopleFilter{
		Search:           q.Get("search"),
		FamilyCardNumber: q.Get("family_card_number"),
	}
}

func (a *API) DashboardStats(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	st, err := a.Dashboard.Stats(r.Context(), p)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(st))
}

// ListPeople 平铺列表（按调用者 RT 过滤）
func (a *API) ListPeople(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	items, err := a.Census.ListPeople(r.Context(), p, peopleFilter(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}

// ListHouseholds 按 No. KK 分组（表格和地图共用）
func (a *API) ListHouseholds(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	items, err := a.Census.ListHouseholds(r.Context(), p, peopleFilter(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}

func (a *API) CreatePerson(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	var req service.PersonInput
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	person, err := a.Census.CreatePerson(r.Context(), p, req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(person))
}

func (a *API) UpdatePerson(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	var req service.PersonInput
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	person, err := a.Census.UpdatePerson(r.Context(), p, r.PathValue("id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(person))
}

func (a *API) DeletePerson(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	if err := a.Census.DeletePerson(r.Context(), p, r.PathValue("id")); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

func (a *API) ExportPeople(w http.ResponseWriter, r *http.Request, p *access.Principal) {
	data, err := a.Census.ExportPeople(r.Context(), p)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeXLSX(w, "data-warga.xlsx", data)
}
