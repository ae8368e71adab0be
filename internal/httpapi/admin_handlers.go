package httpapi

import (
	"net/http"
	"strings"

	"progtrack.org/internal/auth"
)

type createDistrictRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type createDivisionRequest struct {
	Name       string `json:"name"`
	Code       string `json:"code"`
	DistrictID string `json:"district_id"`
}

type createPortfolioRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createActorRequest struct {
	Username   string `json:"username"`
	Name       string `json:"name"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	DistrictID string `json:"district_id"`
	DivisionID string `json:"division_id"`
}

type patchActorRequest struct {
	Name       *string `json:"name"`
	Password   *string `json:"password"`
	Role       *string `json:"role"`
	DistrictID *string `json:"district_id"`
	DivisionID *string `json:"division_id"`
	Active     *bool   `json:"active"`
}

func (a *API) handleDistricts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := a.directory.ListDistricts(r.Context())
		if err != nil {
			a.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		if _, ok := a.requireAdmin(w, r); !ok {
			return
		}
		var req createDistrictRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		d, err := a.directory.CreateDistrict(r.Context(), req.Name, req.Code)
		if err != nil {
			a.handleError(w, r, err)
			return
		}
		a.audit(r.Context(), "directory.district.create", "district", d.ID, map[string]string{"name": d.Name})
		writeJSON(w, http.StatusCreated, d)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleDistrictResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/districts/")
	id, ok := strings.CutSuffix(path, "/divisions")
	id = strings.TrimSuffix(id, "/")
	if !ok || id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	items, err := a.directory.DivisionsByDistrict(r.Context(), id)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleDivisions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := a.directory.ListDivisions(r.Context())
		if err != nil {
			a.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		if _, ok := a.requireAdmin(w, r); !ok {
			return
		}
		var req createDivisionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		d, err := a.directory.CreateDivision(r.Context(), req.Name, req.Code, req.DistrictID)
		if err != nil {
			a.handleError(w, r, err)
			return
		}
		a.audit(r.Context(), "directory.division.create", "division", d.ID, map[string]string{"name": d.Name})
		writeJSON(w, http.StatusCreated, d)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePortfolios(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := a.directory.ListPortfolios(r.Context())
		if err != nil {
			a.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		if _, ok := a.requireAdmin(w, r); !ok {
			return
		}
		var req createPortfolioRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		p, err := a.directory.CreatePortfolio(r.Context(), req.Name, req.Description)
		if err != nil {
			a.handleError(w, r, err)
			return
		}
		a.audit(r.Context(), "directory.portfolio.create", "portfolio", p.ID, map[string]string{"name": p.Name})
		writeJSON(w, http.StatusCreated, p)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleActorsCollection(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		page, err := parsePage(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		page = page.Normalize()
		actors, err := a.auth.ListActors(r.Context(), page.Offset, page.Limit)
		if err != nil {
			a.handleError(w, r, err)
			return
		}
		items := make([]auth.ActorSummary, 0, len(actors))
		for _, actor := range actors {
			items = append(items, actor.Summary())
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var req createActorRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, err := auth.ParseRole(req.Role)
		if err != nil {
			a.handleError(w, r, err)
			return
		}
		actor, err := a.auth.CreateActor(r.Context(), auth.CreateActorInput{
			Username:   req.Username,
			Name:       req.Name,
			Password:   req.Password,
			Role:       role,
			DistrictID: req.DistrictID,
			DivisionID: req.DivisionID,
		})
		if err != nil {
			a.handleError(w, r, err)
			return
		}
		a.audit(r.Context(), "actor.create", "actor", actor.ID, map[string]string{
			"username": actor.Username,
			"role":     actor.Role.String(),
		})
		w.Header().Set("Location", "/v1/actors/"+actor.ID)
		writeJSON(w, http.StatusCreated, actor.Summary())
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleActorResource(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/actors/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		actor, err := a.auth.GetActor(r.Context(), id)
		if err != nil {
			a.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, actor.Summary())
	case http.MethodPatch:
		var req patchActorRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		upd := auth.ActorUpdate{
			Name:       req.Name,
			Password:   req.Password,
			DistrictID: req.DistrictID,
			DivisionID: req.DivisionID,
			Active:     req.Active,
		}
		if req.Role != nil {
			role, err := auth.ParseRole(*req.Role)
			if err != nil {
				a.handleError(w, r, err)
				return
			}
			upd.Role = &role
		}
		actor, err := a.auth.UpdateActor(r.Context(), id, upd)
		if err != nil {
			a.handleError(w, r, err)
			return
		}
		a.audit(r.Context(), "actor.update", "actor", actor.ID, nil)
		writeJSON(w, http.StatusOK, actor.Summary())
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch)
	}
}
