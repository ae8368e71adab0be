package httpapi

import (
	"net/http"
	"strings"
	"time"

	"progtrack.org/internal/obs"
	"progtrack.org/internal/programme"
)

type createProgrammeRequest struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	DueDate     *time.Time             `json:"due_date"`
	Priority    string                 `json:"priority"`
	PortfolioID string                 `json:"portfolio_id"`
	Frequency   string                 `json:"frequency"`
	ScopeMode   string                 `json:"scope_mode"`
	Districts   []string               `json:"assigned_districts"`
	Divisions   []string               `json:"assigned_divisions"`
	Remarks     string                 `json:"remarks"`
	Attachments []programme.Attachment `json:"attachments"`
}

type patchProgrammeRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	DueDate     *time.Time             `json:"due_date"`
	ClearDue    bool                   `json:"clear_due_date"`
	Priority    *string                `json:"priority"`
	PortfolioID *string                `json:"portfolio_id"`
	Frequency   *string                `json:"frequency"`
	ScopeMode   *string                `json:"scope_mode"`
	Districts   []string               `json:"assigned_districts"`
	Divisions   []string               `json:"assigned_divisions"`
	Active      *bool                  `json:"is_active"`
	Remarks     *string                `json:"remarks"`
	Attachments []programme.Attachment `json:"attachments"`
}

type appendUpdateRequest struct {
	Kind        string                 `json:"kind"`
	Content     string                 `json:"content"`
	Attachments []programme.Attachment `json:"attachments"`
}

type listProgrammesResponse struct {
	Items []programme.Programme `json:"items"`
	AsOf  time.Time             `json:"as_of"`
}

type feedResponse struct {
	Items []programme.Update `json:"items"`
}

func (a *API) handleProgrammesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listProgrammes(w, r)
	case http.MethodPost:
		a.createProgramme(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleProgrammeResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/programmes/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if id, ok := strings.CutSuffix(path, "/updates"); ok {
		id = strings.TrimSuffix(id, "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "programme not found")
			return
		}
		switch r.Method {
		case http.MethodGet:
			a.programmeFeed(w, r, id)
		case http.MethodPost:
			a.appendUpdate(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getProgramme(w, r, path)
	case http.MethodPatch:
		a.patchProgramme(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch)
	}
}

func (a *API) createProgramme(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req createProgrammeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	in := programme.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		PortfolioID: req.PortfolioID,
		Districts:   req.Districts,
		Divisions:   req.Divisions,
		Remarks:     req.Remarks,
		Attachments: req.Attachments,
	}
	var err error
	if req.Priority != "" {
		if in.Priority, err = programme.ParsePriority(req.Priority); err != nil {
			a.handleError(w, r, err)
			return
		}
	}
	if req.Frequency != "" {
		if in.Frequency, err = programme.ParseFrequency(req.Frequency); err != nil {
			a.handleError(w, r, err)
			return
		}
	}
	if req.ScopeMode != "" {
		if in.ScopeMode, err = programme.ParseScopeMode(req.ScopeMode); err != nil {
			a.handleError(w, r, err)
			return
		}
	}

	p, err := a.programmes.Create(r.Context(), actor, in)
	if err != nil {
		a.handleError(w, r, err)
		return
	}

	a.audit(r.Context(), "programme.create", "programme", p.ID, map[string]string{
		"title": p.Title,
	})

	w.Header().Set("Location", "/v1/programmes/"+p.ID)
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) listProgrammes(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthenticated")
		return
	}
	page, err := parsePage(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	items, err := a.programmes.List(r.Context(), actor, page)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listProgrammesResponse{
		Items: items,
		AsOf:  time.Now().UTC(),
	})
}

func (a *API) getProgramme(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthenticated")
		return
	}
	p, err := a.programmes.Get(r.Context(), actor, id)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) patchProgramme(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req patchProgrammeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	patch := programme.Patch{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		ClearDue:    req.ClearDue,
		PortfolioID: req.PortfolioID,
		Districts:   req.Districts,
		Divisions:   req.Divisions,
		Active:      req.Active,
		Remarks:     req.Remarks,
		Attachments: req.Attachments,
	}
	if req.Priority != nil {
		pr, err := programme.ParsePriority(*req.Priority)
		if err != nil {
			a.handleError(w, r, err)
			return
		}
		patch.Priority = &pr
	}
	if req.Frequency != nil {
		fr, err := programme.ParseFrequency(*req.Frequency)
		if err != nil {
			a.handleError(w, r, err)
			return
		}
		patch.Frequency = &fr
	}
	if req.ScopeMode != nil {
		sm, err := programme.ParseScopeMode(*req.ScopeMode)
		if err != nil {
			a.handleError(w, r, err)
			return
		}
		patch.ScopeMode = &sm
	}

	p, err := a.programmes.Update(r.Context(), actor, id, patch)
	if err != nil {
		a.handleError(w, r, err)
		return
	}

	a.audit(r.Context(), "programme.update", "programme", p.ID, nil)
	writeJSON(w, http.StatusOK, p)
}

func (a *API) appendUpdate(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req appendUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	kind, err := programme.ParseKind(req.Kind)
	if err != nil {
		a.handleError(w, r, err)
		return
	}

	u, err := a.programmes.AppendUpdate(r.Context(), actor, id, kind, req.Content, req.Attachments)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	obs.CountUpdate(kind.String())

	if kind == programme.KindStatusChange {
		a.audit(r.Context(), "programme.status_change", "programme", id, map[string]string{
			"status":    u.Content,
			"update_id": u.ID,
		})
	}

	writeJSON(w, http.StatusCreated, u)
}

func (a *API) programmeFeed(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthenticated")
		return
	}
	items, err := a.programmes.Feed(r.Context(), actor, id)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feedResponse{Items: items})
}
