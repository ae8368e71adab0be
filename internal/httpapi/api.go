// Package httpapi exposes the service over HTTP: authentication endpoints,
// the scoped programme surface, the activity feed, directory and actor
// administration, and the live update stream.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"progtrack.org/internal/audit"
	"progtrack.org/internal/auth"
	"progtrack.org/internal/directory"
	"progtrack.org/internal/obs"
	"progtrack.org/internal/programme"
	"progtrack.org/internal/stream"
)

// ReadyProbe checks dependencies for the readiness endpoint.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config wires the API's collaborators.
type Config struct {
	Auth       *auth.Service
	Resolver   *auth.Resolver
	Programmes *programme.Service
	Directory  *directory.Service
	Audit      *audit.Recorder
	Stream     *stream.Stream
	Ready      ReadyProbe
	Log        *zap.Logger
	Version    string
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	resolver   *auth.Resolver
	programmes *programme.Service
	directory  *directory.Service
	audits     *audit.Recorder
	stream     *stream.Stream
	readyProbe ReadyProbe
	log        *zap.Logger
	version    string

	rateBurst  int
	ratePerSec int
}

func New(cfg Config) *API {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NewRecorder(nil, cfg.Log)
	}
	a := &API{
		mux:        http.NewServeMux(),
		auth:       cfg.Auth,
		resolver:   cfg.Resolver,
		programmes: cfg.Programmes,
		directory:  cfg.Directory,
		audits:     cfg.Audit,
		stream:     cfg.Stream,
		readyProbe: cfg.Ready,
		log:        cfg.Log,
		version:    cfg.Version,
		rateBurst:  40,
		ratePerSec: 20,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)

	// programmes + activity feed
	a.mux.HandleFunc("/v1/programmes", a.handleProgrammesCollection)
	a.mux.HandleFunc("/v1/programmes/", a.handleProgrammeResource)

	// live updates
	a.mux.HandleFunc("/v1/stream", a.Stream)

	// directory + actor administration
	a.mux.HandleFunc("/v1/districts", a.handleDistricts)
	a.mux.HandleFunc("/v1/districts/", a.handleDistrictResource)
	a.mux.HandleFunc("/v1/divisions", a.handleDivisions)
	a.mux.HandleFunc("/v1/portfolios", a.handlePortfolios)
	a.mux.HandleFunc("/v1/actors", a.handleActorsCollection)
	a.mux.HandleFunc("/v1/actors/", a.handleActorResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware-wrapped http.Handler.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h, a.log)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "progtrack-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "progtrack-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) audit(ctx context.Context, action, entityType, entityID string, details map[string]string) {
	actorID := ""
	if actor, ok := auth.ActorFromContext(ctx); ok {
		actorID = actor.ID
	}
	a.audits.Record(ctx, actorID, action, entityType, entityID, details)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleError maps domain errors onto status codes. Authorization denials
// and invisible resources both end up here, collapsed to the same statuses
// every caller sees.
func (a *API) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, auth.ErrNotFound),
		errors.Is(err, programme.ErrNotFound),
		errors.Is(err, directory.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, auth.ErrAlreadyExists),
		errors.Is(err, directory.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "already exists")
	case errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, programme.ErrInvalidInput),
		errors.Is(err, programme.ErrInvalidStatus),
		errors.Is(err, programme.ErrInvalidKind),
		errors.Is(err, directory.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		a.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func parsePage(r *http.Request) (programme.Page, error) {
	page := programme.Page{}
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return page, errors.New("offset must be a non-negative integer")
		}
		page.Offset = v
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return page, errors.New("limit must be a positive integer")
		}
		page.Limit = v
	}
	return page, nil
}
