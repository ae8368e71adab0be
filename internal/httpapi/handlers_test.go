package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"progtrack.org/internal/auth"
	"progtrack.org/internal/directory"
	"progtrack.org/internal/programme"
	"progtrack.org/internal/stream"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	tokens, err := auth.NewTokenService("test-access-secret", "test-refresh-secret")
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	actors := auth.NewInMemoryActorStore()
	authSvc := auth.NewService(tokens, actors, nil)

	dirStore := directory.NewInMemory()
	ctx := context.Background()
	seed := []error{
		dirStore.CreateDistrict(ctx, &directory.District{ID: "dist-1", Name: "North"}),
		dirStore.CreateDivision(ctx, &directory.Division{ID: "div-1", Name: "Alpha", DistrictID: "dist-1"}),
		dirStore.CreateDivision(ctx, &directory.Division{ID: "div-2", Name: "Beta", DistrictID: "dist-1"}),
	}
	for _, err := range seed {
		if err != nil {
			t.Fatalf("seed directory: %v", err)
		}
	}

	for _, in := range []auth.CreateActorInput{
		{Username: "admin", Name: "Admin", Password: "admin-pass", Role: auth.RoleAdmin},
		{Username: "alpha", Name: "Alpha Officer", Password: "alpha-pass", Role: auth.RoleDivision, DivisionID: "div-1"},
		{Username: "north", Name: "North Lead", Password: "north-pass", Role: auth.RoleDistrict, DistrictID: "dist-1"},
	} {
		if _, err := authSvc.CreateActor(ctx, in); err != nil {
			t.Fatalf("seed actor %s: %v", in.Username, err)
		}
	}

	updates := stream.New()
	progSvc := programme.NewService(programme.NewInMemory(), dirStore,
		programme.WithPublisher(updates))

	api := New(Config{
		Auth:       authSvc,
		Resolver:   auth.NewResolver(tokens, actors, nil),
		Programmes: progSvc,
		Directory:  directory.NewService(dirStore),
		Stream:     updates,
		Version:    "test",
	})
	api.rateBurst = 1000
	api.ratePerSec = 1000

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func (c *apiClient) login(username, password string) tokenPairResponse {
	c.t.Helper()
	resp := c.post("/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("login %s: status %d", username, resp.StatusCode)
	}
	pair := decode[tokenPairResponse](c.t, resp)
	if pair.AccessToken == "" {
		c.t.Fatal("empty access token issued")
	}
	return pair
}

func (c *apiClient) authz(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestLoginAndMe(t *testing.T) {
	c := newTestAPI(t)
	pair := c.login("admin", "admin-pass")

	resp := c.get("/v1/auth/me", nil, c.authz(pair.AccessToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: status %d", resp.StatusCode)
	}
	me := decode[auth.ActorSummary](t, resp)
	if me.Username != "admin" || me.Role != auth.RoleAdmin {
		t.Fatalf("unexpected identity: %+v", me)
	}
}

func TestLoginDenied(t *testing.T) {
	c := newTestAPI(t)
	for _, creds := range [][2]string{
		{"admin", "wrong"},
		{"ghost", "admin-pass"},
	} {
		resp := c.post("/v1/auth/login", map[string]string{
			"username": creds[0],
			"password": creds[1],
		}, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("login %s: status %d, want 401", creds[0], resp.StatusCode)
		}
	}
}

func TestRefreshFlow(t *testing.T) {
	c := newTestAPI(t)
	pair := c.login("alpha", "alpha-pass")

	resp := c.post("/v1/auth/refresh", map[string]string{
		"refresh_token": pair.RefreshToken,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: status %d", resp.StatusCode)
	}
	fresh := decode[tokenPairResponse](t, resp)
	if fresh.AccessToken == "" || fresh.RefreshToken == "" {
		t.Fatal("refresh returned empty tokens")
	}

	// An access token is not accepted on the refresh endpoint.
	resp = c.post("/v1/auth/refresh", map[string]string{
		"refresh_token": pair.AccessToken,
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh with access token: status %d, want 401", resp.StatusCode)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/v1/programmes", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token: status %d, want 401", resp.StatusCode)
	}

	resp = c.get("/v1/programmes", nil, c.authz("bogus-token"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bogus token: status %d, want 401", resp.StatusCode)
	}
}

func TestProgrammeLifecycleOverHTTP(t *testing.T) {
	c := newTestAPI(t)
	admin := c.login("admin", "admin-pass")
	alpha := c.login("alpha", "alpha-pass")

	// Non-admin creation is rejected.
	resp := c.post("/v1/programmes", map[string]any{
		"title": "Census Drive",
	}, c.authz(alpha.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin create: status %d, want 403", resp.StatusCode)
	}

	resp = c.post("/v1/programmes", map[string]any{
		"title":              "Census Drive",
		"scope_mode":         "specific_list",
		"assigned_divisions": []string{"div-1"},
	}, c.authz(admin.AccessToken))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d", resp.StatusCode)
	}
	created := decode[programme.Programme](t, resp)
	if created.Status != programme.StatusReceived {
		t.Fatalf("new programme status = %s", created.Status)
	}

	// The assigned division sees it; posting a comment works.
	resp = c.get("/v1/programmes/"+created.ID, nil, c.authz(alpha.AccessToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get as division: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.post("/v1/programmes/"+created.ID+"/updates", map[string]any{
		"kind":    "comment",
		"content": "field teams briefed",
	}, c.authz(alpha.AccessToken))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("append comment: status %d", resp.StatusCode)
	}
	comment := decode[programme.Update](t, resp)
	if comment.Author.Username != "alpha" {
		t.Fatalf("comment author = %q", comment.Author.Username)
	}

	// Status moves only through the feed.
	resp = c.post("/v1/programmes/"+created.ID+"/updates", map[string]any{
		"kind":    "status_change",
		"content": "in_progress",
	}, c.authz(alpha.AccessToken))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status change: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.get("/v1/programmes/"+created.ID, nil, c.authz(admin.AccessToken))
	after := decode[programme.Programme](t, resp)
	if after.Status != programme.StatusInProgress {
		t.Fatalf("programme status = %s, want in_progress", after.Status)
	}

	// Unknown status is rejected and nothing is appended.
	resp = c.post("/v1/programmes/"+created.ID+"/updates", map[string]any{
		"kind":    "status_change",
		"content": "done-ish",
	}, c.authz(admin.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad status: status %d, want 400", resp.StatusCode)
	}

	resp = c.get("/v1/programmes/"+created.ID+"/updates", nil, c.authz(alpha.AccessToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("feed: status %d", resp.StatusCode)
	}
	feed := decode[feedResponse](t, resp)
	if len(feed.Items) != 2 {
		t.Fatalf("feed length = %d, want 2", len(feed.Items))
	}
	if feed.Items[0].ID != comment.ID {
		t.Fatalf("feed not in append order")
	}
}

func TestProgrammeScopeOverHTTP(t *testing.T) {
	c := newTestAPI(t)
	admin := c.login("admin", "admin-pass")
	alpha := c.login("alpha", "alpha-pass")
	north := c.login("north", "north-pass")

	// One programme for div-2 only: invisible to div-1, visible to the
	// district through the all_divisions closure only when broadcast.
	resp := c.post("/v1/programmes", map[string]any{
		"title":              "Beta Only",
		"scope_mode":         "specific_list",
		"assigned_divisions": []string{"div-2"},
	}, c.authz(admin.AccessToken))
	hidden := decode[programme.Programme](t, resp)

	resp = c.post("/v1/programmes", map[string]any{
		"title":              "Broadcast",
		"scope_mode":         "all_divisions",
		"assigned_divisions": []string{"div-1", "div-2"},
	}, c.authz(admin.AccessToken))
	resp.Body.Close()

	resp = c.get("/v1/programmes/"+hidden.ID, nil, c.authz(alpha.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("out-of-scope get: status %d, want 404", resp.StatusCode)
	}

	resp = c.get("/v1/programmes", nil, c.authz(alpha.AccessToken))
	alphaList := decode[listProgrammesResponse](t, resp)
	if len(alphaList.Items) != 1 || alphaList.Items[0].Title != "Broadcast" {
		t.Fatalf("division list = %+v", alphaList.Items)
	}

	resp = c.get("/v1/programmes", nil, c.authz(north.AccessToken))
	northList := decode[listProgrammesResponse](t, resp)
	if len(northList.Items) != 1 || northList.Items[0].Title != "Broadcast" {
		t.Fatalf("district list = %+v", northList.Items)
	}
}

func TestActorAdminEndpoints(t *testing.T) {
	c := newTestAPI(t)
	admin := c.login("admin", "admin-pass")
	alpha := c.login("alpha", "alpha-pass")

	resp := c.get("/v1/actors", nil, c.authz(alpha.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin actors list: status %d, want 403", resp.StatusCode)
	}

	resp = c.post("/v1/actors", map[string]any{
		"username":    "beta",
		"name":        "Beta Officer",
		"password":    "beta-pass",
		"role":        "division",
		"division_id": "div-2",
	}, c.authz(admin.AccessToken))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create actor: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Affiliation invariant surfaces as 400.
	resp = c.post("/v1/actors", map[string]any{
		"username": "stray",
		"name":     "Stray",
		"password": "stray-pass",
		"role":     "district",
	}, c.authz(admin.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid affiliation: status %d, want 400", resp.StatusCode)
	}

	c.login("beta", "beta-pass")
}

func TestDirectoryEndpoints(t *testing.T) {
	c := newTestAPI(t)
	admin := c.login("admin", "admin-pass")
	alpha := c.login("alpha", "alpha-pass")

	resp := c.post("/v1/districts", map[string]string{"name": "South"}, c.authz(alpha.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin district create: status %d, want 403", resp.StatusCode)
	}

	resp = c.post("/v1/districts", map[string]string{"name": "South"}, c.authz(admin.AccessToken))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("district create: status %d", resp.StatusCode)
	}
	south := decode[directory.District](t, resp)

	resp = c.post("/v1/divisions", map[string]string{
		"name":        "Delta",
		"district_id": south.ID,
	}, c.authz(admin.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("division create: status %d", resp.StatusCode)
	}

	resp = c.get("/v1/districts/"+south.ID+"/divisions", nil, c.authz(alpha.AccessToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("closure lookup: status %d", resp.StatusCode)
	}
	closure := decode[struct {
		Items []directory.Division `json:"items"`
	}](t, resp)
	if len(closure.Items) != 1 || closure.Items[0].Name != "Delta" {
		t.Fatalf("closure = %+v", closure.Items)
	}
}

func TestHealthEndpoints(t *testing.T) {
	c := newTestAPI(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp := c.get(path, nil, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", path, resp.StatusCode)
		}
	}
}
