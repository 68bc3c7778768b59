package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/rfsocket-core/internal/apperr"
	"github.com/nerrad567/rfsocket-core/internal/audit"
	"github.com/nerrad567/rfsocket-core/internal/auth"
	"github.com/nerrad567/rfsocket-core/internal/dispatch"
	"github.com/nerrad567/rfsocket-core/internal/events"
	"github.com/nerrad567/rfsocket-core/internal/infrastructure/config"
	"github.com/nerrad567/rfsocket-core/internal/infrastructure/logging"
	"github.com/nerrad567/rfsocket-core/internal/metrics"
	"github.com/nerrad567/rfsocket-core/internal/socket"
	"github.com/nerrad567/rfsocket-core/internal/transmitter"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

type fakeTransmitter struct {
	mu       sync.Mutex
	requests []transmitter.Request
	err      error
}

func (f *fakeTransmitter) Transmit(_ context.Context, req transmitter.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.err
}

func (f *fakeTransmitter) sent() []transmitter.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transmitter.Request(nil), f.requests...)
}

type fakeAuditRepo struct {
	filter audit.Filter
	result *audit.ListResult
	err    error
}

func (f *fakeAuditRepo) Create(context.Context, *audit.AuditLog) error { return nil }

func (f *fakeAuditRepo) List(_ context.Context, filter audit.Filter) (*audit.ListResult, error) {
	f.filter = filter
	return f.result, f.err
}

type testEnv struct {
	srv      *Server
	http     *httptest.Server
	registry *socket.Registry
	users    *auth.Users
	tx       *fakeTransmitter
	audit    *fakeAuditRepo
	tokens   map[auth.Permission]string
}

// newTestEnv wires a server over real registry and users datasets in a
// temp dir, a fake transmitter, and one token per permission level.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	registry := socket.NewRegistry(socket.NewDataset(dir, socket.Defaults{Bits: 24, Repeat: 5, AllOffCode: 1234}))
	if err := registry.Load(ctx); err != nil {
		t.Fatalf("registry Load() error = %v", err)
	}
	users := auth.NewUsers(auth.NewDataset(dir))
	if err := users.Load(ctx); err != nil {
		t.Fatalf("users Load() error = %v", err)
	}

	tx := &fakeTransmitter{}
	dispatcher := dispatch.New(registry, tx, 17)
	repo := &fakeAuditRepo{result: &audit.ListResult{Logs: []audit.AuditLog{}, Limit: 50}}
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	srv, err := New(Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS:     config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{Secret: testSecret, AccessTokenTTL: 15},
		},
		Logger:     log,
		Registry:   registry,
		Dispatcher: dispatcher,
		Users:      users,
		Audit:      repo,
		Metrics:    metrics.New(),
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	bus := events.NewBus()
	bus.AddSink("metrics", srv.metrics)
	bus.AddSink("websocket", srv.Hub())
	registry.SetPublisher(bus)
	dispatcher.SetPublisher(bus)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	env := &testEnv{
		srv:      srv,
		http:     ts,
		registry: registry,
		users:    users,
		tx:       tx,
		audit:    repo,
		tokens:   map[auth.Permission]string{},
	}
	for i, perm := range []auth.Permission{auth.PermissionNone, auth.PermissionUser, auth.PermissionAdmin} {
		env.tokens[perm] = mustToken(t, &auth.User{ID: 100 + i, Username: strings.ToLower(string(perm)), Permission: perm})
	}
	return env
}

func mustToken(t *testing.T, user *auth.User) string {
	t.Helper()
	token, _, err := auth.GenerateAccessToken(user, testSecret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	return token
}

type response struct {
	status int
	OK     json.RawMessage `json:"rsc_ok"`
	Error  *apiError       `json:"rsc_error"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		if s, ok := body.(string); ok {
			reader = strings.NewReader(s)
		} else {
			data, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
			reader = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequest(method, e.http.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := response{status: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decoding body: %v", method, path, err)
	}
	return out
}

func (r response) sockets(t *testing.T) []socket.Socket {
	t.Helper()
	var out []socket.Socket
	if err := json.Unmarshal(r.OK, &out); err != nil {
		t.Fatalf("decoding rsc_ok %s: %v", r.OK, err)
	}
	return out
}

func (r response) wantError(t *testing.T, status int, typ string) {
	t.Helper()
	if r.status != status {
		t.Errorf("status = %d, want %d", r.status, status)
	}
	if r.Error == nil {
		t.Fatalf("rsc_error missing, rsc_ok = %s", r.OK)
	}
	if r.Error.Type != typ {
		t.Errorf("error type = %q, want %q", r.Error.Type, typ)
	}
}

func (r response) hasField(field string, reason apperr.Reason) bool {
	if r.Error == nil {
		return false
	}
	for _, f := range r.Error.Fields {
		if f.Field == field && f.Reason == reason {
			return true
		}
	}
	return false
}

func intPtr(v int) *int { return &v }

func (e *testEnv) addSocket(t *testing.T, name string, on, off int) socket.Socket {
	t.Helper()
	s, err := e.registry.AddSocket(context.Background(), socket.Candidate{Name: name, OnCode: intPtr(on), OffCode: intPtr(off)})
	if err != nil {
		t.Fatalf("AddSocket(%s) error = %v", name, err)
	}
	return *s
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New(Deps{}) should fail without a logger")
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	if resp.status != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.status)
	}
	var body map[string]string
	if err := json.Unmarshal(resp.OK, &body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("health = %v", body)
	}
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"garbage token", "not-a-jwt"},
		{"wrong secret", func() string {
			token, _, _ := auth.GenerateAccessToken(&auth.User{ID: 1, Username: "x", Permission: auth.PermissionAdmin},
				"another-secret-that-is-also-32-chars-long", time.Minute)
			return token
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.do(t, http.MethodGet, "/api/v1/sockets", tt.token, nil).
				wantError(t, http.StatusUnauthorized, ErrTypeUnauthenticated)
		})
	}
}

func TestPermissions(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		perm   auth.Permission
		body   any
		want   int
	}{
		{"none cannot list", http.MethodGet, "/api/v1/sockets", auth.PermissionNone, nil, http.StatusForbidden},
		{"user can list", http.MethodGet, "/api/v1/sockets", auth.PermissionUser, nil, http.StatusOK},
		{"user cannot create", http.MethodPost, "/api/v1/sockets", auth.PermissionUser, map[string]any{"socket_name": "x", "on_code": 1, "off_code": 2}, http.StatusForbidden},
		{"admin can create", http.MethodPost, "/api/v1/sockets", auth.PermissionAdmin, map[string]any{"socket_name": "x", "on_code": 1, "off_code": 2}, http.StatusCreated},
		{"user cannot read audit", http.MethodGet, "/api/v1/audit", auth.PermissionUser, nil, http.StatusForbidden},
		{"user cannot list users", http.MethodGet, "/api/v1/users", auth.PermissionUser, nil, http.StatusForbidden},
		{"none cannot switch", http.MethodPost, "/api/v1/command/all-off", auth.PermissionNone, nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, tt.method, tt.path, env.tokens[tt.perm], tt.body)
			if resp.status != tt.want {
				t.Errorf("status = %d, want %d", resp.status, tt.want)
			}
			if tt.want == http.StatusForbidden {
				resp.wantError(t, http.StatusForbidden, "PERMISSION_DENIED")
			}
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.AddUser(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("AddUser() error = %v", err)
	}
	if _, err := env.users.SetPermission(ctx, user.ID, auth.PermissionUser); err != nil {
		t.Fatalf("SetPermission() error = %v", err)
	}

	t.Run("success", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Username: "alice", Password: "correct-horse"})
		if resp.status != http.StatusOK {
			t.Fatalf("status = %d, want 200 (%+v)", resp.status, resp.Error)
		}
		var body loginResponse
		if err := json.Unmarshal(resp.OK, &body); err != nil {
			t.Fatalf("decoding: %v", err)
		}
		if body.TokenType != "Bearer" || body.ExpiresIn != 15*60 {
			t.Errorf("login response = %+v", body)
		}
		if body.User.Permission != auth.PermissionUser {
			t.Errorf("user permission = %q", body.User.Permission)
		}

		// The issued token is accepted on a USER route.
		if got := env.do(t, http.MethodGet, "/api/v1/sockets", body.AccessToken, nil).status; got != http.StatusOK {
			t.Errorf("status with issued token = %d, want 200", got)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		env.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Username: "alice", Password: "wrong-password"}).
			wantError(t, http.StatusUnauthorized, ErrTypeUnauthenticated)
	})

	t.Run("unknown user", func(t *testing.T) {
		env.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Username: "bob", Password: "whatever1"}).
			wantError(t, http.StatusUnauthorized, ErrTypeUnauthenticated)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{})
		resp.wantError(t, http.StatusBadRequest, "INVALID_REQUEST")
		if !resp.hasField(auth.FieldUsername, apperr.ReasonNotProvided) || !resp.hasField(auth.FieldPassword, apperr.ReasonNotProvided) {
			t.Errorf("fields = %+v", resp.Error.Fields)
		}
	})
}

func TestSockets_CreateListGet(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokens[auth.PermissionAdmin]

	resp := env.do(t, http.MethodPost, "/api/v1/sockets", admin, map[string]any{
		"socket_name": "lamp",
		"location":    "lounge",
		"on_code":     111,
		"off_code":    222,
	})
	if resp.status != http.StatusCreated {
		t.Fatalf("create status = %d (%+v)", resp.status, resp.Error)
	}
	created := resp.sockets(t)
	if len(created) != 1 || created[0].ID != 0 || created[0].Name != "lamp" {
		t.Fatalf("created = %+v", created)
	}

	env.addSocket(t, "fan", 333, 444)

	list := env.do(t, http.MethodGet, "/api/v1/sockets", admin, nil).sockets(t)
	if len(list) != 2 || list[0].Name != "lamp" || list[1].Name != "fan" {
		t.Errorf("list = %+v", list)
	}

	for _, ref := range []string{"1", "fan"} {
		got := env.do(t, http.MethodGet, "/api/v1/sockets/"+ref, admin, nil).sockets(t)
		if len(got) != 1 || got[0].ID != 1 {
			t.Errorf("GET /sockets/%s = %+v", ref, got)
		}
	}

	env.do(t, http.MethodGet, "/api/v1/sockets/heater", admin, nil).
		wantError(t, http.StatusNotFound, "NOT_FOUND")
}

func TestSockets_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	env.addSocket(t, "lamp", 111, 222)

	resp := env.do(t, http.MethodPost, "/api/v1/sockets", env.tokens[auth.PermissionAdmin], map[string]any{
		"socket_name": "lamp",
		"on_code":     222,
		"bits":        2,
	})
	resp.wantError(t, http.StatusBadRequest, "INVALID_REQUEST")

	for _, want := range []struct {
		field  string
		reason apperr.Reason
	}{
		{socket.FieldName, apperr.ReasonNotUnique},
		{socket.FieldOnCode, apperr.ReasonNotUnique},
		{socket.FieldOffCode, apperr.ReasonNotProvided},
		{socket.FieldBits, apperr.ReasonInvalidValue},
	} {
		if !resp.hasField(want.field, want.reason) {
			t.Errorf("missing field error %s: %v in %+v", want.field, want.reason, resp.Error.Fields)
		}
	}

	env.do(t, http.MethodPost, "/api/v1/sockets", env.tokens[auth.PermissionAdmin], "{not json").
		wantError(t, http.StatusBadRequest, "INVALID_REQUEST")
}

func TestSockets_Delete(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokens[auth.PermissionAdmin]
	env.addSocket(t, "lamp", 111, 222)
	env.addSocket(t, "fan", 333, 444)

	resp := env.do(t, http.MethodDelete, "/api/v1/sockets", admin, map[string]any{"socket_name": "lamp"})
	if resp.status != http.StatusOK {
		t.Fatalf("delete status = %d (%+v)", resp.status, resp.Error)
	}
	if deleted := resp.sockets(t); len(deleted) != 1 || deleted[0].ID != 0 {
		t.Errorf("deleted = %+v", deleted)
	}

	list := env.do(t, http.MethodGet, "/api/v1/sockets", admin, nil).sockets(t)
	if len(list) != 1 || list[0].Name != "fan" {
		t.Errorf("list after delete = %+v", list)
	}

	env.do(t, http.MethodDelete, "/api/v1/sockets", admin, map[string]any{"socket_id": 0}).
		wantError(t, http.StatusNotFound, "NOT_FOUND")

	resp = env.do(t, http.MethodDelete, "/api/v1/sockets", admin, map[string]any{})
	resp.wantError(t, http.StatusBadRequest, "INVALID_REQUEST")
	if !resp.hasField(socket.FieldID, apperr.ReasonNotProvided) {
		t.Errorf("fields = %+v", resp.Error.Fields)
	}

	// A new socket never reuses the deleted id.
	if s := env.addSocket(t, "heater", 555, 666); s.ID != 2 {
		t.Errorf("new socket id = %d, want 2", s.ID)
	}
}

func TestCommand(t *testing.T) {
	env := newTestEnv(t)
	user := env.tokens[auth.PermissionUser]
	env.addSocket(t, "lamp", 111, 222)

	t.Run("on by name", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/v1/command", user, map[string]any{"socket_name": "lamp", "on_off": "on"})
		if resp.status != http.StatusOK {
			t.Fatalf("status = %d (%+v)", resp.status, resp.Error)
		}
		var out []dispatch.Outcome
		if err := json.Unmarshal(resp.OK, &out); err != nil {
			t.Fatalf("decoding: %v", err)
		}
		if len(out) != 1 || out[0].Code != 111 || out[0].Action != events.ActionOn {
			t.Errorf("outcome = %+v", out)
		}
		sent := env.tx.sent()
		want := transmitter.Request{Pin: 17, Code: 111, Bits: 24, Repeat: 5}
		if len(sent) != 1 || sent[0] != want {
			t.Errorf("transmitted %+v, want [%+v]", sent, want)
		}
	})

	t.Run("off by id", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/v1/command", user, map[string]any{"socket_id": 0, "on_off": "off"})
		if resp.status != http.StatusOK {
			t.Fatalf("status = %d (%+v)", resp.status, resp.Error)
		}
		sent := env.tx.sent()
		if sent[len(sent)-1].Code != 222 {
			t.Errorf("last code = %d, want 222", sent[len(sent)-1].Code)
		}
	})

	t.Run("invalid state", func(t *testing.T) {
		before := len(env.tx.sent())
		resp := env.do(t, http.MethodPost, "/api/v1/command", user, map[string]any{"socket_name": "lamp", "on_off": "dim"})
		resp.wantError(t, http.StatusBadRequest, "INVALID_REQUEST")
		if !resp.hasField(dispatch.FieldOnOff, apperr.ReasonInvalidValue) {
			t.Errorf("fields = %+v", resp.Error.Fields)
		}
		if len(env.tx.sent()) != before {
			t.Error("transmitter invoked for an invalid request")
		}
	})

	t.Run("unknown socket", func(t *testing.T) {
		env.do(t, http.MethodPost, "/api/v1/command", user, map[string]any{"socket_name": "heater", "on_off": "on"}).
			wantError(t, http.StatusNotFound, "NOT_FOUND")
	})

	t.Run("transmitter failure", func(t *testing.T) {
		env.tx.mu.Lock()
		env.tx.err = errors.New("exit status 1")
		env.tx.mu.Unlock()
		t.Cleanup(func() {
			env.tx.mu.Lock()
			env.tx.err = nil
			env.tx.mu.Unlock()
		})

		env.do(t, http.MethodPost, "/api/v1/command", user, map[string]any{"socket_name": "lamp", "on_off": "on"}).
			wantError(t, http.StatusInternalServerError, "SOCKET_ERROR")
	})
}

func TestAllOff(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/command/all-off", env.tokens[auth.PermissionUser], nil)
	if resp.status != http.StatusOK {
		t.Fatalf("status = %d (%+v)", resp.status, resp.Error)
	}
	sent := env.tx.sent()
	if len(sent) != 1 || sent[0].Code != 1234 {
		t.Errorf("transmitted %+v, want all-off code 1234", sent)
	}
}

func TestUsers(t *testing.T) {
	env := newTestEnv(t)
	admin := env.tokens[auth.PermissionAdmin]

	resp := env.do(t, http.MethodPost, "/api/v1/users", admin, createUserRequest{Username: "carol", Password: "s3cret-pass"})
	if resp.status != http.StatusCreated {
		t.Fatalf("create status = %d (%+v)", resp.status, resp.Error)
	}
	var created []auth.PublicUser
	if err := json.Unmarshal(resp.OK, &created); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(created) != 1 || created[0].Permission != auth.PermissionNone {
		t.Fatalf("created = %+v", created)
	}
	if strings.Contains(string(resp.OK), "password") {
		t.Error("response leaks the password hash")
	}
	id := created[0].ID
	path := "/api/v1/users/" + strconv.Itoa(id)

	resp = env.do(t, http.MethodPost, "/api/v1/users", admin, createUserRequest{Username: "carol", Password: "short"})
	resp.wantError(t, http.StatusBadRequest, "INVALID_REQUEST")
	if !resp.hasField(auth.FieldUsername, apperr.ReasonNotUnique) || !resp.hasField(auth.FieldPassword, apperr.ReasonInvalidValue) {
		t.Errorf("fields = %+v", resp.Error.Fields)
	}

	resp = env.do(t, http.MethodPatch, path, admin, setPermissionRequest{Permission: auth.PermissionUser})
	if resp.status != http.StatusOK {
		t.Fatalf("patch status = %d (%+v)", resp.status, resp.Error)
	}
	env.do(t, http.MethodPatch, path, admin, setPermissionRequest{Permission: "ROOT"}).
		wantError(t, http.StatusBadRequest, "INVALID_REQUEST")
	env.do(t, http.MethodPatch, "/api/v1/users/abc", admin, setPermissionRequest{Permission: auth.PermissionUser}).
		wantError(t, http.StatusBadRequest, "INVALID_REQUEST")

	if got := env.do(t, http.MethodDelete, path, admin, nil).status; got != http.StatusOK {
		t.Errorf("delete status = %d", got)
	}
	env.do(t, http.MethodDelete, path, admin, nil).wantError(t, http.StatusNotFound, "NOT_FOUND")
}

func TestUsers_CannotDemoteOrDeleteSelf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.AddUser(ctx, "root", "s3cret-pass")
	if err != nil {
		t.Fatalf("AddUser() error = %v", err)
	}
	user, err = env.users.SetPermission(ctx, user.ID, auth.PermissionAdmin)
	if err != nil {
		t.Fatalf("SetPermission() error = %v", err)
	}
	token := mustToken(t, user)
	path := "/api/v1/users/" + strconv.Itoa(user.ID)

	env.do(t, http.MethodPatch, path, token, setPermissionRequest{Permission: auth.PermissionUser}).
		wantError(t, http.StatusForbidden, "PERMISSION_DENIED")
	env.do(t, http.MethodDelete, path, token, nil).
		wantError(t, http.StatusForbidden, "PERMISSION_DENIED")
}

func TestAudit(t *testing.T) {
	env := newTestEnv(t)
	env.audit.result = &audit.ListResult{
		Logs:  []audit.AuditLog{{ID: "a1", Action: "socket.command", EntityType: "socket", EntityID: "0"}},
		Total: 1,
		Limit: 10,
	}

	resp := env.do(t, http.MethodGet, "/api/v1/audit?action=socket.command&entity_id=0&limit=10&offset=5", env.tokens[auth.PermissionAdmin], nil)
	if resp.status != http.StatusOK {
		t.Fatalf("status = %d (%+v)", resp.status, resp.Error)
	}
	want := audit.Filter{Action: "socket.command", EntityID: "0", Limit: 10, Offset: 5}
	if env.audit.filter != want {
		t.Errorf("filter = %+v, want %+v", env.audit.filter, want)
	}
	var result audit.ListResult
	if err := json.Unmarshal(resp.OK, &result); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if result.Total != 1 || len(result.Logs) != 1 || result.Logs[0].ID != "a1" {
		t.Errorf("result = %+v", result)
	}

	env.do(t, http.MethodGet, "/api/v1/audit?limit=-1", env.tokens[auth.PermissionAdmin], nil).
		wantError(t, http.StatusBadRequest, "INVALID_REQUEST")
	env.do(t, http.MethodGet, "/api/v1/audit?offset=ten", env.tokens[auth.PermissionAdmin], nil).
		wantError(t, http.StatusBadRequest, "INVALID_REQUEST")

	env.audit.err = errors.New("database is locked")
	env.do(t, http.MethodGet, "/api/v1/audit", env.tokens[auth.PermissionAdmin], nil).
		wantError(t, http.StatusInternalServerError, ErrTypeInternal)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.addSocket(t, "lamp", 111, 222)
	env.do(t, http.MethodPost, "/api/v1/command", env.tokens[auth.PermissionUser], map[string]any{"socket_id": 0, "on_off": "on"})

	resp, err := env.http.Client().Get(env.http.URL + "/api/v1/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}

	for _, want := range []string{
		`rfsocket_http_requests_total{method="POST",route="/api/v1/command",status="200"} 1`,
		`rfsocket_socket_commands_total{action="on",result="success"} 1`,
		`rfsocket_registry_sockets 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req, _ := http.NewRequest(http.MethodOptions, env.http.URL+"/api/v1/sockets", nil)
	req.Header.Set("Origin", "http://panel.local")
	resp, err := env.http.Client().Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://panel.local" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); got != corsAllowedMethods {
		t.Errorf("Allow-Methods = %q", got)
	}
}

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		allowed []string
		origin  string
		want    bool
	}{
		{nil, "http://anything", true},
		{[]string{"*"}, "http://anything", true},
		{[]string{"http://panel.local"}, "http://panel.local", true},
		{[]string{"http://panel.local"}, "http://evil.example", false},
	}
	for _, tt := range tests {
		if got := originAllowed(tt.allowed, tt.origin); got != tt.want {
			t.Errorf("originAllowed(%v, %q) = %v, want %v", tt.allowed, tt.origin, got, tt.want)
		}
	}
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	req, _ := http.NewRequest(http.MethodGet, env.http.URL+"/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "trace-42")
	resp, err := env.http.Client().Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "trace-42" {
		t.Errorf("echoed X-Request-ID = %q, want trace-42", got)
	}

	resp, err = env.http.Client().Get(env.http.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); len(got) != 36 {
		t.Errorf("generated X-Request-ID = %q, want a UUID", got)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/v1/nope", "", nil).wantError(t, http.StatusNotFound, "NOT_FOUND")
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{"header", "Bearer abc", "", "abc"},
		{"case-insensitive scheme", "bearer abc", "", "abc"},
		{"wrong scheme", "Basic abc", "", ""},
		{"query fallback", "", "token=xyz", "xyz"},
		{"header wins", "Bearer abc", "token=xyz", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/ws?"+tt.query, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := bearerToken(r); got != tt.want {
				t.Errorf("bearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}
