package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/rfsocket-core/internal/events"
)

// scrape returns the text exposition of m.
func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func assertContains(t *testing.T, body string, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if !strings.Contains(body, line) {
			t.Errorf("scrape missing %q", line)
		}
	}
}

func TestHandle_Commands(t *testing.T) {
	m := New()
	ctx := context.Background()

	on := events.ForSocket(events.TypeSocketCommand, 0, "lamp")
	on.Command = &events.Command{Action: events.ActionOn, Success: true, DurationMS: 300}
	failed := events.ForSocket(events.TypeSocketCommand, 0, "lamp")
	failed.Command = &events.Command{Action: events.ActionOff, Success: false, DurationMS: 10000}
	allOff := events.Event{Type: events.TypeAllOff, Command: &events.Command{Action: events.ActionAllOff, Success: true}}

	for _, e := range []events.Event{on, on, failed, allOff} {
		if err := m.Handle(ctx, e); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
	}

	assertContains(t, scrape(t, m),
		`rfsocket_socket_commands_total{action="on",result="success"} 2`,
		`rfsocket_socket_commands_total{action="off",result="failure"} 1`,
		`rfsocket_socket_commands_total{action="all_off",result="success"} 1`,
		`rfsocket_socket_command_duration_seconds_count{action="on"} 2`,
	)
}

func TestHandle_SocketGauge(t *testing.T) {
	m := New()
	ctx := context.Background()
	m.SetSockets(3)

	_ = m.Handle(ctx, events.ForSocket(events.TypeSocketCreated, 3, "fan"))
	_ = m.Handle(ctx, events.ForSocket(events.TypeSocketCreated, 4, "heater"))
	_ = m.Handle(ctx, events.ForSocket(events.TypeSocketDeleted, 0, "lamp"))

	assertContains(t, scrape(t, m),
		"rfsocket_registry_sockets 4",
		`rfsocket_registry_events_total{type="socket.created"} 2`,
		`rfsocket_registry_events_total{type="socket.deleted"} 1`,
	)
}

func TestObserveHTTP(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodPost, "/api/v1/command", http.StatusNotFound, 5*time.Millisecond)

	assertContains(t, scrape(t, m),
		`rfsocket_http_requests_total{method="POST",route="/api/v1/command",status="404"} 1`,
		`rfsocket_http_request_duration_seconds_count{method="POST",route="/api/v1/command"} 1`,
	)
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.SetSockets(7)

	if strings.Contains(scrape(t, b), "rfsocket_registry_sockets 7") {
		t.Error("gauge leaked between instances")
	}
}
