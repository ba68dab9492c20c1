package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetrics_EndToEndScrape(t *testing.T) {
	m := New("")
	m.SessionOpened()
	m.TurnCompleted(false, 250*time.Millisecond)
	m.TurnCompleted(true, 15*time.Second)
	m.FrameDropped("unknown")
	m.SessionClosed()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"callrelay_sessions_total 1",
		"callrelay_sessions_active 0",
		`callrelay_turns_total{result="ok"} 1`,
		`callrelay_turns_total{result="fallback"} 1`,
		`callrelay_frames_dropped_total{reason="unknown"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("scrape missing %q:\n%s", want, body)
		}
	}
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.SessionOpened()
	m.SessionClosed()
	m.TurnCompleted(false, time.Second)
	m.FrameDropped("malformed")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
}
