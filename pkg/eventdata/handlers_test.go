package eventdata

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	Handler{Store: NewStore(writeSampleFile(t, sampleDocument), testLogger())}.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode, body
}

func TestAPI_ScheduleEnvelope(t *testing.T) {
	srv := newTestAPI(t)

	status, body := getJSON(t, srv.URL+"/api/schedule")
	if status != http.StatusOK {
		t.Fatalf("status=%d", status)
	}
	if body["success"] != true {
		t.Fatalf("success=%v", body["success"])
	}
	if body["count"] != float64(2) {
		t.Fatalf("count=%v", body["count"])
	}
	items, ok := body["data"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("data=%v", body["data"])
	}
}

func TestAPI_ScheduleItemLookup(t *testing.T) {
	srv := newTestAPI(t)

	status, body := getJSON(t, srv.URL+"/api/schedule/sess_keynote")
	if status != http.StatusOK {
		t.Fatalf("status=%d", status)
	}
	item := body["data"].(map[string]any)
	if item["title"] != "Opening Keynote" {
		t.Fatalf("title=%v", item["title"])
	}

	status, body = getJSON(t, srv.URL+"/api/schedule/sess_missing")
	if status != http.StatusNotFound {
		t.Fatalf("status=%d", status)
	}
	if body["success"] != false {
		t.Fatalf("success=%v", body["success"])
	}
}

func TestAPI_AttendeeLookup(t *testing.T) {
	srv := newTestAPI(t)

	status, body := getJSON(t, srv.URL+"/api/attendees/att_2")
	if status != http.StatusOK {
		t.Fatalf("status=%d", status)
	}
	att := body["data"].(map[string]any)
	if att["name"] != "Kim Osei" {
		t.Fatalf("name=%v", att["name"])
	}

	if status, _ := getJSON(t, srv.URL+"/api/attendees/att_404"); status != http.StatusNotFound {
		t.Fatalf("status=%d", status)
	}
}

func TestAPI_ChangelogLimit(t *testing.T) {
	srv := newTestAPI(t)

	status, body := getJSON(t, srv.URL+"/api/changelog?limit=1")
	if status != http.StatusOK {
		t.Fatalf("status=%d", status)
	}
	if body["count"] != float64(1) {
		t.Fatalf("count=%v", body["count"])
	}
	if body["limit"] != float64(1) {
		t.Fatalf("limit=%v", body["limit"])
	}

	if status, _ := getJSON(t, srv.URL+"/api/changelog?limit=bogus"); status != http.StatusBadRequest {
		t.Fatalf("status=%d", status)
	}
}

func TestAPI_EventInfo(t *testing.T) {
	srv := newTestAPI(t)

	status, body := getJSON(t, srv.URL+"/api/event/info")
	if status != http.StatusOK {
		t.Fatalf("status=%d", status)
	}
	info := body["data"].(map[string]any)
	if info["name"] != "Builders Summit" {
		t.Fatalf("name=%v", info["name"])
	}
}

func TestAPI_Dietary(t *testing.T) {
	srv := newTestAPI(t)

	status, body := getJSON(t, srv.URL+"/api/dietary")
	if status != http.StatusOK {
		t.Fatalf("status=%d", status)
	}
	data := body["data"].(map[string]any)
	if data["total_attendees"] != float64(3) {
		t.Fatalf("total=%v", data["total_attendees"])
	}
	summary := data["dietary_summary"].(map[string]any)
	if summary["vegetarian"] != float64(1) {
		t.Fatalf("summary=%v", summary)
	}
}

func TestAPI_FAQCount(t *testing.T) {
	srv := newTestAPI(t)

	status, body := getJSON(t, srv.URL+"/api/faq")
	if status != http.StatusOK {
		t.Fatalf("status=%d", status)
	}
	if body["count"] != float64(2) {
		t.Fatalf("count=%v", body["count"])
	}
}
