package eventdata

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

const sampleDocument = `{
  "event_id": "evt_2026_summit",
  "name": "Builders Summit",
  "date": "2026-09-12",
  "location": {"venue": "Pier 27", "city": "San Francisco"},
  "schedule": [
    {"id": "sess_keynote", "title": "Opening Keynote", "time": "10:30 AM"},
    {"id": "sess_lunch", "title": "Lunch", "time": "12:30 PM"}
  ],
  "attendees": [
    {"id": "att_1", "name": "Dana Reyes", "company": "Acme", "dietary_restrictions": "vegetarian"},
    {"id": "att_2", "name": "Kim Osei", "company": "Globex", "dietary_restrictions": "none"},
    {"id": "att_3", "name": "Lee Park", "company": "Initech"}
  ],
  "organizers": [
    {"id": "org_1", "name": "Sam Field", "role": "Producer"}
  ],
  "faq": {
    "parking": "Garage on Front St.",
    "wifi": "Network Summit26, no password"
  },
  "changelog": [
    {"at": "2026-09-10T08:00:00Z", "change": "moved lunch to 12:30"},
    {"at": "2026-09-11T09:00:00Z", "change": "added closing reception"},
    {"at": "2026-09-12T07:30:00Z", "change": "keynote room changed to Hall A"}
  ]
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeSampleFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func TestStore_EventInfo(t *testing.T) {
	s := NewStore(writeSampleFile(t, sampleDocument), testLogger())

	info := s.EventInfo()
	if info["event_id"] != "evt_2026_summit" {
		t.Fatalf("event_id=%v", info["event_id"])
	}
	loc, ok := info["location"].(map[string]any)
	if !ok || loc["city"] != "San Francisco" {
		t.Fatalf("location=%v", info["location"])
	}
}

func TestStore_ScheduleLookup(t *testing.T) {
	s := NewStore(writeSampleFile(t, sampleDocument), testLogger())

	if got := len(s.Schedule()); got != 2 {
		t.Fatalf("schedule length=%d", got)
	}
	item, ok := s.ScheduleItem("sess_keynote")
	if !ok {
		t.Fatal("expected keynote item")
	}
	if item["time"] != "10:30 AM" {
		t.Fatalf("time=%v", item["time"])
	}
	if _, ok := s.ScheduleItem("sess_missing"); ok {
		t.Fatal("expected lookup miss")
	}
}

func TestStore_ChangelogLimit(t *testing.T) {
	s := NewStore(writeSampleFile(t, sampleDocument), testLogger())

	all := s.Changelog(0)
	if len(all) != 3 {
		t.Fatalf("changelog length=%d", len(all))
	}
	last := s.Changelog(2)
	if len(last) != 2 {
		t.Fatalf("limited length=%d", len(last))
	}
	// A positive limit keeps the most recent entries.
	if last[1]["change"] != "keynote room changed to Hall A" {
		t.Fatalf("unexpected tail entry %v", last[1])
	}
	if got := s.Changelog(10); len(got) != 3 {
		t.Fatalf("oversized limit length=%d", len(got))
	}
}

func TestStore_DietarySummary(t *testing.T) {
	s := NewStore(writeSampleFile(t, sampleDocument), testLogger())

	d := s.Dietary()
	if d.TotalAttendees != 3 {
		t.Fatalf("total=%d", d.TotalAttendees)
	}
	if d.Summary["vegetarian"] != 1 || d.Summary["none"] != 2 {
		t.Fatalf("summary=%v", d.Summary)
	}
	if len(d.Details) != 3 {
		t.Fatalf("details=%d", len(d.Details))
	}
	// Missing dietary_restrictions counts as none.
	if d.Details[2].DietaryRestrictions != "none" {
		t.Fatalf("details[2]=%v", d.Details[2])
	}
}

func TestStore_MissingFileBehavesEmpty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "absent.json"), testLogger())

	if got := len(s.All()); got != 0 {
		t.Fatalf("expected empty document, got %d keys", got)
	}
	if got := len(s.Schedule()); got != 0 {
		t.Fatalf("expected empty schedule, got %d", got)
	}
}

func TestStore_InvalidJSONBehavesEmpty(t *testing.T) {
	s := NewStore(writeSampleFile(t, "{broken"), testLogger())

	if got := len(s.All()); got != 0 {
		t.Fatalf("expected empty document, got %d keys", got)
	}
}

func TestStore_PicksUpFileChanges(t *testing.T) {
	path := writeSampleFile(t, sampleDocument)
	s := NewStore(path, testLogger())

	if got := len(s.Attendees()); got != 3 {
		t.Fatalf("attendees=%d", got)
	}
	if err := os.WriteFile(path, []byte(`{"attendees":[{"id":"att_1","name":"Dana Reyes"}]}`), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if got := len(s.Attendees()); got != 1 {
		t.Fatalf("expected reload, attendees=%d", got)
	}
}
