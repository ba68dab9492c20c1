// Package eventdata serves the event knowledge base backing the voice
// assistant: schedule, attendees, organizers, FAQ and a running changelog,
// all read from a single JSON document.
package eventdata

import (
	"encoding/json"
	"log/slog"
	"os"
)

// Store reads the event document from disk on every access so that edits to
// the file show up without a restart. A missing or unparsable file behaves
// like an empty document rather than an error.
type Store struct {
	path   string
	logger *slog.Logger
}

func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the location of the backing JSON file.
func (s *Store) Path() string { return s.path }

func (s *Store) load() map[string]any {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Warn("event data file unavailable", "path", s.path, "error", err)
		return map[string]any{}
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.Warn("event data file is not valid JSON", "path", s.path, "error", err)
		return map[string]any{}
	}
	return doc
}

// All returns the complete event document.
func (s *Store) All() map[string]any {
	return s.load()
}

// EventInfo returns the top-level identity fields of the event.
func (s *Store) EventInfo() map[string]any {
	doc := s.load()
	location, ok := doc["location"].(map[string]any)
	if !ok {
		location = map[string]any{}
	}
	return map[string]any{
		"event_id": doc["event_id"],
		"name":     doc["name"],
		"date":     doc["date"],
		"location": location,
	}
}

func (s *Store) Schedule() []map[string]any {
	return objectSlice(s.load()["schedule"])
}

func (s *Store) Attendees() []map[string]any {
	return objectSlice(s.load()["attendees"])
}

func (s *Store) Organizers() []map[string]any {
	return objectSlice(s.load()["organizers"])
}

func (s *Store) FAQ() map[string]any {
	faq, ok := s.load()["faq"].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return faq
}

// Changelog returns the changelog entries, keeping only the most recent
// limit entries when limit is positive.
func (s *Store) Changelog(limit int) []map[string]any {
	entries := objectSlice(s.load()["changelog"])
	if limit > 0 && limit < len(entries) {
		return entries[len(entries)-limit:]
	}
	return entries
}

// ScheduleItem looks up a schedule entry by its id field.
func (s *Store) ScheduleItem(id string) (map[string]any, bool) {
	return findByID(s.Schedule(), id)
}

// Attendee looks up an attendee by their id field.
func (s *Store) Attendee(id string) (map[string]any, bool) {
	return findByID(s.Attendees(), id)
}

// DietarySummary aggregates the dietary restrictions declared by attendees.
type DietarySummary struct {
	TotalAttendees int             `json:"total_attendees"`
	Summary        map[string]int  `json:"dietary_summary"`
	Details        []DietaryDetail `json:"detailed_requirements"`
}

type DietaryDetail struct {
	Name                any    `json:"name"`
	Company             any    `json:"company"`
	DietaryRestrictions string `json:"dietary_restrictions"`
}

func (s *Store) Dietary() DietarySummary {
	attendees := s.Attendees()
	out := DietarySummary{
		TotalAttendees: len(attendees),
		Summary:        map[string]int{},
		Details:        make([]DietaryDetail, 0, len(attendees)),
	}
	for _, att := range attendees {
		dietary, ok := att["dietary_restrictions"].(string)
		if !ok || dietary == "" {
			dietary = "none"
		}
		out.Details = append(out.Details, DietaryDetail{
			Name:                att["name"],
			Company:             att["company"],
			DietaryRestrictions: dietary,
		})
		out.Summary[dietary]++
	}
	return out
}

func objectSlice(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return []map[string]any{}
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func findByID(items []map[string]any, id string) (map[string]any, bool) {
	for _, item := range items {
		if got, ok := item["id"].(string); ok && got == id {
			return item, true
		}
	}
	return nil, false
}
