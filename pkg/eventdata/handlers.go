package eventdata

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Handler exposes the event document over a small JSON API. Responses use a
// {success, data} envelope; list endpoints add a count field.
type Handler struct {
	Store *Store
}

// Register mounts the API routes on mux.
func (h Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/event", h.event)
	mux.HandleFunc("/api/event/info", h.eventInfo)
	mux.HandleFunc("/api/schedule", h.schedule)
	mux.HandleFunc("/api/schedule/", h.scheduleItem)
	mux.HandleFunc("/api/attendees", h.attendees)
	mux.HandleFunc("/api/attendees/", h.attendee)
	mux.HandleFunc("/api/organizers", h.organizers)
	mux.HandleFunc("/api/faq", h.faq)
	mux.HandleFunc("/api/changelog", h.changelog)
	mux.HandleFunc("/api/dietary", h.dietary)
}

func (h Handler) event(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.Store.All())
}

func (h Handler) eventInfo(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.Store.EventInfo())
}

func (h Handler) schedule(w http.ResponseWriter, r *http.Request) {
	writeList(w, h.Store.Schedule())
}

func (h Handler) scheduleItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/schedule/")
	item, ok := h.Store.ScheduleItem(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Schedule item not found: %s", id))
		return
	}
	writeData(w, item)
}

func (h Handler) attendees(w http.ResponseWriter, r *http.Request) {
	writeList(w, h.Store.Attendees())
}

func (h Handler) attendee(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/attendees/")
	att, ok := h.Store.Attendee(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Attendee not found: %s", id))
		return
	}
	writeData(w, att)
}

func (h Handler) organizers(w http.ResponseWriter, r *http.Request) {
	writeList(w, h.Store.Organizers())
}

func (h Handler) faq(w http.ResponseWriter, r *http.Request) {
	faq := h.Store.FAQ()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    faq,
		"count":   len(faq),
	})
}

func (h Handler) changelog(w http.ResponseWriter, r *http.Request) {
	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %s", raw))
			return
		}
		limit = parsed
	}
	entries := h.Store.Changelog(limit)
	resp := map[string]any{
		"success": true,
		"data":    entries,
		"count":   len(entries),
	}
	if limit > 0 {
		resp["limit"] = limit
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h Handler) dietary(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.Store.Dietary())
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
	})
}

func writeList(w http.ResponseWriter, items []map[string]any) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    items,
		"count":   len(items),
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
