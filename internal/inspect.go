// Package internal serves the journal inspection page used while debugging a running bridge.
package internal

import (
	"dot-catcher/repositories"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const defaultLimit = 100

//go:embed inspect.html
var templatesFS embed.FS

var inspectTemplate = template.Must(template.ParseFS(templatesFS, "inspect.html"))

type InspectRow struct {
	Time    string
	Name    string
	ID      string
	Payload string
}

type StatsProvider func() map[string]any

type PageData struct {
	Limit int
	Items []InspectRow
	Stats map[string]any
}

// NewInspectHandler renders the latest journal entries, newest first.
// ?limit=N changes how many rows are shown, 0 shows everything.
func NewInspectHandler(log *slog.Logger, journal repositories.IJournalRepository, statsProvider StatsProvider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := defaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				http.Error(w, "limit must be a positive number", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		entries, err := journal.Latest(limit)
		if err != nil {
			log.Warn("Failed to read journal", "err", err)
			http.Error(w, "journal unavailable", http.StatusInternalServerError)
			return
		}

		data := PageData{Limit: limit, Stats: map[string]any{}}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}
		for _, entry := range entries {
			data.Items = append(data.Items, ToRow(entry))
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := inspectTemplate.Execute(w, data); err != nil {
			log.Warn("Failed to render inspect page", "err", err)
		}
	})
}

func ToRow(entry repositories.JournalEntry) InspectRow {
	id := entry.ID.String()
	return InspectRow{
		Time:    entry.At.Format(time.TimeOnly + ".000"),
		Name:    entry.Name,
		ID:      id[:8],
		Payload: string(entry.Payload),
	}
}
