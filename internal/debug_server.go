package internal

import (
	"chat-relay/infrastructure/storage"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed inspect.html
var templatesFS embed.FS

const (
	defaultInspectPrefix = "msg:"
	defaultInspectLimit  = 50
	maxInspectLimit      = 1000
)

type InspectRow struct {
	Key       string `json:"key"`
	Type      string `json:"type"`
	ID        string `json:"id"`
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
	Detail    string `json:"detail"`
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string         `json:"prefix"`
	Limit  int            `json:"limit"`
	Items  []InspectRow   `json:"items"`
	Stats  map[string]any `json:"stats"`
}

// NewDebugRouter serves health, Prometheus metrics and a newest-first dump of the Badger keyspace.
func NewDebugRouter(db *badger.DB, mapper RowMapper, statsProvider StatsProvider, log *slog.Logger) http.Handler {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))
	if mapper == nil {
		mapper = DefaultMapper
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/inspect", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = defaultInspectPrefix
		}
		limit := parseLimit(r.URL.Query().Get("limit"))

		data := PageData{Prefix: prefix, Limit: limit, Items: []InspectRow{}, Stats: map[string]any{}}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		err := db.View(func(txn *badger.Txn) error {
			options := badger.DefaultIteratorOptions
			options.Reverse = true
			options.Prefix = []byte(prefix)
			it := txn.NewIterator(options)
			defer it.Close()

			seekKey := append([]byte(prefix), 0xFF)
			for it.Seek(seekKey); it.ValidForPrefix([]byte(prefix)) && len(data.Items) < limit; it.Next() {
				item := it.Item()
				key := string(item.KeyCopy(nil))
				if err := item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(key, val))
					return nil
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			log.Error("Unable to scan badger", "prefix", prefix, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if r.URL.Query().Get("format") == "json" {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(data)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			log.Error("Unable to render inspect page", "error", err)
		}
	})
	return r
}

func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultInspectLimit
	}
	return min(limit, maxInspectLimit)
}

// MessageMapper renders message records, anything else falls back to DefaultMapper.
func MessageMapper(key string, val []byte) InspectRow {
	if !strings.HasPrefix(key, defaultInspectPrefix) {
		return DefaultMapper(key, val)
	}
	message, err := storage.DecodeMessage(val)
	if err != nil {
		row := DefaultMapper(key, val)
		row.Type = "CORRUPT"
		row.Detail = err.Error()
		return row
	}
	return InspectRow{
		Key:       key,
		Type:      "MESSAGE",
		ID:        strconv.FormatUint(uint64(message.ID), 10),
		Author:    message.Author,
		Timestamp: message.CreatedAt.Format(time.RFC3339Nano),
		Detail:    message.Text,
	}
}

func DefaultMapper(key string, val []byte) InspectRow {
	return InspectRow{
		Key:       key,
		Type:      "RAW",
		ID:        "-",
		Author:    "-",
		Timestamp: "--:--:--",
		Detail:    "Size: " + strconv.Itoa(len(val)) + " bytes",
	}
}
