// Package shaperapi serves trafficctrl's full /api/v1/* control surface
// over gorilla/mux, grounded on spec.md §4.2 and the teacher's
// config_handler.go (raw-text config GET/POST, atomic write-then-rename).
package shaperapi

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/snokvist/fpvcore/internal/adapters/httpapi/middleware"
	"github.com/snokvist/fpvcore/internal/core/domain"
	"github.com/snokvist/fpvcore/internal/core/services/shaper"
	"github.com/snokvist/fpvcore/internal/iniconf"
)

// Server exposes the shaper's live snapshot and mediates config edits; the
// owning tick loop polls ReloadRequested/ClearReload at each boundary per
// spec.md §4.2 reload semantics ("handlers set atomic flags").
type Server struct {
	sh       *shaper.Shaper
	cfgPath  string
	reload   atomic.Bool
	streamMu sync.Mutex
	clients  map[*websocket.Conn]struct{}
}

func New(sh *shaper.Shaper, cfgPath string) *Server {
	return &Server{sh: sh, cfgPath: cfgPath, clients: make(map[*websocket.Conn]struct{})}
}

// ReloadRequested reports whether a config mutation is pending a reload.
func (s *Server) ReloadRequested() bool { return s.reload.Load() }

// ClearReload resets the pending-reload flag; call after the tick loop has
// re-read the config and reinstalled the class hierarchy.
func (s *Server) ClearReload() { s.reload.Store(false) }

// BroadcastSnapshot pushes the shaper's current snapshot to every connected
// /api/v1/stream client; call after every applied rate change.
func (s *Server) BroadcastSnapshot() {
	snap := s.sh.Snapshot()
	body, err := json.Marshal(statusFromSnapshot(snap))
	if err != nil {
		return
	}
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	for c := range s.clients {
		if err := c.WriteMessage(websocket.TextMessage, body); err != nil {
			c.Close()
			delete(s.clients, c)
		}
	}
}

var upgrader = websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024, CheckOrigin: func(r *http.Request) bool { return true }}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.streamMu.Lock()
	s.clients[conn] = struct{}{}
	s.streamMu.Unlock()
}

type classView struct {
	Kind     domain.ClassKind `json:"kind"`
	ClassID  string           `json:"classid"`
	Mark     int              `json:"mark"`
	RateKbps int              `json:"rate_kbps"`
	CeilKbps int              `json:"ceil_kbps"`
}

type statusView struct {
	MCS         int         `json:"mcs"`
	WidthMHz    int         `json:"width_mhz"`
	UsableKbps  int         `json:"usable_kbps"`
	AllocKbps   int         `json:"alloc_kbps"`
	Smoothed    int         `json:"smoothed_kbps"`
	Classes     []classView `json:"classes"`
	LastApplyMs int64       `json:"last_apply_ms"`
}

func statusFromSnapshot(snap shaper.Snapshot) statusView {
	v := statusView{
		MCS: snap.Sample.MCS, WidthMHz: snap.Sample.WidthMHz,
		UsableKbps: snap.Sample.UsableKbps, AllocKbps: snap.Sample.AllocKbps,
		Smoothed: snap.Smoothed, LastApplyMs: snap.LastApplyMs,
	}
	for _, c := range snap.Rates.Classes() {
		v.Classes = append(v.Classes, classView{Kind: c.Kind, ClassID: c.ClassID, Mark: c.Mark, RateKbps: c.RateKbps, CeilKbps: c.CeilKbps})
	}
	return v
}

// NewRouter builds trafficctrl's HTTP handler implementing spec.md §4.2's
// status/config/get/set/keys/reload surface verbatim, plus the ambient
// /metrics and /api/v1/stream additions.
func NewRouter(s *Server) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.Headers, middleware.Logging)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/config", s.handleGetConfig).Methods(http.MethodGet)
	api.HandleFunc("/config", s.handlePostConfig).Methods(http.MethodPost)
	api.HandleFunc("/get", s.handleGet).Methods(http.MethodGet)
	api.HandleFunc("/set", s.handleSet).Methods(http.MethodPost)
	api.HandleFunc("/keys", s.handleKeys).Methods(http.MethodGet)
	api.HandleFunc("/action/reload", s.handleActionReload).Methods(http.MethodPost)
	api.HandleFunc("/stream", s.handleStream)

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, statusFromSnapshot(s.sh.Snapshot()))
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	body, err := os.ReadFile(s.cfgPath)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(body)
}

// handlePostConfig replaces the config file atomically (write tmp, rename)
// and schedules a reload, per spec.md §4.2.
func (s *Server) handlePostConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := iniconf.SaveBytes(s.cfgPath, body); err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.reload.Store(true)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	section, key, ok := splitKey(r.URL.Query().Get("key"))
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "missing or malformed key (want section.name)")
		return
	}
	f, err := iniconf.Load(s.cfgPath)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	val, ok := f.Get(section, key)
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "key not found")
		return
	}
	writeJSON(w, map[string]string{"key": r.URL.Query().Get("key"), "value": val})
}

// handleSet writes a single key=value pair and schedules a reload.
func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	section, key, ok := splitKey(r.URL.Query().Get("key"))
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "missing or malformed key (want section.name)")
		return
	}
	value := r.URL.Query().Get("value")
	f, err := iniconf.Load(s.cfgPath)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	f.Set(section, key, value)
	if err := f.Save(s.cfgPath); err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.reload.Store(true)
	w.WriteHeader(http.StatusNoContent)
}

type keyEntry struct {
	Section string `json:"section"`
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
}

// handleKeys enumerates keys per spec.md §4.2, honoring format=tree|flat,
// values=1, section=, and prefix= query parameters.
func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	f, err := iniconf.Load(s.cfgPath)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	q := r.URL.Query()
	section := q.Get("section")
	prefix := q.Get("prefix")
	withValues := q.Get("values") == "1"
	sortKeys := q.Get("sort") == "1"

	var entries []iniconf.Entry
	for _, e := range f.Entries() {
		if section != "" && e.Section != section {
			continue
		}
		if prefix != "" && !strings.HasPrefix(e.Section+"."+e.Key, prefix) {
			continue
		}
		entries = append(entries, e)
	}
	if sortKeys {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Section+"."+entries[i].Key < entries[j].Section+"."+entries[j].Key })
	}

	if q.Get("format") == "tree" {
		tree := map[string][]keyEntry{}
		for _, e := range entries {
			ke := keyEntry{Section: e.Section, Key: e.Key}
			if withValues {
				ke.Value = e.Value
			}
			tree[e.Section] = append(tree[e.Section], ke)
		}
		writeJSON(w, tree)
		return
	}

	flat := make([]keyEntry, 0, len(entries))
	for _, e := range entries {
		ke := keyEntry{Section: e.Section, Key: e.Key}
		if withValues {
			ke.Value = e.Value
		}
		flat = append(flat, ke)
	}
	writeJSON(w, flat)
}

func (s *Server) handleActionReload(w http.ResponseWriter, r *http.Request) {
	s.reload.Store(true)
	w.WriteHeader(http.StatusNoContent)
}

func splitKey(raw string) (section, key string, ok bool) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == '.' {
			return raw[:i], raw[i+1:], raw[:i] != "" && raw[i+1:] != ""
		}
	}
	return "", "", false
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
