// Package linkapi serves linkmgrd's read-only status surface over
// gorilla/mux, grounded on spec.md §4.1's `GET /status` contract and the
// teacher's router.go wiring style (middleware-wrapped mux.Router).
package linkapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/snokvist/fpvcore/internal/adapters/httpapi/middleware"
	"github.com/snokvist/fpvcore/internal/core/domain"
)

// StatusSource is the read-only view linkapi needs from the running
// Controller; implemented by *link.Controller.
type StatusSource interface {
	State() domain.State
	Via() string
	Stations() []domain.Station
}

type node struct {
	IP   string `json:"ip"`
	RSSI int    `json:"rssi"`
	Fail uint8  `json:"fail"`
}

type statusResponse struct {
	Role   string `json:"role"`
	Active string `json:"active"`
	Nodes  []node `json:"nodes"`
}

// NewRouter builds linkmgrd's HTTP handler: GET /status and GET /, plus the
// ambient /metrics and /healthz additions.
func NewRouter(ctrl StatusSource, startedAt time.Time) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.Headers, middleware.Logging)

	r.HandleFunc("/status", func(w http.ResponseWriter, req *http.Request) {
		writeStatus(w, ctrl)
	}).Methods(http.MethodGet)

	r.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		writeStatus(w, ctrl)
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if time.Since(startedAt) < 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	return r
}

func writeStatus(w http.ResponseWriter, ctrl StatusSource) {
	resp := statusResponse{
		Role:   "master",
		Active: ctrl.Via(),
	}
	for _, s := range ctrl.Stations() {
		resp.Nodes = append(resp.Nodes, node{
			IP:   s.IP,
			RSSI: s.RSSIDbm,
			Fail: s.PingFailCount,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
