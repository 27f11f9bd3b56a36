package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"squashd/pkg/archive"
	"squashd/pkg/utils"
)

// Status is the live state reported by /healthz.
type Status struct {
	Status     string `json:"status"`
	Autosquash bool   `json:"autosquash"`
	DryRun     bool   `json:"dry_run"`
	QueueDepth int    `json:"queue_depth"`
}

// StatusFunc supplies the current daemon state.
type StatusFunc func() Status

// Handler returns the admin HTTP surface:
// - GET /healthz: liveness and mode report
// - GET /metrics: Prometheus metrics
// - GET /v1/archive?chat=<id>&limit=<n>: browse archived messages
func Handler(log *archive.Log, status StatusFunc) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		st := Status{Status: "ok"}
		if status != nil {
			st = status()
			st.Status = "ok"
		}
		_ = utils.JSONWrite(w, http.StatusOK, st)
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/v1/archive", func(w http.ResponseWriter, req *http.Request) {
		chat := req.URL.Query().Get("chat")
		if chat == "" {
			utils.JSONError(w, http.StatusBadRequest, "missing chat parameter")
			return
		}
		limit := 0
		if ls := req.URL.Query().Get("limit"); ls != "" {
			n, err := strconv.Atoi(ls)
			if err != nil || n < 0 {
				utils.JSONError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = n
		}
		recs, err := log.List(chat, limit)
		if err != nil {
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		_ = utils.JSONWrite(w, http.StatusOK, map[string]any{
			"chat":    chat,
			"count":   len(recs),
			"records": recs,
		})
	}).Methods(http.MethodGet)

	return r
}
