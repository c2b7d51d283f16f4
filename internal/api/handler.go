// Package api exposes the query service over HTTP. Ingestion has no HTTP
// surface; only reads are served here.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/metarwatch/metarwatch/internal/models"
	"github.com/metarwatch/metarwatch/internal/query"
)

type Handler struct {
	service *query.Service
}

func NewHandler(service *query.Service) *Handler {
	return &Handler{service: service}
}

// Router builds the HTTP routes, including health and metrics endpoints.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestIDMiddleware, AccessLogMiddleware)

	r.HandleFunc("/api/v1/id", h.handleIDQuery).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/geo", h.handleGeoQuery).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) handleIDQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	icao := q.Get("icao")
	if icao == "" {
		writeError(w, http.StatusBadRequest, "icao is required")
		return
	}
	start, ok := parseIntParam(w, q.Get("start"), "start")
	if !ok {
		return
	}
	end, ok := parseIntParam(w, q.Get("end"), "end")
	if !ok {
		return
	}

	observations, err := h.service.IDQuery(r.Context(), icao, start, end)
	if err != nil {
		log.Error().Err(err).Str("icao", icao).Msg("id query failed")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeObservations(w, observations)
}

func (h *Handler) handleGeoQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, ok := parseFloatParam(w, q.Get("lat"), "lat")
	if !ok {
		return
	}
	lon, ok := parseFloatParam(w, q.Get("lon"), "lon")
	if !ok {
		return
	}
	radius, ok := parseIntParam(w, q.Get("radius"), "radius")
	if !ok {
		return
	}
	start, ok := parseIntParam(w, q.Get("start"), "start")
	if !ok {
		return
	}
	end, ok := parseIntParam(w, q.Get("end"), "end")
	if !ok {
		return
	}

	observations, err := h.service.GeoQuery(r.Context(), lat, lon, int(radius), start, end)
	if err != nil {
		log.Error().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("geo query failed")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeObservations(w, observations)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func parseIntParam(w http.ResponseWriter, raw, name string) (int64, bool) {
	if raw == "" {
		writeError(w, http.StatusBadRequest, name+" is required")
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return v, true
}

func parseFloatParam(w http.ResponseWriter, raw, name string) (float64, bool) {
	if raw == "" {
		writeError(w, http.StatusBadRequest, name+" is required")
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be a number")
		return 0, false
	}
	return v, true
}

func writeObservations(w http.ResponseWriter, observations []models.Observation) {
	if observations == nil {
		observations = []models.Observation{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(observations); err != nil {
		log.Error().Err(err).Msg("encoding response")
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Code: code, Message: message})
}
