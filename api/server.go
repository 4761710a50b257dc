// Package api exposes the controller over a small HTTP control plane,
// mirroring the actions of the historical operator console.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jmercer/startgate/controller"
	"github.com/jmercer/startgate/show"
)

// Server wires the controller into HTTP handlers. Controller methods
// serialise internally, so concurrent requests are safe; a launch or
// discovery round simply holds later requests until it completes.
type Server struct {
	ctrl          *controller.Controller
	defaultVolume uint8
	started       time.Time
}

func NewServer(ctrl *controller.Controller, defaultVolume uint8) *Server {
	return &Server{ctrl: ctrl, defaultVolume: defaultVolume, started: time.Now()}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/devices", s.handleDevices).Methods("GET")
	r.HandleFunc("/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/discover", s.handleDiscover).Methods("POST")
	r.HandleFunc("/flash", s.handleFlash).Methods("POST")
	r.HandleFunc("/start", s.handleStart).Methods("POST")
	return r
}

// ListenAndServe blocks serving the control plane on addr.
func (s *Server) ListenAndServe(addr string) error {
	log.Printf("[API] listening on %s", addr)
	return http.ListenAndServe(addr, s.Router())
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ctrl.Devices())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := struct {
		UptimeSeconds float64                   `json:"uptime_seconds"`
		Devices       []controller.DeviceRecord `json:"devices"`
		LastBatch     *show.Batch               `json:"last_batch,omitempty"`
	}{
		UptimeSeconds: time.Since(s.started).Seconds(),
		Devices:       s.ctrl.Devices(),
		LastBatch:     s.ctrl.LastBatch(),
	}
	writeJSON(w, status)
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ctrl.Discover())
}

func (s *Server) handleFlash(w http.ResponseWriter, r *http.Request) {
	s.ctrl.FlashAll()
	w.WriteHeader(http.StatusAccepted)
}

type startRequest struct {
	Show string `json:"show"`
}

type startResponse struct {
	Batch   *show.Batch                 `json:"batch"`
	Results []controller.DeliveryResult `json:"results"`
	Skipped []string                    `json:"skipped,omitempty"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	batch, errs := show.ParseShow(req.Show, s.defaultVolume)
	if len(batch.Directives) == 0 {
		http.Error(w, "no valid directives in show", http.StatusUnprocessableEntity)
		return
	}

	resp := startResponse{
		Batch:   batch,
		Results: s.ctrl.Launch(batch),
	}
	for _, err := range errs {
		resp.Skipped = append(resp.Skipped, err.Error())
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] encode response: %v", err)
	}
}
