/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package api provides the HTTP API server for signal triage and case
// management. Authentication of analysts happens upstream; handlers trust the
// identity headers set by the gateway. Ingest endpoints authenticate with
// per-source API keys instead.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/carverauto/sentinelcase/pkg/core"
	"github.com/carverauto/sentinelcase/pkg/logger"
	"github.com/carverauto/sentinelcase/pkg/models"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second

	maxBodyBytes = 1 << 20 // 1 MiB
)

// APIServer exposes the core services over HTTP.
type APIServer struct {
	core     *core.Server
	router   *mux.Router
	logger   logger.Logger
	httpSrv  *http.Server
	corsOpen bool
}

// NewAPIServer creates a new API server instance wired to the core services.
func NewAPIServer(coreSvc *core.Server, log logger.Logger, options ...func(*APIServer)) *APIServer {
	s := &APIServer{
		core:   coreSvc,
		router: mux.NewRouter(),
		logger: log.WithComponent("api"),
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithCORSAllowAll opens the API to cross-origin browser clients.
func WithCORSAllowAll() func(*APIServer) {
	return func(server *APIServer) {
		server.corsOpen = true
	}
}

func (s *APIServer) setupRoutes() {
	s.router.Use(s.commonMiddleware)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	// Ingest authenticates with the source's API key, not analyst identity.
	ingest := s.router.PathPrefix("/api/ingest").Subrouter()
	ingest.Use(s.sourceAuthMiddleware)
	ingest.HandleFunc("/{source_id}", s.ingestSignal).Methods("POST")

	protected := s.router.PathPrefix("/api").Subrouter()
	protected.Use(s.identityMiddleware)

	protected.HandleFunc("/signals", s.listSignals).Methods("GET")
	protected.HandleFunc("/signals/{id}", s.getSignal).Methods("GET")
	protected.HandleFunc("/signals/{id}/hold", s.holdSignal).Methods("POST")
	protected.HandleFunc("/signals/{id}/dismiss", s.dismissSignal).Methods("POST")
	protected.HandleFunc("/signals/{id}/promote", s.promoteSignal).Methods("POST")

	protected.HandleFunc("/cases", s.createCase).Methods("POST")
	protected.HandleFunc("/cases", s.listCases).Methods("GET")
	protected.HandleFunc("/cases/{id}", s.getCase).Methods("GET")
	protected.HandleFunc("/cases/{id}/close", s.closeCase).Methods("POST")
	protected.HandleFunc("/cases/{id}/timeline", s.getTimeline).Methods("GET")
	protected.HandleFunc("/cases/{id}/related", s.getRelatedSignals).Methods("GET")
	protected.HandleFunc("/cases/{id}/observables", s.listCaseObservables).Methods("GET")
	protected.HandleFunc("/cases/{id}/observables/{observable_id}/disposition", s.setObservableDisposition).Methods("PUT")
	protected.HandleFunc("/cases/{id}/signals/{signal_id}", s.attachSignal).Methods("POST")
	protected.HandleFunc("/cases/{id}/signals/{signal_id}", s.detachSignal).Methods("DELETE")

	protected.HandleFunc("/observables", s.listObservables).Methods("GET")
	protected.HandleFunc("/observables/{id}", s.getObservable).Methods("GET")
	protected.HandleFunc("/observables/{id}/signals", s.getObservableSignals).Methods("GET")

	protected.HandleFunc("/audit", s.listAudit).Methods("GET")

	protected.HandleFunc("/sources", s.createSource).Methods("POST")
	protected.HandleFunc("/sources", s.listSources).Methods("GET")
	protected.HandleFunc("/sources/{id}", s.getSource).Methods("GET")
	protected.HandleFunc("/sources/{id}", s.updateSource).Methods("PATCH")
	protected.HandleFunc("/sources/{id}/rotate-key", s.rotateSourceKey).Methods("POST")
}

func (s *APIServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.encodeJSONResponse(w, map[string]string{"status": "ok"})
}

// Start runs the HTTP server until it fails or Shutdown is called.
func (s *APIServer) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	s.logger.Info().Str("addr", addr).Msg("API server listening")

	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener.
func (s *APIServer) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}

	return s.httpSrv.Shutdown(ctx)
}

// Router exposes the handler for tests and embedding.
func (s *APIServer) Router() http.Handler {
	return s.router
}

// encodeJSONResponse encodes a response as JSON.
func (s *APIServer) encodeJSONResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps service errors onto HTTP status codes.
func (s *APIServer) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, core.ErrInvalidPayload):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
		// Internal details stay out of the response body.
		err = errors.New("internal server error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if encErr := json.NewEncoder(w).Encode(errorResponse{Error: err.Error()}); encErr != nil {
		s.logger.Error().Err(encErr).Msg("failed to encode error response")
	}
}

func (s *APIServer) writeBadRequest(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

// decodeJSONBody reads a bounded JSON request body into dst.
func decodeJSONBody(r *http.Request, dst interface{}) error {
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))

	return dec.Decode(dst)
}
