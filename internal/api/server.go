// Package api provides the HTTP REST API for Wihajster Core.
//
// It exposes the backend-facing settings, command, presence and
// telemetry operations to the excluded frontend layer. The server
// follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Authentication is handled by an upstream gateway and is deliberately
// absent here.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wihajster/wihajster-core/internal/device"
	"github.com/wihajster/wihajster-core/internal/infrastructure/config"
	"github.com/wihajster/wihajster-core/internal/infrastructure/logging"
	"github.com/wihajster/wihajster-core/internal/ingest"
	"github.com/wihajster/wihajster-core/internal/presence"
	"github.com/wihajster/wihajster-core/internal/settings"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// SettingsService is the reconciliation engine surface the API uses.
type SettingsService interface {
	GetOrCreate(ctx context.Context, deviceID int64) (*settings.Record, error)
	RequestUpdate(ctx context.Context, deviceID int64, fields map[string]any) (*settings.Record, error)
	TriggerSync(ctx context.Context, deviceID int64) error
	ClearAllPending(ctx context.Context, deviceID int64) (*settings.Record, error)
}

// CommandService is the correlator surface the API uses.
type CommandService interface {
	Publish(deviceID int64, name string, params map[string]any) error
	SendAndWait(ctx context.Context, deviceID int64, name string, params map[string]any, timeout time.Duration) (map[string]any, error)
}

// PresenceSource reports the last known device presence.
type PresenceSource interface {
	Get(deviceID int64) (presence.State, bool)
}

// TelemetrySource serves the latest device health snapshot.
type TelemetrySource interface {
	LatestTelemetry(ctx context.Context, deviceID int64) (*ingest.Telemetry, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config         config.APIConfig
	Logger         *logging.Logger
	Settings       SettingsService
	Commands       CommandService
	Presence       PresenceSource
	Telemetry      TelemetrySource
	CommandTimeout time.Duration
	Version        string
}

// Server is the HTTP API server for Wihajster Core.
type Server struct {
	cfg            config.APIConfig
	logger         *logging.Logger
	settings       SettingsService
	commands       CommandService
	presence       PresenceSource
	telemetry      TelemetrySource
	commandTimeout time.Duration
	version        string
	server         *http.Server
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Settings == nil {
		return nil, fmt.Errorf("settings service is required")
	}
	if deps.Commands == nil {
		return nil, fmt.Errorf("command service is required")
	}

	timeout := deps.CommandTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Server{
		cfg:            deps.Config,
		logger:         deps.Logger,
		settings:       deps.Settings,
		commands:       deps.Commands,
		presence:       deps.Presence,
		telemetry:      deps.Telemetry,
		commandTimeout: timeout,
		version:        deps.Version,
	}, nil
}

// Start begins listening for HTTP connections in a background
// goroutine. The server is stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting up to ten
// seconds for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// writeDomainError maps domain errors onto HTTP responses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, settings.ErrUnknownDevice), errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
	case errors.Is(err, settings.ErrRecordNotFound):
		writeNotFound(w, "no settings record")
	case errors.Is(err, settings.ErrUnknownSlot), errors.Is(err, settings.ErrInvalidValue):
		writeBadRequest(w, err.Error())
	default:
		writeInternalError(w, "internal server error")
	}
}
