// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

// Package localapi serves the local management API. Configuration,
// registration, entitlement status, and system purpose answer as JSON
// endpoints on the loopback interface, so installers, web consoles,
// and other tooling on the machine can drive subscription management
// without shelling out to the CLI.
//
// The transport never leaves the host and carries no credentials.
// Privileged operations are instead gated on the effective uid of the
// server process: a daemon started as root answers everything, an
// unprivileged instance still answers reads.
package localapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ZuhairORZaki/subscription-manager/cache"
	"github.com/ZuhairORZaki/subscription-manager/config"
	"github.com/ZuhairORZaki/subscription-manager/facts"
	"github.com/ZuhairORZaki/subscription-manager/httpclient"
	"github.com/ZuhairORZaki/subscription-manager/identity"
	"github.com/ZuhairORZaki/subscription-manager/logutil"
	"github.com/ZuhairORZaki/subscription-manager/notify"
	"github.com/ZuhairORZaki/subscription-manager/procutil"
	"github.com/ZuhairORZaki/subscription-manager/proxy"
	"github.com/ZuhairORZaki/subscription-manager/security"
)

var log = logutil.NewLogger("rhsm.localapi")

// DefaultPort is where local tools expect the API. 7476 spells rhsm
// on a phone keypad.
const DefaultPort = 7476

// DefaultSyspurposeFile is the system purpose store the syspurpose
// endpoints read and write.
const DefaultSyspurposeFile = "/etc/rhsm/syspurpose/syspurpose.json"

// ClientFactory builds the entitlement server connection for one
// request. The default dials the configured server; tests install
// canned clients here.
type ClientFactory func(cfg *config.Config, proxyInfo proxy.Info, auth httpclient.Auth) (httpclient.UEP, error)

// Config wires the server's collaborators. Zero fields fall back to
// the system locations and the real process privileges.
type Config struct {
	// Port to listen on. Use 0 for auto-assign.
	Port int

	// Conf is the parsed rhsm.conf behind the configuration endpoints.
	// Nil uses the shared default configuration.
	Conf *config.Config

	// Identity is the consumer certificate store.
	Identity *identity.Store

	// Cache persists entitlement status and valid-field responses
	// between requests.
	Cache *cache.Manager

	// Notifier receives desktop notifications for entitlement events.
	// Nil drops them.
	Notifier notify.Notifier

	// Facts supplies the fact set uploaded at registration. Nil
	// registers without facts.
	Facts *facts.Collector

	// ProductDir is scanned for installed product certificates at
	// registration. Empty skips the scan.
	ProductDir string

	// SyspurposeFile overrides the system purpose store location.
	SyspurposeFile string

	// PIDPath guards against a second instance when non-empty.
	PIDPath string

	// Factory overrides how server connections are built.
	Factory ClientFactory

	// IsRoot overrides the privilege check.
	IsRoot func() bool

	// OnReady is called after the server starts listening, with the
	// actual port.
	OnReady func(port int)
}

// Server is the loopback HTTP server behind the management API.
type Server struct {
	Config Config

	conf       *config.Config
	identity   *identity.Store
	cache      *cache.Manager
	syspurpose string
	pidfile    *procutil.PIDFile
	port       int
	httpServer *http.Server
	listener   net.Listener
	done       chan struct{} // closed when the serve goroutine exits
}

// Port returns the actual port the server is listening on.
func (s *Server) Port() int {
	return s.port
}

// Start acquires the pid file and binds the loopback listener, then
// serves in a background goroutine. OnReady is called with the actual
// port.
func (s *Server) Start(ctx context.Context) error {
	s.conf = s.Config.Conf
	if s.conf == nil {
		s.conf = config.Default()
	}
	s.identity = s.Config.Identity
	if s.identity == nil {
		s.identity = identity.NewStore("")
	}
	s.cache = s.Config.Cache
	if s.cache == nil {
		s.cache = cache.NewManager(cache.Options{})
	}
	s.syspurpose = s.Config.SyspurposeFile
	if s.syspurpose == "" {
		s.syspurpose = DefaultSyspurposeFile
	}

	if s.Config.PIDPath != "" {
		s.pidfile = procutil.NewPIDFile(s.Config.PIDPath)
		if err := s.pidfile.Acquire(); err != nil {
			return fmt.Errorf("failed to acquire pid file: %w", err)
		}
	}

	if security.InContainer() {
		log.Warn("subscription-manager is operating in container mode")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /config", s.handleConfigAll)
	mux.HandleFunc("PUT /config", s.handleConfigSetAll)
	mux.HandleFunc("GET /config/{section}", s.handleConfigSection)
	mux.HandleFunc("GET /config/{section}/{property}", s.handleConfigGet)
	mux.HandleFunc("PUT /config/{section}/{property}", s.handleConfigSet)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /unregister", s.handleUnregister)
	mux.HandleFunc("GET /consumer", s.handleConsumer)
	mux.HandleFunc("GET /consumer/org", s.handleConsumerOrg)
	mux.HandleFunc("GET /entitlement/status", s.handleEntitlementStatus)
	mux.HandleFunc("GET /syspurpose", s.handleSyspurposeGet)
	mux.HandleFunc("PUT /syspurpose", s.handleSyspurposeSet)
	mux.HandleFunc("GET /syspurpose/valid_fields", s.handleSyspurposeValidFields)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Registration can sit on an upstream call for minutes, so the
	// write timeout is generous while reads stay tight.
	s.httpServer = &http.Server{
		Handler:      s.logRequests(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// The API never leaves the host.
	addr := fmt.Sprintf("127.0.0.1:%d", s.Config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.releasePIDFile()
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		_ = listener.Close()
		s.releasePIDFile()
		return fmt.Errorf("listener address is not a TCP address")
	}
	s.port = tcpAddr.Port

	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.httpServer.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
		}
	}()

	log.Info("management API listening", "addr", fmt.Sprintf("127.0.0.1:%d", s.port))

	if s.Config.OnReady != nil {
		s.Config.OnReady(s.port)
	}

	return nil
}

// Stop drains in-flight requests and closes the listener, then
// releases the pid file.
func (s *Server) Stop() {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Warn("server shutdown error", "error", err)
		}
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.done != nil {
		select {
		case <-s.done:
		case <-time.After(5 * time.Second):
			log.Warn("serve goroutine did not exit in time")
		}
	}
	s.releasePIDFile()
}

func (s *Server) releasePIDFile() {
	if s.pidfile == nil {
		return
	}
	if err := s.pidfile.Release(); err != nil {
		log.Warn("failed to release pid file", "error", err)
	}
	s.pidfile = nil
}

// statusRecorder remembers the status a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs every request with its outcome and feeds the
// request metrics.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		// The mux fills in Pattern while routing; unmatched requests
		// fall back to the raw path.
		route := r.Pattern
		if route == "" {
			route = r.URL.Path
		}
		recordRequest(route, rec.status, elapsed)
		log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", elapsed,
		)
	})
}

// maxBodySize bounds request bodies. The largest legitimate payload is
// a configuration replacement, well under this.
const maxBodySize = 64 * 1024

// decodeBody reads a JSON request body into target. A failure has
// already been answered with 400 when ok is false.
func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return false
	}
	return true
}

// writeJSON writes body as the JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug("failed to encode response", "error", err)
	}
}

// writeError writes the canonical error document.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
