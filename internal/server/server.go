// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

// Package server provides the HTTP listener the exporter registers its
// endpoints on.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/exporter-toolkit/web"

	"github.com/ferrite-os/ferrite/config"
	"github.com/ferrite-os/ferrite/internal/service"
)

// APIService is the endpoint registry exposed to other services.
type APIService interface {
	service.Service
	Register(endpoint, summary, description string, handler http.Handler) error
}

type endpoint struct {
	path        string
	summary     string
	description string
}

// APIServer serves registered endpoints plus a landing page listing them.
type APIServer struct {
	logger    *slog.Logger
	server    *http.Server
	mux       *http.ServeMux
	endpoints []endpoint
	webConfig *web.FlagConfig
}

var _ APIService = (*APIServer)(nil)
var _ service.Runner = (*APIServer)(nil)

type Opts struct {
	logger    *slog.Logger
	webConfig *web.FlagConfig
}

// DefaultOpts returns the default options
func DefaultOpts() Opts {
	tlsConfig := ""
	return Opts{
		logger: slog.Default(),
		webConfig: &web.FlagConfig{
			WebListenAddresses: &[]string{config.DefaultPort},
			WebConfigFile:      &tlsConfig,
		},
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger for the APIServer
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

// WithListen sets the listening addresses and webconfig path for the APIServer
func WithListen(addr []string, path string) OptionFn {
	return func(o *Opts) {
		o.webConfig = &web.FlagConfig{
			WebListenAddresses: &addr,
			WebConfigFile:      &path,
		}
	}
}

// NewAPIServer creates a new APIServer instance
func NewAPIServer(applyOpts ...OptionFn) *APIServer {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	mux := http.NewServeMux()
	return &APIServer{
		logger:    opts.logger.With("service", "api-server"),
		mux:       mux,
		server:    &http.Server{Handler: mux},
		webConfig: opts.webConfig,
	}
}

func (s *APIServer) Name() string {
	return "api-server"
}

func (s *APIServer) Init() error {
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		var list string
		for _, e := range s.endpoints {
			list += fmt.Sprintf("<li> <a href=%q> %s </a> %s </li>\n", e.path, e.summary, e.description)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, err := fmt.Fprintf(w, `<html>
<head><title>Ferrite PM</title></head>
<body>
<h1>Ferrite PM Simulator</h1>
<p>Available endpoints:</p>
<ul>
	%s
</ul>
</body>
</html>`, list)
		if err != nil {
			s.logger.Error("failed to write landing page", "error", err)
		}
	})

	return nil
}

func (s *APIServer) Run(ctx context.Context) error {
	s.logger.Info("Running server", "addresses", *s.webConfig.WebListenAddresses)
	errCh := make(chan error)
	go func() {
		errCh <- web.ListenAndServe(s.server, s.webConfig, s.logger)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down server on context done")
		return nil

	case err := <-errCh:
		s.logger.Error("server returned an error", "error", err)
		return err
	}
}

func (s *APIServer) Shutdown() error {
	// Give in-flight requests a short grace period.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *APIServer) Register(path, summary, description string, handler http.Handler) error {
	s.logger.Debug("Endpoint registered", "endpoint", path)
	s.mux.Handle(path, handler)
	s.endpoints = append(s.endpoints, endpoint{path: path, summary: summary, description: description})
	return nil
}
