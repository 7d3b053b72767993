// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"fmt"
	"log/slog"
)

// Init initializes every service implementing Initializer, in order. On
// the first failure it shuts down the services already initialized (in
// reverse order) and returns the error.
func Init(logger *slog.Logger, services []Service) error {
	initialized := make([]Service, 0, len(services))

	for _, s := range services {
		srv, ok := s.(Initializer)
		if !ok {
			continue
		}

		logger.Info("Initializing service", "service", s.Name())
		if err := srv.Init(); err != nil {
			shutdown(logger, initialized)
			return fmt.Errorf("failed to initialize service %s: %w", s.Name(), err)
		}
		initialized = append(initialized, s)
	}

	return nil
}

func shutdown(logger *slog.Logger, services []Service) {
	for i := len(services) - 1; i >= 0; i-- {
		srv, ok := services[i].(Shutdowner)
		if !ok {
			continue
		}
		if err := srv.Shutdown(); err != nil {
			logger.Error("failed to shutdown service", "service", services[i].Name(), "error", err)
		}
	}
}
