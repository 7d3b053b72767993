// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

// Package service defines the lifecycle contracts the simulator binary
// wires its components through.
package service

import "context"

// Service is the interface that all services must implement
type Service interface {
	// Name returns the name of the service
	Name() string
}

// Initializer is implemented by services that need a setup step before
// the run group starts.
type Initializer interface {
	Service
	Init() error
}

// Runner is implemented by services that run in the background. Run is
// expected to block until ctx is done and to be thread safe.
type Runner interface {
	Service
	Run(ctx context.Context) error
}

// Shutdowner is implemented by services that need cleanup on exit.
type Shutdowner interface {
	Service
	Shutdown() error
}
