// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package render

import (
	"context"
	"errors"
)

// Backend converts a document to PDF.
type Backend interface {
	// Name identifies the backend in logs and reports.
	Name() string

	// Available reports whether the backend can run right now (the
	// binary is installed, the server is reachable).
	Available(ctx context.Context) error

	// Convert renders inputPath to a PDF at outputPath.
	Convert(ctx context.Context, inputPath, outputPath string) error
}

var (
	// ErrNoBackends is returned by a Converter built without backends.
	ErrNoBackends = errors.New("no render backends configured")

	// ErrAllBackendsFailed is returned when every backend in the chain
	// failed or was unavailable.
	ErrAllBackendsFailed = errors.New("all render backends failed")

	// ErrNotAvailable indicates the backend cannot run in this environment.
	ErrNotAvailable = errors.New("render backend not available")
)

// BackendInfo reports one backend's availability.
type BackendInfo struct {
	Name      string
	Available bool
	Reason    string // populated when unavailable
}
