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
	"fmt"
	"os"
	"os/exec"

	"github.com/poiesic/omnidoc/parser"
)

// LibreOfficeBackend renders office documents to PDF through a local
// soffice installation.
type LibreOfficeBackend struct{}

var _ Backend = (*LibreOfficeBackend)(nil)

// NewLibreOfficeBackend creates a LibreOffice backend.
func NewLibreOfficeBackend() *LibreOfficeBackend {
	return &LibreOfficeBackend{}
}

func (l *LibreOfficeBackend) Name() string {
	return "libreoffice"
}

func (l *LibreOfficeBackend) Available(_ context.Context) error {
	if _, err := exec.LookPath("soffice"); err != nil {
		return fmt.Errorf("%w: soffice not found in PATH", ErrNotAvailable)
	}
	return nil
}

// Convert renders through soffice, which always names its output after
// the input stem, then moves the result to outputPath.
func (l *LibreOfficeBackend) Convert(ctx context.Context, inputPath, outputPath string) error {
	workDir, err := os.MkdirTemp("", "omnidoc-render-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	produced, err := parser.ConvertOfficeToPDF(ctx, inputPath, workDir)
	if err != nil {
		return err
	}

	if err := os.Rename(produced, outputPath); err != nil {
		// Rename fails across filesystems; fall back to a copy
		data, readErr := os.ReadFile(produced)
		if readErr != nil {
			return err
		}
		return os.WriteFile(outputPath, data, 0644)
	}
	return nil
}
