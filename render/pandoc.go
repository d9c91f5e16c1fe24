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
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// PandocBackend renders markdown to PDF through the pandoc CLI.
type PandocBackend struct {
	// Extra arguments appended to every invocation, e.g. a pdf-engine
	// selection.
	ExtraArgs []string
}

var _ Backend = (*PandocBackend)(nil)

// NewPandocBackend creates a pandoc backend.
func NewPandocBackend(extraArgs ...string) *PandocBackend {
	return &PandocBackend{ExtraArgs: extraArgs}
}

func (p *PandocBackend) Name() string {
	return "pandoc"
}

func (p *PandocBackend) Available(_ context.Context) error {
	if _, err := exec.LookPath("pandoc"); err != nil {
		return fmt.Errorf("%w: pandoc not found in PATH", ErrNotAvailable)
	}
	return nil
}

func (p *PandocBackend) Convert(ctx context.Context, inputPath, outputPath string) error {
	args := append([]string{inputPath, "-o", outputPath}, p.ExtraArgs...)
	cmd := exec.CommandContext(ctx, "pandoc", args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("pandoc conversion failed: %w: %s", err, stderr.String())
	}
	return nil
}
