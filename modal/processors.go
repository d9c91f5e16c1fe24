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

package modal

import (
	"context"
	"encoding/base64"
	"os"

	"github.com/poiesic/omnidoc/core"
)

// ImageProcessor describes image fragments through a vision model,
// falling back to caption text when the image file is unavailable.
type ImageProcessor struct {
	*base
}

var _ Processor = (*ImageProcessor)(nil)

func (p *ImageProcessor) Type() core.FragmentType {
	return core.FragmentTypeImage
}

func (p *ImageProcessor) Process(ctx context.Context, fragment *core.Fragment) (*Result, error) {
	if fragment.ImagePath != "" && p.vision != nil {
		data, err := os.ReadFile(fragment.ImagePath)
		if err == nil {
			description, err := p.describeImage(ctx, fragment, base64.StdEncoding.EncodeToString(data))
			if err != nil {
				return nil, err
			}
			return p.finish(ctx, description), nil
		}
		p.logger.Warn("image file unreadable, falling back to annotations",
			"path", fragment.ImagePath, "err", err)
	}

	if len(fragment.Captions) == 0 && len(fragment.Footnotes) == 0 {
		return nil, ErrEmptyFragment
	}

	description, err := p.describe(ctx, imageFallbackPrompt(fragment), describeSystemPrompt)
	if err != nil {
		return nil, err
	}
	return p.finish(ctx, description), nil
}

func (p *ImageProcessor) describeImage(ctx context.Context, fragment *core.Fragment, imageBase64 string) (string, error) {
	prompt := imagePrompt(fragment)

	var description string
	err := RetryWithBackoff(ctx, func() error {
		out, err := p.vision.DescribeImage(ctx, prompt, visionSystemPrompt, imageBase64)
		if err != nil {
			return err
		}
		description = out
		return nil
	}, p.attempts, p.baseDelay)
	if err != nil {
		return "", err
	}
	if description == "" {
		return "", ErrDescriptionFailed
	}
	return description, nil
}

// TableProcessor describes table fragments from their body and captions.
type TableProcessor struct {
	*base
}

var _ Processor = (*TableProcessor)(nil)

func (p *TableProcessor) Type() core.FragmentType {
	return core.FragmentTypeTable
}

func (p *TableProcessor) Process(ctx context.Context, fragment *core.Fragment) (*Result, error) {
	body := p.truncator.Truncate(fragment.Content)
	if body == "" {
		return nil, ErrEmptyFragment
	}

	description, err := p.describe(ctx, tablePrompt(fragment, body), describeSystemPrompt)
	if err != nil {
		return nil, err
	}
	return p.finish(ctx, description), nil
}

// EquationProcessor describes equation fragments from their LaTeX source.
type EquationProcessor struct {
	*base
}

var _ Processor = (*EquationProcessor)(nil)

func (p *EquationProcessor) Type() core.FragmentType {
	return core.FragmentTypeEquation
}

func (p *EquationProcessor) Process(ctx context.Context, fragment *core.Fragment) (*Result, error) {
	source := p.truncator.Truncate(fragment.Content)
	if source == "" {
		return nil, ErrEmptyFragment
	}

	description, err := p.describe(ctx, equationPrompt(fragment, source), describeSystemPrompt)
	if err != nil {
		return nil, err
	}
	return p.finish(ctx, description), nil
}

// GenericProcessor handles fragment types without a dedicated processor.
type GenericProcessor struct {
	*base
}

var _ Processor = (*GenericProcessor)(nil)

func (p *GenericProcessor) Type() core.FragmentType {
	return core.FragmentTypeGeneric
}

func (p *GenericProcessor) Process(ctx context.Context, fragment *core.Fragment) (*Result, error) {
	body := p.truncator.Truncate(fragment.Content)
	if body == "" {
		return nil, ErrEmptyFragment
	}

	description, err := p.describe(ctx, genericPrompt(fragment, body), describeSystemPrompt)
	if err != nil {
		return nil, err
	}
	return p.finish(ctx, description), nil
}
