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


package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/omnidoc/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Describer implements ai.Describer and ai.VisionDescriber using
// OpenAI-compatible chat APIs.
type Describer struct {
	client       llms.Model
	visionClient llms.Model
	logger       *slog.Logger
}

// newDescriber is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newDescriber(config *ai.Config) (*Describer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	visionClient := client
	if config.VisionModel != config.ChatModel {
		visionClient, err = openai.New(
			openai.WithBaseURL(config.ChatHost),
			openai.WithToken(config.APIKey),
			openai.WithModel(config.VisionModel),
		)
		if err != nil {
			return nil, err
		}
	}

	return &Describer{
		client:       client,
		visionClient: visionClient,
		logger:       slog.Default().With("component", "openai-describer"),
	}, nil
}

// NewDescriber creates a new describer using the provided configuration.
//
// Returns ai.Describer interface to enforce abstraction. The returned value
// also implements ai.VisionDescriber.
func NewDescriber(config *ai.Config) (ai.Describer, error) {
	return newDescriber(config)
}

// Describe sends a prompt to the chat model and returns the response text.
func (d *Describer) Describe(ctx context.Context, prompt, systemPrompt string) (string, error) {
	d.logger.Debug("generating description", "promptLength", len(prompt))

	content := make([]llms.MessageContent, 0, 2)
	if systemPrompt != "" {
		content = append(content, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		})
	}
	content = append(content, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(prompt)},
	})

	response, err := d.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		d.logger.Error("failed to generate description", "err", err)
		return "", err
	}

	return firstChoice(response)
}

// DescribeImage sends a prompt together with a base64-encoded image to the
// vision model and returns the response text. The image is passed as a data
// URL, which OpenAI-compatible services accept for inline payloads.
func (d *Describer) DescribeImage(ctx context.Context, prompt, systemPrompt, imageBase64 string) (string, error) {
	d.logger.Debug("generating image description", "imageBytes", len(imageBase64))

	content := make([]llms.MessageContent, 0, 2)
	if systemPrompt != "" {
		content = append(content, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		})
	}
	content = append(content, llms.MessageContent{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.TextPart(prompt),
			llms.ImageURLPart("data:image/jpeg;base64," + imageBase64),
		},
	})

	response, err := d.visionClient.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		d.logger.Error("failed to generate image description", "err", err)
		return "", err
	}

	return firstChoice(response)
}

// firstChoice extracts the trimmed content of the first response choice.
func firstChoice(response *llms.ContentResponse) (string, error) {
	if response == nil || len(response.Choices) < 1 {
		return "", errors.New("model returned no choices")
	}
	return strings.TrimSpace(response.Choices[0].Content), nil
}
