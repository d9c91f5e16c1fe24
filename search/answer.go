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

package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/omnidoc/core"
)

const answerSystemPrompt = `You are a precise assistant answering questions about a document collection. Ground your answer in the provided context passages and say so when the context does not contain the answer. Do not invent citations.`

// Answer retrieves context for the query and generates an answer from
// it. Bypass mode sends the query straight to the model with no
// retrieved context. The retrieved fragments are returned alongside the
// answer so callers can show provenance.
func (s *Searcher) Answer(ctx context.Context, query string, mode Mode, maxHits int) (string, []*core.SearchResult, error) {
	results, err := s.Query(ctx, query, mode, maxHits)
	if err != nil {
		return "", nil, err
	}

	prompt := query
	if len(results) > 0 {
		prompt = buildAnswerPrompt(query, results)
	}

	answer, err := s.describer.Describe(ctx, prompt, answerSystemPrompt)
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSpace(answer), results, nil
}

// buildAnswerPrompt assembles the context passages and the question
// into one prompt, best-ranked passage first.
func buildAnswerPrompt(query string, results []*core.SearchResult) string {
	var b strings.Builder
	b.WriteString("Answer the question using the context passages below.\n")

	for i, result := range results {
		fragment := result.Fragment
		fmt.Fprintf(&b, "\n[Passage %d, %s]\n%s\n", i+1, fragment.Type, fragment.Text())
	}

	fmt.Fprintf(&b, "\nQuestion: %s", query)
	return b.String()
}
