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

// EnhanceQuery folds multimodal attachments into a text query. Each
// attachment (an image path, table body, or equation) is described by
// the modal processors and the descriptions are appended to the query,
// so retrieval sees the attachment content as text. Attachments that
// cannot be described are skipped with a warning.
func (s *Searcher) EnhanceQuery(ctx context.Context, query string, attachments []*core.Fragment) (string, error) {
	if len(attachments) == 0 {
		return query, nil
	}

	var b strings.Builder
	b.WriteString(query)

	described := 0
	for _, attachment := range attachments {
		result, err := s.processors.Process(ctx, attachment)
		if err != nil {
			s.logger.Warn("skipping undescribable query attachment",
				"type", attachment.Type, "err", err)
			continue
		}
		fmt.Fprintf(&b, "\n\nAttached %s: %s", attachment.Type, result.Description)
		described++
	}

	if described > 0 {
		s.logger.Debug("query enhanced with attachments",
			"attachments", len(attachments), "described", described)
	}
	return b.String(), nil
}
