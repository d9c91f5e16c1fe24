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
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const truncatorEncoding = "cl100k_base"

// approxRunesPerToken sizes the fallback cut when no BPE encoding is
// available (offline environments).
const approxRunesPerToken = 4

// Truncator caps text at a token budget so fragment content fits the
// model context alongside the prompt template. When the tiktoken
// encoding cannot be loaded the truncator falls back to an approximate
// rune-count cut.
type Truncator struct {
	limit int

	once     sync.Once
	encoding *tiktoken.Tiktoken
}

// NewTruncator creates a truncator with the given token limit.
// A non-positive limit disables truncation.
func NewTruncator(limit int) *Truncator {
	return &Truncator{limit: limit}
}

// Limit returns the configured token budget.
func (t *Truncator) Limit() int {
	return t.limit
}

// Truncate returns text cut to at most the token budget. Text within
// the budget is returned unchanged.
func (t *Truncator) Truncate(text string) string {
	if t.limit <= 0 || text == "" {
		return text
	}

	t.once.Do(func() {
		// Encoding load can hit the network for the BPE ranks; a
		// failure here degrades to the approximate cut.
		encoding, err := tiktoken.GetEncoding(truncatorEncoding)
		if err == nil {
			t.encoding = encoding
		}
	})

	if t.encoding == nil {
		runes := []rune(text)
		max := t.limit * approxRunesPerToken
		if len(runes) <= max {
			return text
		}
		return string(runes[:max])
	}

	tokens := t.encoding.Encode(text, nil, nil)
	if len(tokens) <= t.limit {
		return text
	}
	return t.encoding.Decode(tokens[:t.limit])
}
