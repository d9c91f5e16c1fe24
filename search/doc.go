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

// Package search retrieves document fragments for a query. Five modes
// are supported: naive (vector similarity only), local (anchored on
// the entities named in the query), global (expanded through entities
// near the query vector), hybrid (fusion of all three signals), and
// bypass (no retrieval).
//
// Hybrid fusion scores fragments by where they were found: hits in
// both the vector and entity sets score 1.5x their similarity, entity
// hits alone score a flat 1.2, vector hits alone score their
// similarity, and fragments containing every significant query word
// get a 0.3 boost.
//
// Queries may carry multimodal attachments; EnhanceQuery describes
// them through the modal processors and appends the descriptions to
// the query text before retrieval. Answer generates a grounded
// response from the retrieved passages.
package search
