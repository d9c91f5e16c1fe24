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

// Package batch dispatches document parsing across a bounded worker
// pool and aggregates per-file outcomes into a single Result.
//
// A Runner is constructed around a ParseFunc callback and a set of
// supported file extensions. ProcessBatch expands the request's paths
// (walking directories, filtering unsupported extensions), submits one
// task per file to an ants pool, and collects outcomes in the original
// input order regardless of completion order.
//
// Two timeout layers apply independently: TimeoutPerFile bounds one
// file's parse and frees its worker slot on expiry, and Timeout bounds
// the whole run, marking any unfinished files as timed out and
// returning the partial result. Failures never abort the batch; every
// input path is accounted for in the Result.
package batch
