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


package parser

import "errors"

var (
	// ErrNotInstalled indicates that the external parsing tool is missing.
	ErrNotInstalled = errors.New("parsing tool not installed")

	// ErrUnsupportedFormat indicates a file extension no parser handles.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrParseFailed indicates that the external tool ran but failed.
	ErrParseFailed = errors.New("parse failed")

	// ErrEmptyOutput indicates the tool produced no readable output files.
	ErrEmptyOutput = errors.New("parser produced no output")
)
