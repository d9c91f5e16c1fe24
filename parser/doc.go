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


// Package parser defines the single-document parsing contract and shared
// content-block handling for the external parsing tools.
//
// Concrete implementations live in the mineru and docling subpackages.
// Both shell out to their respective CLI tools and read the generated
// markdown and content-list files back from the output directory.
// Office documents are converted to PDF with LibreOffice first; plain
// text and markdown files are read directly.
package parser
