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
	"fmt"
	"strings"

	"github.com/poiesic/omnidoc/core"
)

const describeSystemPrompt = `You are an expert document analyst. You describe document content precisely and factually for a retrieval index. Write flowing prose, no headings or bullet lists. Do not speculate beyond what the content shows.`

const visionSystemPrompt = `You are an expert image analyst. You describe images from documents precisely and factually for a retrieval index. Cover the visual content, any visible text or labels, and what the image conveys in its document context. Write flowing prose, no headings or bullet lists.`

// imagePrompt builds the vision prompt for an image fragment, folding in
// any captions and footnotes the parser extracted.
func imagePrompt(fragment *core.Fragment) string {
	var b strings.Builder
	b.WriteString("Describe this image from a document in detail.\n")
	writeAnnotations(&b, fragment)
	b.WriteString("\nInclude the key visual elements, any text visible in the image, and the information it conveys.")
	return b.String()
}

// imageFallbackPrompt builds a text-only prompt used when the image file
// itself is not available and only captions remain.
func imageFallbackPrompt(fragment *core.Fragment) string {
	var b strings.Builder
	b.WriteString("An image from a document could not be loaded. Based on the available annotations, describe what the image most likely shows.\n")
	writeAnnotations(&b, fragment)
	return b.String()
}

func tablePrompt(fragment *core.Fragment, body string) string {
	var b strings.Builder
	b.WriteString("Analyze this table from a document.\n")
	writeAnnotations(&b, fragment)
	fmt.Fprintf(&b, "\nTable:\n%s\n", body)
	b.WriteString("\nDescribe the table's structure, its columns, and the notable values and trends in the data.")
	return b.String()
}

func equationPrompt(fragment *core.Fragment, source string) string {
	var b strings.Builder
	b.WriteString("Analyze this equation from a document.\n")
	writeAnnotations(&b, fragment)
	fmt.Fprintf(&b, "\nEquation (LaTeX):\n%s\n", source)
	b.WriteString("\nExplain what the equation expresses, the meaning of its variables, and where such an equation is typically used.")
	return b.String()
}

func genericPrompt(fragment *core.Fragment, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this %s content from a document.\n", fragment.Type)
	writeAnnotations(&b, fragment)
	fmt.Fprintf(&b, "\nContent:\n%s\n", body)
	b.WriteString("\nDescribe what this content contains and the information it conveys.")
	return b.String()
}

func writeAnnotations(b *strings.Builder, fragment *core.Fragment) {
	if len(fragment.Captions) > 0 {
		fmt.Fprintf(b, "Caption: %s\n", strings.Join(fragment.Captions, " "))
	}
	if len(fragment.Footnotes) > 0 {
		fmt.Fprintf(b, "Footnote: %s\n", strings.Join(fragment.Footnotes, " "))
	}
}
