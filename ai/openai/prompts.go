package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/omnidoc/ai"
)

const extractionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "entity": {
            "type": "string",
            "pattern": "^[a-z0-9]+( [a-z0-9]+)*$"
          },
          "type": {
            "type": "string"
          },
          "weight": {
            "type": "integer",
            "minimum": 1,
            "maximum": 10
          }
        },
        "required": ["entity", "type", "weight"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities"],
  "additionalProperties": false
}`

const extractionPromptTemplate = `Extract the most important entities from the given document text and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Entity names must be lowercase, 1-3 words, singular form only.
- Type field must match exactly one of the listed values: %s.
- Weight is an integer from 1 (incidental mention) to 10 (central subject). Rate based on how essential the entity is for understanding the text.
- Include only entities that are explicitly mentioned or clearly implied by the text. Do not hallucinate.
- Prefer specific entities over generic ones: "transformer architecture" over "architecture".
- If no entities can be identified, return "entities": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example (prose):
Input: "The Large Hadron Collider at CERN accelerates protons to record energies."
Output:
{
  "entities": [
    {"entity":"large hadron collider","type":"technology","weight":9},
    {"entity":"cern","type":"organization","weight":8},
    {"entity":"proton","type":"material","weight":6}
  ]
}

Example (table description):
Input: "Table comparing accuracy and latency of three retrieval methods on the BEIR benchmark."
Output:
{
  "entities": [
    {"entity":"retrieval method","type":"method","weight":8},
    {"entity":"accuracy","type":"metric","weight":7},
    {"entity":"latency","type":"metric","weight":7},
    {"entity":"beir benchmark","type":"document","weight":6}
  ]
}

Example (equation description):
Input: "The softmax function normalizes attention scores into a probability distribution."
Output:
{
  "entities": [
    {"entity":"softmax function","type":"equation","weight":9},
    {"entity":"attention score","type":"concept","weight":7}
  ]
}`

// buildExtractionPrompt creates the system prompt with entity types embedded.
func buildExtractionPrompt() string {
	return fmt.Sprintf(extractionPromptTemplate,
		extractionResponseSchema,
		strings.Join(ai.EntityTypes, ", "))
}
