// Package modal analyzes non-text document fragments. Each fragment
// type (image, table, equation, generic) has a processor that prompts
// a model for a description and extracts knowledge-graph entities from
// it. Image fragments go through a vision model when the image file is
// available and fall back to their captions otherwise. Fragment content
// is token-truncated before prompting so large tables and equations fit
// the model context.
package modal
