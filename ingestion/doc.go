// Package ingestion stores and enriches parsed documents. The Pipeline
// records the document, persists its fragments, embeds text content in
// batches, and routes images, tables and equations through the modal
// processors for descriptions and entity links before writing the
// enriched fragments back.
package ingestion
