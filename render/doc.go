// Package render converts documents to PDF through interchangeable
// backends: pandoc, a Gotenberg server, or a local LibreOffice
// installation. A Converter chains backends in fallback order so one
// missing tool does not block rendering.
package render
