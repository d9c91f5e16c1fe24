package parser

import (
	"path/filepath"
	"strings"
)

// File format categories recognized by the parsers.
var (
	// OfficeFormats require a LibreOffice PDF conversion step first.
	OfficeFormats = []string{".doc", ".docx", ".ppt", ".pptx", ".xls", ".xlsx"}

	// ImageFormats are parsed with the OCR method.
	ImageFormats = []string{".png", ".jpeg", ".jpg", ".bmp", ".tiff", ".tif", ".gif", ".webp"}

	// TextFormats are read directly without an external tool.
	TextFormats = []string{".txt", ".md"}

	// PDFFormats go straight to the parsing tool.
	PDFFormats = []string{".pdf"}
)

// SupportedExtensions returns every extension the parsers accept,
// lowercase with leading dots.
func SupportedExtensions() []string {
	all := make([]string, 0, len(OfficeFormats)+len(ImageFormats)+len(TextFormats)+len(PDFFormats))
	all = append(all, PDFFormats...)
	all = append(all, OfficeFormats...)
	all = append(all, ImageFormats...)
	all = append(all, TextFormats...)
	return all
}

// Category classifications for a path's extension.

func IsOffice(path string) bool {
	return hasExtension(path, OfficeFormats)
}

func IsImage(path string) bool {
	return hasExtension(path, ImageFormats)
}

func IsText(path string) bool {
	return hasExtension(path, TextFormats)
}

func IsPDF(path string) bool {
	return hasExtension(path, PDFFormats)
}

func hasExtension(path string, formats []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range formats {
		if ext == f {
			return true
		}
	}
	return false
}
