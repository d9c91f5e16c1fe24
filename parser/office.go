package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ConvertOfficeToPDF converts an Office document to PDF using LibreOffice.
// Returns the path of the generated PDF inside outputDir.
func ConvertOfficeToPDF(ctx context.Context, docPath, outputDir string) (string, error) {
	if _, err := os.Stat(docPath); err != nil {
		return "", fmt.Errorf("office document does not exist: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, "soffice",
		"--headless",
		"--convert-to", "pdf",
		"--outdir", outputDir,
		docPath,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%w: soffice not found, install LibreOffice", ErrNotInstalled)
		}
		return "", fmt.Errorf("%w: soffice: %v: %s", ErrParseFailed, err, stderr.String())
	}

	stem := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
	pdfPath := filepath.Join(outputDir, stem+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("%w: expected %s", ErrEmptyOutput, pdfPath)
	}
	return pdfPath, nil
}

// isNotFound reports whether err means the executable is missing.
func isNotFound(err error) bool {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return execErr.Err == exec.ErrNotFound
	}
	return false
}
