package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Image uploads are capped at 10MB.
const maxImageSize = 10 * 1024 * 1024

var allowedImageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// AllowedImageExt reports whether the filename carries an accepted image extension.
func AllowedImageExt(filename string) bool {
	return allowedImageExts[strings.ToLower(filepath.Ext(filename))]
}

// SaveImage stores an uploaded image under baseDir/subdir with a
// collision-resistant name and returns the path relative to baseDir's parent,
// e.g. "static/uploads/posts/2026/01/02/<uuid>.jpg".
func SaveImage(file multipart.File, header *multipart.FileHeader, baseDir, subdir string) (string, error) {
	if !AllowedImageExt(header.Filename) {
		return "", fmt.Errorf("file extension not allowed: %s", filepath.Ext(header.Filename))
	}
	if header.Size > maxImageSize {
		return "", fmt.Errorf("file exceeds %dMB limit", maxImageSize/(1024*1024))
	}

	now := time.Now()
	dateDir := filepath.Join(now.Format("2006"), now.Format("01"), now.Format("02"))
	dir := filepath.Join(baseDir, subdir, dateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	dstPath := filepath.Join(dir, name)

	out, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()

	// Enforce the size cap even when the header lies about Size.
	written, err := io.Copy(out, &io.LimitedReader{R: file, N: maxImageSize + 1})
	if err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("write file: %w", err)
	}
	if written > maxImageSize {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("file exceeds %dMB limit", maxImageSize/(1024*1024))
	}

	return filepath.ToSlash(filepath.Join(baseDir, subdir, dateDir, name)), nil
}

// RemoveStoredFile deletes a previously stored upload. Best-effort: a missing
// file is not an error.
func RemoveStoredFile(relPath string) {
	if relPath == "" {
		return
	}
	if err := os.Remove(relPath); err != nil && !os.IsNotExist(err) {
		if Sugar != nil {
			Sugar.Warnf("failed to remove stored file %s: %v", relPath, err)
		}
	}
}
