package validation

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const maxFileNameBytes = 255

var (
	ErrEmptyFile    = errors.New("file is empty")
	ErrNoFile       = errors.New("no file provided")
	ErrFileTooLarge = errors.New("file too large")
)

// ValidateUpload checks an uploaded part against the size cap.
// Any content type is accepted, the channel stores documents as-is.
func ValidateUpload(header *multipart.FileHeader, maxSize int64) error {
	if header == nil {
		return ErrNoFile
	}
	if header.Size == 0 {
		return ErrEmptyFile
	}
	if maxSize > 0 && header.Size > maxSize {
		maxMB := maxSize / (1 << 20)
		return fmt.Errorf("%w: maximum size is %d MB", ErrFileTooLarge, maxMB)
	}
	return nil
}

// DetectContentType returns the declared type of the part, falling back to
// sniffing the first 512 bytes when the client sent none or a generic one.
func DetectContentType(header *multipart.FileHeader) (string, error) {
	declared := header.Header.Get("Content-Type")
	if declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// http.DetectContentType reads max 512 bytes to determine MIME type
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return http.DetectContentType(buffer[:n]), nil
}

// SanitizeFileName normalizes name to NFC, drops any directory part and
// control characters, and caps it at 255 bytes keeping the extension.
// Browsers on macOS send decomposed (NFD) names, which would otherwise show up
// as different files in the channel.
func SanitizeFileName(name string) string {
	name = norm.NFC.String(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if name == "" || name == "." || name == "/" {
		return "file"
	}
	if len(name) <= maxFileNameBytes {
		return name
	}

	ext := filepath.Ext(name)
	if len(ext) > 16 {
		ext = ""
	}
	base := name[:maxFileNameBytes-len(ext)]
	for !utf8.ValidString(base) {
		base = base[:len(base)-1]
	}
	return base + ext
}
