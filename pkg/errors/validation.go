package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxTextLength bounds label text and titles stored in a document.
const maxTextLength = 4096

// ValidateVariableName validates a variable name used by scalar displays and
// variable-bound arrays. Names follow identifier rules of the formula grammar.
func ValidateVariableName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "variable name cannot be empty")
	}
	if !identRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid variable name: %q", name)
	}
	return nil
}

var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateText validates free-form text such as label templates and panel titles.
//
// The validation rules are intentionally conservative:
//   - Maximum length of 4096 characters
//   - No control characters other than newline and tab
func ValidateText(text string) error {
	if len(text) > maxTextLength {
		return New(ErrCodeInvalidInput, "text too long (max %d characters)", maxTextLength)
	}
	for _, r := range text {
		if r == '\n' || r == '\t' {
			continue
		}
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "text contains invalid control characters")
		}
	}
	return nil
}

// colorRegex matches "#rgb" and "#rrggbb" colors.
var colorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidateColor validates a style color. The empty string means "default".
func ValidateColor(color string) error {
	if color == "" {
		return nil
	}
	if !colorRegex.MatchString(color) {
		return New(ErrCodeInvalidInput, "invalid color: %q (want #rgb or #rrggbb)", color)
	}
	return nil
}

// ValidateDocumentID validates a document identifier used as a storage key.
// It rejects IDs that could be used for path traversal by file-backed stores.
func ValidateDocumentID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidDocument, "document id cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidDocument, "document id too long (max 128 characters)")
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidDocument, "document id contains invalid characters")
		}
	}
	for _, pattern := range []string{"..", "/", "\\"} {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidDocument, "document id contains invalid characters: %q", pattern)
		}
	}
	return nil
}
