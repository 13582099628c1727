// Package parser decodes course bundles from JSON or YAML.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/coursemark/internal/apperr"
	"github.com/starford/coursemark/internal/models"
)

// Format of a serialized bundle.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf derives the bundle format from a file name.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s", apperr.ErrUnsupportedExt, path)
}

// IsBundle reports whether path has a bundle extension.
func IsBundle(path string) bool {
	_, err := FormatOf(path)
	return err == nil
}

// Sniff guesses the format of raw bundle data. JSON documents start with '{'.
func Sniff(data []byte) Format {
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n\ufeff"), []byte("{")) {
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes and validates a bundle. Decode and validation failures wrap
// apperr.ErrInvalidBundle.
func Parse(data []byte, format Format) (*models.Bundle, error) {
	var b models.Bundle
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &b)
	case FormatYAML:
		err = yaml.Unmarshal(data, &b)
	default:
		return nil, fmt.Errorf("%w: %q", apperr.ErrUnsupportedExt, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", apperr.ErrInvalidBundle, format, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidBundle, err)
	}
	return &b, nil
}

// ParseFile decodes a bundle whose format is given by its file name.
func ParseFile(path string, data []byte) (*models.Bundle, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, format)
}
