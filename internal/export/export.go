// Package export renders an owner's context bundle for backup or transfer.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatYAML     Format = "yaml"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatJSON, FormatCSV, FormatMarkdown, FormatYAML}
}

// ParseFormat resolves a format name. Empty means JSON; "md" and "yml" are
// accepted aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q: %w", s, usercontext.ErrInvalidInput)
	}
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatYAML:
		return "application/yaml"
	default:
		return "application/json"
	}
}

// Write renders b to w.
func Write(w io.Writer, f Format, b *usercontext.Bundle) error {
	if b == nil {
		return fmt.Errorf("export: nil bundle: %w", usercontext.ErrInvalidInput)
	}
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	case FormatCSV:
		return writeCSV(w, b)
	case FormatMarkdown:
		return writeMarkdown(w, b)
	case FormatYAML:
		return writeYAML(w, b)
	default:
		return fmt.Errorf("export: unknown format %q: %w", f, usercontext.ErrInvalidInput)
	}
}

// writeYAML goes through the JSON form so field names match the other
// encodings.
func writeYAML(w io.Writer, b *usercontext.Bundle) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("export: encode bundle: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("export: decode bundle: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(raw); err != nil {
		return fmt.Errorf("export: write yaml: %w", err)
	}
	return enc.Close()
}
