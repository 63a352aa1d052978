// Package export renders the catalog document served at /catalog.json and
// /catalog.yaml and produced by the export command.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"itemcatalog/internal/models"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

func (f Format) ContentType() string {
	if f == YAML {
		return "application/x-yaml; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

func (f Format) Extension() string {
	return "." + string(f)
}

// Encode writes catalog to w in the given format.
func Encode(w io.Writer, f Format, catalog *models.Catalog) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(catalog); err != nil {
			return fmt.Errorf("failed to encode catalog as json: %w", err)
		}
		return nil
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(catalog); err != nil {
			return fmt.Errorf("failed to encode catalog as yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

func Marshal(f Format, catalog *models.Catalog) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, f, catalog); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
