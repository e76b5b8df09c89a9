package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/amirbrooks/tasktrack/internal/task"
)

// Format selects the on-disk encoding of the task file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat accepts json, yaml/yml or toml. An empty string yields "".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use json, yaml or toml)", s)
	}
}

// FormatForPath infers the format from the file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

func (f Format) Ext() string {
	if f == "" {
		return string(FormatJSON)
	}
	return string(f)
}

type codec interface {
	encode(records []task.Record) ([]byte, error)
	decode(data []byte) ([]task.Record, error)
}

func codecFor(f Format) (codec, error) {
	switch f {
	case FormatJSON, "":
		return jsonCodec{}, nil
	case FormatYAML:
		return yamlCodec{}, nil
	case FormatTOML:
		return tomlCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
}

// jsonCodec writes a top-level array with four-space indentation and keeps
// non-ASCII text unescaped.
type jsonCodec struct{}

func (jsonCodec) encode(records []task.Record) ([]byte, error) {
	if records == nil {
		records = []task.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (jsonCodec) decode(data []byte) ([]task.Record, error) {
	var records []task.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

type yamlCodec struct{}

func (yamlCodec) encode(records []task.Record) ([]byte, error) {
	if records == nil {
		records = []task.Record{}
	}
	return yaml.Marshal(records)
}

func (yamlCodec) decode(data []byte) ([]task.Record, error) {
	var records []task.Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// tomlCodec stores records as a [[tasks]] array of tables; TOML has no
// top-level arrays.
type tomlCodec struct{}

type tomlDocument struct {
	Tasks []task.Record `toml:"tasks"`
}

func (tomlCodec) encode(records []task.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(tomlDocument{Tasks: records}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (tomlCodec) decode(data []byte) ([]task.Record, error) {
	var doc tomlDocument
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, err
	}
	return doc.Tasks, nil
}
