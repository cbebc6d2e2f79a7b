// Package instance reads and writes grouped bandit instances as YAML files:
//
//	name: two-group
//	groups: [[0, 1], [2, 3]]
//	means: [0.9, 0.5, 0.3, 0.8]
package instance

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"robustbai/domain/bandit"
	"robustbai/domain/core"

	"gopkg.in/yaml.v3"
)

type document struct {
	Name   string         `yaml:"name,omitempty"`
	Groups [][]core.ArmID `yaml:"groups,flow"`
	Means  []float64      `yaml:"means,flow"`
}

// File is an instance plus the optional name it was saved under
type File struct {
	Name     string
	Instance bandit.Instance
}

// Decode parses and validates one YAML document. Unknown keys are rejected.
func Decode(r io.Reader) (File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return File{}, fmt.Errorf("%w: empty instance document", core.ErrDegenerateInput)
		}
		return File{}, fmt.Errorf("failed to parse instance: %w", err)
	}

	f := File{
		Name:     doc.Name,
		Instance: bandit.Instance{Groups: doc.Groups, Means: doc.Means},
	}
	if err := f.Instance.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Encode writes f as YAML
func Encode(w io.Writer, f File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	doc := document{Name: f.Name, Groups: f.Instance.Groups, Means: f.Instance.Means}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode instance: %w", err)
	}
	return enc.Close()
}

// Load reads an instance file from disk
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read instance file %s: %w", path, err)
	}
	f, err := Decode(bytes.NewReader(data))
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Save validates f and writes it to path, creating parent directories
func Save(path string, f File) error {
	if err := f.Instance.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, f); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
