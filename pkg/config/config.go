// Package config reads YAML settings files. ${VAR} references are expanded
// from the environment before parsing, and targets that implement Validator
// are checked after.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps the error returned by a target's Validate method.
var ErrInvalid = errors.New("invalid config")

// Validator is implemented by settings that can check themselves.
type Validator interface {
	Validate() error
}

// Load parses filename over target. Keys absent from the file keep the value
// target already holds.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config %s: %w", filename, err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), target); err != nil {
		return fmt.Errorf("parse config %s: %w", filename, err)
	}
	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w %s: %w", ErrInvalid, filename, err)
		}
	}
	return nil
}

// Read loads filename over a fresh value from defaults. Nothing is returned
// on failure, so a bad edit never replaces settings already in use.
func Read[T any](filename string, defaults func() *T) (*T, error) {
	target := defaults()
	if err := Load(filename, target); err != nil {
		return nil, err
	}
	return target, nil
}
