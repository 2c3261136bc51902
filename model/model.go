// Package model loads planning problems from files.
package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"rtdp/mdp"
)

var ErrInvalidModel = errors.New("invalid model")

// Named is implemented by models that can describe their states.
type Named interface {
	StateName(s mdp.State) string
}

// StateName describes s using m when it knows how.
func StateName(m mdp.Model, s mdp.State) string {
	if named, ok := m.(Named); ok {
		return named.StateName(s)
	}
	return fmt.Sprint([]float64(s))
}

// Load reads a tabular model from .yaml/.yml files and a grid map otherwise.
func Load(path string) (mdp.Model, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadTabular(path)
	default:
		return LoadGrid(path)
	}
}
