// Package registry holds the config store registry.
package registry

import (
	"context"

	"github.com/leaseworks/lade/pkg/config"
)

// NewFunc is the function that config store implementations
// should register at init time.
type NewFunc func(ctx context.Context, m map[string]interface{}) (config.Store, error)

// NewFuncs is a map containing all the registered config stores.
var NewFuncs = map[string]NewFunc{}

// Register registers a new config store new function.
// Not safe for concurrent use. Safe for use from package init.
func Register(name string, f NewFunc) {
	NewFuncs[name] = f
}
