// Package registry holds the cloud driver registry.
package registry

import (
	"context"

	"github.com/leaseworks/lade/pkg/cloud"
)

// NewFunc is the function that cloud driver implementations
// should register at init time.
type NewFunc func(ctx context.Context, m map[string]interface{}) (cloud.Port, error)

// NewFuncs is a map containing all the registered cloud drivers.
var NewFuncs = map[string]NewFunc{}

// Register registers a new cloud driver new function.
// Not safe for concurrent use. Safe for use from package init.
func Register(name string, f NewFunc) {
	NewFuncs[name] = f
}
