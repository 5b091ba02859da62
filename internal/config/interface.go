package config

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific definition loader.
type Loader interface {
	// Load reads definitions from the given paths, translates them into the
	// format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter is the bridge between plain Go values (as found in a decoded run
// configuration) and the typed values a definition declares.
type Converter interface {
	// ToCtyValue converts a native Go value (maps, slices, strings, numbers,
	// booleans) into its equivalent cty.Value.
	ToCtyValue(v any) (cty.Value, error)

	// Convert converts a native Go value into a cty.Value of the given type,
	// failing if the value cannot be represented as that type.
	Convert(v any, ty cty.Type) (cty.Value, error)
}
