package adapter

import (
	"fmt"
	"sort"
	"strings"
)

// Dest says where a mapped parameter lands in the native parameter map.
type Dest int

const (
	// DestTopLevel places the value as a top-level native parameter.
	DestTopLevel Dest = iota

	// DestExtraBody places the value inside the nested extra-body object.
	DestExtraBody
)

// ExtraBodyKey holds accumulated extra-body parameters in the native
// parameter map. It is attached only when at least one parameter landed
// there.
const ExtraBodyKey = "extra_body"

// Mapping names the provider-native destination for one canonical parameter.
type Mapping struct {
	Native string
	Dest   Dest
}

// Table maps canonical parameter names to their native destinations.
type Table map[string]Mapping

// Keys returns the canonical names in the table, sorted.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MapWithTable copies canonical parameters to their native destinations.
// Values are copied unchanged. Keys without a table entry are dropped, or
// rejected with an UnsupportedParameterError naming them when strict is set.
func MapWithTable(provider string, table Table, params map[string]any, strict bool) (map[string]any, error) {
	native := make(map[string]any, len(params))
	extraBody := make(map[string]any)
	var unsupported []string

	for key, value := range params {
		mapping, ok := table[key]
		if !ok {
			unsupported = append(unsupported, key)
			continue
		}
		switch mapping.Dest {
		case DestExtraBody:
			extraBody[mapping.Native] = value
		default:
			native[mapping.Native] = value
		}
	}

	if strict && len(unsupported) > 0 {
		sort.Strings(unsupported)
		return nil, &UnsupportedParameterError{Provider: provider, Params: unsupported}
	}

	if len(extraBody) > 0 {
		native[ExtraBodyKey] = extraBody
	}
	return native, nil
}

// UnsupportedParameterError reports canonical parameters a provider has no
// destination for. Only strict-mode callers see it.
type UnsupportedParameterError struct {
	Provider string
	Params   []string
}

func (e *UnsupportedParameterError) Error() string {
	return fmt.Sprintf("provider %q does not support parameters: %s",
		e.Provider, strings.Join(e.Params, ", "))
}
