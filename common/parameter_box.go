package common

import (
	"fmt"
	"sort"
	"strings"
)

// ParameterBox is an ordered set of named parameters. It is used both as the shader define
// table for a variant ("MSAA_SAMPLES=4;SHADOW_CASCADE_MODE=2") and as the global parameter
// set handed to render state resolvers. The zero value is an empty, usable box.
type ParameterBox struct {
	values map[string]string
}

// NewParameterBox creates a ParameterBox from a define string of the form "A=1;B=2".
// Entries without a value are stored as "1". Empty entries are ignored.
//
// Parameters:
//   - defines: the define string to parse
//
// Returns:
//   - ParameterBox: the populated box
func NewParameterBox(defines string) ParameterBox {
	var p ParameterBox
	for _, entry := range strings.Split(defines, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			value = "1"
		}
		p.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return p
}

// Set stores value under name, replacing any previous value. Values are formatted with %v,
// and booleans are stored as 1 or 0.
func (p *ParameterBox) Set(name string, value any) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	switch v := value.(type) {
	case bool:
		if v {
			p.values[name] = "1"
		} else {
			p.values[name] = "0"
		}
	case string:
		p.values[name] = v
	default:
		p.values[name] = fmt.Sprint(v)
	}
}

// Get returns the value stored under name.
func (p ParameterBox) Get(name string) (string, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Len returns the number of parameters in the box.
func (p ParameterBox) Len() int {
	return len(p.values)
}

// Names returns the parameter names in sorted order.
func (p ParameterBox) Names() []string {
	names := make([]string, 0, len(p.values))
	for n := range p.values {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Merge returns a new box holding the entries of p overridden by the entries of other.
func (p ParameterBox) Merge(other ParameterBox) ParameterBox {
	var out ParameterBox
	for k, v := range p.values {
		out.Set(k, v)
	}
	for k, v := range other.values {
		out.Set(k, v)
	}
	return out
}

// String renders the box as a define string with names in sorted order.
func (p ParameterBox) String() string {
	var sb strings.Builder
	for i, n := range p.Names() {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(n)
		sb.WriteByte('=')
		sb.WriteString(p.values[n])
	}
	return sb.String()
}

// Hash returns a stable hash of the box contents. Two boxes with the same entries hash
// equally regardless of insertion order.
func (p ParameterBox) Hash() uint64 {
	if len(p.values) == 0 {
		return 0
	}
	return Hash64(p.String())
}
