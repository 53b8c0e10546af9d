package shader

import (
	"path"
	"strings"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

// DefaultEntryPoint is used when a shader name does not name an entry point.
const DefaultEntryPoint = "main"

// ShaderName is a parsed "file:entry,Interface=Implementation,..." shader reference.
type ShaderName struct {
	File            string
	Entry           string
	ClassInterfaces []device.ClassInterfaceBinding

	// DynamicLinking is set when the name carried an interface list, even an empty or fully malformed one.
	DynamicLinking bool
}

// ParseShaderName parses a shader reference. A file without an extension gets ".wgsl"; a missing entry point
// becomes DefaultEntryPoint. Interface tokens that are not of the form Interface=Implementation are logged and
// skipped, and parsing continues with the next token.
//
// Parameters:
//   - name: the shader reference
//
// Returns:
//   - ShaderName: the parsed name
func ParseShaderName(name string) ShaderName {
	file, rest, _ := strings.Cut(strings.TrimSpace(name), ":")
	entry, ifaces, dynamic := strings.Cut(rest, ",")

	out := ShaderName{
		File:           file,
		Entry:          common.Coalesce(strings.TrimSpace(entry), DefaultEntryPoint),
		DynamicLinking: dynamic,
	}
	if out.File != "" && path.Ext(out.File) == "" {
		out.File += ".wgsl"
	}

	for _, token := range strings.Split(ifaces, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		slot, impl, ok := strings.Cut(token, "=")
		slot, impl = strings.TrimSpace(slot), strings.TrimSpace(impl)
		if !ok || slot == "" || impl == "" {
			common.Logger().Warn("malformed shader name", "name", name, "token", token)
			continue
		}
		out.ClassInterfaces = append(out.ClassInterfaces, device.ClassInterfaceBinding{Slot: slot, Implementation: impl})
	}
	return out
}

// String renders the name back into its "file:entry,Interface=Implementation" form.
func (n ShaderName) String() string {
	var sb strings.Builder
	sb.WriteString(n.File)
	sb.WriteByte(':')
	sb.WriteString(n.Entry)
	for _, b := range n.ClassInterfaces {
		sb.WriteByte(',')
		sb.WriteString(b.Slot)
		sb.WriteByte('=')
		sb.WriteString(b.Implementation)
	}
	return sb.String()
}
