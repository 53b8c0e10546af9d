// Package config holds the runtime tweakables of the lighting pipeline and loads them from TOML or YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for config files that are neither TOML nor YAML.
var ErrUnknownFormat = errors.New("config: unknown file format")

// Tweakables are the debugging and quality switches read by the lighting parser every frame.
type Tweakables struct {
	// SampleFrequencyOptimisation enables the per-sample stencil mask when MSAA is active.
	SampleFrequencyOptimisation bool `toml:"sample_frequency_optimisation" yaml:"sample_frequency_optimisation"`
	// DoSky draws the sky after the ambient resolve.
	DoSky bool `toml:"do_sky" yaml:"do_sky"`
	// IBLRef switches image based lighting to the brute force reference path.
	IBLRef bool `toml:"ibl_ref" yaml:"ibl_ref"`
	// LightResolveDynamic selects dynamically linked light shaders when non-zero.
	LightResolveDynamic int `toml:"light_resolve_dynamic" yaml:"light_resolve_dynamic"`
	// AllowOrthoShadowResolve lets orthogonal shadows use the cascade resolve instead of the arbitrary one.
	AllowOrthoShadowResolve bool `toml:"allow_ortho_shadow_resolve" yaml:"allow_ortho_shadow_resolve"`
	// DeferredDebugging visualises a gbuffer channel when non-zero.
	DeferredDebugging int `toml:"deferred_debugging" yaml:"deferred_debugging"`
	// RTShadowMetrics overlays the ray traced shadow list lengths.
	RTShadowMetrics bool `toml:"rt_shadow_metrics" yaml:"rt_shadow_metrics"`
	// LightResolveDebugging runs the light resolve again as a debugging overlay.
	LightResolveDebugging bool `toml:"light_resolve_debugging" yaml:"light_resolve_debugging"`
}

// Default returns the tweakables used when no config file exists.
//
// Returns:
//   - Tweakables: the defaults
func Default() Tweakables {
	return Tweakables{
		SampleFrequencyOptimisation: true,
		DoSky:                       true,
		AllowOrthoShadowResolve:     true,
	}
}

// Parse decodes tweakables from data. The format is chosen by the extension of name; fields missing from the file
// keep their default values.
//
// Parameters:
//   - name: the file name, used only for its extension
//   - data: the file contents
//
// Returns:
//   - Tweakables: the decoded values
//   - error: ErrUnknownFormat for other extensions, or the decode error
func Parse(name string, data []byte) (Tweakables, error) {
	t := Default()
	switch strings.ToLower(path.Ext(name)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&t); err != nil {
			return Default(), fmt.Errorf("config %s: %w", name, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
			return Default(), fmt.Errorf("config %s: %w", name, err)
		}
	default:
		return Default(), fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
	return t, nil
}

// Load reads tweakables from a file. A missing file yields the defaults.
//
// Parameters:
//   - filename: the path of a .toml, .yaml or .yml file
//
// Returns:
//   - Tweakables: the loaded values
//   - error: an error if the file exists but cannot be read or decoded
func Load(filename string) (Tweakables, error) {
	data, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), err
	}
	return Parse(filename, data)
}

// Save writes tweakables to a file in the format chosen by its extension.
//
// Parameters:
//   - filename: the path of a .toml, .yaml or .yml file
//   - t: the values to write
//
// Returns:
//   - error: ErrUnknownFormat for other extensions, or the write error
func Save(filename string, t Tweakables) error {
	var data []byte
	var err error
	switch strings.ToLower(path.Ext(filename)) {
	case ".toml":
		data, err = toml.Marshal(t)
	case ".yaml", ".yml":
		data, err = yaml.Marshal(t)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, filename)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}
