// Package config holds the small set of document-wide defaults a loro.Doc
// is constructed with: whether Movable-List moves require fractional
// indices to be enabled, the default rich-text expand rule per style key,
// and whether commits record a wall-clock timestamp. Configuration is
// generally provided at construction time via DefaultConfig, optionally
// loaded from a YAML file for host applications that want to persist it.
package config

import (
	"io/ioutil"

	"github.com/ghodss/yaml"
)

// CurrentConfigRevision is the latest configuration revision; configs
// loaded from disk with a different revision should be treated as needing
// migration by the caller.
const CurrentConfigRevision = 1

// Config encapsulates the default behavior of containers created under a
// Doc.
type Config struct {
	path string

	Revision int

	// MovableListFractionalIndexEnabled gates local Move/Create on a
	// Movable-List: when false, those calls fail with
	// ErrFractionalIndexDisabled.
	MovableListFractionalIndexEnabled bool

	// TextExpand maps a rich-text style key to its default expand rule
	// ("before", "after", "both", "none"), used when Mark is called without
	// an explicit expand override.
	TextExpand map[string]string

	// RecordTimestamps is stored and written with the config, but Commit
	// does not read it: Change.Timestamp is whatever CommitOptions.Timestamp
	// (or a pre-commit hook) supplies, and no clock time is filled in when
	// that is zero.
	RecordTimestamps bool
}

// DefaultConfig gives a new configuration with the engine's default
// container behavior.
func DefaultConfig() *Config {
	return &Config{
		Revision:                          CurrentConfigRevision,
		MovableListFractionalIndexEnabled: true,
		TextExpand: map[string]string{
			"bold":      "after",
			"italic":    "after",
			"underline": "after",
			"link":      "none",
		},
		RecordTimestamps: true,
	}
}

// SetPath assigns the unexported filepath a config was loaded from or
// should be written to.
func (cfg *Config) SetPath(path string) { cfg.path = path }

// Path gives the filepath a config was loaded from, or "" for one built
// with DefaultConfig.
func (cfg Config) Path() string { return cfg.path }

// ReadFromFile reads a YAML configuration file from path.
func ReadFromFile(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{path: path}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteToFile encodes cfg as YAML and writes it to path.
func (cfg Config) WriteToFile(path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, data, 0644)
}

// Copy returns a deep copy of cfg.
func (cfg *Config) Copy() *Config {
	res := &Config{
		path:                               cfg.path,
		Revision:                           cfg.Revision,
		MovableListFractionalIndexEnabled:  cfg.MovableListFractionalIndexEnabled,
		RecordTimestamps:                   cfg.RecordTimestamps,
	}
	if cfg.TextExpand != nil {
		res.TextExpand = make(map[string]string, len(cfg.TextExpand))
		for k, v := range cfg.TextExpand {
			res.TextExpand[k] = v
		}
	}
	return res
}
