// Package config holds the tunable parameters of a track building run.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/swdee/go-trackbuilder/tracker"
)

// ErrInvalid is returned by Validate for out of range values
var ErrInvalid = errors.New("invalid configuration")

// Config holds run configuration.  Fields may be loaded from a JSON file and
// overridden by command-line flags.
type Config struct {
	// Association parameters
	MaxDistance float64 `json:"max_distance"`
	Expiration  int     `json:"expiration"`
	MinLength   int     `json:"min_length"`
	MatchClass  bool    `json:"match_class"`
	Matcher     string  `json:"matcher"`

	// Image frame, needed for normalized coordinates and transforms
	FrameWidth  float64 `json:"frame_width"`
	FrameHeight float64 `json:"frame_height"`

	ColorSeed  uint64 `json:"color_seed"`
	Normalized bool   `json:"normalized"`
	ImageExt   string `json:"image_ext"`
}

// Default returns a Config populated with standard defaults
func Default() *Config {
	return &Config{
		MaxDistance: 0,
		Expiration:  0,
		MinLength:   2,
		MatchClass:  false,
		Matcher:     "greedy",
		ColorSeed:   1,
		Normalized:  false,
		ImageExt:    ".jpg",
	}
}

// Load reads configuration from the JSON file at path.  Fields omitted from
// the file keep their default values and a missing file returns defaults.
func Load(path string) (*Config, error) {

	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)

	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects negative values and unknown matcher names
func (c *Config) Validate() error {

	switch {
	case c.MaxDistance < 0:
		return fmt.Errorf("max_distance %v is negative: %w", c.MaxDistance, ErrInvalid)
	case c.Expiration < 0:
		return fmt.Errorf("expiration %d is negative: %w", c.Expiration, ErrInvalid)
	case c.MinLength < 0:
		return fmt.Errorf("min_length %d is negative: %w", c.MinLength, ErrInvalid)
	case c.FrameWidth < 0 || c.FrameHeight < 0:
		return fmt.Errorf("frame size %vx%v is negative: %w", c.FrameWidth,
			c.FrameHeight, ErrInvalid)
	}

	if _, err := tracker.MatcherByName(c.Matcher); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalid)
	}

	if c.Normalized && !c.Frame().Valid() {
		return fmt.Errorf("normalized coordinates need frame_width and frame_height: %w",
			ErrInvalid)
	}

	return nil
}

// Frame returns the configured image frame size
func (c *Config) Frame() tracker.Frame {
	return tracker.Frame{Width: c.FrameWidth, Height: c.FrameHeight}
}

// ManagerConfig returns the association parameters for a tracker.Manager
func (c *Config) ManagerConfig() tracker.ManagerConfig {
	return tracker.ManagerConfig{
		MaxDistance: c.MaxDistance,
		Expiration:  c.Expiration,
		MatchClass:  c.MatchClass,
	}
}

// NewManager returns a tracker.Manager configured from c
func (c *Config) NewManager() (*tracker.Manager, error) {

	matcher, err := tracker.MatcherByName(c.Matcher)

	if err != nil {
		return nil, err
	}

	m := tracker.NewManager(c.ManagerConfig(), matcher, tracker.NewPaletteColors(c.ColorSeed))
	m.SetFrame(c.Frame())

	return m, nil
}
