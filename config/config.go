// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is returned by Validate for settings the simulation cannot run with.
var ErrInvalid = errors.New("config: invalid value")

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Bird       BirdConfig       `yaml:"bird"`
	Pipes      PipesConfig      `yaml:"pipes"`
	Population PopulationConfig `yaml:"population"`
	Mutation   MutationConfig   `yaml:"mutation"`
	Policy     PolicyConfig     `yaml:"policy"`
	Fitness    FitnessConfig    `yaml:"fitness"`
	Simulation SimulationConfig `yaml:"simulation"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display and world settings. The world is the screen.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	HUDHeight int `yaml:"hud_height"` // metrics strip below the play field
	TargetFPS int `yaml:"target_fps"`
}

// BirdConfig holds bird body and physics parameters.
type BirdConfig struct {
	StartX       float64 `yaml:"start_x"`
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	Gravity      float64 `yaml:"gravity"`       // added to velocity every tick
	FlapStrength float64 `yaml:"flap_strength"` // velocity set on flap (negative is up)
	MaxVelocity  float64 `yaml:"max_velocity"`  // |velocity| clamp
}

// PipesConfig holds obstacle geometry.
type PipesConfig struct {
	Width        float64 `yaml:"width"`
	GapHeight    float64 `yaml:"gap_height"`
	Speed        float64 `yaml:"speed"`
	Spacing      float64 `yaml:"spacing"`       // horizontal distance between consecutive pipes
	InitialCount int     `yaml:"initial_count"`
	FirstX       float64 `yaml:"first_x"`
	GapMargin    int     `yaml:"gap_margin"` // min distance between the gap and the screen edges
}

// PopulationConfig holds GA population sizing.
type PopulationConfig struct {
	Size     int `yaml:"size"`
	TopUnits int `yaml:"top_units"`
}

// MutationConfig holds mutation parameters.
type MutationConfig struct {
	Rate float64 `yaml:"rate"`
}

// PolicyConfig holds decision input normalization.
type PolicyConfig struct {
	HorizontalNorm float64 `yaml:"horizontal_norm"`
	VerticalNorm   float64 `yaml:"vertical_norm"`
	FlapThreshold  float64 `yaml:"flap_threshold"`
}

// FitnessConfig holds the weights of the per-tick fitness function.
type FitnessConfig struct {
	ScoreWeight     float64 `yaml:"score_weight"`     // per pipe passed
	DistanceDivisor float64 `yaml:"distance_divisor"` // distance / this
	OffsetPenalty   float64 `yaml:"offset_penalty"`   // scaled |dy| / gap center
	AliveBonus      float64 `yaml:"alive_bonus"`      // while the pipe is still ahead
}

// SimulationConfig holds run-loop parameters.
type SimulationConfig struct {
	Speeds             []int `yaml:"speeds"`               // speed multipliers cycled by the UI
	ParallelThreshold  int   `yaml:"parallel_threshold"`   // min alive birds for parallel inference (0 = never)
	MaxGenerationTicks int   `yaml:"max_generation_ticks"` // end a generation after this many ticks (0 = unlimited)
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	LogGenerations  bool `yaml:"log_generations"`
	BookmarkHistory int  `yaml:"bookmark_history"` // generations of history for bookmark detection (0 = off)
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	WorldW  float64 // Screen.Width as float64
	WorldH  float64 // Screen.Height as float64
	GapMinY int     // lowest allowed gap top
	GapMaxY int     // highest allowed gap top
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults. Panics if they do not parse.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Compute derived values
	cfg.ComputeDerived()

	return cfg, nil
}

// Validate checks the settings that would make the simulation ill-defined.
// Population bounds are checked again by evolution.NewPopulation.
func (c *Config) Validate() error {
	switch {
	case c.Screen.Width <= 0 || c.Screen.Height <= 0:
		return fmt.Errorf("%w: screen %dx%d", ErrInvalid, c.Screen.Width, c.Screen.Height)
	case c.Population.TopUnits < 2 || c.Population.Size < c.Population.TopUnits:
		return fmt.Errorf("%w: population size %d, top_units %d", ErrInvalid, c.Population.Size, c.Population.TopUnits)
	case c.Mutation.Rate < 0 || c.Mutation.Rate > 1:
		return fmt.Errorf("%w: mutation rate %v", ErrInvalid, c.Mutation.Rate)
	case c.Pipes.GapHeight <= 0 || c.Pipes.GapMargin < 0:
		return fmt.Errorf("%w: pipes gap_height %v, gap_margin %d", ErrInvalid, c.Pipes.GapHeight, c.Pipes.GapMargin)
	case c.Fitness.DistanceDivisor == 0:
		return fmt.Errorf("%w: fitness.distance_divisor is zero", ErrInvalid)
	case c.Pipes.InitialCount < 1:
		return fmt.Errorf("%w: pipes.initial_count %d", ErrInvalid, c.Pipes.InitialCount)
	case c.Policy.HorizontalNorm == 0 || c.Policy.VerticalNorm == 0 || c.Bird.MaxVelocity == 0:
		return fmt.Errorf("%w: zero normalization constant", ErrInvalid)
	case c.Screen.Height-2*c.Pipes.GapMargin-int(c.Pipes.GapHeight) < 0:
		return fmt.Errorf("%w: pipe gap does not fit in screen height %d", ErrInvalid, c.Screen.Height)
	}
	for _, s := range c.Simulation.Speeds {
		if s < 1 {
			return fmt.Errorf("%w: speed %d", ErrInvalid, s)
		}
	}
	return nil
}

// ComputeDerived calculates values derived from loaded config.
// Call it again after modifying a loaded config in place.
func (c *Config) ComputeDerived() {
	c.Derived.WorldW = float64(c.Screen.Width)
	c.Derived.WorldH = float64(c.Screen.Height)
	c.Derived.GapMinY = c.Pipes.GapMargin
	c.Derived.GapMaxY = c.Screen.Height - c.Pipes.GapMargin - int(c.Pipes.GapHeight)

	if len(c.Simulation.Speeds) == 0 {
		c.Simulation.Speeds = []int{1}
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Simulation.Speeds = append([]int(nil), c.Simulation.Speeds...)
	return &cp
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
