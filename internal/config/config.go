// Package config defines Hidra's immutable run configuration (spec §6
// "Configuration (recognized options)"). A Config is built once, either
// from defaults, functional options, or a TOML file, and never mutated
// afterward — every package that reads it takes a value, not a pointer,
// matching the teacher's types/configs.go convention of flat,
// JSON/TOML-tagged option structs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	homedir "github.com/mitchellh/go-homedir"
)

// Config is the immutable snapshot consulted by internal/world,
// internal/bridge, and internal/genome. Field names mirror spec §6's
// recognized option list.
type Config struct {
	MetabolicTaxPerTick          float32 `toml:"metabolic_tax_per_tick"`
	InitialNeuronHealth          float32 `toml:"initial_neuron_health"`
	InitialPotential             float32 `toml:"initial_potential"`
	DefaultDecayRate             float32 `toml:"default_decay_rate"`
	DefaultFiringThreshold       float32 `toml:"default_firing_threshold"`
	DefaultRefractoryPeriod      int32   `toml:"default_refractory_period"`
	DefaultThresholdAdaptationFactor float32 `toml:"default_threshold_adaptation_factor"`
	DefaultThresholdRecoveryRate  float32 `toml:"default_threshold_recovery_rate"`
	FiringRateMAWeight            float32 `toml:"firing_rate_ma_weight"`

	CompetitionRadius float64 `toml:"competition_radius"`
	CrowdingFactor    float32 `toml:"crowding_factor"`

	SystemGeneCount int    `toml:"system_gene_count"`
	DefaultGeneFuel uint32 `toml:"default_gene_fuel"`

	Deterministic   bool   `toml:"deterministic"`
	Seed0           uint64 `toml:"seed0"`
	Seed1           uint64 `toml:"seed1"`
	AutoReseedPerRun bool  `toml:"auto_reseed_per_run"`

	MetricsEnabled            bool  `toml:"metrics_enabled"`
	MetricsCollectionInterval int   `toml:"metrics_collection_interval"`
	MetricsRingCapacity       int   `toml:"metrics_ring_capacity"`
	MetricsLVarIndices        []int `toml:"metrics_lvar_indices"`
	MetricsNeuronSampleRate   float32 `toml:"metrics_neuron_sample_rate"`
	MetricsIncludeSynapses    bool  `toml:"metrics_include_synapses"`
	MetricsIncludeIO          bool  `toml:"metrics_include_io"`
}

// USERLVarWritableLimit is the boundary below which LVar indices are
// writable by user gene code (spec §3 "Neuron"). It is not a recognized
// TOML option: widening it would silently change the meaning of every
// previously-compiled gene, so it is fixed at build time rather than
// exposed as a per-run knob.
const USERLVarWritableLimit = 200

// Default returns the zero-run configuration used when no file or
// option overrides are supplied, mirroring the teacher's
// types.Default()-style constructors.
func Default() Config {
	return Config{
		MetabolicTaxPerTick:              0.01,
		InitialNeuronHealth:              100,
		InitialPotential:                 0,
		DefaultDecayRate:                 0.9,
		DefaultFiringThreshold:           1.0,
		DefaultRefractoryPeriod:          3,
		DefaultThresholdAdaptationFactor: 0.05,
		DefaultThresholdRecoveryRate:     0.01,
		FiringRateMAWeight:               0.1,
		CompetitionRadius:                5.0,
		CrowdingFactor:                   1.0,
		SystemGeneCount:                  4,
		DefaultGeneFuel:                  10000,
		Deterministic:                    true,
		Seed0:                            0x12345678,
		Seed1:                            0x9ABCDEF0,
		AutoReseedPerRun:                 false,
		MetricsEnabled:                   false,
		MetricsCollectionInterval:        100,
		MetricsRingCapacity:              256,
		MetricsNeuronSampleRate:          1.0,
		MetricsIncludeSynapses:           false,
		MetricsIncludeIO:                 false,
	}
}

// Option mutates a Config under construction, in the functional-options
// idiom used throughout the teacher's package constructors.
type Option func(*Config)

// New builds a Config from defaults plus any options, in order.
func New(opts ...Option) Config {
	c := Default()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithSeeds overrides the PRNG seed pair.
func WithSeeds(seed0, seed1 uint64) Option {
	return func(c *Config) { c.Seed0, c.Seed1 = seed0, seed1 }
}

// WithMetrics enables metrics collection at the given tick interval.
func WithMetrics(interval, ringCapacity int) Option {
	return func(c *Config) {
		c.MetricsEnabled = true
		c.MetricsCollectionInterval = interval
		c.MetricsRingCapacity = ringCapacity
	}
}

// WithSystemGeneCount overrides the number of reserved system genes.
func WithSystemGeneCount(n int) Option {
	return func(c *Config) { c.SystemGeneCount = n }
}

// Load reads a TOML configuration file, merging it on top of Default().
// A path of "" resolves to "~/.hidra/config.toml" via go-homedir,
// matching the teacher's default-path-resolution convention; a missing
// default file is not an error (Default() alone is returned).
func Load(path string) (Config, error) {
	c := Default()

	resolved := path
	if resolved == "" {
		home, err := homedir.Dir()
		if err != nil {
			return Config{}, fmt.Errorf("config: resolve home directory: %w", err)
		}
		resolved = filepath.Join(home, ".hidra", "config.toml")
		if _, statErr := os.Stat(resolved); statErr != nil {
			return c, nil
		}
	}

	if _, err := toml.DecodeFile(resolved, &c); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", resolved, err)
	}
	return c, nil
}
