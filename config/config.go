// Package config loads the YAML document describing a Configuration and its
// task roster, following the teacher's two-stage viper-then-yaml.v3
// unmarshal pattern: viper reads the file into a generic kind/def envelope,
// then the def section is re-marshaled and decoded into the typed struct
// below via yaml.v3. This keeps the file format open to future envelope
// kinds without touching the loader.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// OuterConfig is the envelope every config document is wrapped in: Kind
// names the shape of Def, which is decoded a second time once its concrete
// type is known.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// TaskSpec describes one task's place in the shared feature/action
// vocabulary, as configured in the domain section of the document.
type TaskSpec struct {
	Name        string `yaml:"name"`
	FeatureMask []bool `yaml:"featureMask"`
	ActionMask  []bool `yaml:"actionMask"`
}

// Configuration is the core's tunable parameter set, per the external
// interface: feature sizes, action count, exploration threshold, Rmax,
// discount, VI precision, FSA mode, and the speedup replanning period.
// The tags are lowercase because viper lowercases every map key it reads
// before FromYaml re-marshals the def section; the file itself may spell
// these keys in any case (config.yaml uses camelCase).
type Configuration struct {
	FeatureSize          []int      `yaml:"featuresize"`
	TotalActions         int        `yaml:"totalactions"`
	ExplorationThreshold int        `yaml:"explorationthreshold"`
	Rmax                 int        `yaml:"rmax"`
	Discount             float64    `yaml:"discount"`
	VIPrecision          float64    `yaml:"viprecision"`
	FSAMode              bool       `yaml:"fsamode"`
	SpeedupPeriod        int        `yaml:"speedupperiod"`
	Tasks                []TaskSpec `yaml:"tasks"`
}

func (c *Configuration) applyDefaults() {
	if c.Discount == 0 {
		c.Discount = 0.9
	}
	if c.VIPrecision == 0 {
		c.VIPrecision = 0.1
	}
	if c.SpeedupPeriod == 0 {
		c.SpeedupPeriod = 50
	}
}

// Validate checks the fields an improperly-authored config file could get
// wrong before the container tries to use them.
func (c *Configuration) Validate() error {
	if len(c.FeatureSize) == 0 {
		return fmt.Errorf("config: featureSize must be non-empty")
	}
	for j, size := range c.FeatureSize {
		if size < 1 {
			return fmt.Errorf("config: featureSize[%d]=%d must be >= 1", j, size)
		}
	}
	if c.TotalActions < 1 {
		return fmt.Errorf("config: totalActions must be >= 1")
	}
	if c.ExplorationThreshold < 1 {
		return fmt.Errorf("config: explorationThreshold must be >= 1")
	}
	if len(c.Tasks) == 0 {
		return fmt.Errorf("config: at least one task must be configured")
	}
	for _, t := range c.Tasks {
		if len(t.FeatureMask) != len(c.FeatureSize) {
			return fmt.Errorf("config: task %q featureMask length %d does not match featureSize length %d", t.Name, len(t.FeatureMask), len(c.FeatureSize))
		}
		if len(t.ActionMask) != c.TotalActions {
			return fmt.Errorf("config: task %q actionMask length %d does not match totalActions %d", t.Name, len(t.ActionMask), c.TotalActions)
		}
	}
	return nil
}

// FromYaml loads a Configuration from the given path, following the
// teacher's FromYaml: viper decodes the raw document into OuterConfig, the
// Def payload is re-marshaled to bytes and unmarshaled into Configuration
// via yaml.v3. Default values are applied for any zero-valued optional
// field before validation.
func FromYaml(path string) (*Configuration, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	outer := &OuterConfig{}
	if err := vp.Unmarshal(outer); err != nil {
		return nil, fmt.Errorf("config: decode envelope %s: %w", path, err)
	}

	raw, err := yaml.Marshal(outer.Def)
	if err != nil {
		return nil, fmt.Errorf("config: remarshal %s: %w", path, err)
	}

	cfg := &Configuration{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: decode configuration %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
