// Package config loads the controller configuration file.
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/reflow-controller/internal/control"
	"github.com/sweeney/reflow-controller/internal/gpio"
	"github.com/sweeney/reflow-controller/internal/profile"
	"github.com/sweeney/reflow-controller/internal/session"
	"github.com/sweeney/reflow-controller/internal/thermo"
)

type Config struct {
	Profile ProfileConfig `yaml:"profile"`
	Control ControlConfig `yaml:"control"`
	Sensor  SensorConfig  `yaml:"sensor"`
	Heater  HeaterConfig  `yaml:"heater"`
	Button  ButtonConfig  `yaml:"button"`
}

type ProfileConfig struct {
	Name     string          `yaml:"name"`
	Segments []SegmentConfig `yaml:"segments"`
}

type SegmentConfig struct {
	Duration time.Duration `yaml:"duration"`
	TargetC  float64       `yaml:"target_c"`
}

type ControlConfig struct {
	TickPeriod    time.Duration  `yaml:"tick_period"`
	SafeStartC    float64        `yaml:"safe_start_c"`
	StopSettle    time.Duration  `yaml:"stop_settle"`
	FinishHold    time.Duration  `yaml:"finish_hold"`
	CooldownCheck time.Duration  `yaml:"cooldown_check"`
	Regimes       []RegimeConfig `yaml:"regimes"`
}

// RegimeConfig is one row of the gain schedule. A missing max_c means "no
// upper bound" and is only valid on the last row.
type RegimeConfig struct {
	MaxC *float64 `yaml:"max_c"`
	Kp   float64  `yaml:"kp"`
	Ki   float64  `yaml:"ki"`
	Kd   float64  `yaml:"kd"`
}

type SensorConfig struct {
	PinSCK int     `yaml:"pin_sck"`
	PinCS  int     `yaml:"pin_cs"`
	PinSO  int     `yaml:"pin_so"`
	MinC   float64 `yaml:"min_c"`
	MaxC   float64 `yaml:"max_c"`
}

type HeaterConfig struct {
	Pin int `yaml:"pin"`
}

type ButtonConfig struct {
	Enable   *bool         `yaml:"enable"`
	Pin      int           `yaml:"pin"`
	Debounce time.Duration `yaml:"debounce"`
}

// ButtonEnabled reports whether the physical button should be used.
func (c Config) ButtonEnabled() bool {
	return c.Button.Enable == nil || *c.Button.Enable
}

// Default returns the configuration used when no file is given: the Sn63/Pb37
// profile on the reference hot plate wiring.
func Default() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	// Only a missing profile section falls back to the default profile; a
	// named profile without segments is rejected by validate.
	if cfg.Profile.Name == "" && len(cfg.Profile.Segments) == 0 {
		def := profile.SnPb()
		cfg.Profile.Name = def.Name
		for _, s := range def.Segments {
			cfg.Profile.Segments = append(cfg.Profile.Segments, SegmentConfig{Duration: s.Duration, TargetC: s.TargetC})
		}
	}
	if cfg.Profile.Name == "" {
		cfg.Profile.Name = "custom"
	}

	def := session.DefaultConfig()
	if cfg.Control.TickPeriod <= 0 {
		cfg.Control.TickPeriod = def.TickPeriod
	}
	if cfg.Control.SafeStartC == 0 {
		cfg.Control.SafeStartC = def.SafeStartC
	}
	if cfg.Control.StopSettle <= 0 {
		cfg.Control.StopSettle = def.StopSettle
	}
	if cfg.Control.FinishHold <= 0 {
		cfg.Control.FinishHold = def.FinishHold
	}
	if cfg.Control.CooldownCheck <= 0 {
		cfg.Control.CooldownCheck = def.CooldownCheck
	}

	if cfg.Sensor.PinSCK == 0 {
		cfg.Sensor.PinSCK = thermo.DefaultPinSCK
	}
	if cfg.Sensor.PinCS == 0 {
		cfg.Sensor.PinCS = thermo.DefaultPinCS
	}
	if cfg.Sensor.PinSO == 0 {
		cfg.Sensor.PinSO = thermo.DefaultPinSO
	}
	if cfg.Sensor.MinC == 0 && cfg.Sensor.MaxC == 0 {
		cfg.Sensor.MinC = def.MinValidC
		cfg.Sensor.MaxC = def.MaxValidC
	}

	if cfg.Heater.Pin == 0 {
		cfg.Heater.Pin = gpio.DefaultPinHeater
	}
	if cfg.Button.Pin == 0 {
		cfg.Button.Pin = gpio.DefaultPinButton
	}
	if cfg.Button.Debounce <= 0 {
		cfg.Button.Debounce = gpio.DefaultDebounce
	}
}

func (c Config) validate() error {
	if err := c.ProfileValue().Validate(); err != nil {
		return err
	}
	if c.Sensor.MinC >= c.Sensor.MaxC {
		return fmt.Errorf("sensor.min_c (%v) must be below sensor.max_c (%v)", c.Sensor.MinC, c.Sensor.MaxC)
	}
	if c.Control.SafeStartC > c.Sensor.MaxC {
		return fmt.Errorf("control.safe_start_c must not exceed sensor.max_c")
	}
	if c.Heater.Pin == c.Button.Pin {
		return fmt.Errorf("heater.pin and button.pin must differ")
	}

	last := math.Inf(-1)
	for i, r := range c.Control.Regimes {
		if r.MaxC == nil {
			if i != len(c.Control.Regimes)-1 {
				return fmt.Errorf("control.regimes[%d]: max_c is required except on the last regime", i)
			}
			continue
		}
		if *r.MaxC <= last {
			return fmt.Errorf("control.regimes[%d]: max_c must be increasing", i)
		}
		last = *r.MaxC
	}
	return nil
}

// ProfileValue converts the profile section.
func (c Config) ProfileValue() profile.Profile {
	p := profile.Profile{Name: c.Profile.Name}
	for _, s := range c.Profile.Segments {
		p.Segments = append(p.Segments, profile.Segment{Duration: s.Duration, TargetC: s.TargetC})
	}
	return p
}

// SessionConfig converts the control and sensor sections.
func (c Config) SessionConfig() session.Config {
	sc := session.Config{
		TickPeriod:    c.Control.TickPeriod,
		SafeStartC:    c.Control.SafeStartC,
		MinValidC:     c.Sensor.MinC,
		MaxValidC:     c.Sensor.MaxC,
		StopSettle:    c.Control.StopSettle,
		FinishHold:    c.Control.FinishHold,
		CooldownCheck: c.Control.CooldownCheck,
	}
	for _, r := range c.Control.Regimes {
		max := math.Inf(1)
		if r.MaxC != nil {
			max = *r.MaxC
		}
		sc.Regimes = append(sc.Regimes, control.Regime{
			MaxC:  max,
			Gains: control.Gains{Kp: r.Kp, Ki: r.Ki, Kd: r.Kd},
		})
	}
	return sc
}
