// Package config loads the hx711-sensor daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/hx711-sensor/internal/gpio"
	"github.com/sweeney/hx711-sensor/internal/hx711"
)

// Config represents the daemon configuration.
type Config struct {
	GPIO      GPIOConfig      `yaml:"gpio"`
	Converter ConverterConfig `yaml:"converter"`
	Detector  DetectorConfig  `yaml:"detector"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	HTTP      HTTPConfig      `yaml:"http"`
}

// GPIOConfig selects the chip and line offsets wired to the converter.
type GPIOConfig struct {
	Chip     string `yaml:"chip"`
	PinClock int    `yaml:"pin_clock"` // PD_SCK
	PinData  int    `yaml:"pin_data"`  // DOUT
}

// ConverterConfig contains converter settings.
type ConverterConfig struct {
	Gain        int           `yaml:"gain"`
	TareTimeout time.Duration `yaml:"tare_timeout"`
}

// DetectorConfig contains reporting and change detection parameters.
type DetectorConfig struct {
	Report    time.Duration `yaml:"report"`
	Settle    time.Duration `yaml:"settle"`
	Threshold int32         `yaml:"threshold"`
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 disables
}

// MQTTConfig contains broker settings.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

// HTTPConfig contains status server settings.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		GPIO: GPIOConfig{
			Chip:     gpio.DefaultChip,
			PinClock: gpio.DefaultPinClock,
			PinData:  gpio.DefaultPinData,
		},
		Converter: ConverterConfig{
			Gain:        int(hx711.Gain128),
			TareTimeout: 5 * time.Second,
		},
		Detector: DetectorConfig{
			Report:    50 * time.Millisecond,
			Settle:    500 * time.Millisecond,
			Threshold: 20,
			Heartbeat: 15 * time.Minute,
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "hx711-sensor",
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist the
// defaults are returned; fields missing from the file keep their defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults fills fields a file left blank.
// Heartbeat and HTTP address are not filled: zero values disable them.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.GPIO.Chip == "" {
		c.GPIO.Chip = def.GPIO.Chip
	}
	if c.Converter.Gain == 0 {
		c.Converter.Gain = def.Converter.Gain
	}
	if c.Converter.TareTimeout == 0 {
		c.Converter.TareTimeout = def.Converter.TareTimeout
	}
	if c.Detector.Report == 0 {
		c.Detector.Report = def.Detector.Report
	}
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = def.MQTT.Broker
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
}

// Validate checks configuration correctness. It does not mutate c.
func (c *Config) Validate() error {
	var errs []error

	if _, err := hx711.Gain(c.Converter.Gain).Pulses(); err != nil {
		errs = append(errs, fmt.Errorf("converter.gain: %w", err))
	}
	if c.Converter.TareTimeout < 0 {
		errs = append(errs, fmt.Errorf("converter.tare_timeout must not be negative, got %v", c.Converter.TareTimeout))
	}
	if c.GPIO.PinClock < 0 || c.GPIO.PinData < 0 {
		errs = append(errs, fmt.Errorf("gpio pins must not be negative, got clock=%d data=%d", c.GPIO.PinClock, c.GPIO.PinData))
	}
	if c.GPIO.PinClock == c.GPIO.PinData {
		errs = append(errs, fmt.Errorf("gpio.pin_clock and gpio.pin_data must differ, both %d", c.GPIO.PinClock))
	}
	if c.Detector.Report <= 0 {
		errs = append(errs, fmt.Errorf("detector.report must be positive, got %v", c.Detector.Report))
	}
	if c.Detector.Settle < 0 {
		errs = append(errs, fmt.Errorf("detector.settle must not be negative, got %v", c.Detector.Settle))
	}
	if c.Detector.Threshold < 0 {
		errs = append(errs, fmt.Errorf("detector.threshold must not be negative, got %d", c.Detector.Threshold))
	}
	if c.Detector.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("detector.heartbeat must not be negative, got %v", c.Detector.Heartbeat))
	}
	if c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required"))
	}

	return errors.Join(errs...)
}
