package config

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Duration parses "5s" style values from YAML
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	p, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(p)
	return nil
}

// Configuration is the exportable type of the node configuration
type Configuration struct {
	Logger struct {
		Format string `yaml:"format"`
		Debug  bool   `yaml:"debug"`
	} `yaml:"logger"`
	Storage struct {
		// Backend selects the block store: memory, disk, bolt or leveldb
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
	} `yaml:"storage"`
	Chain struct {
		Name string `yaml:"name"`
		// Autocommit debounce delay, zero disables autocommit
		Autocommit Duration `yaml:"autocommit"`
	} `yaml:"chain"`
	API struct {
		Port      int    `yaml:"port"`
		Interface string `yaml:"interface"`
	} `yaml:"api"`
}

// Defaults returns the configuration used when no file is given
func Defaults() Configuration {
	c := Configuration{}
	c.Logger.Format = "default"
	c.Storage.Backend = "memory"
	c.Storage.Path = "/var/lib/hashlink/data"
	c.Chain.Name = "main"
	c.API.Port = 3000
	c.API.Interface = "127.0.0.1"
	return c
}

// Load reads the configuration from a YAML file, falling back to the
// defaults for a missing file
func Load(path string) (Configuration, error) {
	c := Defaults()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	} else if err != nil {
		return c, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("could not parse config file: %w", err)
	}
	return c, nil
}

// SetupLogger applies the logger section to the global logrus instance
func (c Configuration) SetupLogger() {
	if c.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	if c.Logger.Debug {
		log.SetLevel(log.DebugLevel)
		log.Debug("Debug logging enabled")
	}
}
