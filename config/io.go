package config

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path"
)

const (
	DefaultConfigDir     = ".datagrind"
	DefaultStackDepth    = 8
	DefaultOutFilePattern = "datagrind.out.%p"
)

// Directory Layout
//   $dir/settings.json - Recorder/Analyzer defaults

// Config holds the persisted defaults for the Analyzer's filter flags
// and the Recorder's stack-capture depth. It is loaded lazily and only
// written back when a command explicitly opts in via WantSave.
type Config struct {
	dir      string
	Settings Settings
	wantSave bool
}

// Settings is the on-disk shape of Config, split out so it can be
// marshalled directly.
type Settings struct {
	DefaultRangesSelection []string
	DefaultEventsSelection []string
	DefaultMallocOnly      bool
	StackDepth             int
	OutputFilePattern      string
	RecentTraces           TraceRefs
}

func NewConfig(dir string) *Config {
	if dir == "" {
		dir = DefaultConfigDir
	}
	return &Config{
		dir: dir,
		Settings: Settings{
			StackDepth:        DefaultStackDepth,
			OutputFilePattern: DefaultOutFilePattern,
		},
	}
}

func (c *Config) Load() error {
	if _, err := os.Stat(c.settingsPath()); os.IsNotExist(err) {
		return nil
	}
	js, err := ioutil.ReadFile(c.settingsPath())
	if err != nil {
		return err
	}
	return json.Unmarshal(js, &c.Settings)
}

func (c *Config) WantSave() {
	c.wantSave = true
}

func (c *Config) Save() error {
	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.dir, os.ModePerm); err != nil {
			return err
		}
	}

	js, err := json.Marshal(c.Settings)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(c.settingsPath(), js, os.ModePerm^0111)
}

func (c *Config) SaveIfWant() error {
	if c.wantSave {
		return c.Save()
	}
	return nil
}

func (c Config) settingsPath() string {
	return path.Join(c.dir, "settings.json")
}
