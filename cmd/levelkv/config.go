package main

import (
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const DefaultConfig = `
engine = "leveldb"

[log]
level = "warn"
format = "console"

[options]
create_if_missing = true
`

// Config is the levelkv command configuration. Options are handed to
// levelkv.ParseOptions unchanged, so they use its option names.
type Config struct {
	Path    string                 `toml:"path,omitempty"`
	Engine  string                 `toml:"engine,omitempty"`
	Log     LogConfig              `toml:"log,omitempty"`
	Options map[string]interface{} `toml:"options,omitempty"`
}

type LogConfig struct {
	Level  string `toml:"level,omitempty"`
	Format string `toml:"format,omitempty"`
}

func NewDefaultConfig() *Config {
	c := &Config{}
	if _, err := toml.Decode(DefaultConfig, c); err != nil {
		panic(errors.Wrap(err, "decode default config"))
	}
	if err := c.adjust(); err != nil {
		panic(errors.Wrap(err, "validate default config"))
	}
	return c
}

func (c *Config) LoadFromFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return errors.Wrapf(err, "load config %s", path)
	}
	return c.adjust()
}

func adjustString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func (c *Config) adjust() error {
	adjustString(&c.Engine, "leveldb")
	adjustString(&c.Log.Level, "warn")
	adjustString(&c.Log.Format, "console")
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrapf(err, "invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.Newf("invalid log format %q", c.Log.Format)
	}
	if c.Options == nil {
		c.Options = make(map[string]interface{})
	}
	return nil
}

// openOptions returns the raw open options with the configured engine.
func (c *Config) openOptions() map[string]interface{} {
	raw := make(map[string]interface{}, len(c.Options)+1)
	for k, v := range c.Options {
		raw[k] = v
	}
	raw["engine"] = c.Engine
	return raw
}

func (c *Config) newLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		level = zerolog.WarnLevel
	}
	if c.Log.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, NoColor: w != os.Stderr}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
