package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML document read with -config. Each field names the
// flag it provides a value for; flags given on the command line win.
type fileConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKey       string `yaml:"access_key"`
	SecretKey       string `yaml:"secret_key"`
	Region          string `yaml:"region"`
	PathStyle       *bool  `yaml:"path_style"`
	ChunkedEncoding *bool  `yaml:"chunked_encoding"`
	Retry           *bool  `yaml:"retry"`
	MaxRetries      *int   `yaml:"max_retries"`
	ConnectTimeout  string `yaml:"connect_timeout"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	MaxConnections  *int   `yaml:"max_connections"`
	ContentMD5      *bool  `yaml:"content_md5"`
	Transport       string `yaml:"transport"`
	Bucket          string `yaml:"bucket"`
}

// loadConfigFile reads a fileConfig from path. Unknown keys are rejected.
func loadConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// flagValues maps flag names to the values present in the file.
func (c *fileConfig) flagValues() map[string]string {
	values := make(map[string]string)

	str := func(name, v string) {
		if v != "" {
			values[name] = v
		}
	}
	boolean := func(name string, v *bool) {
		if v != nil {
			values[name] = strconv.FormatBool(*v)
		}
	}
	integer := func(name string, v *int) {
		if v != nil {
			values[name] = strconv.Itoa(*v)
		}
	}

	str("endpoint", c.Endpoint)
	str("access-key", c.AccessKey)
	str("secret-key", c.SecretKey)
	str("region", c.Region)
	boolean("path-style", c.PathStyle)
	boolean("chunked", c.ChunkedEncoding)
	boolean("retry", c.Retry)
	integer("max-retries", c.MaxRetries)
	str("connect-timeout", c.ConnectTimeout)
	str("read-timeout", c.ReadTimeout)
	str("write-timeout", c.WriteTimeout)
	integer("max-connections", c.MaxConnections)
	boolean("content-md5", c.ContentMD5)
	str("transport", c.Transport)
	str("bucket", c.Bucket)

	return values
}

// applyConfigFile sets every flag not given on the command line from the file.
func applyConfigFile(fs *flag.FlagSet, path string) error {
	cfg, err := loadConfigFile(path)
	if err != nil {
		return err
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})

	for name, value := range cfg.flagValues() {
		if explicit[name] {
			continue
		}
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("config file %s: invalid %s value %q: %w", path, name, value, err)
		}
	}
	return nil
}
