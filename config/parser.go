package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/tailscale/hujson"
)

// ReadClient reads the client configuration from the path. Relative
// paths inside the configuration are relative to the directory
// containing the configuration file.
func ReadClient(path string) (*Client, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c, err := ParseClient(b)
	if err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	c.dir = filepath.Dir(path)
	return c, nil
}

// ParseClient returns the client configuration from JSON bytes. We
// accept comments and trailing commas.
func ParseClient(b []byte) (*Client, error) {
	value, err := hujson.Parse(b)
	if err != nil {
		return nil, errors.Wrap(err, "parsing hujson")
	}
	value.Standardize()

	var c Client
	if err := json.Unmarshal(value.Pack(), &c); err != nil {
		return nil, errors.Wrap(err, "parsing json")
	}

	if err := c.Default(); err != nil {
		return nil, errors.Wrap(err, "defaulting")
	}

	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating")
	}

	return &c, nil
}
