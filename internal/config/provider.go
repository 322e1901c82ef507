// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// SystemDirPath overrides /etc/as9817util when set.
	SystemDirPath string
	// ConfigDirPath overrides the per-user config directory when set.
	ConfigDirPath string
}

// Provider loads configuration from explicit options. Load also returns
// the path of the file that was read, empty when defaults were used.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, string, error)
}

type fileProvider struct{}

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	return Load(ctx, opts)
}
