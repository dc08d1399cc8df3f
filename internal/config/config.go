// Package config loads dray's startup configuration: the listen address,
// SSH host key files, and S3-compatible backend coordinates (spec.md §6,
// §9's MAX_HANDLES resolution).
//
// Grounded on marmos91-dittofs/pkg/config's viper setup — environment
// variables under a project prefix, `AutomaticEnv`, required-field
// validation that aborts startup rather than serving half-configured —
// generalized from dittofs's many YAML-backed subsystems down to the
// handful of flat fields this server needs.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/tnewman/dray/internal/handle"
	"github.com/tnewman/dray/internal/objectstore"
)

// Config is the immutable, fully-resolved startup configuration, shared
// by reference across every session (spec.md §9).
type Config struct {
	// Host is the listen address, e.g. "0.0.0.0:2022".
	Host string

	// SSHKeyPaths lists host private key files to load, at least one.
	SSHKeyPaths []string

	// S3 is the object-store client configuration.
	S3 objectstore.ClientConfig

	// MaxHandles caps the combined live handle count per session.
	// Defaults to handle.DefaultMaxHandles when unset.
	MaxHandles int
}

// envPrefix is this server's viper environment namespace: every setting
// is read from "DRAY_<FIELD>".
const envPrefix = "DRAY"

// Load reads configuration from DRAY_-prefixed environment variables.
// Required fields (Host, at least one SSH key path, and the S3 bucket)
// missing at startup is an error, not a silently-incomplete Config —
// spec.md §6 requires startup to abort rather than serve misconfigured.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("s3_endpoint_region", "custom")
	v.SetDefault("max_handles", handle.DefaultMaxHandles)

	host := v.GetString("host")
	if host == "" {
		return nil, errors.New("config: DRAY_HOST is required")
	}

	keyPathsRaw := v.GetString("ssh_key_paths")
	if keyPathsRaw == "" {
		return nil, errors.New("config: DRAY_SSH_KEY_PATHS is required")
	}
	var keyPaths []string
	for _, p := range strings.Split(keyPathsRaw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			keyPaths = append(keyPaths, p)
		}
	}
	if len(keyPaths) == 0 {
		return nil, errors.New("config: DRAY_SSH_KEY_PATHS contained no valid paths")
	}

	bucket := v.GetString("s3_bucket")
	if bucket == "" {
		return nil, errors.New("config: DRAY_S3_BUCKET is required")
	}

	maxHandles := v.GetInt("max_handles")
	if maxHandles <= 0 {
		maxHandles = handle.DefaultMaxHandles
	}

	return &Config{
		Host:        host,
		SSHKeyPaths: keyPaths,
		MaxHandles:  maxHandles,
		S3: objectstore.ClientConfig{
			EndpointName:    v.GetString("s3_endpoint_name"),
			EndpointRegion:  v.GetString("s3_endpoint_region"),
			Bucket:          bucket,
			AccessKeyID:     v.GetString("s3_access_key_id"),
			SecretAccessKey: v.GetString("s3_secret_access_key"),
		},
	}, nil
}
