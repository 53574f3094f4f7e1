// File: cmd/proxynoded/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/momentics/graph-proxy-node/server"
)

// fileConfig mirrors server.Config's shape for yaml/env loading; viper
// fills it directly via Unmarshal rather than one-flag-per-field wiring.
type fileConfig struct {
	ListenPath       string        `mapstructure:"listen_path"`
	MaxInputs        int           `mapstructure:"max_inputs"`
	MaxOutputs       int           `mapstructure:"max_outputs"`
	RingDataSize     uint32        `mapstructure:"ring_data_size"`
	ClientReuse      bool          `mapstructure:"client_reuse"`
	FormatObjectID   uint32        `mapstructure:"format_object_id"`
	BodyPoolCapacity int           `mapstructure:"body_pool_capacity"`
	BodyPoolSize     int           `mapstructure:"body_pool_size"`
	RegistryShards   int           `mapstructure:"registry_shards"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
	NUMANode         int           `mapstructure:"numa_node"`
	LogLevel         string        `mapstructure:"log_level"`
}

// loadConfig reads configPath (if non-empty) and overlays environment
// variables of the form PROXYNODED_<KEY>, merging onto server.DefaultConfig.
func loadConfig(configPath string) (server.Config, string, error) {
	def := server.DefaultConfig()
	fc := fileConfig{
		ListenPath:       def.ListenPath,
		RingDataSize:     def.RingDataSize,
		ClientReuse:      def.ClientReuse,
		BodyPoolCapacity: def.BodyPoolCapacity,
		BodyPoolSize:     def.BodyPoolSize,
		RegistryShards:   def.RegistryShards,
		ShutdownTimeout:  def.ShutdownTimeout,
		NUMANode:         def.NUMANode,
		LogLevel:         "info",
	}

	v := viper.New()
	v.SetEnvPrefix("proxynoded")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return server.Config{}, "", err
		}
		if err := v.Unmarshal(&fc); err != nil {
			return server.Config{}, "", err
		}
	}

	return server.Config{
		ListenPath:       fc.ListenPath,
		MaxInputs:        fc.MaxInputs,
		MaxOutputs:       fc.MaxOutputs,
		RingDataSize:     fc.RingDataSize,
		ClientReuse:      fc.ClientReuse,
		FormatObjectID:   fc.FormatObjectID,
		BodyPoolCapacity: fc.BodyPoolCapacity,
		BodyPoolSize:     fc.BodyPoolSize,
		RegistryShards:   fc.RegistryShards,
		ShutdownTimeout:  fc.ShutdownTimeout,
		NUMANode:         fc.NUMANode,
	}, fc.LogLevel, nil
}
