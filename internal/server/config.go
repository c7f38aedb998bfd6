package server

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Settings is the development backend's file and environment
// configuration.
type Settings struct {
	Addr      string `mapstructure:"addr"`
	DBPath    string `mapstructure:"db_path"`
	JWTSecret string `mapstructure:"jwt_secret"`
	APIKey    string `mapstructure:"api_key"`
	GinMode   string `mapstructure:"gin_mode"`
}

// LoadSettings reads the "server" section of the YAML file at path, if it
// exists, and applies SIMADMIN_SERVER_* environment overrides.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.db_path", "simadmin-dev.db")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.gin_mode", "debug")

	v.SetEnvPrefix("SIMADMIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			_, isPathErr := err.(*os.PathError)
			_, isNotFound := err.(viper.ConfigFileNotFoundError)
			if !isPathErr && !isNotFound {
				return nil, fmt.Errorf("reading server config: %w", err)
			}
		}
	}

	// Unmarshal walks every known key, so environment overrides apply.
	var file struct {
		Server Settings `mapstructure:"server"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if file.Server.JWTSecret == "" {
		return nil, errors.New("server.jwt_secret (SIMADMIN_SERVER_JWT_SECRET) is required")
	}
	return &file.Server, nil
}
