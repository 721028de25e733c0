package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"reflect"

	"github.com/creasty/defaults"
)

// Version is filled at compile time with the git version of flowledger
var Version = "v0.0.0+dev"

// ExactVersion is filled at compile time with the git describe output
var ExactVersion = "undefined"

type (
	//Config holds the configuration for the running system
	Config struct {
		R RunningCfg
		S StaticCfg
	}
)

// userConfigPath and globalConfigPath are tried in that order when no
// config file is given on the command line
const (
	userConfigPath   = ".flowledger/config.yaml"
	globalConfigPath = "/etc/flowledger/config.yaml"
)

// LoadConfig retrieves a configuration in order of precedence. An explicitly
// requested file must exist. Otherwise the user and global files are tried
// and the built-in defaults are used when neither is present.
func LoadConfig(cfgPath string) (*Config, error) {
	if cfgPath != "" {
		return loadConfigFile(cfgPath)
	}

	candidates := []string{}
	if usr, err := user.Current(); err == nil {
		candidates = append(candidates, filepath.Join(usr.HomeDir, userConfigPath))
	} else {
		fmt.Fprintf(os.Stderr, "Could not get user info: %s\n", err.Error())
	}
	candidates = append(candidates, globalConfigPath)

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return loadConfigFile(candidate)
		}
	}

	return LoadDefaultConfig()
}

// LoadDefaultConfig builds a configuration from the struct tag defaults alone
func LoadDefaultConfig() (*Config, error) {
	config := &Config{}
	if err := defaults.Set(&config.S); err != nil {
		return nil, err
	}
	config.S.Version = Version
	config.S.ExactVersion = ExactVersion

	if err := initRunningConfig(&config.S, &config.R); err != nil {
		return nil, err
	}
	return config, nil
}

// loadConfigFile attempts to parse a config file
func loadConfigFile(cfgPath string) (*Config, error) {
	config := &Config{}

	if err := loadStaticConfig(cfgPath, &config.S); err != nil {
		return nil, err
	}

	if err := initRunningConfig(&config.S, &config.R); err != nil {
		return nil, err
	}
	return config, nil
}

// expandConfig expands environment variables in config strings
func expandConfig(reflected reflect.Value) {
	for i := 0; i < reflected.NumField(); i++ {
		f := reflected.Field(i)
		// process sub configs
		if f.Kind() == reflect.Struct {
			expandConfig(f)
		} else if f.Kind() == reflect.String {
			f.SetString(os.ExpandEnv(f.String()))
		} else if f.Kind() == reflect.Slice && f.Type().Elem().Kind() == reflect.String {
			strs := f.Interface().([]string)
			for i, str := range strs {
				strs[i] = os.ExpandEnv(str)
			}
			f.Set(reflect.ValueOf(strs))
		}
	}
}
