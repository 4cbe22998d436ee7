package config

import (
	"os"
	"os/user"
	"path/filepath"
	"reflect"
)

//Version is filled at compile time with the git version of snitch
var Version = "undefined"

//ExactVersion is filled at compile time with the git version of snitch
var ExactVersion = "undefined"

type (
	//Config holds the configuration for the running system
	Config struct {
		R RunningCfg
		S StaticCfg
		T TableCfg
	}
)

//userConfigPath specifies the path of the user's config file
const userConfigPath = ".snitch/config.yaml"

//systemConfigPath specifies the path of snitch's system wide config file
const systemConfigPath = "/etc/snitch/config.yaml"

//LoadConfig attempts to parse a config file. An empty string
//selects the user config if it exists and the system config otherwise.
func LoadConfig(customConfigPath string) (*Config, error) {
	configPath := customConfigPath
	if configPath == "" {
		configPath = systemConfigPath
		if currUser, err := user.Current(); err == nil {
			userConfig := filepath.Join(currUser.HomeDir, userConfigPath)
			if _, err := os.Stat(userConfig); err == nil {
				configPath = userConfig
			}
		}
	}

	var config = new(Config)

	static, err := loadStaticConfig(configPath)
	if err != nil {
		return config, err
	}
	config.S = *static

	tables, err := loadTableConfig()
	if err != nil {
		return config, err
	}
	config.T = *tables

	if err := initRunningConfig(&config.S, &config.R); err != nil {
		return config, err
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
