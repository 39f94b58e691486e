// Package config loads the daemon configuration file and allows
// environment overrides, e.g. LADE_LOG_LEVEL for log.level.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

var v *viper.Viper

func init() {
	v = viper.New()
	v.SetEnvPrefix("lade") // will be uppercased automatically
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// SetFile points the loader at a configuration file.
func SetFile(fn string) {
	v.SetConfigFile(fn)
}

// Read loads the configuration file.
func Read() error {
	return v.ReadInConfig()
}

// Get returns the sub-tree at key as a map, with env overrides applied to
// scalar leaves.
func Get(key string) map[string]interface{} {
	kv := v.GetStringMap(key)
	reGet(key, &kv)
	return kv
}

// GetString returns a single value.
func GetString(key string) string {
	return v.GetString(key)
}

// reGet recursively walks the given map and executes viper's Get to allow
// overriding config values with env variables.
func reGet(prefix string, kv *map[string]interface{}) {
	for k, val := range *kv {
		if c, ok := val.(map[string]interface{}); ok {
			reGet(prefix+"."+k, &c)
		} else {
			(*kv)[k] = v.Get(prefix + "." + k)
		}
	}
}
