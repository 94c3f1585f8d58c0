package providers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"gsd/internal/structures"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "GSD_LOG_LEVEL")
	viper.BindEnv("storage.backend", "GSD_STORAGE_BACKEND")
	viper.BindEnv("storage.redis.addr", "GSD_REDIS_ADDR")
	viper.BindEnv("thresholds.low", "GSD_LOW_THRESHOLD")
	viper.BindEnv("thresholds.high", "GSD_HIGH_THRESHOLD")
	viper.BindEnv("timezone", "TZ")
	viper.BindEnv("cache.enabled", "GSD_CACHE_ENABLED")
	viper.BindEnv("cache.size", "GSD_CACHE_SIZE")
	viper.BindEnv("auth.token", "GSD_AUTH_TOKEN")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "GlucoseStoreDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
