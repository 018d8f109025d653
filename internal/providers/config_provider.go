package providers

import (
	"fmt"
	"path/filepath"
	"rewind/internal/structures"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "REWIND_LOG_LEVEL")
	viper.BindEnv("analyzer.userID", "REWIND_USER_ID")
	viper.BindEnv("analyzer.targetYear", "REWIND_TARGET_YEAR")
	viper.BindEnv("analyzer.workers", "REWIND_WORKERS")
	viper.BindEnv("cache.enabled", "REWIND_CACHE_ENABLED")
	viper.BindEnv("cache.size", "REWIND_CACHE_SIZE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	applyFlagOverrides(&conf, flags)
	applyDefaults(&conf)

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "DiscordRewind"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}

func applyFlagOverrides(conf *structures.Config, flags *structures.CliFlags) {
	if flags.UserID != "" {
		conf.Analyzer.UserID = flags.UserID
	}
	if flags.Year != 0 {
		conf.Analyzer.TargetYear = flags.Year
	}
	if flags.ExportDir != "" {
		conf.Analyzer.ExportDir = flags.ExportDir
	}
	if flags.DBPath != "" {
		conf.Store.Path = flags.DBPath
	}
	if flags.ReportPath != "" {
		conf.Report.Path = flags.ReportPath
	}
}

func applyDefaults(conf *structures.Config) {
	if conf.Analyzer.TargetYear == 0 {
		conf.Analyzer.TargetYear = time.Now().UTC().Year()
	}
	if conf.Analyzer.Workers < 1 {
		conf.Analyzer.Workers = 1
	}
	if conf.Store.Path == "" {
		conf.Store.Path = "rewind.db"
	}
	if conf.Store.BatchSize < 1 {
		conf.Store.BatchSize = 500
	}
	if conf.Report.Path == "" {
		conf.Report.Path = "report.html"
	}
	if conf.WebServer.Host == "" {
		conf.WebServer.Host = "127.0.0.1"
	}
	if conf.WebServer.Port == 0 {
		conf.WebServer.Port = 8085
	}
	if conf.Logger.Level == "" {
		conf.Logger.Level = "info"
	}
	if conf.Logger.Mode == 0 {
		conf.Logger.Mode = 0644
	}
	if conf.Logger.Dir == "" {
		conf.Logger.Dir = "."
	}
	if conf.Snapshot.Enabled && conf.Snapshot.Path == "" {
		conf.Snapshot.Path = conf.Store.Path + ".snapshot.zst"
	}
	if conf.Cache.TTLSeconds < 1 {
		conf.Cache.TTLSeconds = 60
	}

	// Slice sizes the report renders per dimension.
	topN := &conf.Report.TopN
	if topN.Servers < 1 {
		topN.Servers = 15
	}
	if topN.DMs < 1 {
		topN.DMs = 15
	}
	if topN.GroupDMs < 1 {
		topN.GroupDMs = 10
	}
	if topN.Emotes < 1 {
		topN.Emotes = 30
	}
	if topN.FileTypes < 1 {
		topN.FileTypes = 20
	}
}
