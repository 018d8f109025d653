package providers

import (
	"rewind/internal/structures"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *structures.Config {
	return &structures.Config{
		Analyzer: structures.AnalyzerConfig{
			ExportDir:  "/tmp/export",
			UserID:     "42",
			TargetYear: 2023,
			Workers:    1,
		},
		Store: structures.StoreConfig{
			Path:      "/tmp/rewind.db",
			BatchSize: 500,
		},
		Report: structures.ReportConfig{
			Path: "/tmp/report.html",
			TopN: structures.ReportTopN{Servers: 15, DMs: 15, GroupDMs: 10, Emotes: 30, FileTypes: 20},
		},
		WebServer: structures.Server{
			Host: "127.0.0.1",
			Port: 8085,
		},
		Logger: structures.LoggerConfig{
			Level: "info",
			Mode:  0644,
			Dir:   "/tmp/logs",
		},
	}
}

func TestConfigValidator_ValidConfig(t *testing.T) {
	v := NewCnfValidator(validConfig())
	assert.NoError(t, v.Validate())
}

func TestConfigValidator_EmptyExportDir(t *testing.T) {
	c := validConfig()
	c.Analyzer.ExportDir = ""
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_EmptyUserID(t *testing.T) {
	c := validConfig()
	c.Analyzer.UserID = ""
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_YearTooOld(t *testing.T) {
	c := validConfig()
	c.Analyzer.TargetYear = 2009
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_EmptyStorePath(t *testing.T) {
	c := validConfig()
	c.Store.Path = ""
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_ZeroPort(t *testing.T) {
	c := validConfig()
	c.WebServer.Port = 0
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_InvalidLogLevel(t *testing.T) {
	c := validConfig()
	c.Logger.Level = "verbose"
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}
