package providers

import (
	"os"
	"path/filepath"
	"rewind/internal/structures"
	"strings"

	"github.com/rs/zerolog"
)

type TypeEnum uint8

const (
	TypeApp TypeEnum = iota
	TypeWalk
	TypeStore
	TypeReport
	TypeHTTP
)

func (t TypeEnum) String() string {
	switch t {
	case TypeWalk:
		return "walk"
	case TypeStore:
		return "store"
	case TypeReport:
		return "report"
	case TypeHTTP:
		return "http"
	default:
		return "app"
	}
}

type Logger interface {
	Debugf(t TypeEnum, format string, args ...interface{})
	Infof(t TypeEnum, format string, args ...interface{})
	Warnf(t TypeEnum, format string, args ...interface{})
	Errorf(t TypeEnum, format string, args ...interface{})
	Fatalf(t TypeEnum, format string, args ...interface{})
	Close()
}

type LogProvider struct {
	log  zerolog.Logger
	file *os.File
}

func NewLogProvider(conf *structures.Config) (Logger, error) {
	if err := os.MkdirAll(conf.Logger.Dir, 0755); err != nil {
		return nil, err
	}

	mode := os.FileMode(conf.Logger.Mode)
	if mode == 0 {
		mode = 0644
	}
	file, err := os.OpenFile(filepath.Join(conf.Logger.Dir, "rewind.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, mode)
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(conf.Logger.Level)))
	if err != nil {
		level = zerolog.InfoLevel
	}
	if conf.Debug {
		level = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	writer := zerolog.MultiLevelWriter(console, file)

	return &LogProvider{
		log:  zerolog.New(writer).Level(level).With().Timestamp().Logger(),
		file: file,
	}, nil
}

func (l *LogProvider) Debugf(t TypeEnum, format string, args ...interface{}) {
	l.log.Debug().Str("type", t.String()).Msgf(format, args...)
}

func (l *LogProvider) Infof(t TypeEnum, format string, args ...interface{}) {
	l.log.Info().Str("type", t.String()).Msgf(format, args...)
}

func (l *LogProvider) Warnf(t TypeEnum, format string, args ...interface{}) {
	l.log.Warn().Str("type", t.String()).Msgf(format, args...)
}

func (l *LogProvider) Errorf(t TypeEnum, format string, args ...interface{}) {
	l.log.Error().Str("type", t.String()).Msgf(format, args...)
}

func (l *LogProvider) Fatalf(t TypeEnum, format string, args ...interface{}) {
	l.log.Fatal().Str("type", t.String()).Msgf(format, args...)
}

func (l *LogProvider) Close() {
	if l.file != nil {
		_ = l.file.Close()
	}
}
