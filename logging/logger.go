// Package logging provides the kernel's structured logger: a thin zerolog
// wrapper selected via ordishs/gocore config, one named logger per
// component.
package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ordishs/gocore"
	"github.com/rs/zerolog"
)

// Logger is the leveled logger interface every kernel component depends on.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	With(component string) Logger
}

// ZLogger wraps a zerolog.Logger to satisfy Logger.
type ZLogger struct {
	zerolog.Logger
	component string
}

// New builds a component-scoped logger. Pretty console output is used
// unless PRETTY_LOGS is disabled via gocore config.
func New(component string, level ...string) *ZLogger {
	if component == "" {
		component = "grug"
	}

	var z *ZLogger
	if gocore.Config().GetBool("PRETTY_LOGS", true) {
		z = prettyLogger(component)
	} else {
		z = &ZLogger{
			Logger: zerolog.New(os.Stdout).With().
				Timestamp().
				Str("component", component).
				Logger(),
			component: component,
		}
	}

	if len(level) > 0 {
		setLevel(level[0], z)
	}

	return z
}

func setLevel(level string, z *ZLogger) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		z.Logger = z.Logger.Level(zerolog.DebugLevel)
	case "WARN":
		z.Logger = z.Logger.Level(zerolog.WarnLevel)
	case "ERROR":
		z.Logger = z.Logger.Level(zerolog.ErrorLevel)
	default:
		z.Logger = z.Logger.Level(zerolog.InfoLevel)
	}
}

func prettyLogger(component string) *ZLogger {
	out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	out.FormatTimestamp = func(i interface{}) string {
		t, _ := time.Parse(time.RFC3339, i.(string))
		return t.Format("15:04:05.000")
	}
	out.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("| %-10s| %v", component, i)
	}

	return &ZLogger{
		Logger:    zerolog.New(out).With().Timestamp().Logger(),
		component: component,
	}
}

func (z *ZLogger) Debugf(format string, args ...interface{}) { z.Logger.Debug().Msgf(format, args...) }
func (z *ZLogger) Infof(format string, args ...interface{})  { z.Logger.Info().Msgf(format, args...) }
func (z *ZLogger) Warnf(format string, args ...interface{})  { z.Logger.Warn().Msgf(format, args...) }
func (z *ZLogger) Errorf(format string, args ...interface{}) { z.Logger.Error().Msgf(format, args...) }
func (z *ZLogger) Fatalf(format string, args ...interface{}) { z.Logger.Fatal().Msgf(format, args...) }

// With returns a child logger scoped to a sub-component, e.g. "app.kernel".
func (z *ZLogger) With(component string) Logger {
	return New(z.component+"."+component)
}
