package prioq

import "github.com/rs/zerolog"

// ZerologLogger adapts a zerolog.Logger to the Logger interface, so
// applications already wired for structured logging can route scheduler
// messages through their existing sinks.
type ZerologLogger struct {
	l zerolog.Logger
}

// NewZerologLogger wraps the given zerolog.Logger.
func NewZerologLogger(l zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{l: l}
}

func (z *ZerologLogger) Debugf(format string, args ...any) { z.l.Debug().Msgf(format, args...) }
func (z *ZerologLogger) Infof(format string, args ...any)  { z.l.Info().Msgf(format, args...) }
func (z *ZerologLogger) Warnf(format string, args ...any)  { z.l.Warn().Msgf(format, args...) }
func (z *ZerologLogger) Errorf(format string, args ...any) { z.l.Error().Msgf(format, args...) }
