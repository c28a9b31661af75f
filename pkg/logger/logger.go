// Package logger arma el logger estructurado del servicio sobre zerolog.
// Todo componente lo recibe por constructor; el formato de salida se decide
// una sola vez aquí según el ambiente.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config ambiente y nivel mínimo a emitir.
type Config struct {
	Env   string // "development" imprime consola legible; lo demás, JSON por línea
	Level string // trace, debug, info, warn, error
}

// Logger envoltorio inyectable de zerolog.
type Logger struct {
	zl zerolog.Logger
}

// New construye el logger raíz y lo fija también como global de zerolog, para
// las librerías que escriben por esa vía.
func New(cfg Config) *Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Env, "development") {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().Logger()
	log.Logger = zl

	return &Logger{zl: zl}
}

// Component deriva un sublogger con el campo "component" fijo.
func (l *Logger) Component(name string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", name).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }
