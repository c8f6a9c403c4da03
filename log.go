package crate

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the package-level logger every crate component writes
// through, grounded on cuemby/warren's pkg/log: silent by default
// (zerolog.Nop()) so importing this module never writes anything unless
// the host program opts in via InitLogging.
var Logger = zerolog.Nop()

// LogConfig selects the logger's output and level. The zero value keeps
// logging disabled.
type LogConfig struct {
	// Level is parsed with zerolog.ParseLevel; an empty string disables
	// logging (Logger stays a no-op).
	Level string
	// Pretty writes a human-readable console writer instead of JSON lines.
	Pretty bool
	// Output is where log lines go; it defaults to os.Stderr when nil.
	Output io.Writer
}

// InitLogging wires Logger to cfg. Call it once at program start; crate's
// internals never call it themselves.
func InitLogging(cfg LogConfig) {
	if cfg.Level == "" {
		Logger = zerolog.Nop()
		return
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagged with the given component
// name, mirroring cuemby/warren's own per-subsystem logger helper.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
