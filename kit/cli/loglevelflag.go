package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
)

// LogLevels are the levels a --log-level flag accepts.
var LogLevels = []zapcore.Level{
	zapcore.DebugLevel,
	zapcore.InfoLevel,
	zapcore.WarnLevel,
	zapcore.ErrorLevel,
}

// ParseLogLevel parses one of LogLevels, ignoring case.
func ParseLogLevel(s string) (zapcore.Level, error) {
	for _, l := range LogLevels {
		if strings.EqualFold(strings.TrimSpace(s), l.String()) {
			return l, nil
		}
	}
	names := make([]string, len(LogLevels))
	for i, l := range LogLevels {
		names[i] = l.String()
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q; supported levels are %s", s, strings.Join(names, ", "))
}

// levelFlag adapts a *zapcore.Level to pflag.Value.
type levelFlag struct {
	p *zapcore.Level
}

func (f levelFlag) String() string {
	if f.p == nil {
		return zapcore.InfoLevel.String()
	}
	return f.p.String()
}

func (f levelFlag) Set(s string) error {
	l, err := ParseLogLevel(s)
	if err != nil {
		return err
	}
	*f.p = l
	return nil
}

func (levelFlag) Type() string { return "level" }

// LevelVar registers a log level flag storing into p, which starts at value.
func LevelVar(fs *pflag.FlagSet, p *zapcore.Level, name string, value zapcore.Level, usage string) {
	*p = value
	fs.Var(levelFlag{p: p}, name, usage)
}
