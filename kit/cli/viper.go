package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Opt binds one flag, its environment variable and its config file key to
// DestP.
type Opt struct {
	DestP   interface{}
	Flag    string
	Default interface{}
	Desc    string
}

// NewOpt returns an Opt. dflt must have the type DestP points to, or be nil.
func NewOpt(destP interface{}, flag string, dflt interface{}, desc string) Opt {
	return Opt{DestP: destP, Flag: flag, Default: dflt, Desc: desc}
}

func defaultOf[T any](o Opt) T {
	d, _ := o.Default.(T)
	return d
}

// SetupEnv makes v read environment variables prefixed with the upper-cased
// program name. Dashes in flag names map to underscores.
func SetupEnv(v *viper.Viper, name string) {
	v.SetEnvPrefix(strings.ToUpper(name))
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// BindOptions declares each option as a flag on cmd, binds it in v and
// applies whatever v already knows for it.
func BindOptions(v *viper.Viper, cmd *cobra.Command, opts []Opt) error {
	fs := cmd.Flags()
	for _, o := range opts {
		if err := declare(fs, o); err != nil {
			return err
		}
		if err := v.BindPFlag(o.Flag, fs.Lookup(o.Flag)); err != nil {
			return err
		}
		if err := resolve(v, o); err != nil {
			return err
		}
	}
	return nil
}

func declare(fs *pflag.FlagSet, o Opt) error {
	switch p := o.DestP.(type) {
	case *string:
		fs.StringVar(p, o.Flag, defaultOf[string](o), o.Desc)
	case *int:
		fs.IntVar(p, o.Flag, defaultOf[int](o), o.Desc)
	case *bool:
		fs.BoolVar(p, o.Flag, defaultOf[bool](o), o.Desc)
	case *float64:
		fs.Float64Var(p, o.Flag, defaultOf[float64](o), o.Desc)
	case *time.Duration:
		fs.DurationVar(p, o.Flag, defaultOf[time.Duration](o), o.Desc)
	case *[]string:
		fs.StringSliceVar(p, o.Flag, defaultOf[[]string](o), o.Desc)
	case *zapcore.Level:
		LevelVar(fs, p, o.Flag, defaultOf[zapcore.Level](o), o.Desc)
	default:
		return fmt.Errorf("option %s: unsupported destination %T", o.Flag, o.DestP)
	}
	return nil
}

// Resolve re-reads every option from v. Call it after loading a config file so
// values from the file fill the options that neither a flag nor an env var set.
func Resolve(v *viper.Viper, opts []Opt) error {
	for _, o := range opts {
		if err := resolve(v, o); err != nil {
			return err
		}
	}
	return nil
}

// LoadConfigFile reads the config file at path into v. TOML, YAML and JSON
// are recognised by extension.
func LoadConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

func resolve(v *viper.Viper, o Opt) error {
	if !v.IsSet(o.Flag) {
		return nil
	}
	switch p := o.DestP.(type) {
	case *string:
		*p = v.GetString(o.Flag)
	case *int:
		*p = v.GetInt(o.Flag)
	case *bool:
		*p = v.GetBool(o.Flag)
	case *float64:
		*p = v.GetFloat64(o.Flag)
	case *time.Duration:
		*p = v.GetDuration(o.Flag)
	case *[]string:
		*p = v.GetStringSlice(o.Flag)
	case *zapcore.Level:
		l, err := ParseLogLevel(v.GetString(o.Flag))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", o.Flag, err)
		}
		*p = l
	}
	return nil
}
