package launcher

import (
	"fmt"
	"io"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/percussion/tenantd/kit/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Supported print-config formats.
const (
	TOMLFormat = "toml"
	YAMLFormat = "yaml"
)

// NewPrintConfigCommand returns the command printing the resolved launcher
// configuration, with flags, env vars and the config file applied.
func NewPrintConfigCommand(v *viper.Viper) (*cobra.Command, error) {
	l := NewLauncher()
	var format string

	cmd := &cobra.Command{
		Use:   "print-config",
		Short: "Print the resolved server configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := l.loadConfigFile(v); err != nil {
				return err
			}
			return printAllConfigRunE(l.opts, format, cmd.OutOrStdout())
		},
	}

	if err := l.bindOptions(v, cmd); err != nil {
		return nil, err
	}
	cmd.Flags().StringVar(&format, "format", TOMLFormat, "output format (toml or yaml)")

	return cmd, nil
}

// printAllConfigRunE writes the value of every option keyed by its flag.
func printAllConfigRunE(opts []cli.Opt, format string, out io.Writer) error {
	values := make(map[string]interface{}, len(opts))
	for _, o := range opts {
		values[o.Flag] = configValue(o.DestP)
	}

	switch format {
	case TOMLFormat, "":
		return toml.NewEncoder(out).Encode(values)
	case YAMLFormat:
		enc := yaml.NewEncoder(out)
		if err := enc.Encode(values); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown config format %q; expected %s or %s", format, TOMLFormat, YAMLFormat)
	}
}

func configValue(destP interface{}) interface{} {
	switch v := destP.(type) {
	case *string:
		return *v
	case *int:
		return *v
	case *bool:
		return *v
	case *float64:
		return *v
	case *time.Duration:
		return v.String()
	case *[]string:
		return *v
	case *zapcore.Level:
		return v.String()
	default:
		return fmt.Sprint(destP)
	}
}
