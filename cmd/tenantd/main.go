package main

import (
	"fmt"
	"os"
	"time"

	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/cmd/tenantd/launcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "none"
	date    = ""
)

func main() {
	if len(date) == 0 {
		date = time.Now().UTC().Format(time.RFC3339)
	}
	tenantd.SetBuildInfo(version, commit, date)

	rootCmd, err := newRootCommand(viper.New())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand returns tenantd with its subcommands. Without a subcommand
// tenantd runs the server.
func newRootCommand(v *viper.Viper) (*cobra.Command, error) {
	runCmd, err := launcher.NewCommand(v)
	if err != nil {
		return nil, err
	}

	rootCmd := &cobra.Command{
		Use:   "tenantd",
		Short: "Tenant authorization cache and gateway",
		Args:  cobra.NoArgs,
		RunE:  runCmd.RunE,
	}
	rootCmd.Flags().AddFlagSet(runCmd.Flags())

	printCmd, err := launcher.NewPrintConfigCommand(viper.New())
	if err != nil {
		return nil, err
	}

	rootCmd.AddCommand(
		runCmd,
		printCmd,
		newTenantsCommand(),
		newVersionCommand(),
	)
	return rootCmd, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tenantd version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := tenantd.GetBuildInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "tenantd %s (git: %s) build_date: %s\n", info.Version, info.Commit, info.Date)
		},
	}
}
