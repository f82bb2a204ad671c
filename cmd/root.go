package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/kvmodel/cmd/kv"
	"github.com/ValentinKolb/kvmodel/cmd/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "kvmodel",
		Short: "typed models on top of a durable and a session key-value store",
		Long: fmt.Sprintf(`kvmodel (v%s)

Binds typed model fields to keys of two local key-value stores: a durable one
backed by SQLite and a session one held in memory. This tool inspects and
modifies the stores the way the model layer sees them.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of kvmodel",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kvmodel v%s\n", Version)
		},
	}
)

func init() {
	// Initialize viper and the loggers once the flags are parsed
	cobra.OnInitialize(util.InitConfig, util.InitLogging)

	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "warn", util.WrapString("log level (debug, info, warn, error)"))
	_ = viper.BindPFlag(key, RootCmd.PersistentFlags().Lookup(key))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
