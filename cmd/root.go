package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dLock/cmd/replay"
	"github.com/ValentinKolb/dLock/cmd/states"
	"github.com/ValentinKolb/dLock/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dlock",
		Short: "greedy client lock cache",
		Long: fmt.Sprintf(`dLock (v%s)

The participant side of a distributed lock manager written in Go.
A participant keeps the locks the server granted it (greedy locks) and
serves local threads from this cache until the server recalls them.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dLock",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dLock v%s\n", Version)
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add Commands
	RootCmd.AddCommand(replay.ReplayCmd)
	RootCmd.AddCommand(states.StatesCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer used for frames (json, gob, binary)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "warn", util.WrapString("log level (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
