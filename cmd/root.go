package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ValentinKolb/sdb/cmd/kv"
	"github.com/ValentinKolb/sdb/cmd/util"
	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "sdb",
		Short: "simple file-per-key storage",
		Long: fmt.Sprintf(`sdb (v%s)

A small key-value storage library written in Go. Every key is stored
in its own file inside a dataset directory (engine "fileno").`, Version),
		SilenceUsage:       true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: printMetrics,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of sdb",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sdb v%s\n", Version)
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Print the configuration and information about the engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := util.OpenEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			fmt.Println(util.GetConfig().String())
			out, err := json.MarshalIndent(engine.GetInfo(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(infoCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupEngineFlags(RootCmd)
}

// setup binds the flags of the executed command and configures the loggers
func setup(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	return util.InitLoggers(viper.GetString("log-level"))
}

// printMetrics writes the collected operation metrics if requested
func printMetrics(_ *cobra.Command, _ []string) error {
	if viper.GetBool("metrics") {
		fmt.Println()
		metrics.WritePrometheus(os.Stdout, false)
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
