package kv

import (
	"github.com/ValentinKolb/sdb/cmd/util"
	"github.com/ValentinKolb/sdb/lib/db"
	"github.com/spf13/cobra"
)

var (
	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:   "kv",
		Short: "Perform key-value operations on an engine",
	}
)

func init() {
	// Buffer used by select (0 = the engine's own buffer)
	selectCmd.Flags().Int("buffer-size", 0, util.WrapString("Size of the read buffer for select (0 uses the engine buffer of --max-value bytes)"))

	// Add subcommands
	KeyValueCommands.AddCommand(insertCmd)
	KeyValueCommands.AddCommand(updateCmd)
	KeyValueCommands.AddCommand(selectCmd)
	KeyValueCommands.AddCommand(deleteCmd)
	KeyValueCommands.AddCommand(existCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// withEngine opens the configured engine, runs fn and closes the engine again
func withEngine(fn func(engine db.Engine) error) error {
	engine, err := util.OpenEngine()
	if err != nil {
		return err
	}
	defer engine.Close()
	return fn(engine)
}
