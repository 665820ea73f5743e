package util

import (
	"strings"

	"github.com/ValentinKolb/sdb/lib/db"
	"github.com/ValentinKolb/sdb/lib/db/engines"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var (
		lines     []string
		line      strings.Builder
		lineWidth int
	)

	for _, word := range strings.Fields(text) {
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			lines = append(lines, line.String())
			line.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			line.WriteString(" ")
			lineWidth++
		}
		line.WriteString(word)
		lineWidth += len(word)
	}

	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// SetupEngineFlags adds the engine selection flags to a command
func SetupEngineFlags(cmd *cobra.Command) {
	key := "engine"
	cmd.PersistentFlags().String(key, string(db.ImplFileno), WrapString("Storage engine to use (fileno, memory)"))

	key = "dataset"
	cmd.PersistentFlags().String(key, "sdb_storage", WrapString("(fileno) Directory that holds one file per key"))

	key = "create"
	cmd.PersistentFlags().Bool(key, false, WrapString("(fileno) Create the dataset directory if it does not exist"))

	key = "max-value"
	cmd.PersistentFlags().Int(key, 64*1024, WrapString("Read capacity in bytes of select when no buffer size is given"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "metrics"
	cmd.PersistentFlags().Bool(key, false, WrapString("Print the operation metrics in Prometheus format after the command"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("sdb")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// OpenEngine opens the engine described by the current configuration
func OpenEngine() (db.Engine, error) {
	conf := GetConfig()
	return engines.OpenWithOptions(conf.Engine, engines.Options{
		Dataset:         conf.Dataset,
		CreateIfMissing: conf.CreateIfMissing,
		MaxValueSize:    conf.MaxValueSize,
	})
}
