package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/sdb/lib/db"
	"github.com/spf13/viper"
)

// Config holds the runtime configuration of the sdb command
type Config struct {
	Engine          db.Implementation
	Dataset         string
	CreateIfMissing bool
	MaxValueSize    int
	LogLevel        string
	Metrics         bool
}

// GetConfig reads the configuration from viper
func GetConfig() *Config {
	return &Config{
		Engine:          db.Implementation(viper.GetString("engine")),
		Dataset:         viper.GetString("dataset"),
		CreateIfMissing: viper.GetBool("create"),
		MaxValueSize:    viper.GetInt("max-value"),
		LogLevel:        viper.GetString("log-level"),
		Metrics:         viper.GetBool("metrics"),
	}
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Engine")
	addField("Type", string(c.Engine))
	addField("Max Value Size", fmt.Sprintf("%d bytes", c.MaxValueSize))

	if c.Engine == db.ImplFileno {
		addSection("Dataset")
		addField("Directory", c.Dataset)
		addField("Create If Missing", fmt.Sprintf("%t", c.CreateIfMissing))
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)
	addField("Metrics", fmt.Sprintf("%t", c.Metrics))

	return sb.String()
}
