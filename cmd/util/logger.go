package util

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// sdbLogger implements the ILogger interface with custom formatting
type sdbLogger struct {
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *sdbLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *sdbLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *sdbLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *sdbLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *sdbLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *sdbLogger) Panicf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

func (l *sdbLogger) log(levelStr string, format string, args ...interface{}) {
	l.logger.Printf("%-5s | %-8s | %s", levelStr, l.name, fmt.Sprintf(format, args...))
}

// CreateLogger is the logger.Factory of the sdb command. Logs go to stderr so
// that command output on stdout stays machine readable.
func CreateLogger(pkgName string) logger.ILogger {
	return &sdbLogger{
		name:   pkgName,
		level:  logger.WARNING,
		logger: log.New(os.Stderr, "", log.Ldate|log.Ltime),
	}
}

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// InitLoggers installs the custom logger factory and sets the level of all
// loggers used by the engines
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)

	for _, name := range []string{"fileno", "memory", "sdb"} {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
