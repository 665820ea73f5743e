package util

import (
	"strings"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("line %q longer than %d", line, Wrap)
		}
	}
	if got := WrapString("short text"); got != "short text" {
		t.Errorf("WrapString = %q", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]logger.LogLevel{
		"debug": logger.DEBUG,
		"INFO":  logger.INFO,
		"warn":  logger.WARNING,
		"error": logger.ERROR,
	} {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = (%v, %v), want %v", in, got, err, want)
		}
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("ParseLogLevel(verbose) should fail")
	}
}

func TestConfigString(t *testing.T) {
	conf := &Config{Engine: "fileno", Dataset: "/var/lib/sdb", MaxValueSize: 1024, LogLevel: "info"}
	s := conf.String()
	for _, want := range []string{"ENGINE", "DATASET", "/var/lib/sdb", "1024 bytes"} {
		if !strings.Contains(s, want) {
			t.Errorf("Config.String() misses %q:\n%s", want, s)
		}
	}
	conf.Engine = "memory"
	if strings.Contains(conf.String(), "DATASET") {
		t.Error("memory config should not print the dataset")
	}
}
