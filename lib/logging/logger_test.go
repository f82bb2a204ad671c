package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logger.LogLevel
		wantErr bool
	}{
		{"debug", logger.DEBUG, false},
		{"INFO", logger.INFO, false},
		{"", logger.INFO, false},
		{"warn", logger.WARNING, false},
		{"warning", logger.WARNING, false},
		{" error ", logger.ERROR, false},
		{"verbose", logger.INFO, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q): expected error %v, got %v", tt.in, tt.wantErr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := &kvLogger{
		name:   Store,
		level:  logger.WARNING,
		logger: log.New(&buf, "", 0),
	}

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warningf("warn %d", 3)
	l.Errorf("error %d", 4)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "WARN  | store           | warn 3" {
		t.Errorf("Unexpected warning line %q", lines[0])
	}
	if lines[1] != "ERROR | store           | error 4" {
		t.Errorf("Unexpected error line %q", lines[1])
	}

	buf.Reset()
	l.SetLevel(logger.DEBUG)
	l.Debugf("now visible")
	if !strings.Contains(buf.String(), "DEBUG | store           | now visible") {
		t.Errorf("Expected debug output after SetLevel, got %q", buf.String())
	}
}

func TestInitRejectsInvalidLevel(t *testing.T) {
	if err := Init("loud", nil); err == nil {
		t.Error("Expected Init to fail for an invalid level")
	}
}
