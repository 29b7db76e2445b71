package main

import (
	"bytes"
	"strings"
	"testing"

	"pluck/cmd"
	"pluck/internal/config"
)

func TestPrintKeys(t *testing.T) {
	var out bytes.Buffer
	freqs := map[rune]float64{'a': 440, 'b': 880}
	if err := printKeys(&out, "abac", freqs, 44100); err != nil {
		t.Fatalf("printKeys() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header and two keys:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "KEY") {
		t.Errorf("header = %q", lines[0])
	}
	for i, want := range [][]string{{"'a'", "A4", "440.00 Hz", "101"}, {"'b'", "A5", "880.00 Hz", "51"}} {
		for _, field := range want {
			if !strings.Contains(lines[i+1], field) {
				t.Errorf("line %q missing %q", lines[i+1], field)
			}
		}
	}
}

func TestExecuteKeysCommand(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Command = cmd.CommandKeys
	cfg.Instrument.Keyboard = "zx"
	cfg.Instrument.ReferenceIndex = 0

	var out bytes.Buffer
	if err := executeCommand(cfg, &out); err != nil {
		t.Fatalf("executeCommand() error = %v", err)
	}
	if !strings.Contains(out.String(), "440.00 Hz") || !strings.Contains(out.String(), "A#4") {
		t.Errorf("unexpected table:\n%s", out.String())
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Command = "dance"
	if err := executeCommand(cfg, &bytes.Buffer{}); err == nil {
		t.Error("executeCommand() error = nil for an unknown command")
	}
}

func TestNewPublisherDisabled(t *testing.T) {
	cfg := config.NewConfig()
	p, hub, err := newPublisher(cfg, nil, nil)
	if err != nil || p != nil || hub != nil {
		t.Errorf("newPublisher() = %v, %v, %v; want all nil with no transports", p, hub, err)
	}
}
