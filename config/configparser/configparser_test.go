package configparser

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "nova3201.cfg")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func resetDirectives() {
	directives = map[string]directiveDef{}
}

func TestLoadConfigFileAppliesOptionDirective(t *testing.T) {
	resetDirectives()
	var gotValue string
	var gotOpts []Option
	RegisterOption("uart", func(value string, options []Option) error {
		gotValue = value
		gotOpts = options
		return nil
	})

	path := writeTempConfig(t, `uart stdio, baud=9600`+"\n")
	if err := LoadConfigFile(path); err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if gotValue != "stdio" {
		t.Fatalf("got value %q, want stdio", gotValue)
	}
	if len(gotOpts) != 1 || gotOpts[0].Name != "baud" || gotOpts[0].EqualOpt != "9600" {
		t.Fatalf("got opts %+v", gotOpts)
	}
}

func TestLoadConfigFileAppliesSwitchDirective(t *testing.T) {
	resetDirectives()
	fired := false
	RegisterSwitch("headless", func() error {
		fired = true
		return nil
	})

	path := writeTempConfig(t, "headless\n")
	if err := LoadConfigFile(path); err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if !fired {
		t.Fatalf("switch directive did not fire")
	}
}

func TestLoadConfigFileSkipsCommentsAndBlankLines(t *testing.T) {
	resetDirectives()
	count := 0
	RegisterOption("rom", func(value string, options []Option) error {
		count++
		if value != "boot.nvb" {
			t.Fatalf("got value %q, want boot.nvb", value)
		}
		return nil
	})

	path := writeTempConfig(t, "# a comment\n\nrom \"boot.nvb\"  # trailing comment\n")
	if err := LoadConfigFile(path); err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if count != 1 {
		t.Fatalf("directive fired %d times, want 1", count)
	}
}

func TestLoadConfigFileUnknownDirectiveErrors(t *testing.T) {
	resetDirectives()
	path := writeTempConfig(t, "bogus 1\n")
	if err := LoadConfigFile(path); err == nil {
		t.Fatalf("expected error for unknown directive")
	}
}

func TestLoadConfigFileQuotedValueWithSpaces(t *testing.T) {
	resetDirectives()
	var got string
	RegisterOption("debugfile", func(value string, options []Option) error {
		got = value
		return nil
	})

	path := writeTempConfig(t, `debugfile "trace log.txt"`+"\n")
	if err := LoadConfigFile(path); err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if got != "trace log.txt" {
		t.Fatalf("got %q, want %q", got, "trace log.txt")
	}
}

func TestLoadConfigFileMultipleSuboptions(t *testing.T) {
	resetDirectives()
	var opts []Option
	RegisterOption("timer1", func(value string, options []Option) error {
		opts = options
		return nil
	})

	path := writeTempConfig(t, "timer1 enabled, period=1000, irq=on\n")
	if err := LoadConfigFile(path); err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if len(opts) != 2 {
		t.Fatalf("got %d suboptions, want 2: %+v", len(opts), opts)
	}
	if opts[0].Name != "period" || opts[0].EqualOpt != "1000" {
		t.Fatalf("got opts[0] %+v", opts[0])
	}
	if opts[1].Name != "irq" || opts[1].EqualOpt != "on" {
		t.Fatalf("got opts[1] %+v", opts[1])
	}
}
