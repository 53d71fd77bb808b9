package palette

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestColorForKnownLabels(t *testing.T) {
	p := New()

	tests := []struct {
		label string
		want  string
	}{
		{"Person", PersonRed},
		{"人物", PersonRed},
		{"Organization", OrganizationBlue},
		{"组织", OrganizationBlue},
		{"Unknown", UnknownGray},
	}

	for _, tt := range tests {
		if got := p.ColorFor(tt.label); got != tt.want {
			t.Errorf("ColorFor(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestColorForUnknownLabelIsDeterministic(t *testing.T) {
	p := New()

	first := p.ColorFor("Spacecraft")
	second := p.ColorFor("Spacecraft")
	if first != second {
		t.Errorf("same label gave different colors: %q vs %q", first, second)
	}
	if !strings.HasPrefix(first, "hsl(") {
		t.Errorf("unknown label should get an hsl color, got %q", first)
	}
	if first == p.ColorFor("Submarine") {
		t.Error("distinct labels hashed to identical colors")
	}
}

func TestTextColorFor(t *testing.T) {
	tests := []struct {
		fill string
		want string
	}{
		{"#000000", "#ffffff"},
		{"#ffffff", "#000000"},
		{"#fff", "#000000"},
		{PersonRed, "#ffffff"},
		{"hsl(0, 0%, 100%)", "#000000"},
		{"hsl(0, 0%, 0%)", "#ffffff"},
		{"not-a-color", "#000000"},
	}

	for _, tt := range tests {
		if got := TextColorFor(tt.fill); got != tt.want {
			t.Errorf("TextColorFor(%q) = %q, want %q", tt.fill, got, tt.want)
		}
	}
}

func TestLighten(t *testing.T) {
	if got := Lighten("#000000", 100); got != "#ffffff" {
		t.Errorf("Lighten(#000000, 100) = %q, want #ffffff", got)
	}
	if got := Lighten("#808080", 0); got != "#808080" {
		t.Errorf("Lighten(#808080, 0) = %q, want #808080", got)
	}
	if got := Lighten("bogus", 50); got != "bogus" {
		t.Errorf("Lighten should pass through unparseable input, got %q", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palette.toml")
	content := "[colors]\n\"Person\" = \"#123456\"\n\"Spacecraft\" = \"#abcdef\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p := New()
	if err := p.LoadOverrides(path); err != nil {
		t.Fatal(err)
	}

	if got := p.ColorFor("Person"); got != "#123456" {
		t.Errorf("override should win over built-in, got %q", got)
	}
	if got := p.ColorFor("Spacecraft"); got != "#abcdef" {
		t.Errorf("new label from file not applied, got %q", got)
	}
}

func TestLoadOverridesMissingFile(t *testing.T) {
	p := New()
	if err := p.LoadOverrides(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for missing palette file")
	}
}
