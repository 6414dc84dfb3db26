package silktouch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLangEmbedded(t *testing.T) {
	l, err := NewLang("en-US", "")
	if err != nil {
		t.Fatalf("NewLang() error = %v", err)
	}
	if l.Tag().String() != "en-US" {
		t.Fatalf("Tag() = %v, want en-US", l.Tag())
	}
	got := l.Text("drop.dropped", fields{"Type": "ZOMBIE"})
	if !strings.Contains(got, "ZOMBIE") || strings.Contains(got, "<green>") {
		t.Fatalf("Text() = %q, want the type with colour tags replaced", got)
	}
	if got := l.Text("missing.message", nil); !strings.Contains(got, "missing.message") {
		t.Fatalf("unknown message should be returned as its id, got %q", got)
	}
}

func TestLangLines(t *testing.T) {
	l, _ := NewLang("en-US", "")
	lines := l.Lines("drop.spawner-item.lore", fields{"Type": "BLAZE", "HealthPercentage": "42%"})
	if len(lines) != 3 {
		t.Fatalf("expected 3 lore lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[1], "BLAZE") || !strings.Contains(lines[2], "42%") {
		t.Fatalf("unexpected lore lines %q", lines)
	}
}

func TestLangFallsBackToDefault(t *testing.T) {
	l, err := NewLang("pt_BR", "")
	if err != nil {
		t.Fatalf("NewLang() error = %v", err)
	}
	if l.Tag().String() != "pt-BR" {
		t.Fatalf("Tag() = %v, want pt-BR", l.Tag())
	}
	if got := l.Text("reload.success", nil); !strings.Contains(got, "recarregado") {
		t.Fatalf("expected a Portuguese message, got %q", got)
	}
	// combine.blocked only exists in the default language.
	if got := l.Text("combine.blocked", nil); !strings.Contains(got, "silk touch") {
		t.Fatalf("expected the default language to be used for missing messages, got %q", got)
	}

	unknown, _ := NewLang("xx-YY", "")
	if unknown.Tag().String() != "en-US" {
		t.Fatalf("unknown language should fall back to en-US, got %v", unknown.Tag())
	}
}

func TestNewLangDirectoryOverrides(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewLang("en-US", dir); err != nil {
		t.Fatalf("NewLang() error = %v", err)
	}
	for _, name := range []string{"en-US.yaml", "pt-BR.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s to be written: %v", name, err)
		}
	}

	override := []byte("placed: \"Placed {{.Type}}.\"\n")
	if err := os.WriteFile(filepath.Join(dir, "en-US.yaml"), override, 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	l, err := NewLang("en-US", dir)
	if err != nil {
		t.Fatalf("NewLang() error = %v", err)
	}
	if got := l.Text("placed", fields{"Type": "PIG"}); !strings.Contains(got, "Placed PIG.") {
		t.Fatalf("override not applied, got %q", got)
	}
	if got := l.Text("reload.success", nil); !strings.Contains(got, "reloaded") {
		t.Fatalf("messages missing from the override should come from the embedded file, got %q", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "pt-BR.yaml"), []byte("placed: [unclosed"), 0o644); err != nil {
		t.Fatalf("write broken locale: %v", err)
	}
	l, err = NewLang("pt-BR", dir)
	if err == nil {
		t.Fatalf("expected an error for a broken locale file")
	}
	if l == nil || !strings.Contains(l.Text("reload.success", nil), "recarregado") {
		t.Fatalf("a broken locale file should leave the embedded messages usable")
	}
}
