package trends

import (
	"strings"
	"testing"
)

func TestLocator_MatchesEveryLocale(t *testing.T) {
	l := newLocator(nil) // falls back to DefaultLocales

	xp := l.exportButton()
	for _, want := range []string{"Export", "내보내기"} {
		if !strings.Contains(xp, want) {
			t.Errorf("export selector %q missing locale label %q", xp, want)
		}
	}

	xp = l.copyMenuItem()
	if !strings.Contains(xp, `@role="menuitem"`) {
		t.Errorf("menu selector %q should match by role", xp)
	}
	for _, want := range []string{"Copy to clipboard", "클립보드에 복사"} {
		if !strings.Contains(xp, want) {
			t.Errorf("copy selector %q missing locale label %q", xp, want)
		}
	}
}

func TestLocator_CustomLocales(t *testing.T) {
	l := newLocator([]Labels{{
		Locale:        "de",
		ConsentButton: "Verstanden",
		ExportButton:  "Exportieren",
	}})

	xp := l.consentButton()
	if !strings.Contains(xp, "Verstanden") {
		t.Errorf("consent selector %q missing custom label", xp)
	}
	if strings.Contains(xp, "Got it") {
		t.Errorf("consent selector %q should not carry default labels", xp)
	}

	texts := l.exportTexts()
	if len(texts) != 1 || texts[0] != "Exportieren" {
		t.Errorf("exportTexts = %v, want [Exportieren]", texts)
	}
}

func TestXPathString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Export", `"Export"`},
		{`say "hi"`, `'say "hi"'`},
		{`it's`, `"it's"`},
	}

	for _, tt := range tests {
		if got := xpathString(tt.in); got != tt.want {
			t.Errorf("xpathString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestXPathString_BothQuoteKinds(t *testing.T) {
	got := xpathString(`"it's"`)
	if !strings.HasPrefix(got, "concat(") {
		t.Fatalf("mixed-quote value must use concat(), got %s", got)
	}
	if !strings.Contains(got, `'"'`) {
		t.Errorf("concat form %s missing escaped double quote", got)
	}
}
