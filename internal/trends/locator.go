package trends

import (
	"fmt"
	"strings"
)

// Labels holds the UI text one locale of the trends page uses for the
// controls the extractor has to drive. The page localizes itself from the geo
// parameter, so every selector must match any supported locale at once.
// Supporting a new locale is a data change here, not a logic change.
type Labels struct {
	Locale          string
	ConsentButton   string
	ExportButton    string
	CopyToClipboard string // menu entry aria-label
	DownloadCSV     string // menu entry aria-label
}

// DefaultLocales covers the locales the storefront generates for today.
var DefaultLocales = []Labels{
	{
		Locale:          "en",
		ConsentButton:   "Got it",
		ExportButton:    "Export",
		CopyToClipboard: "Copy to clipboard",
		DownloadCSV:     "Download CSV",
	},
	{
		Locale:          "ko",
		ConsentButton:   "확인",
		ExportButton:    "내보내기",
		CopyToClipboard: "클립보드에 복사",
		DownloadCSV:     "CSV 다운로드",
	},
}

// locator builds XPath selectors matching a control in any configured locale.
type locator struct {
	locales []Labels
}

func newLocator(locales []Labels) *locator {
	if len(locales) == 0 {
		locales = DefaultLocales
	}
	return &locator{locales: locales}
}

// consentButton matches the cookie/consent overlay dismiss button.
func (l *locator) consentButton() string {
	return l.buttonByText(func(lb Labels) string { return lb.ConsentButton })
}

// exportButton matches the page's Export control.
func (l *locator) exportButton() string {
	return l.buttonByText(func(lb Labels) string { return lb.ExportButton })
}

// copyMenuItem matches the copy-to-clipboard entry of the export menu.
func (l *locator) copyMenuItem() string {
	return l.menuItemByLabel(func(lb Labels) string { return lb.CopyToClipboard })
}

// downloadMenuItem matches the download-as-CSV entry of the export menu.
func (l *locator) downloadMenuItem() string {
	return l.menuItemByLabel(func(lb Labels) string { return lb.DownloadCSV })
}

// exportTexts returns the raw export labels, used by the readiness probe.
func (l *locator) exportTexts() []string {
	texts := make([]string, 0, len(l.locales))
	for _, lb := range l.locales {
		texts = append(texts, lb.ExportButton)
	}
	return texts
}

func (l *locator) buttonByText(text func(Labels) string) string {
	conds := make([]string, 0, len(l.locales))
	for _, lb := range l.locales {
		conds = append(conds, fmt.Sprintf("contains(., %s)", xpathString(text(lb))))
	}
	return "//button[" + strings.Join(conds, " or ") + "]"
}

func (l *locator) menuItemByLabel(label func(Labels) string) string {
	conds := make([]string, 0, len(l.locales))
	for _, lb := range l.locales {
		conds = append(conds, fmt.Sprintf("@aria-label=%s", xpathString(label(lb))))
	}
	return `//*[@role="menuitem"][` + strings.Join(conds, " or ") + "]"
}

// xpathString quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so a value containing both quote kinds needs concat().
func xpathString(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		quoted = append(quoted, `"`+p+`"`)
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
