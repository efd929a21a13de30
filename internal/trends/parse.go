package trends

import "strings"

// The trends page exports at most a page of rows; only the top entries are
// worth analyzing, in the source's own search-volume order.
const maxKeywords = 10

// parseExport converts an exported table (clipboard TSV or downloaded CSV)
// into the keyword list. The first line is a header and is discarded; only
// the first field of each row (the trend label) is kept, capped at
// maxKeywords entries.
func parseExport(raw string, delim rune) []string {
	var keywords []string
	for i, line := range strings.Split(raw, "\n") {
		if i == 0 {
			continue
		}
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		kw := strings.TrimSpace(firstField(line, delim))
		if kw == "" {
			continue
		}
		keywords = append(keywords, kw)
		if len(keywords) >= maxKeywords {
			break
		}
	}
	return keywords
}

// firstField extracts the first delimited field of a row. Fields may be
// wrapped in double quotes and contain the delimiter; the scan toggles an
// in-quotes flag per character instead of splitting naively, and a doubled
// quote inside a quoted field is the escape for a literal quote.
func firstField(line string, delim rune) string {
	var (
		b        strings.Builder
		inQuotes bool
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				b.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case c == delim && !inQuotes:
			return b.String()
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}
