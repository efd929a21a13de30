// Package prompt holds the instruction templates sent to the generative
// models. Templates use literal {Placeholder} markers rather than Go template
// syntax so the files stay readable as plain markdown.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed templates/analysis.md
var analysisTemplate string

//go:embed templates/banner.md
var bannerTemplate string

// Analysis substitutes the target country, the comma-joined keyword list and
// the product catalog locator into the analysis instruction template.
func Analysis(targetCountry string, keywords []string, catalogURI string) string {
	s := analysisTemplate
	s = strings.ReplaceAll(s, "{Target_Country}", targetCountry)
	s = strings.ReplaceAll(s, "{Trend_Keywords}", strings.Join(keywords, ", "))
	s = strings.ReplaceAll(s, "{Product_List}", catalogURI)
	return s
}

// Banner concatenates the serialized curation data with the banner template
// and the explicit per-market directive.
func Banner(curationJSON, targetCountry string) string {
	directive := fmt.Sprintf(
		"Please generate a promotional banner image (16:9 ratio) for the %s market based on the above promotion data. Use the local language and cultural aesthetics appropriate for %s.",
		targetCountry, targetCountry,
	)
	return curationJSON + "\n\n" + bannerTemplate + "\n\n" + directive
}
