package prompt

import (
	"strings"
	"testing"
)

func TestAnalysis_SubstitutesAllPlaceholders(t *testing.T) {
	got := Analysis("KR", []string{"glow", "serum"}, "gs://bucket/catalog.csv")

	for _, want := range []string{"KR", "glow, serum", "gs://bucket/catalog.csv"} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	for _, leftover := range []string{"{Target_Country}", "{Trend_Keywords}", "{Product_List}"} {
		if strings.Contains(got, leftover) {
			t.Errorf("prompt still contains placeholder %s", leftover)
		}
	}
}

func TestAnalysis_EmptyKeywords(t *testing.T) {
	got := Analysis("JP", nil, "catalog.csv")
	if strings.Contains(got, "{Trend_Keywords}") {
		t.Error("empty keyword list must still substitute the placeholder")
	}
}

func TestBanner(t *testing.T) {
	curation := `{"promotionTitle":"Glow Week"}`
	got := Banner(curation, "KR")

	if !strings.HasPrefix(got, curation) {
		t.Error("banner prompt must lead with the curation data")
	}
	for _, want := range []string{"16:9", "KR market", "appropriate for KR"} {
		if !strings.Contains(got, want) {
			t.Errorf("banner prompt missing %q", want)
		}
	}
}
