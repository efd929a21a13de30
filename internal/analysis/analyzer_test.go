package analysis

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/glowmart/promogen/internal/catalog"
	"github.com/glowmart/promogen/internal/vertexai"
)

// fakeGenerator implements TextGenerator with a canned reply.
type fakeGenerator struct {
	reply      string
	err        error
	lastPrompt string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string, attachments []vertexai.Attachment) (string, error) {
	f.lastPrompt = prompt
	return f.reply, f.err
}

func testAnalyzer(gen TextGenerator) *Analyzer {
	return NewAnalyzer(gen, catalog.NewLocator("gs://bucket/catalog.csv"))
}

func TestAnalyze_FencedJSONReply(t *testing.T) {
	gen := &fakeGenerator{reply: "Here is my curation:\n" +
		"```json\n" +
		`{"productIds":["G1","G2"],"targetNation":"KR","promotionTitle":"Glow Week","promotionDescription":"Top picks.","promotionBuzzwords":["glow","serum"]}` +
		"\n```\nLet me know if you need changes."}

	got := testAnalyzer(gen).Analyze(context.Background(), []string{"glow", "serum"}, "KR")

	want := Result{
		ProductIDs:   []string{"G1", "G2"},
		TargetNation: "KR",
		Title:        "Glow Week",
		Description:  "Top picks.",
		Buzzwords:    []string{"glow", "serum"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Analyze = %+v, want %+v", got, want)
	}
}

func TestAnalyze_BareJSONReply(t *testing.T) {
	gen := &fakeGenerator{reply: `Sure. {"productIds":[],"targetNation":"JP","promotionTitle":"T","promotionDescription":"D","promotionBuzzwords":null} Done.`}

	got := testAnalyzer(gen).Analyze(context.Background(), nil, "JP")
	if got.Title != "T" || got.Description != "D" {
		t.Errorf("brace-span extraction failed: %+v", got)
	}
	if got.ProductIDs == nil || len(got.ProductIDs) != 0 {
		t.Errorf("empty productIds list should survive as empty, got %v", got.ProductIDs)
	}
}

func TestAnalyze_ModelErrorFallsBack(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	keywords := []string{"a", "b", "c", "d"}

	got := testAnalyzer(gen).Analyze(context.Background(), keywords, "US")
	if !reflect.DeepEqual(got, Fallback(keywords, "US")) {
		t.Errorf("model error should yield fallback, got %+v", got)
	}
}

func TestAnalyze_MissingProductIDsFallsBack(t *testing.T) {
	// Parses as JSON but omits the required productIds list.
	gen := &fakeGenerator{reply: `{"promotionTitle":"T","promotionDescription":"D"}`}

	got := testAnalyzer(gen).Analyze(context.Background(), []string{"k"}, "KR")
	if got.Title != "KR Trending Products" {
		t.Errorf("reply without productIds should degrade to fallback, got %+v", got)
	}
}

func TestAnalyze_GarbageReplyFallsBack(t *testing.T) {
	gen := &fakeGenerator{reply: "I could not find anything relevant."}

	got := testAnalyzer(gen).Analyze(context.Background(), []string{"k"}, "KR")
	if got.Description != "Discover trending products in KR" {
		t.Errorf("non-JSON reply should degrade to fallback, got %+v", got)
	}
}

func TestAnalyze_PromptCarriesInputs(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("ignored")}
	testAnalyzer(gen).Analyze(context.Background(), []string{"glow", "serum"}, "KR")

	for _, want := range []string{"KR", "glow, serum", "gs://bucket/catalog.csv"} {
		if !strings.Contains(gen.lastPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestFallback(t *testing.T) {
	got := Fallback([]string{"one", "two", "three", "four"}, "KR")

	if got.Title != "KR Trending Products" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Description != "Discover trending products in KR" {
		t.Errorf("Description = %q", got.Description)
	}
	if !reflect.DeepEqual(got.Buzzwords, []string{"one", "two", "three"}) {
		t.Errorf("Buzzwords = %v, want first three keywords", got.Buzzwords)
	}
	if got.ProductIDs == nil || len(got.ProductIDs) != 0 {
		t.Errorf("ProductIDs must be an empty list, got %v", got.ProductIDs)
	}
}

func TestFallback_FewKeywords(t *testing.T) {
	got := Fallback(nil, "JP")
	if len(got.Buzzwords) != 0 {
		t.Errorf("no keywords should mean no buzzwords, got %v", got.Buzzwords)
	}

	got = Fallback([]string{"solo"}, "JP")
	if !reflect.DeepEqual(got.Buzzwords, []string{"solo"}) {
		t.Errorf("Buzzwords = %v, want [solo]", got.Buzzwords)
	}
}
