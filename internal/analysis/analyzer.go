// Package analysis turns a trend keyword list into a curated promotion by way
// of a text-generation model and the product catalog.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/glowmart/promogen/internal/catalog"
	"github.com/glowmart/promogen/internal/prompt"
	"github.com/glowmart/promogen/internal/vertexai"
)

// Result is the structured curation the model produces. Field names mirror
// the JSON contract in the analysis instruction template.
type Result struct {
	ProductIDs   []string `json:"productIds"`
	TargetNation string   `json:"targetNation"`
	Title        string   `json:"promotionTitle"`
	Description  string   `json:"promotionDescription"`
	Buzzwords    []string `json:"promotionBuzzwords"`
}

// TextGenerator is the slice of the model collaborator this stage needs.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, attachments []vertexai.Attachment) (string, error)
}

// Analyzer runs the analysis stage. Analyze is total: any internal failure
// degrades to a deterministic fallback rather than propagating.
type Analyzer struct {
	gen     TextGenerator
	catalog catalog.Locator
	log     *logrus.Entry
}

// NewAnalyzer wires the stage to its model collaborator and catalog locator.
func NewAnalyzer(gen TextGenerator, cat catalog.Locator) *Analyzer {
	return &Analyzer{
		gen:     gen,
		catalog: cat,
		log:     logrus.WithField("component", "analysis"),
	}
}

// Analyze submits the keywords plus the catalog reference to the text model
// and parses the structured result out of its free-form reply. On any failure
// it returns Fallback(keywords, countryCode).
func (a *Analyzer) Analyze(ctx context.Context, keywords []string, countryCode string) Result {
	log := a.log.WithFields(logrus.Fields{
		"country":  countryCode,
		"keywords": len(keywords),
	})

	p := prompt.Analysis(countryCode, keywords, a.catalog.URI)
	reply, err := a.gen.GenerateText(ctx, p, []vertexai.Attachment{a.catalog.Attachment()})
	if err != nil {
		log.WithError(err).Warn("analysis model call failed, using fallback")
		return Fallback(keywords, countryCode)
	}

	res, err := parseResult(reply)
	if err != nil {
		log.WithError(err).Warn("analysis reply unparsable, using fallback")
		return Fallback(keywords, countryCode)
	}

	log.WithFields(logrus.Fields{
		"products": len(res.ProductIDs),
		"title":    res.Title,
	}).Info("analysis complete")
	return res
}

// Fallback is the deterministic degradation contract: no matched products, a
// templated title/description from the country code, and buzzwords sliced
// from the first three input keywords.
func Fallback(keywords []string, countryCode string) Result {
	buzz := keywords
	if len(buzz) > 3 {
		buzz = buzz[:3]
	}
	return Result{
		ProductIDs:   []string{},
		TargetNation: countryCode,
		Title:        fmt.Sprintf("%s Trending Products", countryCode),
		Description:  fmt.Sprintf("Discover trending products in %s", countryCode),
		Buzzwords:    buzz,
	}
}

var fencedJSON = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")

// parseResult extracts a JSON object from the model's free-form reply: first
// a fenced block explicitly tagged json, otherwise the first top-level {...}
// span. A reply whose productIds field is absent counts as a parse failure;
// the instruction template demands it even when empty.
func parseResult(reply string) (Result, error) {
	text := strings.TrimSpace(reply)

	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	} else {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return Result{}, fmt.Errorf("no JSON object in reply")
		}
		text = text[start : end+1]
	}

	var raw struct {
		ProductIDs   *[]string `json:"productIds"`
		TargetNation string    `json:"targetNation"`
		Title        string    `json:"promotionTitle"`
		Description  string    `json:"promotionDescription"`
		Buzzwords    []string  `json:"promotionBuzzwords"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Result{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if raw.ProductIDs == nil {
		return Result{}, fmt.Errorf("productIds missing or not a list")
	}

	return Result{
		ProductIDs:   *raw.ProductIDs,
		TargetNation: raw.TargetNation,
		Title:        raw.Title,
		Description:  raw.Description,
		Buzzwords:    raw.Buzzwords,
	}, nil
}
