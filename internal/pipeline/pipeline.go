// Package pipeline sequences the four generation stages — keyword extraction,
// analysis, image synthesis, persistence — and decides the overall outcome.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/glowmart/promogen/internal/analysis"
	"github.com/glowmart/promogen/internal/imagegen"
	"github.com/glowmart/promogen/internal/metrics"
	"github.com/glowmart/promogen/internal/promotion"
)

// Status tags the outcome of one pipeline run.
type Status string

const (
	// StatusComplete: all stages succeeded, including persistence.
	StatusComplete Status = "complete"
	// StatusPartial: generation produced usable content but persistence
	// failed; the caller still receives everything generated.
	StatusPartial Status = "partial"
	// StatusIncomplete: generation did not produce a usable result (missing
	// title, description or banner). Persistence is never attempted.
	StatusIncomplete Status = "incomplete"
)

// Outcome is the single value Run returns. Exactly one of the three statuses
// applies; Run itself never fails.
type Outcome struct {
	Status   Status           `json:"status"`
	Record   *promotion.Record `json:"record,omitempty"`
	Keywords []string         `json:"keywords,omitempty"`
	Analysis analysis.Result  `json:"analysis"`
	// Reason explains an incomplete outcome.
	Reason string `json:"reason,omitempty"`
	// PersistError carries the persistence failure detail of a partial outcome.
	PersistError string `json:"persist_error,omitempty"`
}

// KeywordExtractor is stage one. Total by contract: failures yield nil.
type KeywordExtractor interface {
	Extract(ctx context.Context, countryCode, categoryID string) []string
}

// Analyzer is stage two. Total by contract.
type Analyzer interface {
	Analyze(ctx context.Context, keywords []string, countryCode string) analysis.Result
}

// Synthesizer is stage three. Total by contract.
type Synthesizer interface {
	Synthesize(ctx context.Context, res analysis.Result) imagegen.ImageSet
}

// Pipeline wires the stages to the persistence collaborator. Because every
// generation stage is a total function, Run needs no per-stage error
// handling; the only error that may flow is the store's, and Run converts
// exactly that one into the partial outcome.
type Pipeline struct {
	extractor   KeywordExtractor
	analyzer    Analyzer
	synthesizer Synthesizer
	store       promotion.Store
	log         *logrus.Entry
}

// New assembles a Pipeline.
func New(ex KeywordExtractor, an Analyzer, syn Synthesizer, store promotion.Store) *Pipeline {
	return &Pipeline{
		extractor:   ex,
		analyzer:    an,
		synthesizer: syn,
		store:       store,
		log:         logrus.WithField("component", "pipeline"),
	}
}

// Run executes one full generation for the given country and category. Each
// stage runs exactly once, in order, regardless of how degraded the previous
// stage's output is — analysis and synthesis have their own fallbacks.
func (p *Pipeline) Run(ctx context.Context, countryCode, categoryID string) Outcome {
	log := p.log.WithFields(logrus.Fields{
		"country":  countryCode,
		"category": categoryID,
	})

	started := time.Now()
	keywords := p.extractor.Extract(ctx, countryCode, categoryID)
	metrics.ObserveStage("extract", time.Since(started))
	metrics.KeywordsExtracted.Observe(float64(len(keywords)))

	started = time.Now()
	result := p.analyzer.Analyze(ctx, keywords, countryCode)
	metrics.ObserveStage("analyze", time.Since(started))

	started = time.Now()
	images := p.synthesizer.Synthesize(ctx, result)
	metrics.ObserveStage("synthesize", time.Since(started))
	metrics.ImagesGenerated.Add(float64(imageCount(images)))

	outcome := Outcome{
		Keywords: keywords,
		Analysis: result,
	}

	// Completeness guard: persistence is only worth attempting once
	// generation produced something worth storing.
	if reason := incompleteReason(result, images); reason != "" {
		log.WithField("reason", reason).Warn("generation incomplete")
		outcome.Status = StatusIncomplete
		outcome.Reason = reason
		metrics.PipelineRunsTotal.WithLabelValues(countryCode, string(StatusIncomplete)).Inc()
		return outcome
	}

	rec := assembleRecord(countryCode, categoryID, keywords, result, images)

	started = time.Now()
	saved, err := p.store.Save(ctx, rec)
	metrics.ObserveStage("persist", time.Since(started))
	if err != nil {
		// Generated banners can individually exceed what the store accepts;
		// the caller still gets everything generated, minus an identifier.
		log.WithError(err).Warn("persistence failed, returning partial result")
		outcome.Status = StatusPartial
		outcome.Record = rec
		outcome.PersistError = err.Error()
		metrics.PersistFailures.Inc()
		metrics.PipelineRunsTotal.WithLabelValues(countryCode, string(StatusPartial)).Inc()
		return outcome
	}

	log.WithField("plndp_no", saved.PlanNo).Info("promotion generated")
	outcome.Status = StatusComplete
	outcome.Record = saved
	metrics.PipelineRunsTotal.WithLabelValues(countryCode, string(StatusComplete)).Inc()
	return outcome
}

func incompleteReason(res analysis.Result, images imagegen.ImageSet) string {
	var missing []string
	if res.Title == "" {
		missing = append(missing, "title")
	}
	if res.Description == "" {
		missing = append(missing, "description")
	}
	if images.Empty() {
		missing = append(missing, "banner image")
	}
	if len(missing) == 0 {
		return ""
	}
	return "generation did not complete: missing " + strings.Join(missing, ", ")
}

func assembleRecord(countryCode, categoryID string, keywords []string, res analysis.Result, images imagegen.ImageSet) *promotion.Record {
	details := make([]string, 0, len(images.Secondary))
	for _, img := range images.Secondary {
		details = append(details, img.DataURL())
	}

	products := make([]promotion.Product, 0, len(res.ProductIDs))
	for _, id := range res.ProductIDs {
		products = append(products, promotion.Product{ID: id})
	}

	return &promotion.Record{
		PlanNo:          promotion.NewPlanNo(countryCode, time.Now()),
		CountryCode:     countryCode,
		Category:        categoryID,
		Title:           res.Title,
		Description:     res.Description,
		Theme:           strings.Join(res.Buzzwords, ", "),
		HeroBannerURL:   images.Primary.DataURL(),
		DetailImageURLs: details,
		Products:        products,
		TrendKeywords:   keywords,
	}
}

func imageCount(s imagegen.ImageSet) int {
	if s.Empty() {
		return 0
	}
	return 1 + len(s.Secondary)
}
