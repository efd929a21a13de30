// Package imagegen produces the promotion's banner imagery from the analysis
// result via a streaming image-generation model.
package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/glowmart/promogen/internal/analysis"
	"github.com/glowmart/promogen/internal/prompt"
	"github.com/glowmart/promogen/internal/vertexai"
)

// Image is one generated image payload.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURL renders the image as a data URL suitable for direct embedding.
func (i Image) DataURL() string {
	if len(i.Data) == 0 {
		return ""
	}
	return fmt.Sprintf("data:%s;base64,%s", i.MIMEType, base64.StdEncoding.EncodeToString(i.Data))
}

// ImageSet is the synthesis outcome. Primary is the first image the model
// streamed, by positional convention only: the model attaches no semantic
// tagging, so arrival order is trusted as intent. If the model ever reorders
// its output this stage cannot detect it (known limitation). An empty set
// (zero-value Primary, no Secondary) is the valid "no images" outcome.
type ImageSet struct {
	Primary   Image
	Secondary []Image
}

// Empty reports whether synthesis produced no usable banner.
func (s ImageSet) Empty() bool { return len(s.Primary.Data) == 0 }

// ContentStreamer is the slice of the model collaborator this stage needs.
type ContentStreamer interface {
	StreamContent(ctx context.Context, prompt string, refs []vertexai.InlineImage, fn func(vertexai.Chunk) error) error
}

// ReferenceFetcher supplies product reference imagery for the generation
// request. May be nil.
type ReferenceFetcher interface {
	FetchAll(ctx context.Context, urls []string) []vertexai.InlineImage
}

// Generator runs the synthesis stage. Synthesize is total: every failure mode
// returns an explicitly empty ImageSet, never a partially-populated one.
type Generator struct {
	streamer ContentStreamer
	refs     ReferenceFetcher
	log      *logrus.Entry
}

// NewGenerator wires the stage to its model collaborator and an optional
// reference image fetcher.
func NewGenerator(streamer ContentStreamer, refs ReferenceFetcher) *Generator {
	return &Generator{
		streamer: streamer,
		refs:     refs,
		log:      logrus.WithField("component", "imagegen"),
	}
}

// Synthesize serializes the analysis result into the banner prompt, streams
// the generation response, and splits arrived images into primary and
// secondary by position.
func (g *Generator) Synthesize(ctx context.Context, res analysis.Result) ImageSet {
	return g.SynthesizeWithReferences(ctx, res, nil)
}

// SynthesizeWithReferences additionally downloads and attaches the given
// product image URLs as generation references.
func (g *Generator) SynthesizeWithReferences(ctx context.Context, res analysis.Result, refURLs []string) ImageSet {
	log := g.log.WithField("country", res.TargetNation)

	curation, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		log.WithError(err).Warn("failed to serialize analysis result")
		return ImageSet{}
	}

	var refs []vertexai.InlineImage
	if g.refs != nil && len(refURLs) > 0 {
		refs = g.refs.FetchAll(ctx, refURLs)
	}

	p := prompt.Banner(string(curation), res.TargetNation)

	var (
		images   []Image
		fullText string // accumulated narrative, kept for logging only
	)
	err = g.streamer.StreamContent(ctx, p, refs, func(chunk vertexai.Chunk) error {
		fullText += chunk.Text
		for _, img := range chunk.Images {
			images = append(images, Image{MIMEType: img.MIMEType, Data: img.Data})
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("image generation failed")
		return ImageSet{}
	}

	if len(images) == 0 {
		log.WithField("narrative_chars", len(fullText)).Warn("model streamed no images")
		return ImageSet{}
	}

	log.WithField("images", len(images)).Info("image generation complete")
	return ImageSet{
		Primary:   images[0],
		Secondary: images[1:],
	}
}
