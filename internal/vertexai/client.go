// Package vertexai wraps the Google Gen AI SDK behind the two call shapes the
// promotion pipeline needs: a single-shot text completion with file
// attachments, and a streamed generation whose chunks may carry inline images.
package vertexai

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/auth/credentials"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/glowmart/promogen/pkg/ratelimit"
)

// Sentinel failures callers need to tell apart: a response with no candidates
// is a different condition from a candidate that produced no text.
var (
	ErrNoCandidates = errors.New("vertexai: no candidates returned")
	ErrEmptyText    = errors.New("vertexai: candidate contained no text")
)

// Attachment references an external resource (e.g. a GCS object) that is sent
// alongside the prompt.
type Attachment struct {
	URI      string
	MIMEType string
}

// InlineImage is a binary image payload with its mime type, either produced by
// the model or supplied as a reference input.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// Chunk is one streamed response increment. Text and Images may both be empty.
type Chunk struct {
	Text   string
	Images []InlineImage
}

// Config carries everything the client needs at construction time. The
// credentials file is an explicit value here; the client never mutates process
// environment to point the SDK at a key file.
type Config struct {
	Project         string
	Location        string
	CredentialsFile string
	TextModel       string
	ImageModel      string
	// CallsPerSecond paces outbound model calls. <= 0 disables pacing.
	CallsPerSecond float64
}

// Client is the production implementation backed by Vertex AI.
type Client struct {
	genai      *genai.Client
	textModel  string
	imageModel string
	limiter    *ratelimit.Limiter
	log        *logrus.Entry
}

// NewClient builds a Vertex-backed client. When CredentialsFile is empty the
// SDK falls back to application default credentials.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Project == "" {
		return nil, fmt.Errorf("vertexai: project is required")
	}
	if cfg.Location == "" {
		cfg.Location = "us-central1"
	}

	cc := &genai.ClientConfig{
		Backend:  genai.BackendVertexAI,
		Project:  cfg.Project,
		Location: cfg.Location,
	}

	if cfg.CredentialsFile != "" {
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			CredentialsFile: cfg.CredentialsFile,
			Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load credentials from %s: %w", cfg.CredentialsFile, err)
		}
		cc.Credentials = creds
	}

	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{
		genai:      gc,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		limiter:    ratelimit.NewLimiter(cfg.CallsPerSecond, 0.1),
		log:        logrus.WithField("component", "vertexai"),
	}, nil
}

// GenerateText submits the prompt plus attachments as one non-streaming call
// and returns the concatenated text of the first candidate.
func (c *Client) GenerateText(ctx context.Context, prompt string, attachments []Attachment) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, a := range attachments {
		parts = append(parts, genai.NewPartFromURI(a.URI, a.MIMEType))
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	gcfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		MaxOutputTokens: 8192,
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.textModel, contents, gcfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", ErrNoCandidates
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyText
	}

	c.log.WithFields(logrus.Fields{
		"model": c.textModel,
		"chars": len(text),
	}).Debug("text generation complete")

	return text, nil
}

// StreamContent submits the prompt (plus optional reference images) as a
// streaming request and invokes fn for every received chunk, in arrival order.
// fn returning an error aborts consumption.
func (c *Client) StreamContent(ctx context.Context, prompt string, refs []InlineImage, fn func(Chunk) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, img := range refs {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	gcfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](1),
		TopP:            genai.Ptr[float32](0.95),
		MaxOutputTokens: 8192,
		SafetySettings:  permissiveSafety(),
	}

	for resp, err := range c.genai.Models.GenerateContentStream(ctx, c.imageModel, contents, gcfg) {
		if err != nil {
			return fmt.Errorf("stream: %w", err)
		}
		chunk := chunkFromResponse(resp)
		if chunk.Text == "" && len(chunk.Images) == 0 {
			continue
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}

	return nil
}

func chunkFromResponse(resp *genai.GenerateContentResponse) Chunk {
	var chunk Chunk
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return chunk
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			chunk.Text += part.Text
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			chunk.Images = append(chunk.Images, InlineImage{
				MIMEType: part.InlineData.MIMEType,
				Data:     part.InlineData.Data,
			})
		}
	}
	return chunk
}

// The banner model rejects a fair share of beauty-product prompts under the
// default thresholds, so image generation runs with all categories unblocked.
func permissiveSafety() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHateSpeech,
		genai.HarmCategoryDangerousContent,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryHarassment,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, cat := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  cat,
			Threshold: genai.HarmBlockThresholdBlockNone,
		})
	}
	return settings
}
