// Package catalog references the external product catalog and fetches product
// imagery used as generation references.
package catalog

import "github.com/glowmart/promogen/internal/vertexai"

// Locator points at the tabular product catalog the analysis model reads.
// The catalog itself lives outside this system (typically a GCS object); only
// the reference travels through the pipeline.
type Locator struct {
	URI      string
	MIMEType string
}

// NewLocator builds a Locator, defaulting the mime type to CSV.
func NewLocator(uri string) Locator {
	return Locator{URI: uri, MIMEType: "text/csv"}
}

// Attachment converts the locator to a model request attachment.
func (l Locator) Attachment() vertexai.Attachment {
	mt := l.MIMEType
	if mt == "" {
		mt = "text/csv"
	}
	return vertexai.Attachment{URI: l.URI, MIMEType: mt}
}
