package catalog

import (
	"testing"
)

func TestNewLocator_DefaultsToCSV(t *testing.T) {
	l := NewLocator("gs://bucket/catalog.csv")
	if l.MIMEType != "text/csv" {
		t.Errorf("MIMEType = %q, want text/csv", l.MIMEType)
	}

	att := l.Attachment()
	if att.URI != "gs://bucket/catalog.csv" || att.MIMEType != "text/csv" {
		t.Errorf("Attachment = %+v", att)
	}
}

func TestLocator_AttachmentFillsMissingMIME(t *testing.T) {
	l := Locator{URI: "gs://bucket/catalog.csv"}
	if got := l.Attachment().MIMEType; got != "text/csv" {
		t.Errorf("MIMEType = %q, want text/csv", got)
	}
}
