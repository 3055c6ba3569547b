package lexcorpus

import (
	"time"
)

// Media types the extraction pipeline dispatches on. Sources declare these on
// entries and raw documents; anything else is ENOFORMAT.
const (
	MIMEHTML = "text/html"
	MIMEPDF  = "application/pdf"
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMERTF  = "application/rtf"
	MIMEDoc  = "application/msword"
	MIMEText = "text/plain"
)

// Document is the corpus's unit of record: one normalized legal document as
// last ingested from its source. A Document is serialized as one JSON line in
// the corpus file; consumers must tolerate unknown additional fields.
type Document struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	VersionID     string    `json:"versionId"`
	MIME          string    `json:"mime,omitempty"`
	Date          string    `json:"date,omitempty"`
	Citation      string    `json:"citation,omitempty"`
	Jurisdiction  string    `json:"jurisdiction,omitempty"`
	Type          string    `json:"type,omitempty"`
	Text          string    `json:"text"`
	WhenScraped   time.Time `json:"whenScraped"`
	SourceVersion string    `json:"sourceVersion,omitempty"`
}

// Validate returns an error if the document is missing required fields or
// carries a malformed version fingerprint. Records failing validation are
// treated as corrupted by the corpus store and dropped for re-fetch.
func (d *Document) Validate() error {
	if d.ID == "" {
		return Errorf(EINVALID, "document id required")
	}
	if d.Source == "" {
		return Errorf(EINVALID, "document source required")
	}
	if !ValidFingerprint(d.VersionID) {
		return Errorf(EINVALID, "document version id %q is not a content fingerprint", d.VersionID)
	}
	if d.Text == "" {
		return Errorf(EINVALID, "document text required")
	}
	if d.WhenScraped.IsZero() {
		return Errorf(EINVALID, "document scrape time required")
	}
	return nil
}
