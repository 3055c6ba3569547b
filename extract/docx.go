package extract

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"

	"github.com/beevik/etree"

	"github.com/lexcorpus/lexcorpus"
)

// extractDOCX extracts text from a DOCX part: paragraphs become lines,
// explicit tabs and breaks survive.
func extractDOCX(part []byte) (string, error) {
	if isLegacyDOC(part) {
		return "", ErrLegacyDOC
	}

	archive, err := zip.NewReader(bytes.NewReader(part), int64(len(part)))
	if err != nil {
		return "", lexcorpus.Errorf(lexcorpus.EPARSE, "opening docx archive: %v", err)
	}

	var document *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			document = f
			break
		}
	}
	if document == nil {
		return "", lexcorpus.Errorf(lexcorpus.EPARSE, "docx archive has no word/document.xml")
	}

	rc, err := document.Open()
	if err != nil {
		return "", lexcorpus.Errorf(lexcorpus.EPARSE, "opening word/document.xml: %v", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", lexcorpus.Errorf(lexcorpus.EPARSE, "reading word/document.xml: %v", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return "", lexcorpus.Errorf(lexcorpus.EPARSE, "parsing word/document.xml: %v", err)
	}
	root := doc.Root()
	if root == nil {
		return "", lexcorpus.Errorf(lexcorpus.EPARSE, "empty word/document.xml")
	}

	var buf strings.Builder
	writeDocxElement(root, &buf)
	return buf.String(), nil
}

// writeDocxElement walks WordprocessingML by local tag name, so it does not
// depend on the namespace prefix the producer chose.
func writeDocxElement(el *etree.Element, buf *strings.Builder) {
	switch el.Tag {
	case "t":
		buf.WriteString(el.Text())
		return
	case "tab":
		buf.WriteByte('\t')
		return
	case "br", "cr":
		buf.WriteByte('\n')
		return
	case "instrText", "delText":
		// Field codes and tracked deletions are not document text.
		return
	}

	for _, child := range el.ChildElements() {
		writeDocxElement(child, buf)
	}
	if el.Tag == "p" {
		buf.WriteByte('\n')
	}
}
