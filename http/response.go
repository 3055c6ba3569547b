package http

import (
	"bytes"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/lexcorpus/lexcorpus"
)

// Response is a fully-read HTTP response. URL is the final URL after
// redirects, which matters for resolving relative links in the body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

// MIME returns the media type without parameters, or "" when the server did
// not declare one.
func (r *Response) MIME() string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return mt
}

// charset returns the declared charset parameter, or "".
func (r *Response) charset() string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// Text decodes the body on a best-effort basis: the declared charset first,
// then detection, then lossy UTF-8. It never fails; use Decode when the
// caller must distinguish undecodable bodies.
func (r *Response) Text() string {
	if cs := r.charset(); cs != "" {
		if s, err := decodeStrict(r.Body, cs); err == nil {
			return s
		}
	}
	if utf8.Valid(r.Body) {
		return string(r.Body)
	}

	detector := chardet.NewTextDetector()
	if strings.Contains(r.MIME(), "html") {
		detector = chardet.NewHtmlDetector()
	}
	if res, err := detector.DetectBest(r.Body); err == nil {
		if enc, err := htmlindex.Get(res.Charset); err == nil {
			if s, err := enc.NewDecoder().Bytes(r.Body); err == nil {
				return string(s)
			}
		}
	}

	return strings.ToValidUTF8(string(r.Body), "�")
}

// Decode decodes the body strictly: the declared charset first, then each
// listed encoding in order. It fails with EPARSE when every candidate
// produces invalid text, so sources can fall back to another rendition
// instead of ingesting garbage.
func (r *Response) Decode(encodings ...string) (string, error) {
	candidates := make([]string, 0, len(encodings)+1)
	if cs := r.charset(); cs != "" {
		candidates = append(candidates, cs)
	}
	candidates = append(candidates, encodings...)

	for _, name := range candidates {
		if s, err := decodeStrict(r.Body, name); err == nil {
			return s, nil
		}
	}
	return "", lexcorpus.Errorf(lexcorpus.EPARSE, "body of %s not decodable as any of %v", r.URL, candidates)
}

// decodeStrict decodes b as the named encoding and rejects the result if any
// byte had no real mapping. The WHATWG tables behind htmlindex never error on
// single-byte codepages: bytes the codepage leaves undefined pass through as
// C1 controls (U+0080..U+009F), and invalid multi-byte sequences become
// U+FFFD. Either in the output means the body is not actually in this
// encoding.
func decodeStrict(b []byte, name string) (string, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", err
	}
	decoded, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	if bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", lexcorpus.Errorf(lexcorpus.EPARSE, "undecodable bytes for encoding %s", name)
	}
	for _, r := range string(decoded) {
		if r >= 0x80 && r <= 0x9f {
			return "", lexcorpus.Errorf(lexcorpus.EPARSE, "undecodable bytes for encoding %s", name)
		}
	}
	return string(decoded), nil
}
