package telemetry

import (
	"errors"
	"html"
	"net/url"
	"unicode/utf8"
)

var errInvalidUTF8 = errors.New("decoded text is not valid utf-8")

type decodeStep func(string) (string, error)

// tipDecodeSteps run in order; a failing step leaves the previous result in place.
var tipDecodeSteps = []decodeStep{
	unescapeURIComponent,
	unescapeEntities,
}

// DecodeTipMessage turns stored tip text, which may be percent-encoded,
// HTML-entity encoded, both, or neither, into readable text. It never fails:
// each stage that cannot decode its input passes it through unchanged.
func DecodeTipMessage(s string) string {
	if s == "" {
		return s
	}
	out := s
	for _, step := range tipDecodeSteps {
		if decoded, err := step(out); err == nil {
			out = decoded
		}
	}
	return out
}

// unescapeURIComponent decodes every %XX sequence but leaves '+' alone, and
// rejects sequences that do not form valid UTF-8.
func unescapeURIComponent(s string) (string, error) {
	out, err := url.PathUnescape(s)
	if err != nil {
		return "", err
	}
	if !utf8.ValidString(out) {
		return "", errInvalidUTF8
	}
	return out, nil
}

func unescapeEntities(s string) (string, error) {
	return html.UnescapeString(s), nil
}
