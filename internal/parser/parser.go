// Package parser turns a raw upstream HTTP response body (either CMS-style JSON or
// the equivalent XML dialect) into a normalized ParsedVideoList. Format detection is
// tolerant by design: upstreams in this ecosystem disagree on field naming
// (vod_name vs name) and even on XML root element (list vs rss), so every accessor
// here returns a typed, defaulted value rather than forcing callers to branch on
// "was this field present" (spec §9 "dynamic-shape upstream payloads").
package parser

import (
	"bytes"
	"errors"
	"fmt"
)

// Format names the three accepted format hints.
type Format string

const (
	FormatAuto Format = "auto"
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// ParsedVideo is a single normalized video/episode-list record. Every field is a
// plain defaulted value (empty string / zero) rather than a pointer — the spec
// explicitly asks for "missing fields default to empty strings / zeros", not a
// generic map.
type ParsedVideo struct {
	ID        string
	Name      string
	Pic       string
	Area      string
	Year      string
	Actor     string
	Director  string
	Content   string
	Remarks   string
	TypeID    string
	TypeName  string
	Score     string
	Tag       string
	PlayFlag  string // the <dd flag="..."> route name, or "" for the JSON single-route case
	PlayRaw   string // raw "Ep1$URL#Ep2$URL#..." payload for PlayFlag's route
}

// ParsedVideoList is the normalized form of one list/detail response.
type ParsedVideoList struct {
	Code      int
	Msg       string
	Page      int
	PageCount int
	Limit     int
	Total     int
	List      []ParsedVideo
}

// ParseError is returned when the body matches neither the JSON nor the XML CMS
// dialect, or is empty.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "parser: " + e.Reason }

// Parse sniffs (when format is FormatAuto) or trusts the requested format and
// returns the normalized list.
func Parse(body []byte, format Format) (*ParsedVideoList, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &ParseError{Reason: "empty response body"}
	}

	resolved := format
	if resolved == FormatAuto || resolved == "" {
		resolved = sniff(trimmed)
	}

	switch resolved {
	case FormatXML:
		return parseXML(trimmed)
	case FormatJSON:
		return parseJSON(trimmed)
	default:
		return nil, &ParseError{Reason: fmt.Sprintf("unrecognized format %q", resolved)}
	}
}

// sniff implements the leading-byte heuristic from spec §4.A: "<?xml" / "<rss" /
// "<list" -> XML; leading "{" or "[" -> JSON; else default JSON.
func sniff(trimmed []byte) Format {
	switch {
	case bytes.HasPrefix(trimmed, []byte("<?xml")),
		bytes.HasPrefix(trimmed, []byte("<rss")),
		bytes.HasPrefix(trimmed, []byte("<list")):
		return FormatXML
	case trimmed[0] == '{' || trimmed[0] == '[':
		return FormatJSON
	default:
		return FormatJSON
	}
}

var errUnrecognizedShape = errors.New("parser: body did not match either known CMS dialect")
