// Package catalogstore is the Catalog Store / Dedup-Merger (spec §4.G): the
// sole owner of the `videos` table, plus the `sources`/`source_health` and
// `category_mappings`/`sub_categories` tables the Source Health Tracker and
// Classifier read through the Store/MappingTable interfaces those packages
// define. Grounded on the teacher's internal/database convention of one .go
// file per query family rather than one monolithic repository type.
package catalogstore

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/videocatalog/catalogcore/internal/cleaner"
)

// Video is the full persisted catalog entry (spec §3 Video).
type Video struct {
	VideoID        string
	Name           string
	Year           int
	Area           string
	Language       string
	Actors         []string
	Directors      []string
	Synopsis       string
	Tags           []string
	CoverURL       string
	ThumbURL       string
	Remarks        string
	Rating         float64
	RatingSource   string
	TypeID         int
	SubTypeID      int
	PlayURLs       cleaner.PlayURLs
	SourceNames    []string
	SourcePriority int
	QualityScore   int
	IsValid        bool
	PreviewEpisode int
	PreviewURL     string
	ShortsCategory string
	HitsDay        int64
	HitsWeek       int64
	HitsMonth      int64
	HitsAllTime    int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewVideoID computes the stable video_id: a lowercased, whitespace-stripped
// sha256 hash of (name, year, area, first_director), hex-encoded to 36
// characters (spec §3: "a 36-base hash").
func NewVideoID(name string, year int, area, firstDirector string) string {
	key := strings.ToLower(strings.Join([]string{
		stripAllSpace(name),
		itoa(year),
		stripAllSpace(area),
		stripAllSpace(firstDirector),
	}, "|"))
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:36]
}

func stripAllSpace(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func firstOf(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

func marshalJSON(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalJSON(s string, v interface{}) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

func joinCSV(ss []string) string  { return strings.Join(ss, ",") }
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
