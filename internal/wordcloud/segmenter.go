package wordcloud

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-ego/gse"
)

// Segmenter splits free text into word units
type Segmenter interface {
	Cut(text string) []string
}

// GseSegmenter is a dictionary based Chinese segmenter with HMM for unknown words
type GseSegmenter struct {
	seg gse.Segmenter
}

// NewGseSegmenter loads the embedded dictionary. Loading takes a noticeable
// amount of time, so build one per process.
func NewGseSegmenter() (*GseSegmenter, error) {
	s := &GseSegmenter{}
	if err := s.seg.LoadDictEmbed(); err != nil {
		return nil, fmt.Errorf("failed to load segmenter dictionary: %w", err)
	}
	return s, nil
}

func (s *GseSegmenter) Cut(text string) []string {
	return s.seg.Cut(text, true)
}

// RunSegmenter splits text into runs of letters and digits and keeps every
// run of Han characters whole. It is used when no dictionary is available.
type RunSegmenter struct{}

func (RunSegmenter) Cut(text string) []string {
	var (
		out     []string
		current strings.Builder
		han     bool
	)
	flush := func() {
		if current.Len() > 0 {
			out = append(out, current.String())
			current.Reset()
		}
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			if !han {
				flush()
			}
			han = true
			current.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if han {
				flush()
			}
			han = false
			current.WriteRune(r)
		default:
			flush()
			han = false
		}
	}
	flush()

	return out
}
