package downloader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/novelcrawl/piaotian/internal/models"
)

// Span is an inclusive range of chapter ids. End 0 means up to the last chapter.
type Span struct {
	Start int
	End   int
}

// ParseRange parses "5-12", "5-" or "7". An empty string selects everything.
func ParseRange(rng string) (Span, error) {
	rng = strings.TrimSpace(rng)
	if rng == "" {
		return Span{Start: 1}, nil
	}

	start, end, found := strings.Cut(rng, "-")
	if !found {
		end = start
	}

	s, err := atoi(start)
	if err != nil || s <= 0 {
		return Span{}, fmt.Errorf("invalid range %q: bad start", rng)
	}
	if strings.TrimSpace(end) == "" {
		return Span{Start: s}, nil
	}
	e, err := atoi(end)
	if err != nil || e < s {
		return Span{}, fmt.Errorf("invalid range %q: bad end", rng)
	}
	return Span{Start: s, End: e}, nil
}

// SelectChapters returns the chapters whose ids fall inside rng
func SelectChapters(all []models.Chapter, rng string) ([]models.Chapter, error) {
	span, err := ParseRange(rng)
	if err != nil {
		return nil, err
	}

	var out []models.Chapter
	for _, ch := range all {
		if ch.ID >= span.Start && (span.End == 0 || ch.ID <= span.End) {
			out = append(out, ch)
		}
	}
	if len(all) > 0 && len(out) == 0 {
		return nil, fmt.Errorf("range %q selects none of %d chapters", rng, len(all))
	}
	return out, nil
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
