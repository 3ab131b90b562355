package profile

import (
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// Function words used for the writing-style signature. Fixed: resolver
// output is only comparable across profiles scored with the same list.
var functionWords = []string{
	"a", "it", "up", "for", "some", "as", "not", "who", "if", "there",
	"do", "our", "an", "more", "were", "has", "that", "been", "on",
	"would", "is", "to", "every", "so", "are", "no", "which", "his",
	"then", "can", "or", "also", "may", "was", "had", "than", "be",
	"of", "with", "into", "this", "even", "should", "any", "my", "when",
	"her", "their", "by", "only", "all", "its", "upon", "from", "such",
	"at", "now", "will", "in", "things", "down", "shall", "and", "must",
	"what", "have", "the", "but", "one", "your",
}

// urlPattern matches embedded URLs inside free text content.
var urlPattern = regexp.MustCompile(`https?://[^ ]+`)

const (
	// histogramBuckets is the fixed size of the avatar histogram.
	histogramBuckets = 256
	// histogramSample is the fixed total the histogram is scaled to,
	// making histograms comparable regardless of avatar file size.
	histogramSample = 16384
	// timeBuckets partitions the day into six four-hour activity ranges.
	timeBuckets = 6
)

// derivedState holds the lazily computed signals of a Profile. Each
// field is computed at most once and never invalidated.
type derivedState struct {
	bestOnce   sync.Once
	bestName   string
	nameLength int

	histOnce  sync.Once
	histogram []int

	styleOnce sync.Once
	style     map[string]float64

	timeOnce    sync.Once
	timeProfile []float64

	linksOnce sync.Once
	links     []string
}

// BestName returns the most natural name among the profile's names:
// the first containing a space (suggesting given and family parts),
// else the first with mixed case, else empty. The result is a stable
// snapshot taken at first access.
func (p *Profile) BestName() string {
	p.derived.bestOnce.Do(func() {
		var spaced, mixed string
		for _, name := range p.Names {
			if strings.Contains(name, " ") {
				spaced = name
				break
			}
			if mixed == "" && isMixedCase(name) {
				mixed = name
			}
		}
		best := spaced
		if best == "" {
			best = mixed
		}
		p.derived.bestName = best
		p.derived.nameLength = len(best)
	})
	return p.derived.bestName
}

// NameLength returns the length of the best name, fixed at the same
// time BestName is first computed. Zero when no best name exists.
func (p *Profile) NameLength() int {
	p.BestName()
	return p.derived.nameLength
}

func isMixedCase(s string) bool {
	var hasUpper, hasLower bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
		if hasUpper && hasLower {
			return true
		}
	}
	return false
}

// ImageHistogram returns a fixed-bucket histogram of the first
// available avatar, scaled to a fixed sample size, or nil when no
// avatar is available or readable. Image formats are deliberately
// opaque here: the histogram is computed over raw stored bytes and is
// only meaningful relative to other histograms from this function.
func (p *Profile) ImageHistogram() []int {
	p.derived.histOnce.Do(func() {
		var path string
		for _, a := range p.Avatars {
			if a != "" {
				path = a
				break
			}
		}
		if path == "" {
			return
		}
		data, err := os.ReadFile(path)
		if err != nil || len(data) == 0 {
			slog.Warn("avatar unreadable, skipping histogram",
				"network", p.Network, "network_id", p.NetworkID, "path", path, "error", err)
			return
		}
		counts := make([]int, histogramBuckets)
		for _, b := range data {
			counts[b]++
		}
		hist := make([]int, histogramBuckets)
		for i, c := range counts {
			hist[i] = c * histogramSample / len(data)
		}
		p.derived.histogram = hist
	})
	return p.derived.histogram
}

// WritingStyle returns the profile's stylometric signature: for all
// text content concatenated, the frequency of each function word
// normalized by total token count. Nil when the profile has no text
// content.
func (p *Profile) WritingStyle() map[string]float64 {
	p.derived.styleOnce.Do(func() {
		counts := make(map[string]int, len(functionWords))
		total := 0
		seenText := false
		for _, c := range p.Contents {
			if c.Type != ContentText {
				continue
			}
			seenText = true
			tokens := strings.Fields(strings.ToLower(c.Body))
			total += len(tokens)
			for _, tok := range tokens {
				counts[tok]++
			}
		}
		if !seenText || total == 0 {
			return
		}
		sig := make(map[string]float64, len(functionWords))
		for _, w := range functionWords {
			sig[w] = float64(counts[w]) / float64(total)
		}
		p.derived.style = sig
	})
	return p.derived.style
}

// TimeProfile buckets the profile's activity timestamps into six fixed
// local-hour ranges (00-03, 04-07, 08-11, 12-15, 16-19, 20-23), each
// holding the fraction of all timestamps falling in it. Nil when the
// profile has no activity timestamps.
func (p *Profile) TimeProfile() []float64 {
	p.derived.timeOnce.Do(func() {
		if len(p.ActivityTimestamps) == 0 {
			return
		}
		tact := make([]float64, timeBuckets)
		unit := 1 / float64(len(p.ActivityTimestamps))
		for _, t := range p.ActivityTimestamps {
			tact[t.Hour()/4] += unit
		}
		p.derived.timeProfile = tact
	})
	return p.derived.timeProfile
}

// Links returns all URLs embedded in the profile's text content plus
// the bodies of link-type content, with empty values dropped.
func (p *Profile) Links() []string {
	p.derived.linksOnce.Do(func() {
		var links []string
		for _, c := range p.Contents {
			switch c.Type {
			case ContentText:
				links = append(links, urlPattern.FindAllString(c.Body, -1)...)
			case ContentLinks:
				links = append(links, c.Body)
			case ContentImage, ContentVideo:
			}
		}
		kept := links[:0]
		for _, l := range links {
			if l != "" {
				kept = append(kept, l)
			}
		}
		p.derived.links = kept
	})
	return p.derived.links
}
