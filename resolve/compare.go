package resolve

import (
	"log/slog"
	"math"
	"net/url"

	"github.com/agnivade/levenshtein"

	"github.com/codeGROOVE-dev/doppel/profile"
)

// Comparator thresholds and calibration constants. Changing any of
// these changes the meaning of previously exported feature vectors.
const (
	// maxAvatarDistance is the empirical ceiling on avatar histogram
	// RMS distance; observed distances above it indicate the
	// calibration no longer holds.
	maxAvatarDistance = 906
	// highActivity and lowActivity bound the activity-bucket
	// comparison: two profiles agree on a bucket when both exceed
	// the high threshold or both fall below the low one.
	highActivity = 0.2
	lowActivity  = 0.08
	// friendNameThreshold is the best-name similarity above which
	// two friend entries are considered the same person.
	friendNameThreshold = 0.8
)

// SameNames scores the fraction of exactly shared names, normalized by
// the smaller valid-name count. Purely numeric names are ignored: some
// networks report the account's numeric id as a name.
func SameNames(one, two *profile.Profile) float64 {
	validOne := validNames(one.Names)
	validTwo := validNames(two.Names)
	if len(validOne) == 0 || len(validTwo) == 0 {
		return 0
	}
	inTwo := make(map[string]bool, len(validTwo))
	for _, n := range validTwo {
		inTwo[n] = true
	}
	shared := 0
	for _, n := range validOne {
		if inTwo[n] {
			shared++
		}
	}
	minValid := min(len(validOne), len(validTwo))
	return float64(shared) / float64(minValid)
}

func validNames(names []string) []string {
	var valid []string
	for _, n := range names {
		if !isNumeric(n) {
			valid = append(valid, n)
		}
	}
	return valid
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// BestNameDiff scores best-name similarity as one minus the Levenshtein
// distance normalized by the longer name's length. Zero when either
// profile has no best name.
func BestNameDiff(one, two *profile.Profile) float64 {
	n1 := one.BestName()
	n2 := two.BestName()
	if n1 == "" || n2 == "" {
		return 0
	}
	longest := max(one.NameLength(), two.NameLength())
	dist := levenshtein.ComputeDistance(n1, n2)
	return 1 - float64(dist)/float64(longest)
}

// TimeComparison scores overlap between the two activity profiles: one
// sixth per bucket where both profiles peak or both are quiet. Zero
// when either profile has no activity profile.
func TimeComparison(one, two *profile.Profile) float64 {
	t1 := one.TimeProfile()
	t2 := two.TimeProfile()
	if t1 == nil || t2 == nil {
		return 0
	}
	likelihood := 0.0
	for i := range t1 {
		switch {
		case t1[i] > highActivity && t2[i] > highActivity:
			likelihood += 1.0 / 6
		case t1[i] < lowActivity && t2[i] < lowActivity:
			likelihood += 1.0 / 6
		}
	}
	return likelihood
}

// AvatarComparison scores avatar similarity as the inverted RMS
// distance between the two image histograms, normalized by the
// calibrated maximum. Zero when either histogram is absent, or when
// the observed distance exceeds the calibration ceiling.
func AvatarComparison(one, two *profile.Profile) float64 {
	h1 := one.ImageHistogram()
	h2 := two.ImageHistogram()
	if h1 == nil || h2 == nil {
		return 0
	}
	sum := 0.0
	for i := range h1 {
		d := float64(h1[i] - h2[i])
		sum += d * d
	}
	rms := math.Sqrt(sum / float64(len(h1)))
	if rms > maxAvatarDistance {
		slog.Warn("avatar histogram distance exceeds calibration ceiling",
			"rms", rms, "ceiling", maxAvatarDistance)
		return 0
	}
	return 1 - rms/maxAvatarDistance
}

// StylometricComparison scores writing-style similarity as one minus
// the Euclidean distance between the two signatures, normalized by the
// Euclidean norm of their sum. Zero when either signature is empty or
// sums to zero.
func StylometricComparison(one, two *profile.Profile) float64 {
	s1 := one.WritingStyle()
	s2 := two.WritingStyle()
	if len(s1) == 0 || len(s2) == 0 || sumValues(s1) == 0 || sumValues(s2) == 0 {
		return 0
	}
	var distSq, baseSq float64
	for word, v1 := range s1 {
		v2 := s2[word]
		distSq += (v1 - v2) * (v1 - v2)
		baseSq += (v1 + v2) * (v1 + v2)
	}
	return 1 - math.Sqrt(distSq)/math.Sqrt(baseSq)
}

func sumValues(sig map[string]float64) float64 {
	total := 0.0
	for _, v := range sig {
		total += v
	}
	return total
}

// LinkAnalysis scores outbound-link overlap: each of profile one's
// links contributes a full unit for an exact match in profile two's
// links, or a third of a unit for a same-domain match. Zero when
// either side has no links.
func LinkAnalysis(one, two *profile.Profile) float64 {
	ls1 := one.Links()
	ls2 := two.Links()
	if len(ls1) == 0 || len(ls2) == 0 {
		return 0
	}
	exact := make(map[string]bool, len(ls2))
	domains := make(map[string]bool, len(ls2))
	for _, l := range ls2 {
		exact[l] = true
		if d := linkDomain(l); d != "" {
			domains[d] = true
		}
	}
	unit := 1 / float64(len(ls1))
	score := 0.0
	for _, l := range ls1 {
		switch {
		case exact[l]:
			score += unit
		case domains[linkDomain(l)]:
			score += unit / 3
		}
	}
	return score
}

// linkDomain returns the host portion of a link, or empty when the
// link does not parse. Unparsable links simply never domain-match.
func linkDomain(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		slog.Warn("unparsable link, skipping domain match", "link", link, "error", err)
		return ""
	}
	return u.Host
}

// GeographicProfile scores location-set overlap over the cross-product
// of the two sets. Zero unless both sets hold at least two locations:
// a single location is too weak a fingerprint to compare.
func GeographicProfile(one, two *profile.Profile) float64 {
	s1 := one.LocationSet
	s2 := two.LocationSet
	if len(s1) < 2 || len(s2) < 2 {
		return 0
	}
	unit := 1 / float64(len(s1)*len(s2))
	score := 0.0
	for _, l1 := range s1 {
		for _, l2 := range s2 {
			if l1.Near(l2) {
				score += unit
			}
		}
	}
	return score
}

// FriendsComparison scores social-graph overlap: across the union of
// each profile's interaction, follow and group lists, count pairs
// whose best names are close, normalized by the smaller list and
// capped at one. Zero unless both unions hold at least two members.
func FriendsComparison(one, two *profile.Profile) float64 {
	fs1 := friendUnion(one)
	fs2 := friendUnion(two)
	if len(fs1) < 2 || len(fs2) < 2 {
		return 0
	}
	matches := 0
	for _, f1 := range fs1 {
		for _, f2 := range fs2 {
			if BestNameDiff(f1, f2) > friendNameThreshold {
				matches++
			}
		}
	}
	minLen := min(len(fs1), len(fs2))
	if matches > minLen {
		return 1
	}
	return float64(matches) / float64(minLen)
}

func friendUnion(p *profile.Profile) []*profile.Profile {
	seen := make(map[*profile.Profile]bool)
	var union []*profile.Profile
	for _, list := range [][]*profile.Profile{p.Interacted, p.Followers, p.FollowedBy, p.Grouped} {
		for _, f := range list {
			if f == nil || seen[f] {
				continue
			}
			seen[f] = true
			union = append(union, f)
		}
	}
	return union
}

// Features runs all eight comparators on a pair and returns their
// scores in export column order.
func Features(one, two *profile.Profile) []float64 {
	return []float64{
		SameNames(one, two),
		BestNameDiff(one, two),
		TimeComparison(one, two),
		AvatarComparison(one, two),
		FriendsComparison(one, two),
		LinkAnalysis(one, two),
		StylometricComparison(one, two),
		GeographicProfile(one, two),
	}
}

// Posterior applies one Bayesian update to a prior given the
// probability of the observed evidence under a match and its marginal
// likelihood, clamped to (0, 1]. The export pipeline does not call it:
// exported rows carry raw feature vectors and a ground-truth label,
// and any decision rule is left to downstream training.
func Posterior(evidenceGivenMatched, prior, marginalLikelihood float64) float64 {
	if marginalLikelihood <= 0 {
		return prior
	}
	calc := evidenceGivenMatched * prior / marginalLikelihood
	switch {
	case calc <= 0:
		return 0.01
	case calc > 1:
		return 1
	default:
		return calc
	}
}
