package resolve

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/doppel/profile"
)

func named(names ...string) *profile.Profile {
	return &profile.Profile{Names: names}
}

func at(hour int) time.Time {
	return time.Date(2019, 3, 4, hour, 15, 0, 0, time.UTC)
}

func TestSameNames(t *testing.T) {
	tests := []struct {
		name string
		one  *profile.Profile
		two  *profile.Profile
		want float64
	}{
		{"identical single name", named("Jane Doe"), named("Jane Doe"), 1},
		{"no shared names", named("Jane Doe"), named("J. Doe"), 0},
		{"numeric names ignored", named("12345", "janedoe"), named("janedoe", "67890"), 1},
		{"only numeric names", named("12345"), named("12345"), 0},
		{"no names at all", named(), named("Jane Doe"), 0},
		{"one of two shared", named("Jane Doe", "janed"), named("Jane Doe", "jd"), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameNames(tt.one, tt.two); got != tt.want {
				t.Errorf("SameNames() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBestNameDiff(t *testing.T) {
	if got := BestNameDiff(named("Jane Doe"), named("Jane Doe")); got != 1 {
		t.Errorf("identical best names = %v, want 1", got)
	}
	if got := BestNameDiff(named(), named("Jane Doe")); got != 0 {
		t.Errorf("missing best name = %v, want 0", got)
	}
	got := BestNameDiff(named("Jane Doe"), named("J. Doe"))
	if got <= 0 || got >= 1 {
		t.Errorf("close best names = %v, want in (0,1)", got)
	}
}

func TestTimeComparison(t *testing.T) {
	one := &profile.Profile{ActivityTimestamps: []time.Time{at(9), at(10)}}
	two := &profile.Profile{ActivityTimestamps: []time.Time{at(9)}}
	// Both peak in the 08-11 bucket and both are quiet everywhere
	// else, so all six buckets agree.
	if got := TimeComparison(one, two); math.Abs(got-1) > 1e-9 {
		t.Errorf("TimeComparison() = %v, want 1", got)
	}

	apart := &profile.Profile{ActivityTimestamps: []time.Time{at(22)}}
	got := TimeComparison(one, apart)
	// Buckets 0, 1, 3 and 4 are quiet on both sides; the peaks
	// disagree in buckets 2 and 5.
	if math.Abs(got-4.0/6) > 1e-9 {
		t.Errorf("TimeComparison() = %v, want 4/6", got)
	}

	if got := TimeComparison(one, &profile.Profile{}); got != 0 {
		t.Errorf("missing activity profile = %v, want 0", got)
	}
}

func TestAvatarComparison(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "avatar.jpg")
	if err := os.WriteFile(path, []byte{0, 1, 2, 3, 250, 251}, 0o600); err != nil {
		t.Fatal(err)
	}

	one := &profile.Profile{Avatars: []string{path}}
	two := &profile.Profile{Avatars: []string{path}}
	if got := AvatarComparison(one, two); got != 1 {
		t.Errorf("identical avatars = %v, want 1", got)
	}

	if got := AvatarComparison(one, &profile.Profile{}); got != 0 {
		t.Errorf("missing avatar = %v, want 0", got)
	}
}

func TestStylometricComparison(t *testing.T) {
	text := func(body string) *profile.Profile {
		return &profile.Profile{Contents: []profile.Content{{Type: profile.ContentText, Body: body}}}
	}

	same := "the cat sat on the mat and it was happy with this"
	if got := StylometricComparison(text(same), text(same)); got != 1 {
		t.Errorf("identical text = %v, want 1", got)
	}
	if got := StylometricComparison(text(same), &profile.Profile{}); got != 0 {
		t.Errorf("missing signature = %v, want 0", got)
	}
	if got := StylometricComparison(text(same), text("zebra quagga okapi")); got != 0 {
		t.Errorf("function-word-free text = %v, want 0 (signature sums to zero)", got)
	}
}

func TestLinkAnalysis(t *testing.T) {
	one := &profile.Profile{Contents: []profile.Content{
		{Type: profile.ContentLinks, Body: "https://example.com/a"},
		{Type: profile.ContentLinks, Body: "https://example.org/b"},
	}}
	two := &profile.Profile{Contents: []profile.Content{
		{Type: profile.ContentLinks, Body: "https://example.com/a"},
		{Type: profile.ContentLinks, Body: "https://example.org/other"},
	}}

	// One exact match (1/2) plus one same-domain match (1/6).
	got := LinkAnalysis(one, two)
	if math.Abs(got-(0.5+1.0/6)) > 1e-9 {
		t.Errorf("LinkAnalysis() = %v, want 2/3", got)
	}

	if got := LinkAnalysis(one, &profile.Profile{}); got != 0 {
		t.Errorf("missing links = %v, want 0", got)
	}
}

func TestGeographicProfile(t *testing.T) {
	manchester := profile.Coordinates(-2.2426, 53.4808)
	nearby := profile.Coordinates(-2.25, 53.49)
	london := profile.Coordinates(-0.1278, 51.5074)

	one := &profile.Profile{LocationSet: []profile.Location{manchester, london}}
	two := &profile.Profile{LocationSet: []profile.Location{nearby, london}}
	// Cross-product of four pairs: manchester~nearby and
	// london~london are near.
	if got := GeographicProfile(one, two); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("GeographicProfile() = %v, want 0.5", got)
	}

	single := &profile.Profile{LocationSet: []profile.Location{manchester}}
	if got := GeographicProfile(single, two); got != 0 {
		t.Errorf("single-location set = %v, want 0", got)
	}
}

func TestFriendsComparison(t *testing.T) {
	one := &profile.Profile{
		Interacted: []*profile.Profile{named("Alice Young"), named("Bob Frost")},
	}
	two := &profile.Profile{
		Followers: []*profile.Profile{named("Alice Young"), named("Carol Mott")},
	}
	if got := FriendsComparison(one, two); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("FriendsComparison() = %v, want 0.5", got)
	}

	small := &profile.Profile{Interacted: []*profile.Profile{named("Alice Young")}}
	if got := FriendsComparison(small, two); got != 0 {
		t.Errorf("undersized friend set = %v, want 0", got)
	}
}

func TestComparatorsInRangeOnEmptyProfiles(t *testing.T) {
	one := &profile.Profile{}
	two := &profile.Profile{}
	for i, score := range Features(one, two) {
		if score < 0 || score > 1 {
			t.Errorf("feature %d = %v, want in [0,1]", i, score)
		}
	}
}

func TestPosterior(t *testing.T) {
	tests := []struct {
		name                      string
		evidence, prior, marginal float64
		want                      float64
	}{
		{"plain update", 0.8, 0.5, 0.6, 0.8 * 0.5 / 0.6},
		{"clamped high", 1, 1, 0.5, 1},
		{"clamped low", 0, 0.5, 0.6, 0.01},
		{"zero marginal keeps prior", 0.8, 0.5, 0, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Posterior(tt.evidence, tt.prior, tt.marginal)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Posterior() = %v, want %v", got, tt.want)
			}
		})
	}
}
