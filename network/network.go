// Package network defines the per-network adapter capability set and
// an explicit registry of adapters. An adapter recognizes profile URLs
// for its network, extracts network-local ids from them, and turns raw
// captured payloads into normalized profiles. Registration is an
// explicit table built at process start; nothing is discovered by
// scanning the filesystem.
package network

import (
	"strings"

	"github.com/codeGROOVE-dev/doppel/ledger"
	"github.com/codeGROOVE-dev/doppel/profile"
)

// Network is the capability set every per-network adapter implements.
type Network interface {
	// Name returns the network identifier (e.g. "twitter").
	Name() string

	// Recognizes reports whether the URL is a profile URL on this network.
	Recognizes(url string) bool

	// ExtractID returns the network-local account id embedded in a
	// recognized profile URL, or "" when none can be extracted.
	ExtractID(url string) string

	// Analyse turns one raw captured payload into a normalized profile
	// for the ledger record it was captured under.
	Analyse(raw []byte, rec ledger.Record) (*profile.Profile, error)
}

// profileHosts are hosts whose URLs plausibly point at a person's
// profile on some network. Used by adapters to sort outbound links
// into profile links versus plain web links.
var profileHosts = []string{
	"twitter.com/", "x.com/", "instagram.com/", "github.com/",
	"facebook.com/", "linkedin.com/in/", "youtube.com/@", "tiktok.com/@",
	"bsky.app/profile/", "reddit.com/user/", "medium.com/@",
}

// looksLikeProfileLink reports whether a URL plausibly points at a
// profile on a known network, including Mastodon-style /@user paths.
func looksLikeProfileLink(url string) bool {
	lower := strings.ToLower(url)
	for _, h := range profileHosts {
		if strings.Contains(lower, h) {
			return true
		}
	}
	// Mastodon-style: any host with a /@username path.
	if i := strings.Index(lower, "://"); i >= 0 {
		if j := strings.Index(lower[i+3:], "/@"); j >= 0 {
			return true
		}
	}
	return false
}

// splitLinks partitions outbound URLs into profile links and web
// links, dropping empties.
func splitLinks(urls []string) (profileLinks, webLinks []string) {
	for _, u := range urls {
		switch {
		case u == "":
		case looksLikeProfileLink(u):
			profileLinks = append(profileLinks, u)
		default:
			webLinks = append(webLinks, u)
		}
	}
	return profileLinks, webLinks
}

// pathSegments returns the non-empty path segments of a URL, with
// scheme, host, query and fragment stripped.
func pathSegments(url string) []string {
	s := url
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, "/")
	if len(parts) < 2 {
		return nil
	}
	var segs []string
	for _, p := range parts[1:] {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}

// hostOf returns the lowercased host portion of a URL.
func hostOf(url string) string {
	s := strings.ToLower(url)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return s
}
