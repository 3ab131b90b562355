package network

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/doppel/ledger"
	"github.com/codeGROOVE-dev/doppel/profile"
)

// Mastodon recognizes profile URLs on known Mastodon instances (plus
// the generic /@username pattern on .social hosts) and normalizes
// captured account payloads.
type Mastodon struct{}

// Name returns the network identifier.
func (*Mastodon) Name() string { return "mastodon" }

// Known Mastodon instances.
var mastodonInstances = map[string]bool{
	"mastodon.social": true, "mastodon.online": true, "fosstodon.org": true,
	"hachyderm.io": true, "infosec.exchange": true, "techhub.social": true,
	"mstdn.social": true, "mas.to": true, "chaos.social": true,
}

// Recognizes reports whether the URL is a Mastodon profile URL.
func (*Mastodon) Recognizes(url string) bool {
	host := hostOf(url)
	segs := pathSegments(url)
	if len(segs) != 1 || !strings.HasPrefix(segs[0], "@") || len(segs[0]) < 2 {
		return false
	}
	return mastodonInstances[host] || strings.HasSuffix(host, ".social")
}

// ExtractID returns the account address ("user@instance") embedded in
// a profile URL, which is the network-local id for federated accounts.
func (m *Mastodon) ExtractID(url string) string {
	if !m.Recognizes(url) {
		return ""
	}
	user := strings.TrimPrefix(pathSegments(url)[0], "@")
	return user + "@" + hostOf(url)
}

// htmlTags strips markup from note and status bodies; Mastodon payloads
// carry HTML fragments.
var htmlTags = regexp.MustCompile(`<[^>]*>`)

type mastodonAccount struct {
	Username       string `json:"username"`
	Acct           string `json:"acct"`
	DisplayName    string `json:"display_name"`
	Note           string `json:"note"`
	URL            string `json:"url"`
	Avatar         string `json:"avatar"`
	Header         string `json:"header"`
	FollowersCount int    `json:"followers_count"`
	FollowingCount int    `json:"following_count"`
	StatusesCount  int    `json:"statuses_count"`
	CreatedAt      string `json:"created_at"` // RFC 3339
	Fields         []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"fields"`
	Statuses []struct {
		Content   string `json:"content"`
		CreatedAt string `json:"created_at"`
	} `json:"statuses"`
}

// Analyse normalizes a captured Mastodon account payload.
func (m *Mastodon) Analyse(raw []byte, rec ledger.Record) (*profile.Profile, error) {
	if len(raw) == 0 {
		return nil, profile.ErrEmptyRecord
	}
	var acct mastodonAccount
	if err := json.Unmarshal(raw, &acct); err != nil {
		return nil, fmt.Errorf("parse mastodon payload for uid %d: %w", rec.UID, err)
	}

	p := profile.New(rec.NetworkID, m.Name(), rec.URL)
	if p.NetworkID == "" {
		p.NetworkID = acct.Acct
	}

	if acct.DisplayName != "" {
		p.Names = append(p.Names, acct.DisplayName)
	}
	if acct.Username != "" {
		p.Names = append(p.Names, acct.Username)
	}
	if note := strings.TrimSpace(htmlTags.ReplaceAllString(acct.Note, "")); note != "" {
		p.SelfDescriptions = append(p.SelfDescriptions, note)
	}
	p.FollowerCount = acct.FollowersCount
	p.FollowingCount = acct.FollowingCount
	p.ContributionCount = acct.StatusesCount
	if acct.Avatar != "" {
		p.Avatars = append(p.Avatars, acct.Avatar)
	}
	if acct.Header != "" {
		p.Banners = append(p.Banners, acct.Header)
	}
	if ts, err := time.Parse(time.RFC3339, acct.CreatedAt); err == nil {
		p.MembershipDate = ts
	}

	var outbound []string
	for _, f := range acct.Fields {
		outbound = append(outbound, urlsIn(f.Value)...)
	}
	p.ProfileLinks, p.WebLinks = splitLinks(outbound)

	for _, st := range acct.Statuses {
		body := strings.TrimSpace(htmlTags.ReplaceAllString(st.Content, ""))
		c := profile.Content{Type: profile.ContentText, Body: body}
		if ts, err := time.Parse(time.RFC3339, st.CreatedAt); err == nil {
			c.Time = ts
			p.ActivityTimestamps = append(p.ActivityTimestamps, ts)
			if p.LastSeen.Before(ts) {
				p.LastSeen = ts
			}
		}
		p.Contents = append(p.Contents, c)
	}

	return p, nil
}

var fieldURL = regexp.MustCompile(`https?://[^\s"<>]+`)

// urlsIn extracts URLs from a field value, which may be an HTML
// fragment wrapping the link in an anchor tag.
func urlsIn(value string) []string {
	return fieldURL.FindAllString(value, -1)
}
