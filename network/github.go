package network

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/doppel/ledger"
	"github.com/codeGROOVE-dev/doppel/profile"
)

// GitHub recognizes github.com profile URLs and normalizes captured
// user payloads (REST user object with embedded repos and events).
type GitHub struct{}

// Name returns the network identifier.
func (*GitHub) Name() string { return "github" }

var githubNonProfiles = map[string]bool{
	"features": true, "security": true, "enterprise": true, "topics": true,
	"trending": true, "marketplace": true, "sponsors": true, "orgs": true,
	"login": true, "join": true, "pricing": true, "about": true,
	"explore": true, "new": true, "settings": true, "notifications": true,
	"issues": true, "pulls": true, "search": true, "apps": true,
}

// Recognizes reports whether the URL is a GitHub profile URL.
func (*GitHub) Recognizes(url string) bool {
	if hostOf(url) != "github.com" {
		return false
	}
	segs := pathSegments(url)
	if len(segs) != 1 {
		return false
	}
	return !githubNonProfiles[strings.ToLower(segs[0])]
}

// ExtractID returns the username portion of a profile URL.
func (g *GitHub) ExtractID(url string) string {
	if !g.Recognizes(url) {
		return ""
	}
	return pathSegments(url)[0]
}

type githubUser struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Bio         string `json:"bio"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Blog        string `json:"blog"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatar_url"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	PublicRepos int    `json:"public_repos"`
	CreatedAt   string `json:"created_at"` // RFC 3339
	Repos       []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		HTMLURL     string `json:"html_url"`
		PushedAt    string `json:"pushed_at"`
	} `json:"repos"`
	Events []struct {
		CreatedAt string `json:"created_at"`
	} `json:"events"`
}

// Analyse normalizes a captured GitHub user payload.
func (g *GitHub) Analyse(raw []byte, rec ledger.Record) (*profile.Profile, error) {
	if len(raw) == 0 {
		return nil, profile.ErrEmptyRecord
	}
	var user githubUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("parse github payload for uid %d: %w", rec.UID, err)
	}

	p := profile.New(rec.NetworkID, g.Name(), rec.URL)
	if p.NetworkID == "" {
		p.NetworkID = user.Login
	}

	if user.Name != "" {
		p.Names = append(p.Names, user.Name)
	}
	if user.Login != "" {
		p.Names = append(p.Names, user.Login)
	}
	if user.Bio != "" {
		p.SelfDescriptions = append(p.SelfDescriptions, user.Bio)
	}
	if user.Company != "" {
		p.Occupation = user.Company
	}
	if user.Email != "" {
		p.EmailAddresses = append(p.EmailAddresses, user.Email)
	}
	p.FollowerCount = user.Followers
	p.FollowingCount = user.Following
	p.ContributionCount = user.PublicRepos

	if user.Location != "" {
		loc := profile.Place(user.Location)
		p.CurrentLocation = &loc
		p.LocationSet = append(p.LocationSet, loc)
	}
	if user.AvatarURL != "" {
		p.Avatars = append(p.Avatars, user.AvatarURL)
	}
	if ts, err := time.Parse(time.RFC3339, user.CreatedAt); err == nil {
		p.MembershipDate = ts
	}
	p.ProfileLinks, p.WebLinks = splitLinks([]string{user.Blog})

	for _, r := range user.Repos {
		if r.Description != "" {
			p.Contents = append(p.Contents, profile.Content{
				Type:     profile.ContentText,
				Body:     r.Description,
				Category: r.Name,
			})
		}
		if r.HTMLURL != "" {
			p.Contents = append(p.Contents, profile.Content{Type: profile.ContentLinks, Body: r.HTMLURL})
		}
		if ts, err := time.Parse(time.RFC3339, r.PushedAt); err == nil {
			p.ActivityTimestamps = append(p.ActivityTimestamps, ts)
			if p.LastSeen.Before(ts) {
				p.LastSeen = ts
			}
		}
	}
	for _, e := range user.Events {
		if ts, err := time.Parse(time.RFC3339, e.CreatedAt); err == nil {
			p.ActivityTimestamps = append(p.ActivityTimestamps, ts)
			if p.LastSeen.Before(ts) {
				p.LastSeen = ts
			}
		}
	}

	return p, nil
}
