package network

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/doppel/ledger"
	"github.com/codeGROOVE-dev/doppel/profile"
)

// twitterTimeLayout is the legacy API timestamp format.
const twitterTimeLayout = "Mon Jan 02 15:04:05 -0700 2006"

// Twitter recognizes twitter.com / x.com profile URLs and normalizes
// captured user objects (legacy v1.1 shape with embedded tweets).
type Twitter struct{}

// Name returns the network identifier.
func (*Twitter) Name() string { return "twitter" }

// twitterNonProfiles are path roots that are never usernames.
var twitterNonProfiles = map[string]bool{
	"home": true, "search": true, "explore": true, "settings": true,
	"notifications": true, "messages": true, "hashtag": true, "i": true,
	"intent": true, "share": true, "login": true, "signup": true,
	"tos": true, "privacy": true, "about": true,
}

// Recognizes reports whether the URL is a Twitter profile URL.
func (*Twitter) Recognizes(url string) bool {
	host := hostOf(url)
	if host != "twitter.com" && host != "x.com" && host != "mobile.twitter.com" {
		return false
	}
	segs := pathSegments(url)
	if len(segs) != 1 {
		return false
	}
	return !twitterNonProfiles[strings.ToLower(segs[0])]
}

// ExtractID returns the username portion of a profile URL.
func (t *Twitter) ExtractID(url string) string {
	if !t.Recognizes(url) {
		return ""
	}
	return strings.TrimPrefix(pathSegments(url)[0], "@")
}

type twitterUser struct {
	IDStr          string `json:"id_str"`
	ScreenName     string `json:"screen_name"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Location       string `json:"location"`
	URL            string `json:"url"`
	Verified       bool   `json:"verified"`
	FollowersCount int    `json:"followers_count"`
	FriendsCount   int    `json:"friends_count"`
	StatusesCount  int    `json:"statuses_count"`
	CreatedAt      string `json:"created_at"`
	ProfileImage   string `json:"profile_image_url_https"`
	ProfileBanner  string `json:"profile_banner_url"`
	Entities       struct {
		URL struct {
			URLs []struct {
				ExpandedURL string `json:"expanded_url"`
			} `json:"urls"`
		} `json:"url"`
	} `json:"entities"`
	Tweets []twitterTweet `json:"tweets"`
}

type twitterTweet struct {
	Text        string `json:"text"`
	CreatedAt   string `json:"created_at"`
	Coordinates *struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat]
	} `json:"coordinates"`
}

// Analyse normalizes a captured Twitter user payload.
func (t *Twitter) Analyse(raw []byte, rec ledger.Record) (*profile.Profile, error) {
	if len(raw) == 0 {
		return nil, profile.ErrEmptyRecord
	}
	var user twitterUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("parse twitter payload for uid %d: %w", rec.UID, err)
	}

	p := profile.New(rec.NetworkID, t.Name(), rec.URL)
	if p.NetworkID == "" {
		p.NetworkID = user.ScreenName
	}

	if user.Name != "" {
		p.Names = append(p.Names, user.Name)
	}
	if user.ScreenName != "" {
		p.Names = append(p.Names, user.ScreenName)
	}
	if user.Description != "" {
		p.SelfDescriptions = append(p.SelfDescriptions, user.Description)
	}
	p.Verified = user.Verified
	p.FollowerCount = user.FollowersCount
	p.FollowingCount = user.FriendsCount
	p.ContributionCount = user.StatusesCount

	if user.Location != "" {
		loc := profile.Place(user.Location)
		p.CurrentLocation = &loc
		p.LocationSet = append(p.LocationSet, loc)
	}
	if user.ProfileImage != "" {
		p.Avatars = append(p.Avatars, user.ProfileImage)
	}
	if user.ProfileBanner != "" {
		p.Banners = append(p.Banners, user.ProfileBanner)
	}
	if ts, err := time.Parse(twitterTimeLayout, user.CreatedAt); err == nil {
		p.MembershipDate = ts
	}

	var outbound []string
	if user.URL != "" {
		outbound = append(outbound, user.URL)
	}
	for _, u := range user.Entities.URL.URLs {
		outbound = append(outbound, u.ExpandedURL)
	}
	p.ProfileLinks, p.WebLinks = splitLinks(outbound)

	for _, tw := range user.Tweets {
		c := profile.Content{Type: profile.ContentText, Body: tw.Text}
		if ts, err := time.Parse(twitterTimeLayout, tw.CreatedAt); err == nil {
			c.Time = ts
			p.ActivityTimestamps = append(p.ActivityTimestamps, ts)
			if p.LastSeen.Before(ts) {
				p.LastSeen = ts
			}
		}
		if tw.Coordinates != nil && len(tw.Coordinates.Coordinates) == 2 {
			loc := profile.Coordinates(tw.Coordinates.Coordinates[0], tw.Coordinates.Coordinates[1])
			c.Location = &loc
			p.LocationSet = append(p.LocationSet, loc)
			p.LocationHistory = append(p.LocationHistory, profile.LocationEvent{Location: loc, Time: c.Time})
		}
		p.Contents = append(p.Contents, c)
	}

	return p, nil
}
