package network

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/doppel/ledger"
	"github.com/codeGROOVE-dev/doppel/profile"
)

// Instagram recognizes instagram.com profile URLs and normalizes
// captured user payloads.
type Instagram struct{}

// Name returns the network identifier.
func (*Instagram) Name() string { return "instagram" }

var instagramNonProfiles = map[string]bool{
	"p": true, "reel": true, "reels": true, "stories": true, "explore": true,
	"accounts": true, "direct": true, "about": true, "developer": true,
	"legal": true, "directory": true,
}

// Recognizes reports whether the URL is an Instagram profile URL.
func (*Instagram) Recognizes(url string) bool {
	if hostOf(url) != "instagram.com" {
		return false
	}
	segs := pathSegments(url)
	if len(segs) != 1 {
		return false
	}
	return !instagramNonProfiles[strings.ToLower(segs[0])]
}

// ExtractID returns the username portion of a profile URL.
func (i *Instagram) ExtractID(url string) string {
	if !i.Recognizes(url) {
		return ""
	}
	return pathSegments(url)[0]
}

type instagramUser struct {
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	Biography      string `json:"biography"`
	ExternalURL    string `json:"external_url"`
	ProfilePicURL  string `json:"profile_pic_url"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
	MediaCount     int    `json:"media_count"`
	IsVerified     bool   `json:"is_verified"`
	Media          []struct {
		Caption  string `json:"caption"`
		TakenAt  int64  `json:"taken_at"` // Unix seconds
		Location *struct {
			Name string  `json:"name"`
			Lat  float64 `json:"lat"`
			Lng  float64 `json:"lng"`
		} `json:"location"`
	} `json:"media"`
}

// Analyse normalizes a captured Instagram user payload.
func (i *Instagram) Analyse(raw []byte, rec ledger.Record) (*profile.Profile, error) {
	if len(raw) == 0 {
		return nil, profile.ErrEmptyRecord
	}
	var user instagramUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("parse instagram payload for uid %d: %w", rec.UID, err)
	}

	p := profile.New(rec.NetworkID, i.Name(), rec.URL)
	if p.NetworkID == "" {
		p.NetworkID = user.Username
	}

	if user.FullName != "" {
		p.Names = append(p.Names, user.FullName)
	}
	if user.Username != "" {
		p.Names = append(p.Names, user.Username)
	}
	if user.Biography != "" {
		p.SelfDescriptions = append(p.SelfDescriptions, user.Biography)
	}
	p.Verified = user.IsVerified
	p.FollowerCount = user.FollowerCount
	p.FollowingCount = user.FollowingCount
	p.ContributionCount = user.MediaCount
	if user.ProfilePicURL != "" {
		p.Avatars = append(p.Avatars, user.ProfilePicURL)
	}
	p.ProfileLinks, p.WebLinks = splitLinks([]string{user.ExternalURL})

	for _, m := range user.Media {
		c := profile.Content{Type: profile.ContentText, Body: m.Caption}
		if m.TakenAt > 0 {
			c.Time = time.Unix(m.TakenAt, 0)
			p.ActivityTimestamps = append(p.ActivityTimestamps, c.Time)
			if p.LastSeen.Before(c.Time) {
				p.LastSeen = c.Time
			}
		}
		if m.Location != nil {
			var loc profile.Location
			if m.Location.Lat != 0 || m.Location.Lng != 0 {
				loc = profile.Coordinates(m.Location.Lng, m.Location.Lat)
			} else {
				loc = profile.Place(m.Location.Name)
			}
			c.Location = &loc
			p.LocationSet = append(p.LocationSet, loc)
			p.LocationHistory = append(p.LocationHistory, profile.LocationEvent{Location: loc, Time: c.Time})
		}
		p.Contents = append(p.Contents, c)
	}

	return p, nil
}
