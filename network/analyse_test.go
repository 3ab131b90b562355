package network

import (
	"errors"
	"testing"

	"github.com/codeGROOVE-dev/doppel/ledger"
	"github.com/codeGROOVE-dev/doppel/profile"
)

func TestTwitterAnalyse(t *testing.T) {
	raw := []byte(`{
		"screen_name": "janedoe",
		"name": "Jane Doe",
		"description": "hiker and coder",
		"location": "Manchester, UK",
		"url": "https://janedoe.example.com",
		"verified": true,
		"followers_count": 120,
		"friends_count": 80,
		"statuses_count": 2,
		"created_at": "Wed Jan 02 09:00:00 +0000 2013",
		"profile_image_url_https": "https://pbs.example.com/avatar.jpg",
		"entities": {"url": {"urls": [{"expanded_url": "https://github.com/janedoe"}]}},
		"tweets": [
			{"text": "morning run done", "created_at": "Mon Mar 04 09:15:00 +0000 2019"},
			{"text": "check https://example.org/post", "created_at": "Mon Mar 04 22:30:00 +0000 2019",
			 "coordinates": {"coordinates": [-2.2426, 53.4808]}}
		]
	}`)

	rec := ledger.Record{UID: 3, NetworkID: "janedoe", URL: "https://twitter.com/janedoe", SearchTerm: "jane doe"}
	p, err := (&Twitter{}).Analyse(raw, rec)
	if err != nil {
		t.Fatalf("Analyse() error: %v", err)
	}

	if p.Network != "twitter" || p.NetworkID != "janedoe" {
		t.Errorf("identity = %s/%s, want twitter/janedoe", p.Network, p.NetworkID)
	}
	if p.BestName() != "Jane Doe" {
		t.Errorf("BestName() = %q, want %q", p.BestName(), "Jane Doe")
	}
	if !p.Verified || p.FollowerCount != 120 || p.FollowingCount != 80 {
		t.Errorf("degree fields = %v/%d/%d", p.Verified, p.FollowerCount, p.FollowingCount)
	}
	if len(p.ActivityTimestamps) != 2 {
		t.Fatalf("got %d activity timestamps, want 2", len(p.ActivityTimestamps))
	}
	if p.CurrentLocation == nil || !p.CurrentLocation.Near(profile.Place("Manchester")) {
		t.Error("current location should be near Manchester")
	}
	if len(p.ProfileLinks) != 1 || p.ProfileLinks[0] != "https://github.com/janedoe" {
		t.Errorf("ProfileLinks = %v, want the github link", p.ProfileLinks)
	}
	if len(p.WebLinks) != 1 || p.WebLinks[0] != "https://janedoe.example.com" {
		t.Errorf("WebLinks = %v, want the personal site", p.WebLinks)
	}
	if len(p.Links()) != 1 || p.Links()[0] != "https://example.org/post" {
		t.Errorf("Links() = %v, want the embedded tweet link", p.Links())
	}
	if p.MembershipDate.Year() != 2013 {
		t.Errorf("MembershipDate year = %d, want 2013", p.MembershipDate.Year())
	}
}

func TestGitHubAnalyse(t *testing.T) {
	raw := []byte(`{
		"login": "janedoe",
		"name": "Jane Doe",
		"bio": "systems tinkerer",
		"company": "Example Corp",
		"location": "Manchester",
		"blog": "https://janedoe.example.com",
		"avatar_url": "https://avatars.example.com/u/1",
		"followers": 12,
		"following": 7,
		"public_repos": 2,
		"created_at": "2015-06-01T10:00:00Z",
		"repos": [
			{"name": "toolbox", "description": "a bag of scripts",
			 "html_url": "https://github.com/janedoe/toolbox", "pushed_at": "2019-03-04T21:00:00Z"}
		]
	}`)

	p, err := (&GitHub{}).Analyse(raw, ledger.Record{UID: 4, URL: "https://github.com/janedoe"})
	if err != nil {
		t.Fatalf("Analyse() error: %v", err)
	}

	if p.NetworkID != "janedoe" {
		t.Errorf("NetworkID = %q, want janedoe (taken from payload)", p.NetworkID)
	}
	if p.Occupation != "Example Corp" {
		t.Errorf("Occupation = %q", p.Occupation)
	}
	if len(p.ActivityTimestamps) != 1 {
		t.Errorf("got %d activity timestamps, want 1", len(p.ActivityTimestamps))
	}
	if got := p.Links(); len(got) != 1 || got[0] != "https://github.com/janedoe/toolbox" {
		t.Errorf("Links() = %v, want the repo link", got)
	}
}

func TestMastodonAnalyse(t *testing.T) {
	raw := []byte(`{
		"username": "jane",
		"acct": "jane@mastodon.social",
		"display_name": "Jane Doe",
		"note": "<p>photographer in <a href=\"https://example.com\">Manchester</a></p>",
		"avatar": "https://files.example.com/avatar.png",
		"followers_count": 50,
		"following_count": 25,
		"statuses_count": 1,
		"created_at": "2020-01-15T08:30:00Z",
		"fields": [{"name": "code", "value": "<a href=\"https://github.com/janedoe\">github.com/janedoe</a>"}],
		"statuses": [{"content": "<p>hello fediverse</p>", "created_at": "2021-02-03T18:00:00Z"}]
	}`)

	p, err := (&Mastodon{}).Analyse(raw, ledger.Record{UID: 5, NetworkID: "jane@mastodon.social"})
	if err != nil {
		t.Fatalf("Analyse() error: %v", err)
	}

	if len(p.SelfDescriptions) != 1 || p.SelfDescriptions[0] != "photographer in Manchester" {
		t.Errorf("SelfDescriptions = %v, want stripped note", p.SelfDescriptions)
	}
	if len(p.ProfileLinks) != 1 || p.ProfileLinks[0] != "https://github.com/janedoe" {
		t.Errorf("ProfileLinks = %v, want the github field link", p.ProfileLinks)
	}
	if len(p.Contents) != 1 || p.Contents[0].Body != "hello fediverse" {
		t.Errorf("Contents = %v, want stripped status body", p.Contents)
	}
}

func TestAnalyseMalformed(t *testing.T) {
	nets := []Network{&Twitter{}, &Instagram{}, &GitHub{}, &Mastodon{}}
	for _, n := range nets {
		t.Run(n.Name(), func(t *testing.T) {
			if _, err := n.Analyse([]byte("{not json"), ledger.Record{UID: 1}); err == nil {
				t.Error("Analyse() should reject malformed payloads")
			}
			_, err := n.Analyse(nil, ledger.Record{UID: 1})
			if !errors.Is(err, profile.ErrEmptyRecord) {
				t.Errorf("Analyse(nil) error = %v, want ErrEmptyRecord", err)
			}
		})
	}
}
