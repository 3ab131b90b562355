// Package profile defines the network-agnostic representation of one
// social media account's observable footprint, plus the derived signals
// (best name, avatar histogram, writing style, activity profile, links)
// used by the resolver.
package profile

import (
	"errors"
	"time"
)

// Common errors returned by consumers of profile data.
var (
	ErrNotFound    = errors.New("profile not found")
	ErrEmptyRecord = errors.New("empty raw record")
)

// ContentType indicates the medium of a published content item.
type ContentType string

// Content type constants.
const (
	ContentImage ContentType = "image"
	ContentVideo ContentType = "video"
	ContentText  ContentType = "text"
	ContentLinks ContentType = "links"
)

// Content is one unit of published material: text, an image or video
// reference, or a set of links. Immutable once created.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Content struct {
	Type     ContentType        `json:"type"`
	Body     string             `json:"body,omitempty"`     // Text, or a local path for downloaded media
	Time     time.Time          `json:"time,omitempty"`     // Publication time; zero if unknown
	Location *Location          `json:"location,omitempty"` // Best geolocation for the publication event
	Category string             `json:"category,omitempty"` // Free-text categorization
	Opinions map[string]float64 `json:"opinions,omitempty"` // Open-ended opinion measurements
}

// LocationEvent records a location observed at a point in time.
type LocationEvent struct {
	Location Location  `json:"location"`
	Time     time.Time `json:"time,omitempty"`
}

// Key identifies a profile: one account on one network. Two profiles
// with equal keys describe the same account.
type Key struct {
	Network   string
	NetworkID string
}

// Profile is the normalized footprint of one account on one network.
// All attribute groups are independently optional. A Profile is built
// once by an analysis run and treated as read-only afterwards; mutating
// source fields after any derived accessor has been called is undefined.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Profile struct {
	// Identity
	Network     string    `json:"network"`
	NetworkID   string    `json:"network_id"`
	SourceURL   string    `json:"source_url,omitempty"`
	CollectedAt time.Time `json:"collected_at,omitempty"`

	// Contact
	WebLinks       []string `json:"web_links,omitempty"`     // Personal home pages and similar
	ProfileLinks   []string `json:"profile_links,omitempty"` // URLs for other profiles of the same person
	EmailAddresses []string `json:"email_addresses,omitempty"`
	PhoneNumbers   []string `json:"phone_numbers,omitempty"`

	// Biographical
	Names              []string `json:"names,omitempty"` // Usernames and display names
	SelfDescriptions   []string `json:"self_descriptions,omitempty"`
	Age                int      `json:"age,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	Education          []string `json:"education,omitempty"` // Institutions, in order
	Occupation         string   `json:"occupation,omitempty"`
	Gender             string   `json:"gender,omitempty"`
	RelationshipStatus []string `json:"relationship_status,omitempty"`
	SexualOrientation  []string `json:"sexual_orientation,omitempty"`
	Verified           bool     `json:"verified,omitempty"` // Whether the network vetted this profile
	Religion           string   `json:"religion,omitempty"`
	Physical           string   `json:"physical,omitempty"` // Physical description
	Habits             []string `json:"habits,omitempty"`

	// Visual
	Avatars      []string `json:"avatars,omitempty"` // Main profile images; local paths once downloaded
	Banners      []string `json:"banners,omitempty"` // Header or background images
	TaggedPhotos []string `json:"tagged_photos,omitempty"`

	// Opinion
	ContentOpinions map[string]float64 `json:"content_opinions,omitempty"` // In-network user content ratings
	BrandOpinions   map[string]float64 `json:"brand_opinions,omitempty"`   // In-network brand content ratings
	OtherOpinions   map[string]float64 `json:"other_opinions,omitempty"`   // Off-network content ratings

	// Temporal
	ActivityTimestamps []time.Time `json:"activity_timestamps,omitempty"`
	MembershipDate     time.Time   `json:"membership_date,omitzero"` // Estimated join date
	LastSeen           time.Time   `json:"last_seen,omitzero"`       // Estimated last activity

	// Geographical
	CurrentLocation *Location       `json:"current_location,omitempty"`
	LocationSet     []Location      `json:"location_set,omitempty"` // All locations associated with the profile
	LocationHistory []LocationEvent `json:"location_history,omitempty"`

	// Social degree
	FollowerCount     int      `json:"follower_count,omitempty"`
	FollowingCount    int      `json:"following_count,omitempty"`
	ContributionCount int      `json:"contribution_count,omitempty"`
	ViewCount         int      `json:"view_count,omitempty"`
	Reputation        float64  `json:"reputation,omitempty"`
	Trophies          []string `json:"trophies,omitempty"`
	Rank              string   `json:"rank,omitempty"`

	// Relationships
	Interacted     []*Profile `json:"interacted,omitempty"`
	Followers      []*Profile `json:"followers,omitempty"`
	FollowedBy     []*Profile `json:"followed_by,omitempty"`
	Grouped        []*Profile `json:"grouped,omitempty"`
	BrandsFollowed []*Profile `json:"brands_followed,omitempty"`
	Contributor    []*Profile `json:"contributor,omitempty"`

	// Published material
	Contents []Content `json:"contents,omitempty"`

	// Memoized derived signals, populated on first access and never
	// invalidated. Excluded from serialization; recomputed after load.
	derived derivedState
}

// New creates a Profile for an account identified by its network-local
// id, recording the source URL and collection time.
func New(networkID, network, sourceURL string) *Profile {
	return &Profile{
		Network:     network,
		NetworkID:   networkID,
		SourceURL:   sourceURL,
		CollectedAt: time.Now(),
	}
}

// Key returns the identity key for this profile. Profiles compare equal
// iff their keys are equal; the key is usable as a map key.
func (p *Profile) Key() Key {
	return Key{Network: p.Network, NetworkID: p.NetworkID}
}

// Equal reports whether two profiles describe the same account.
func (p *Profile) Equal(other *Profile) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.Key() == other.Key()
}
