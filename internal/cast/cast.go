// Package cast defines the domain types flowing through the castsift
// pipeline: upstream feed envelopes, the casts they carry, and the
// decisions produced by evaluating a cast against a subscription prompt.
package cast

import (
	"errors"
	"fmt"
)

// PermalinkBase is the public URL prefix casts are linked under.
const PermalinkBase = "https://warpcast.com"

// permalinkHashLen is how many leading hex characters of the cast hash
// appear in the permalink.
const permalinkHashLen = 12

// ErrNoAuthor is returned when a cast carries neither an author name nor a
// username.
var ErrNoAuthor = errors.New("cast has no author name or username")

// Envelope is one decoded upstream feed event. The full payload is retained
// so it can be attached verbatim to delivered decisions.
type Envelope struct {
	Data *EnvelopeData `json:"data"`
}

// EnvelopeData is the data object inside a feed event.
type EnvelopeData struct {
	Node    *Cast    `json:"node"`
	Channel *Channel `json:"channel,omitempty"`
}

// Channel identifies the channel a cast was posted in.
type Channel struct {
	ID string `json:"id"`
}

// Node returns the cast carried by the envelope, or nil if the envelope has
// no root data node. Envelopes without a node are structurally malformed and
// must be rejected before evaluation.
func (e *Envelope) Node() *Cast {
	if e == nil || e.Data == nil {
		return nil
	}
	return e.Data.Node
}

// ChannelID returns the channel id carried by the envelope, if any.
func (e *Envelope) ChannelID() string {
	if e == nil || e.Data == nil || e.Data.Channel == nil {
		return ""
	}
	return e.Data.Channel.ID
}

// Author is the cast author. Name is the display name and may be absent;
// Username is the account handle.
type Author struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Cast is one normalized feed update. Link and ChannelID are derived during
// dispatch; the rest comes from the upstream payload. A Cast is not mutated
// after dispatch normalization.
type Cast struct {
	Hash      string `json:"hash"`
	Author    Author `json:"author"`
	Text      string `json:"text"`
	Link      string `json:"link,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
}

// DisplayName resolves the author's display name, preferring the name and
// falling back to the username.
func (c *Cast) DisplayName() (string, error) {
	if c.Author.Name != "" {
		return c.Author.Name, nil
	}
	if c.Author.Username != "" {
		return c.Author.Username, nil
	}
	return "", ErrNoAuthor
}

// ProfileURL returns the author's public profile URL.
func (c *Cast) ProfileURL() string {
	return fmt.Sprintf("%s/%s", PermalinkBase, c.Author.Username)
}

// Permalink derives the cast's permanent link from the author username and
// the first 12 hex characters of the hash.
func (c *Cast) Permalink() string {
	hash := c.Hash
	if len(hash) > permalinkHashLen {
		hash = hash[:permalinkHashLen]
	}
	return fmt.Sprintf("%s/%s/%s", PermalinkBase, c.Author.Username, hash)
}
