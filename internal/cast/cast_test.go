package cast

import (
	"encoding/json"
	"testing"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		author   Author
		want     string
		wantErr  bool
	}{
		{
			name:   "name preferred over username",
			author: Author{Name: "Alice", Username: "alice"},
			want:   "Alice",
		},
		{
			name:   "falls back to username",
			author: Author{Username: "alice"},
			want:   "alice",
		},
		{
			name:    "neither present",
			author:  Author{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Cast{Author: tt.author}
			got, err := c.DisplayName()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDisplayName_NullNameJSON(t *testing.T) {
	var c Cast
	if err := json.Unmarshal([]byte(`{"author":{"name":null,"username":"alice"}}`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got, err := c.DisplayName()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "alice" {
		t.Errorf("DisplayName() = %q, want %q", got, "alice")
	}
}

func TestPermalink(t *testing.T) {
	c := &Cast{
		Hash:   "abcdef1234567890",
		Author: Author{Username: "alice"},
	}

	want := "https://warpcast.com/alice/abcdef123456"
	if got := c.Permalink(); got != want {
		t.Errorf("Permalink() = %q, want %q", got, want)
	}
}

func TestPermalink_ShortHash(t *testing.T) {
	c := &Cast{
		Hash:   "abc",
		Author: Author{Username: "bob"},
	}

	want := "https://warpcast.com/bob/abc"
	if got := c.Permalink(); got != want {
		t.Errorf("Permalink() = %q, want %q", got, want)
	}
}

func TestEnvelopeNode(t *testing.T) {
	var empty *Envelope
	if empty.Node() != nil {
		t.Error("nil envelope should have nil node")
	}

	noData := &Envelope{}
	if noData.Node() != nil {
		t.Error("envelope without data should have nil node")
	}

	withNode := &Envelope{Data: &EnvelopeData{Node: &Cast{Hash: "ff"}}}
	if withNode.Node() == nil || withNode.Node().Hash != "ff" {
		t.Error("envelope node not returned")
	}
}

func TestEnvelopeChannelID(t *testing.T) {
	env := &Envelope{Data: &EnvelopeData{Channel: &Channel{ID: "dev"}}}
	if got := env.ChannelID(); got != "dev" {
		t.Errorf("ChannelID() = %q, want %q", got, "dev")
	}

	noChannel := &Envelope{Data: &EnvelopeData{}}
	if got := noChannel.ChannelID(); got != "" {
		t.Errorf("ChannelID() = %q, want empty", got)
	}
}

func TestDecisionRecommended(t *testing.T) {
	if !(Decision{Decision: DecisionRecommend}).Recommended() {
		t.Error("recommend decision should be recommended")
	}
	if (Decision{Decision: DecisionInappropriate}).Recommended() {
		t.Error("inappropriate decision should not be recommended")
	}
	if StopDecision().Recommended() {
		t.Error("stop decision should not be recommended")
	}
}
