package handlers

import (
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/contacthub/internal/domain/contact"
)

func TestContactETag_TracksVersion(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c := contact.Contact{
		ID:        "6f1c0a5e-3b5c-4a53-9d2e-2f6b1c9d8e7a",
		Name:      "John",
		Email:     "john@example.com",
		Phone:     "123-456-7890",
		OwnerID:   "owner-1",
		CreatedAt: at,
		UpdatedAt: at,
	}

	tag := contactETag(c)
	if !strings.HasPrefix(tag, `W/"`) || !strings.HasSuffix(tag, `"`) {
		t.Fatalf("expected weak etag, got %s", tag)
	}
	if contactETag(c) != tag {
		t.Fatalf("etag is not stable for an unchanged contact")
	}

	touched := c
	touched.UpdatedAt = at.Add(time.Microsecond)
	if contactETag(touched) == tag {
		t.Fatalf("etag did not change with updatedAt")
	}

	sameTick := c
	sameTick.Favorite = true
	if contactETag(sameTick) == tag {
		t.Fatalf("etag did not change when favorite flipped on the same tick")
	}

	other := c
	other.ID = "0b8e9a1c-6d4f-4e2a-8c3b-5a7d9e1f2b4c"
	if contactETag(other) == tag {
		t.Fatalf("two contacts share an etag")
	}
}

func TestETagMatches(t *testing.T) {
	current := `W/"abc"`

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{name: "empty", header: "", want: false},
		{name: "exact", header: `W/"abc"`, want: true},
		{name: "strong_form", header: `"abc"`, want: true},
		{name: "wildcard", header: "*", want: true},
		{name: "list", header: `"zzz", W/"abc"`, want: true},
		{name: "different", header: `W/"abd"`, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := etagMatches(tt.header, current); got != tt.want {
				t.Fatalf("etagMatches(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}
