package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidBin(t *testing.T) {
	for _, b := range []Bin{BinRecycling, BinCompost, BinTrash} {
		if !ValidBin(b) {
			t.Errorf("expected %s to be valid", b)
		}
	}
	for _, b := range []Bin{"landfill", "Recycling", ""} {
		if ValidBin(b) {
			t.Errorf("expected %s to be invalid", b)
		}
	}
}

func TestBinTitle(t *testing.T) {
	if BinRecycling.Title() != "Recycling" || BinCompost.Title() != "Compost" || BinTrash.Title() != "Trash" {
		t.Error("unexpected bin titles")
	}
}

func TestNormalizePersonality(t *testing.T) {
	cases := []struct {
		in    string
		want  Personality
		valid bool
	}{
		{"friendly", PersonalityFriendly, true},
		{"enthusiastic", PersonalityEnthusiastic, true},
		{"educational", PersonalityEducational, true},
		{"grumpy", PersonalityFriendly, false},
		{"", PersonalityFriendly, false},
		{"Friendly", PersonalityFriendly, false},
	}
	for _, tc := range cases {
		got, valid := NormalizePersonality(tc.in)
		if got != tc.want || valid != tc.valid {
			t.Errorf("NormalizePersonality(%q) = (%s, %v), want (%s, %v)", tc.in, got, valid, tc.want, tc.valid)
		}
	}
}

func TestFault_KindAndMessage(t *testing.T) {
	err := NewFault(FaultRateLimit, "slow down")
	if KindOf(err) != FaultRateLimit {
		t.Errorf("unexpected kind: %s", KindOf(err))
	}
	if MessageOf(err) != "slow down" {
		t.Errorf("unexpected message: %q", MessageOf(err))
	}
}

func TestFault_Wrapped(t *testing.T) {
	inner := errors.New("connection refused")
	err := fmt.Errorf("calling detector: %w", WrapFault(FaultCV, "Computer vision service failed", inner))

	if KindOf(err) != FaultCV {
		t.Errorf("expected cv_error through wrapping, got %s", KindOf(err))
	}
	if !errors.Is(err, inner) {
		t.Error("expected inner error to be reachable")
	}
}

func TestKindOf_Unclassified(t *testing.T) {
	err := errors.New("something broke")
	if KindOf(err) != FaultServer {
		t.Errorf("expected server_error fallback, got %s", KindOf(err))
	}
	if MessageOf(err) != "internal server error" {
		t.Errorf("expected generic message, got %q", MessageOf(err))
	}
}
