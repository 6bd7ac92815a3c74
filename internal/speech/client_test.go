package speech

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rebinpro/rebin/internal/core"
)

func TestSynthesize_Success(t *testing.T) {
	audio := []byte("mp3-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("xi-api-key"); got != "test-key" {
			t.Errorf("unexpected api key header %q", got)
		}
		if !strings.HasPrefix(r.URL.Path, "/v1/text-to-speech/") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write(audio)
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})

	got := client.Synthesize(context.Background(), "hello", core.PersonalityFriendly)
	want := "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(audio)
	if got != want {
		t.Fatalf("unexpected data URL: %q", got)
	}
}

func TestSynthesize_UsesPersonalityVoice(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	client.Synthesize(context.Background(), "hello", core.PersonalityEnthusiastic)

	want := "/v1/text-to-speech/" + VoiceFor(core.PersonalityEnthusiastic).VoiceID
	if path != want {
		t.Fatalf("expected path %q, got %q", want, path)
	}
}

func TestSynthesize_MissingKey(t *testing.T) {
	client := NewClient(Config{})
	if got := client.Synthesize(context.Background(), "hello", core.PersonalityFriendly); got != "" {
		t.Fatalf("expected empty result without api key, got %q", got)
	}
}

func TestSynthesize_DownstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	if got := client.Synthesize(context.Background(), "hello", core.PersonalityFriendly); got != "" {
		t.Fatalf("expected empty result on downstream error, got %q", got)
	}
}

func TestSynthesize_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	if got := client.Synthesize(context.Background(), "hello", core.PersonalityFriendly); got != "" {
		t.Fatalf("expected empty result on transport failure, got %q", got)
	}
}

func TestVoiceFor(t *testing.T) {
	for _, p := range []core.Personality{
		core.PersonalityFriendly,
		core.PersonalityEnthusiastic,
		core.PersonalityEducational,
	} {
		v := VoiceFor(p)
		if v.PersonalityID != p {
			t.Errorf("VoiceFor(%s) returned personality %s", p, v.PersonalityID)
		}
		if v.VoiceID == "" || v.Avatar.ID == "" {
			t.Errorf("VoiceFor(%s) has empty identifiers: %+v", p, v)
		}
	}
}

func TestVoiceFor_UnknownFallsBackToFriendly(t *testing.T) {
	v := VoiceFor(core.Personality("grumpy"))
	if v.PersonalityID != core.PersonalityFriendly {
		t.Fatalf("expected friendly fallback, got %s", v.PersonalityID)
	}
}

func TestVoices_StableOrder(t *testing.T) {
	first := Voices()
	if len(first) != 3 {
		t.Fatalf("expected 3 voices, got %d", len(first))
	}
	for i := 0; i < 5; i++ {
		again := Voices()
		for j := range first {
			if again[j].PersonalityID != first[j].PersonalityID {
				t.Fatalf("voice order not stable at index %d", j)
			}
		}
	}
}
