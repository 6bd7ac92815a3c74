package detect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rebinpro/rebin/internal/core"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{URL: srv.URL})
}

func validImage() []byte {
	return []byte("fake-image-bytes")
}

func TestDetect_Success(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Write([]byte(`{"objects":[
			{"label":"plastic cup","confidence":0.92},
			{"label":"paper lid","confidence":0.81}
		]}`))
	})

	items, err := client.Detect(context.Background(), validImage(), "image/jpeg", "photo.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(items))
	}
	if items[0].Label != "plastic cup" || items[0].Confidence != 0.92 {
		t.Errorf("unexpected first detection: %+v", items[0])
	}
	if items[1].Label != "paper lid" || items[1].Confidence != 0.81 {
		t.Errorf("unexpected second detection: %+v", items[1])
	}
}

func TestDetect_MalformedObjectDropped(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"objects":[
			{"label":"plastic cup","confidence":0.92},
			{"label":"paper lid","confidence":0.81},
			{"label":"bottle","confidence":"bad"}
		]}`))
	})

	items, err := client.Detect(context.Background(), validImage(), "image/jpeg", "photo.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected malformed object to be dropped, got %d detections", len(items))
	}
}

func TestDetect_MissingLabelBecomesUnknown(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"objects":[{"confidence":0.5}]}`))
	})

	items, err := client.Detect(context.Background(), validImage(), "image/png", "p.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Label != "unknown" {
		t.Fatalf("expected unknown label, got %+v", items)
	}
}

func TestDetect_ZeroDetections(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"objects":[]}`))
	})

	items, err := client.Detect(context.Background(), validImage(), "image/jpeg", "photo.jpg")
	if err != nil {
		t.Fatalf("zero detections must not error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty list, got %d", len(items))
	}
}

func TestDetect_ServiceUnavailable(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Detect(context.Background(), validImage(), "image/jpeg", "photo.jpg")
	if core.KindOf(err) != core.FaultServiceUnavailable {
		t.Fatalf("expected service_unavailable, got %v", err)
	}
}

func TestDetect_DownstreamRejection(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.Detect(context.Background(), validImage(), "image/jpeg", "photo.jpg")
	if core.KindOf(err) != core.FaultValidation {
		t.Fatalf("expected validation_error, got %v", err)
	}
}

func TestDetect_ServerError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Detect(context.Background(), validImage(), "image/jpeg", "photo.jpg")
	if core.KindOf(err) != core.FaultCV {
		t.Fatalf("expected cv_error, got %v", err)
	}
}

func TestDetect_BadJSON(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := client.Detect(context.Background(), validImage(), "image/jpeg", "photo.jpg")
	if core.KindOf(err) != core.FaultCV {
		t.Fatalf("expected cv_error, got %v", err)
	}
}

func TestDetect_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	client := NewClient(Config{URL: srv.URL})

	_, err := client.Detect(context.Background(), validImage(), "image/jpeg", "photo.jpg")
	if core.KindOf(err) != core.FaultCV {
		t.Fatalf("expected cv_error for transport failure, got %v", err)
	}
}

func TestDetect_InputValidation(t *testing.T) {
	called := false
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	cases := []struct {
		name        string
		image       []byte
		contentType string
		filename    string
	}{
		{"missing filename", validImage(), "image/jpeg", ""},
		{"non-image content type", validImage(), "application/pdf", "doc.pdf"},
		{"empty payload", nil, "image/jpeg", "photo.jpg"},
		{"oversized payload", make([]byte, MaxImageBytes+1), "image/jpeg", "photo.jpg"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.Detect(context.Background(), tc.image, tc.contentType, tc.filename)
			if core.KindOf(err) != core.FaultValidation {
				t.Fatalf("expected validation_error, got %v", err)
			}
		})
	}

	if called {
		t.Error("validation failures must not reach the downstream endpoint")
	}
}
