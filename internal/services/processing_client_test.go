package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NomanAhmed1999/vatika/internal/domain"
)

func newProcessingClientForTest(t *testing.T, handler http.HandlerFunc) ProcessingClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewHTTPProcessingClient(HTTPProcessingClientDeps{
		Endpoint:   server.URL,
		AuthToken:  "secret-token",
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("NewHTTPProcessingClient: %v", err)
	}
	return client
}

func TestProcessImageSendsMultipartRequest(t *testing.T) {
	var (
		gotAuth       string
		gotBackground string
		gotFile       []byte
	)
	client := newProcessingClientForTest(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		gotBackground = r.FormValue("background_color")
		file, _, err := r.FormFile("image")
		if err != nil {
			t.Errorf("FormFile: %v", err)
		} else {
			buf := make([]byte, 16)
			n, _ := file.Read(buf)
			gotFile = buf[:n]
			file.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"image_url":"https://cdn.example.com/out.jpg"}`))
	})

	result, err := client.ProcessImage(context.Background(), ProcessImageRequest{
		SessionID: "ws_1",
		FileName:  "crop.jpg",
		Data:      []byte("jpeg-bytes"),
		Concern:   domain.HairConcernDryFrizzy,
	})
	if err != nil {
		t.Fatalf("ProcessImage: %v", err)
	}
	if result.ImageURL != "https://cdn.example.com/out.jpg" {
		t.Fatalf("unexpected image url %q", result.ImageURL)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if want := domain.HairConcernDryFrizzy.BackgroundColor(); gotBackground != want {
		t.Fatalf("background_color = %q, want %q", gotBackground, want)
	}
	if string(gotFile) != "jpeg-bytes" {
		t.Fatalf("unexpected file payload %q", gotFile)
	}
}

func TestProcessImageAcceptsAlternateURLKey(t *testing.T) {
	client := newProcessingClientForTest(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"url":"https://cdn.example.com/alt.jpg"}`))
	})

	result, err := client.ProcessImage(context.Background(), ProcessImageRequest{Data: []byte("x")})
	if err != nil {
		t.Fatalf("ProcessImage: %v", err)
	}
	if result.ImageURL != "https://cdn.example.com/alt.jpg" {
		t.Fatalf("unexpected image url %q", result.ImageURL)
	}
}

func TestProcessImageErrorShapes(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantKind    ProcessingErrorKind
		wantMessage string
	}{
		{
			name:        "error key unsupported format",
			status:      http.StatusBadRequest,
			body:        `{"error":"unsupported format"}`,
			wantKind:    ProcessingErrorUnsupportedFormat,
			wantMessage: "unsupported format",
		},
		{
			name:        "detail key no face",
			status:      http.StatusUnprocessableEntity,
			body:        `{"detail":"No face detected in the uploaded image"}`,
			wantKind:    ProcessingErrorNoFaceDetected,
			wantMessage: "No face detected in the uploaded image",
		},
		{
			name:        "message key too large",
			status:      http.StatusBadRequest,
			body:        `{"message":"image size exceeds the limit"}`,
			wantKind:    ProcessingErrorTooLarge,
			wantMessage: "image size exceeds the limit",
		},
		{
			name:        "entity too large status",
			status:      http.StatusRequestEntityTooLarge,
			body:        ``,
			wantKind:    ProcessingErrorTooLarge,
			wantMessage: "processing failed",
		},
		{
			name:        "bare json string",
			status:      http.StatusBadRequest,
			body:        `"could not read image format"`,
			wantKind:    ProcessingErrorUnsupportedFormat,
			wantMessage: "could not read image format",
		},
		{
			name:        "array of messages",
			status:      http.StatusUnprocessableEntity,
			body:        `["no face found", "try another photo"]`,
			wantKind:    ProcessingErrorNoFaceDetected,
			wantMessage: "no face found; try another photo",
		},
		{
			name:        "detail as array",
			status:      http.StatusUnprocessableEntity,
			body:        `{"detail":["no face found"]}`,
			wantKind:    ProcessingErrorNoFaceDetected,
			wantMessage: "no face found",
		},
		{
			name:        "plain text body",
			status:      http.StatusBadGateway,
			body:        `upstream exploded`,
			wantKind:    ProcessingErrorUpstreamDown,
			wantMessage: "upstream exploded",
		},
		{
			name:        "internal error",
			status:      http.StatusInternalServerError,
			body:        `{"detail":"boom"}`,
			wantKind:    ProcessingErrorUpstreamDown,
			wantMessage: "boom",
		},
		{
			name:        "rate limited",
			status:      http.StatusTooManyRequests,
			body:        ``,
			wantKind:    ProcessingErrorUpstreamDown,
			wantMessage: "processing failed",
		},
		{
			name:        "unclassified",
			status:      http.StatusBadRequest,
			body:        `{"error":"something odd"}`,
			wantKind:    ProcessingErrorUnknown,
			wantMessage: "something odd",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newProcessingClientForTest(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.ProcessImage(context.Background(), ProcessImageRequest{Data: []byte("x")})
			var procErr *ProcessingError
			if !errors.As(err, &procErr) {
				t.Fatalf("expected *ProcessingError, got %v", err)
			}
			if procErr.Kind != tc.wantKind {
				t.Fatalf("kind = %q, want %q", procErr.Kind, tc.wantKind)
			}
			if procErr.Message != tc.wantMessage {
				t.Fatalf("message = %q, want %q", procErr.Message, tc.wantMessage)
			}
			if procErr.Status != tc.status {
				t.Fatalf("status = %d, want %d", procErr.Status, tc.status)
			}
		})
	}
}

func TestProcessImageUnreachableUpstream(t *testing.T) {
	client, err := NewHTTPProcessingClient(HTTPProcessingClientDeps{Endpoint: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("NewHTTPProcessingClient: %v", err)
	}

	_, err = client.ProcessImage(context.Background(), ProcessImageRequest{Data: []byte("x")})
	var procErr *ProcessingError
	if !errors.As(err, &procErr) {
		t.Fatalf("expected *ProcessingError, got %v", err)
	}
	if procErr.Kind != ProcessingErrorUpstreamDown {
		t.Fatalf("kind = %q, want %q", procErr.Kind, ProcessingErrorUpstreamDown)
	}
}

func TestProcessImageContextCancellation(t *testing.T) {
	client := newProcessingClientForTest(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.ProcessImage(ctx, ProcessImageRequest{Data: []byte("x")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestProcessImageMalformedSuccessBody(t *testing.T) {
	client := newProcessingClientForTest(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{`))
	})

	_, err := client.ProcessImage(context.Background(), ProcessImageRequest{Data: []byte("x")})
	var procErr *ProcessingError
	if !errors.As(err, &procErr) {
		t.Fatalf("expected *ProcessingError, got %v", err)
	}
	if procErr.Kind != ProcessingErrorUnknown {
		t.Fatalf("kind = %q, want %q", procErr.Kind, ProcessingErrorUnknown)
	}
}

func TestProcessImageEmptyPayload(t *testing.T) {
	client := newProcessingClientForTest(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called for an empty payload")
	})

	_, err := client.ProcessImage(context.Background(), ProcessImageRequest{})
	var procErr *ProcessingError
	if !errors.As(err, &procErr) {
		t.Fatalf("expected *ProcessingError, got %v", err)
	}
}
