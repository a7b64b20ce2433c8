package apierr

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	ollama "github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type blankErr struct{}

func (blankErr) Error() string { return "" }

func TestNormalizeClassification(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		provider string
		want     Kind
	}{
		{"status 429", &StatusError{StatusCode: 429}, "huggingface", KindRateLimited},
		{"status 401", &StatusError{StatusCode: 401}, "huggingface", KindInvalidCredentials},
		{"status 403", &StatusError{StatusCode: 403}, "huggingface", KindForbidden},
		{"status 500", &StatusError{StatusCode: 500}, "huggingface", KindServiceUnavailable},
		{"status 503", &StatusError{StatusCode: 503}, "huggingface", KindServiceUnavailable},
		{"status 502 is unknown", &StatusError{StatusCode: 502}, "huggingface", KindUnknown},
		{"wrapped status", fmt.Errorf("edit: %w", &StatusError{StatusCode: 429}), "huggingface", KindRateLimited},
		{"openai rate limit code", &openai.APIError{HTTPStatusCode: 400, Code: "rate_limit_exceeded", Message: "slow down"}, "openai", KindRateLimited},
		{"openai invalid key code", &openai.APIError{Code: "invalid_api_key", Message: "bad key"}, "openai", KindInvalidCredentials},
		{"openai request error", &openai.RequestError{HTTPStatusCode: 503, Err: errors.New("down")}, "nvidia", KindServiceUnavailable},
		{"googleapi forbidden", &googleapi.Error{Code: 403, Message: "nope"}, "gemini", KindForbidden},
		{"genai rate limit", genai.APIError{Code: 429, Message: "quota"}, "gemini", KindRateLimited},
		{"ollama unavailable", ollama.StatusError{StatusCode: 503, Status: "503 Service Unavailable"}, "ollama", KindServiceUnavailable},
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "quota"), "gemini", KindRateLimited},
		{"grpc unauthenticated", status.Error(codes.Unauthenticated, "key"), "gemini", KindInvalidCredentials},
		{"grpc permission", status.Error(codes.PermissionDenied, "no"), "gemini", KindForbidden},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), "gemini", KindServiceUnavailable},
		{"plain message", errors.New("boom"), "meta", KindUnknown},
		{"device", fmt.Errorf("%w: permission denied", ErrDeviceUnavailable), "microphone", KindDeviceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.err, tc.provider)
			if got == nil {
				t.Fatal("Normalize returned nil")
			}
			if got.Kind != tc.want {
				t.Fatalf("kind = %s, want %s (message %q)", got.Kind, tc.want, got.Message)
			}
			if got.Provider != tc.provider {
				t.Fatalf("provider = %q, want %q", got.Provider, tc.provider)
			}
			if strings.TrimSpace(got.Message) == "" {
				t.Fatal("normalized error must carry a message")
			}
			if got.Cause == nil {
				t.Fatal("cause not preserved")
			}
		})
	}
}

func TestNormalizeServiceUnavailableNamesProvider(t *testing.T) {
	got := Normalize(&StatusError{StatusCode: 503}, "nvidia")
	if !strings.Contains(got.Message, "nvidia") {
		t.Fatalf("expected provider in message, got %q", got.Message)
	}
}

func TestNormalizeUnknownEchoesMessage(t *testing.T) {
	got := Normalize(errors.New("model overloaded"), "meta")
	if got.Kind != KindUnknown {
		t.Fatalf("kind = %s", got.Kind)
	}
	if got.Message != "Error: model overloaded" {
		t.Fatalf("message = %q", got.Message)
	}
}

func TestNormalizeBlankErrorFallsBack(t *testing.T) {
	got := Normalize(blankErr{}, "openai")
	if got.Kind != KindUnknown {
		t.Fatalf("kind = %s", got.Kind)
	}
	if !strings.HasPrefix(got.Message, msgFallback) {
		t.Fatalf("message = %q", got.Message)
	}
}

func TestNormalizeNilAndPassthrough(t *testing.T) {
	if Normalize(nil, "gemini") != nil {
		t.Fatal("nil error must normalize to nil")
	}

	first := Normalize(&StatusError{StatusCode: 401}, "claude")
	again := Normalize(fmt.Errorf("outer: %w", first), "gemini")
	if again != first {
		t.Fatal("already normalized errors must pass through unchanged")
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("send: %w", Normalize(&StatusError{StatusCode: 429}, "openai"))
	if !errors.Is(err, &Error{Kind: KindRateLimited}) {
		t.Fatal("errors.Is should match on kind")
	}
	if errors.Is(err, &Error{Kind: KindForbidden}) {
		t.Fatal("errors.Is must not match a different kind")
	}
	if KindOf(err) != KindRateLimited {
		t.Fatalf("KindOf = %s", KindOf(err))
	}
	if KindOf(errors.New("x")) != KindUnknown {
		t.Fatal("KindOf on a raw error should be unknown")
	}
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{Provider: "huggingface", StatusCode: 503, Body: " loading "}
	want := "huggingface: http 503 Service Unavailable: loading"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
