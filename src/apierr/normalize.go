package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	ollama "github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	codeRateLimitExceeded = "rate_limit_exceeded"
	codeInvalidAPIKey     = "invalid_api_key"

	msgRateLimited        = "Rate limit exceeded. You have exceeded your API quota or requests per minute."
	msgInvalidCredentials = "Invalid API key. Please check your API key configuration."
	msgForbidden          = "Access forbidden. Please verify your API key has the necessary permissions."
	msgUnavailableFormat  = "%s service is temporarily unavailable. Please try again in a moment."
	msgDevice             = "Microphone unavailable. Allow microphone access and check that an input device is connected."
	msgFallback           = "Sorry, there was an error processing your request."
)

// Normalize classifies err for the given provider. The first matching rule wins:
// rate limit, invalid credentials, forbidden, service unavailable, then unknown.
// A nil err yields nil; an already normalized error is returned unchanged.
func Normalize(err error, provider string) *Error {
	if err == nil {
		return nil
	}
	if ne, ok := As(err); ok {
		return ne
	}
	if errors.Is(err, ErrDeviceUnavailable) {
		return &Error{Kind: KindDeviceUnavailable, Provider: provider, Message: msgDevice, Cause: err}
	}

	st, code := inspect(err)
	code = strings.ToLower(strings.TrimSpace(code))
	out := &Error{Provider: provider, Status: st, Cause: err}

	switch {
	case st == http.StatusTooManyRequests || code == codeRateLimitExceeded:
		out.Kind, out.Message = KindRateLimited, msgRateLimited
	case st == http.StatusUnauthorized || code == codeInvalidAPIKey:
		out.Kind, out.Message = KindInvalidCredentials, msgInvalidCredentials
	case st == http.StatusForbidden:
		out.Kind, out.Message = KindForbidden, msgForbidden
	case st == http.StatusInternalServerError || st == http.StatusServiceUnavailable:
		out.Kind, out.Message = KindServiceUnavailable, fmt.Sprintf(msgUnavailableFormat, displayName(provider))
	default:
		out.Kind = KindUnknown
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			out.Message = "Error: " + msg
		} else if repr := strings.TrimSpace(fmt.Sprintf("%#v", err)); repr != "" {
			out.Message = msgFallback + " (" + repr + ")"
		} else {
			out.Message = msgFallback
		}
	}
	return out
}

// inspect digs an HTTP status and provider error code out of the SDK error shapes we know.
func inspect(err error) (int, string) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, se.Code
	}

	var oaiErr *openai.APIError
	if errors.As(err, &oaiErr) {
		var code string
		if oaiErr.Code != nil {
			code = fmt.Sprint(oaiErr.Code)
		}
		return oaiErr.HTTPStatusCode, code
	}
	var oaiReq *openai.RequestError
	if errors.As(err, &oaiReq) {
		return oaiReq.HTTPStatusCode, ""
	}

	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		return antErr.StatusCode, ""
	}

	var genErr genai.APIError
	if errors.As(err, &genErr) {
		return genErr.Code, ""
	}

	var gapiErr *googleapi.Error
	if errors.As(err, &gapiErr) {
		return gapiErr.Code, ""
	}

	var olErr ollama.StatusError
	if errors.As(err, &olErr) {
		return olErr.StatusCode, ""
	}

	if s, ok := status.FromError(err); ok {
		return grpcToHTTP(s.Code()), ""
	}
	return 0, ""
}

func grpcToHTTP(c codes.Code) int {
	switch c {
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Internal:
		return http.StatusInternalServerError
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return 0
	}
}

func displayName(provider string) string {
	if strings.TrimSpace(provider) == "" {
		return "The provider"
	}
	return provider
}
