package llm

import (
	"context"
	"errors"
	"strconv"

	"google.golang.org/genai"
	"google.golang.org/grpc/codes"

	"github.com/PabloGalante/chatbot/internal/domain"
)

// classifyError turns a genai failure into a *domain.ProviderError.
func classifyError(err error) *domain.ProviderError {
	switch {
	case errors.Is(err, context.Canceled):
		return &domain.ProviderError{Code: codes.Canceled, Message: "generation canceled", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ProviderError{Code: codes.DeadlineExceeded, Message: "generation timed out", Err: err}
	}

	if apiErr, ok := asAPIError(err); ok {
		msg := apiErr.Message
		if msg == "" {
			msg = err.Error()
		}
		return &domain.ProviderError{Code: statusCode(apiErr), Message: msg, Err: err}
	}

	return &domain.ProviderError{Code: codes.Unavailable, Message: err.Error(), Err: err}
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

// statusCode maps the API status name ("PERMISSION_DENIED", ...) onto the
// canonical code, falling back to the HTTP status.
func statusCode(apiErr genai.APIError) codes.Code {
	var c codes.Code
	if apiErr.Status != "" && c.UnmarshalJSON([]byte(strconv.Quote(apiErr.Status))) == nil {
		return c
	}

	switch apiErr.Code {
	case 400:
		return codes.InvalidArgument
	case 401:
		return codes.Unauthenticated
	case 403:
		return codes.PermissionDenied
	case 404:
		return codes.NotFound
	case 429:
		return codes.ResourceExhausted
	case 503:
		return codes.Unavailable
	case 504:
		return codes.DeadlineExceeded
	}
	return codes.Unknown
}
