package generation

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"listing-generator/internal/listing"
)

var fencedBlock = regexp.MustCompile("(?i)```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// extractJSON returns the output as JSON, or the first fenced code block when the
// output itself does not parse.
func extractJSON(text string) ([]byte, bool) {
	trimmed := []byte(strings.TrimSpace(text))
	if json.Valid(trimmed) {
		return trimmed, true
	}

	match := fencedBlock.FindStringSubmatch(text)
	if match == nil {
		return nil, false
	}
	fenced := []byte(match[1])
	if !json.Valid(fenced) {
		return nil, false
	}
	return fenced, true
}

func invalidResponse(message string, details any) *ProviderError {
	return &ProviderError{
		Code:    CodeInvalidResponse,
		Status:  http.StatusBadGateway,
		Message: message,
		Details: details,
	}
}

// parseDraftOutput turns provider text into a validated draft.
func parseDraftOutput(text string) (listing.Draft, error) {
	if strings.TrimSpace(text) == "" {
		return listing.Draft{}, invalidResponse("AI provider returned no structured output.", nil)
	}

	raw, ok := extractJSON(text)
	if !ok {
		return listing.Draft{}, invalidResponse("AI output was not valid JSON.", nil)
	}

	draft, err := listing.Parse(raw)
	if err == nil {
		return draft, nil
	}
	if errors.Is(err, listing.ErrInvalidPriceRange) {
		return listing.Draft{}, invalidResponse("AI produced an invalid price range.", nil)
	}

	var vErr *listing.ValidationError
	if errors.As(err, &vErr) {
		return listing.Draft{}, invalidResponse("AI output did not match the listing draft schema.", vErr.Issues)
	}
	return listing.Draft{}, invalidResponse("AI output did not match the listing draft schema.", err.Error())
}
