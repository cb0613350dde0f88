package generation

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"listing-generator/internal/listing"
)

// Request is a single provider call. Structured asks the provider to constrain its
// output to the listing draft schema.
type Request struct {
	SystemInstruction string
	UserText          string
	Image             *Image
	Structured        bool
}

// Provider generates text from a request. HTTP-level failures are reported as *CallError.
type Provider interface {
	GenerateContent(ctx context.Context, req Request) (string, error)
}

// Service turns a generation payload into a validated listing draft.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	provider        Provider
	fetcher         ImageFetcher
	rules           Rules
	schemaRejection *SchemaRejection
	logger          zerolog.Logger
}

type Option func(*Service)

func WithImageFetcher(fetcher ImageFetcher) Option {
	return func(s *Service) {
		s.fetcher = fetcher
	}
}

func WithRules(rules Rules) Option {
	return func(s *Service) {
		s.rules = rules
	}
}

func WithSchemaRejection(rejection *SchemaRejection) Option {
	return func(s *Service) {
		s.schemaRejection = rejection
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(provider Provider, opts ...Option) *Service {
	defaultRejection, _ := NewSchemaRejection(DefaultSchemaRejectionPatterns)
	s := &Service{
		provider:        provider,
		fetcher:         NewImageDownloader(),
		rules:           DefaultRules(),
		schemaRejection: defaultRejection,
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate validates the payload, calls the provider and validates its output.
// Every failure is a *ProviderError.
func (s *Service) Generate(ctx context.Context, payload listing.Payload) (listing.Draft, error) {
	payload = payload.Normalize()
	if err := payload.Validate(); err != nil {
		return listing.Draft{}, invalidPayload(err)
	}

	req := Request{
		SystemInstruction: ListingPrompt,
		UserText:          userText(payload),
		Structured:        true,
	}

	if payload.Mode == listing.ModeImage {
		image, err := s.fetcher.Fetch(ctx, payload.ImageURL)
		if err != nil {
			s.logger.Warn().Err(err).Str("image_url", payload.ImageURL).Msg("image fetch failed")
			return listing.Draft{}, imageFailure(err)
		}
		req.Image = image
	}

	text, err := s.provider.GenerateContent(ctx, req)
	if err != nil {
		status, details := describeCallError(err)
		if s.schemaRejection.Matches(status, details) {
			s.logger.Info().Int("status", status).Str("details", details).
				Msg("provider rejected structured output, retrying without schema")
			req.Structured = false
			text, err = s.provider.GenerateContent(ctx, req)
		}
	}

	if err != nil {
		status, details := describeCallError(err)
		perr := s.rules.Classify(status, details)
		s.logger.Error().
			Int("provider_status", status).
			Str("code", string(perr.Code)).
			Bool("retryable", perr.Retryable).
			Str("details", details).
			Msg("provider call failed")
		return listing.Draft{}, perr
	}

	draft, err := parseDraftOutput(text)
	if err != nil {
		s.logger.Warn().Err(err).Msg("provider output rejected")
		return listing.Draft{}, err
	}
	return draft, nil
}

func invalidPayload(err error) *ProviderError {
	var details any = []string{err.Error()}
	var vErr *listing.ValidationError
	if errors.As(err, &vErr) {
		details = vErr.Issues
	}
	return &ProviderError{
		Code:    CodeRequestFailed,
		Status:  http.StatusBadRequest,
		Message: "Invalid request payload.",
		Details: details,
	}
}

func imageFailure(err error) *ProviderError {
	switch {
	case errors.Is(err, ErrImageEmpty):
		return &ProviderError{Code: CodeRequestFailed, Status: http.StatusBadRequest, Message: "Uploaded image is empty."}
	case errors.Is(err, ErrImageTooLarge):
		return &ProviderError{Code: CodeRequestFailed, Status: http.StatusBadRequest, Message: "Uploaded image is too large for AI processing."}
	default:
		return &ProviderError{
			Code:    CodeRequestFailed,
			Status:  http.StatusBadGateway,
			Message: "Image download failed.",
			Details: truncateDetails(err.Error()),
		}
	}
}
