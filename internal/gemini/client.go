package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
	"listing-generator/internal/generation"
)

const DefaultModel = "gemini-2.5-flash-lite"

// Client implements generation.Provider on the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// ResolveModel trims the configured model and strips a "models/" prefix.
func ResolveModel(raw string) string {
	model := strings.TrimSpace(raw)
	if model == "" {
		return DefaultModel
	}
	return strings.TrimPrefix(model, "models/")
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client, model: ResolveModel(model)}, nil
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) GenerateContent(ctx context.Context, req generation.Request) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{
		genai.NewContentFromParts(buildParts(req), genai.RoleUser),
	}, buildConfig(req))
	if err != nil {
		return "", toCallError(err)
	}
	if result == nil {
		return "", nil
	}

	if result.UsageMetadata != nil {
		log.Info().
			Str("model", c.model).
			Bool("structured", req.Structured).
			Int("inputTokens", int(result.UsageMetadata.PromptTokenCount)).
			Int("outputTokens", int(result.UsageMetadata.CandidatesTokenCount)).
			Msg("gemini listing generation")
	}

	return result.Text(), nil
}

func buildParts(req generation.Request) []*genai.Part {
	parts := []*genai.Part{genai.NewPartFromText(req.UserText)}
	if req.Image != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: req.Image.Data, MIMEType: req.Image.MIMEType},
		})
	}
	return parts
}

func buildConfig(req generation.Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.Structured {
		config.ResponseSchema = DraftSchema()
	}
	return config
}

// DraftSchema is the structured output shape of a listing draft.
func DraftSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": {
				Type:        genai.TypeString,
				Description: "Listing title, 10 to 120 characters.",
			},
			"description": {
				Type:        genai.TypeString,
				Description: "Listing description, 20 to 1200 characters.",
			},
			"bullet_points": {
				Type:        genai.TypeArray,
				Description: "Between 3 and 6 short selling points.",
				Items:       &genai.Schema{Type: genai.TypeString},
				MinItems:    genai.Ptr[int64](3),
				MaxItems:    genai.Ptr[int64](6),
			},
			"price_min": {
				Type:        genai.TypeNumber,
				Description: "Lowest realistic price in USD, not negative.",
				Minimum:     genai.Ptr[float64](0),
			},
			"price_max": {
				Type:        genai.TypeNumber,
				Description: "Highest realistic price in USD, not below price_min.",
				Minimum:     genai.Ptr[float64](0),
			},
		},
		Required:         []string{"title", "description", "bullet_points", "price_min", "price_max"},
		PropertyOrdering: []string{"title", "description", "bullet_points", "price_min", "price_max"},
	}
}

// toCallError maps Gemini API errors to generation.CallError so the service can
// classify them. Transport errors pass through unchanged.
func toCallError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &generation.CallError{Status: apiErr.Code, Message: apiErrorMessage(apiErr)}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &generation.CallError{Status: apiErrPtr.Code, Message: apiErrorMessage(*apiErrPtr)}
	}
	return err
}

func apiErrorMessage(apiErr genai.APIError) string {
	if apiErr.Message != "" {
		return apiErr.Message
	}
	return apiErr.Status
}
