package listing

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Mode selects which kind of input a generation starts from.
type Mode string

const (
	ModeImage Mode = "image"
	ModeText  Mode = "text"
)

const MaxTextLength = 5000

// Payload is the minimal generation input: an image URL or product text, never both.
type Payload struct {
	Mode     Mode   `json:"mode"`
	ImageURL string `json:"imageUrl,omitempty"`
	Text     string `json:"text,omitempty"`
}

func NewImagePayload(imageURL string) Payload {
	return Payload{Mode: ModeImage, ImageURL: imageURL}
}

func NewTextPayload(text string) Payload {
	return Payload{Mode: ModeText, Text: strings.TrimSpace(text)}
}

// Normalize trims the text variant.
func (p Payload) Normalize() Payload {
	p.Text = strings.TrimSpace(p.Text)
	return p
}

// Validate checks that exactly one variant is populated and well formed.
func (p Payload) Validate() error {
	p = p.Normalize()

	var issues []string
	switch p.Mode {
	case ModeImage:
		if p.ImageURL == "" {
			issues = append(issues, "imageUrl is required for image mode.")
		} else if err := validate.Var(p.ImageURL, "url"); err != nil {
			issues = append(issues, "imageUrl must be a valid URL")
		}
		if p.Text != "" {
			issues = append(issues, "text is not allowed in image mode.")
		}
	case ModeText:
		if p.Text == "" {
			issues = append(issues, "text is required for text mode.")
		} else if utf8.RuneCountInString(p.Text) > MaxTextLength {
			issues = append(issues, fmt.Sprintf("text must be at most %d characters", MaxTextLength))
		}
		if p.ImageURL != "" {
			issues = append(issues, "imageUrl is not allowed in text mode.")
		}
	default:
		issues = append(issues, "mode must be one of: image, text")
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
