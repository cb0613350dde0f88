package orchestrator

import (
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"listing-generator/internal/listing"
)

const (
	MaxImageBytes     = 10 * 1024 * 1024
	minTextWords      = 4
	minTextLength     = 20
	minMeaningfulWord = 3
)

// AcceptedImageTypes lists the content types an uploaded image may have.
var AcceptedImageTypes = []string{"image/jpeg", "image/png", "image/webp"}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "any": {}, "for": {}, "from": {}, "good": {}, "great": {},
	"have": {}, "in": {}, "is": {}, "it": {}, "my": {}, "nice": {}, "on": {}, "or": {},
	"product": {}, "sale": {}, "sell": {}, "selling": {}, "some": {}, "stuff": {}, "the": {},
	"this": {}, "to": {}, "used": {}, "with": {},
}

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]`)
	lower    = cases.Lower(language.Und)
)

// InputError is a local validation failure. It never reaches the network.
type InputError struct {
	Mode    listing.Mode
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// ImageFile is a user-selected image.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Input is one submission from the user.
type Input struct {
	Mode  listing.Mode
	Text  string
	Image *ImageFile
}

func (in Input) Validate() error {
	switch in.Mode {
	case listing.ModeImage:
		return ValidateImage(in.Image)
	case listing.ModeText:
		return ValidateText(in.Text)
	default:
		return &InputError{Mode: in.Mode, Message: "Choose image or text mode."}
	}
}

// ValidateText rejects empty, short, or vague product descriptions.
func ValidateText(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &InputError{Mode: listing.ModeText, Message: "Enter product details to continue."}
	}

	words := strings.Fields(trimmed)
	if len(words) < minTextWords || len(trimmed) < minTextLength {
		return &InputError{Mode: listing.ModeText, Message: "Add specific details like brand, model, condition, and accessories."}
	}

	meaningful := 0
	for _, word := range words {
		if isMeaningful(word) {
			meaningful++
		}
	}
	if meaningful < minMeaningfulWord {
		return &InputError{Mode: listing.ModeText, Message: "Input is too vague. Include concrete product details before generating."}
	}
	return nil
}

func isMeaningful(word string) bool {
	normalized := nonAlnum.ReplaceAllString(lower.String(word), "")
	if len(normalized) <= 2 {
		return false
	}
	_, stop := stopWords[normalized]
	return !stop
}

// ValidateImage checks presence, type, and size of an image file.
func ValidateImage(file *ImageFile) error {
	if file == nil {
		return &InputError{Mode: listing.ModeImage, Message: "Select an image to continue."}
	}
	if !slices.Contains(AcceptedImageTypes, file.ContentType) {
		return &InputError{Mode: listing.ModeImage, Message: "Use a JPG, PNG, or WEBP image."}
	}
	if len(file.Data) > MaxImageBytes {
		return &InputError{Mode: listing.ModeImage, Message: "Image must be 10MB or smaller."}
	}
	return nil
}

// ObjectPath names an upload as {userID}/{random}.{ext}.
func ObjectPath(userID, fileName string) string {
	ext := nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimPrefix(path.Ext(fileName), ".")), "")
	if ext == "" {
		ext = "jpg"
	}
	return userID + "/" + uuid.NewString() + "." + ext
}
