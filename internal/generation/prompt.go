package generation

import (
	"strings"

	"github.com/lithammer/dedent"
	"listing-generator/internal/listing"
)

var ListingPrompt = strings.TrimSpace(dedent.Dedent(`
	You generate marketplace listing drafts from either product text or a product image.

	Return only data that fits the required JSON schema and avoid markdown.
	Write concise, accurate copy with no fabricated details.
	When an image is provided, only infer details that are visually evident.
	Price range must be realistic and in USD.
`))

func userText(p listing.Payload) string {
	if p.Mode == listing.ModeImage {
		return "Input mode: image. Generate listing details from the provided image only."
	}
	return "Input mode: text.\nProduct details: " + p.Text
}
