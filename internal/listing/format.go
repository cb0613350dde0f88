package listing

import (
	"strconv"
	"strings"
)

// FormatListing renders a draft as plain text ready to paste into a marketplace form.
func FormatListing(d Draft) string {
	var bullets []string
	for _, bullet := range d.BulletPoints {
		if b := strings.TrimSpace(bullet); b != "" {
			bullets = append(bullets, "- "+b)
		}
	}

	sections := []string{
		strings.TrimSpace(d.Title),
		strings.Join(bullets, "\n"),
		strings.TrimSpace(d.Description),
		"Price range: $" + formatPrice(d.PriceMin) + " - $" + formatPrice(d.PriceMax),
	}

	out := make([]string, 0, len(sections))
	for _, s := range sections {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n\n")
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
