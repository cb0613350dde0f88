package listing

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Draft is an unsaved listing held locally until the user saves it.
type Draft struct {
	Title        string   `json:"title" validate:"min=10,max=120"`
	Description  string   `json:"description" validate:"min=20,max=1200"`
	BulletPoints []string `json:"bullet_points" validate:"min=3,max=6,dive,min=2,max=180"`
	PriceMin     float64  `json:"price_min" validate:"gte=0"`
	PriceMax     float64  `json:"price_max" validate:"gte=0"`
}

// Patch holds a partial manual edit. Nil fields are left unchanged.
type Patch struct {
	Title        *string
	Description  *string
	BulletPoints []string
	PriceMin     *float64
	PriceMax     *float64
}

// Normalize returns a copy with surrounding whitespace trimmed from every string.
func (d Draft) Normalize() Draft {
	out := Draft{
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		PriceMin:    d.PriceMin,
		PriceMax:    d.PriceMax,
	}
	if d.BulletPoints != nil {
		out.BulletPoints = make([]string, len(d.BulletPoints))
		for i, bullet := range d.BulletPoints {
			out.BulletPoints[i] = strings.TrimSpace(bullet)
		}
	}
	return out
}

// Validate checks field bounds on the normalized draft, then the price range.
// Field issues are reported as *ValidationError, a reversed range as ErrInvalidPriceRange.
func (d Draft) Validate() error {
	n := d.Normalize()

	var issues []string
	if err := validate.Struct(n); err != nil {
		issues = append(issues, issuesFrom(err)...)
	}
	if !isFinite(n.PriceMin) {
		issues = append(issues, "price_min must be a finite number")
	}
	if !isFinite(n.PriceMax) {
		issues = append(issues, "price_max must be a finite number")
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}

	if n.PriceMax < n.PriceMin {
		return ErrInvalidPriceRange
	}
	return nil
}

// Apply merges a patch into the draft.
func (d Draft) Apply(p Patch) Draft {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.BulletPoints != nil {
		d.BulletPoints = append([]string(nil), p.BulletPoints...)
	}
	if p.PriceMin != nil {
		d.PriceMin = *p.PriceMin
	}
	if p.PriceMax != nil {
		d.PriceMax = *p.PriceMax
	}
	return d
}

// rawDraft keeps field presence so missing values are distinguishable from zero values.
type rawDraft struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	BulletPoints []string `json:"bullet_points"`
	PriceMin     *float64 `json:"price_min"`
	PriceMax     *float64 `json:"price_max"`
}

// Parse decodes a JSON object into a normalized, validated Draft.
// Every field must be present.
func Parse(data []byte) (Draft, error) {
	var raw rawDraft
	if err := json.Unmarshal(data, &raw); err != nil {
		return Draft{}, &ValidationError{Issues: []string{fmt.Sprintf("draft is not a valid object: %v", err)}}
	}

	var missing []string
	if raw.Title == nil {
		missing = append(missing, "title is required")
	}
	if raw.Description == nil {
		missing = append(missing, "description is required")
	}
	if raw.BulletPoints == nil {
		missing = append(missing, "bullet_points is required")
	}
	if raw.PriceMin == nil {
		missing = append(missing, "price_min is required")
	}
	if raw.PriceMax == nil {
		missing = append(missing, "price_max is required")
	}
	if len(missing) > 0 {
		return Draft{}, &ValidationError{Issues: missing}
	}

	draft := Draft{
		Title:        *raw.Title,
		Description:  *raw.Description,
		BulletPoints: raw.BulletPoints,
		PriceMin:     *raw.PriceMin,
		PriceMax:     *raw.PriceMax,
	}.Normalize()

	if err := draft.Validate(); err != nil {
		return Draft{}, err
	}
	return draft, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
