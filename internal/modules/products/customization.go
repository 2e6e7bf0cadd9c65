package products

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrInvalidCustomization = errors.New("invalid customization")

type TextField struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	MaxLength int    `json:"max_length,omitempty"`
	Required  bool   `json:"required,omitempty"`
}

// CustomizationSchema describes what a shopper may personalise on a product.
type CustomizationSchema struct {
	TextFields    []TextField `json:"text_fields,omitempty"`
	ImageUpload   bool        `json:"image_upload,omitempty"`
	ImageRequired bool        `json:"image_required,omitempty"`
	Sizes         []string    `json:"sizes,omitempty"`
}

func (s CustomizationSchema) IsZero() bool {
	return len(s.TextFields) == 0 && !s.ImageUpload && len(s.Sizes) == 0
}

// Customization is the shopper's choice for one cart or order line.
type Customization struct {
	Fields   map[string]string `json:"fields,omitempty"`
	ImageURL string            `json:"image_url,omitempty"`
	Size     string            `json:"size,omitempty"`
}

func (c Customization) IsZero() bool {
	return len(c.Fields) == 0 && c.ImageURL == "" && c.Size == ""
}

// Normalize trims values and drops empty fields.
func (c Customization) Normalize() Customization {
	out := Customization{ImageURL: strings.TrimSpace(c.ImageURL), Size: strings.TrimSpace(c.Size)}
	for k, v := range c.Fields {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		if out.Fields == nil {
			out.Fields = map[string]string{}
		}
		out.Fields[k] = v
	}
	return out
}

// Canonical returns stable JSON for the normalized customization
// (encoding/json sorts map keys). Zero customizations encode as "{}".
func (c Customization) Canonical() []byte {
	b, _ := json.Marshal(c.Normalize())
	return b
}

type FieldError struct {
	Field   string
	Message string
}

type CustomizationError struct {
	Problems []FieldError
}

func (e *CustomizationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrInvalidCustomization.Error()
	}
	return fmt.Sprintf("invalid customization: %s: %s", e.Problems[0].Field, e.Problems[0].Message)
}

func (e *CustomizationError) Unwrap() error { return ErrInvalidCustomization }

// Fields returns the problems keyed by field for API error payloads.
func (e *CustomizationError) Fields() map[string]string {
	out := make(map[string]string, len(e.Problems))
	for _, p := range e.Problems {
		out[p.Field] = p.Message
	}
	return out
}

// ValidateCustomization checks c against the product's schema. Products that
// are not customizable only accept an empty customization.
func ValidateCustomization(p Product, c Customization) error {
	c = c.Normalize()
	if !p.IsCustomizable {
		if c.IsZero() {
			return nil
		}
		return &CustomizationError{Problems: []FieldError{{Field: "customization", Message: "this product cannot be customised"}}}
	}

	schema := p.Schema()
	var probs []FieldError

	known := make(map[string]TextField, len(schema.TextFields))
	for _, f := range schema.TextFields {
		known[f.Key] = f
		v, ok := c.Fields[f.Key]
		if !ok {
			if f.Required {
				probs = append(probs, FieldError{Field: "fields." + f.Key, Message: f.Label + " is required"})
			}
			continue
		}
		if f.MaxLength > 0 && utf8.RuneCountInString(v) > f.MaxLength {
			probs = append(probs, FieldError{Field: "fields." + f.Key, Message: fmt.Sprintf("%s must be at most %d characters", f.Label, f.MaxLength)})
		}
	}
	for k := range c.Fields {
		if _, ok := known[k]; !ok {
			probs = append(probs, FieldError{Field: "fields." + k, Message: "unknown field"})
		}
	}

	switch {
	case c.ImageURL != "" && !schema.ImageUpload:
		probs = append(probs, FieldError{Field: "image_url", Message: "this product does not take an image"})
	case c.ImageURL == "" && schema.ImageUpload && schema.ImageRequired:
		probs = append(probs, FieldError{Field: "image_url", Message: "an image is required"})
	}

	if len(schema.Sizes) > 0 {
		if c.Size == "" {
			probs = append(probs, FieldError{Field: "size", Message: "choose a size"})
		} else if !contains(schema.Sizes, c.Size) {
			probs = append(probs, FieldError{Field: "size", Message: "size not available"})
		}
	} else if c.Size != "" {
		probs = append(probs, FieldError{Field: "size", Message: "this product has no sizes"})
	}

	if len(probs) > 0 {
		return &CustomizationError{Problems: probs}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
