package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/models"
)

// Presence says what happens when a field's selector matches nothing.
type Presence int

const (
	// Optional fields resolve to null.
	Optional Presence = iota
	// Required fields fail the whole record.
	Required
)

// Policy maps each field to its presence rule. Unlisted fields are optional.
type Policy map[models.Field]Presence

// DefaultPolicy requires the title and the data sheet.
func DefaultPolicy() Policy {
	return Policy{
		models.FieldTitle:    Required,
		models.FieldFeatures: Required,
	}
}

// PolicyFromRequired builds a policy in which exactly the named fields are
// required.
func PolicyFromRequired(names []string) (Policy, error) {
	policy := make(Policy, len(names))
	for _, name := range names {
		field := models.Field(strings.TrimSpace(name))
		known := false
		for _, f := range models.Fields {
			if f == field {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown field %q", name)
		}
		policy[field] = Required
	}
	return policy, nil
}

func (p Policy) required(field models.Field) bool {
	return p[field] == Required
}

// MissingFieldError reports a required field whose selector matched nothing.
type MissingFieldError struct {
	Field    models.Field
	Selector string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field %s not found (selector %q)", e.Field, e.Selector)
}

// Extraction is the outcome of parsing one product page.
type Extraction struct {
	Record *models.ProductRecord
	// OrphanDefinitions counts data sheet values that had no preceding term.
	OrphanDefinitions int
}

// ExtractProduct reads the scalar fields and the data sheet of a product page.
func ExtractProduct(doc *goquery.Document, sel config.Selectors, policy Policy, pageURL string) (*Extraction, error) {
	record := &models.ProductRecord{URL: pageURL}
	out := &Extraction{Record: record}

	lookups := []struct {
		field    models.Field
		selector string
		find     func() (string, bool)
		assign   func(string)
	}{
		{
			field:    models.FieldProductID,
			selector: sel.Reference + " " + sel.ReferenceText,
			find: func() (string, bool) {
				return firstText(doc.Find(sel.Reference).First().Find(sel.ReferenceText))
			},
			assign: func(v string) { record.ProductID = &v },
		},
		{
			field:    models.FieldTitle,
			selector: sel.Title,
			find:     func() (string, bool) { return firstText(doc.Find(sel.Title)) },
			assign:   func(v string) { record.Title = v },
		},
		{
			field:    models.FieldPrice,
			selector: sel.Price,
			find:     func() (string, bool) { return firstText(doc.Find(sel.Price)) },
			assign:   func(v string) { record.Price = &v },
		},
		{
			field:    models.FieldBrand,
			selector: sel.BrandImage,
			find: func() (string, bool) {
				alt, ok := doc.Find(sel.BrandImage).First().Attr("alt")
				return strings.TrimSpace(alt), ok
			},
			assign: func(v string) { record.Brand = &v },
		},
	}

	for _, l := range lookups {
		value, ok := l.find()
		if !ok {
			if policy.required(l.field) {
				return nil, &MissingFieldError{Field: l.field, Selector: l.selector}
			}
			continue
		}
		l.assign(value)
	}

	list := doc.Find(sel.FeatureList).First()
	if list.Length() == 0 {
		if policy.required(models.FieldFeatures) {
			return nil, &MissingFieldError{Field: models.FieldFeatures, Selector: sel.FeatureList}
		}
		return out, nil
	}
	record.Features, out.OrphanDefinitions = ParseFeatures(list)

	return out, nil
}

func firstText(s *goquery.Selection) (string, bool) {
	if s.Length() == 0 {
		return "", false
	}
	return text(s.First()), true
}
