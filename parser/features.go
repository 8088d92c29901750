package parser

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/models"
)

type sheetState int

const (
	awaitingTerm sheetState = iota
	awaitingValue
)

// featureSheet accumulates dt/dd pairs of a data sheet.
type featureSheet struct {
	state    sheetState
	current  int
	index    map[string]int
	features models.Features
	orphans  int
}

func newFeatureSheet() *featureSheet {
	return &featureSheet{index: make(map[string]int)}
}

// term starts (or resumes) the feature called name. No column is created
// until a value arrives. A blank name ends the current feature, so the values
// after it are orphans.
func (fs *featureSheet) term(name string) {
	if name == "" {
		fs.state = awaitingTerm
		return
	}
	idx, ok := fs.index[name]
	if !ok {
		fs.features = append(fs.features, models.Feature{Name: name})
		idx = len(fs.features) - 1
		fs.index[name] = idx
	}
	fs.current = idx
	fs.state = awaitingValue
}

func (fs *featureSheet) definition(value string) {
	if fs.state != awaitingValue {
		fs.orphans++
		return
	}
	fs.features[fs.current].Values = append(fs.features[fs.current].Values, value)
}

func (fs *featureSheet) result() models.Features {
	out := make(models.Features, 0, len(fs.features))
	for _, f := range fs.features {
		if len(f.Values) == 0 {
			continue
		}
		out = append(out, f)
	}
	return out
}

// ParseFeatures reads the dt/dd elements below list in document order. Each
// dt names a feature and every following dd adds one value to it; a repeated
// dt appends to the existing feature. Definitions that appear before any term
// are dropped and counted in orphans.
func ParseFeatures(list *goquery.Selection) (features models.Features, orphans int) {
	sheet := newFeatureSheet()
	list.Find("dt, dd").Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "dt":
			sheet.term(text(s))
		case "dd":
			sheet.definition(text(s))
		}
	})
	return sheet.result(), sheet.orphans
}
