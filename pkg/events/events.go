// Package events loads splice-junction event classifications and narrows
// them to cryptic event categories.
package events

import (
	"go.uber.org/zap"

	"github.com/alex-miyake/TDP-43/pkg/errors"
	"github.com/alex-miyake/TDP-43/pkg/table"
)

// CategoryColumn is the classification column of the events file
const CategoryColumn = "junc_cat"

// JunctionColumn is the coordinate key the measurements are joined on
const JunctionColumn = "junction_coords"

// CrypticCategories are the event categories counted as cryptic splicing.
// Matching is exact and case-sensitive; any other category is dropped, not
// an error.
var CrypticCategories = []string{
	"novel_acceptor",
	"novel_exon_skip",
	"novel_donor",
}

// LoadCryptic reads the classification file and retains only cryptic rows.
// An empty result is valid. It fails with an event_parse error when the file
// cannot be parsed as a table with a junc_cat column.
func LoadCryptic(path string, logger *zap.Logger) (*table.Table, error) {
	logger = logger.With(zap.String("component", "events"))

	t, err := table.ReadCSV(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeEventParse, "failed to parse classification file").
			WithDetail("path", path)
	}
	if !t.HasColumn(CategoryColumn) {
		return nil, errors.Newf(errors.ErrorTypeEventParse, "classification file has no %s column", CategoryColumn).
			WithDetail("path", path)
	}

	filtered, err := t.FilterIn(CategoryColumn, CrypticCategories)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeEventParse, "failed to filter classifications")
	}

	logger.Info("filtered splice events to cryptic categories",
		zap.Int("total", t.NumRows()),
		zap.Int("cryptic", filtered.NumRows()))

	return filtered, nil
}
