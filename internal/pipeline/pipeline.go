// Package pipeline orchestrates the splice-junction ETL run: extract the
// shard archive, load the measurement table, filter the event
// classifications, join the three datasets, apply the experimental-condition
// filters, and aggregate the per-genotype summary.
//
// The run is a strictly sequential single-pass batch job. Every stage
// consumes fully materialized input and produces a new immutable table. The
// first failing stage aborts the run; the final outputs are written only
// after every stage has succeeded, while the transient working directory is
// released on every exit path.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/alex-miyake/TDP-43/pkg/archive"
	"github.com/alex-miyake/TDP-43/pkg/errors"
	"github.com/alex-miyake/TDP-43/pkg/events"
	"github.com/alex-miyake/TDP-43/pkg/shard"
	"github.com/alex-miyake/TDP-43/pkg/table"
)

// Column names shared by the three datasets
const (
	// ColJunction is the coordinate key joining measurements to events
	ColJunction = "junction_coords"
	// ColSample is the key joining measurements to sample metadata
	ColSample = "sample_name"
	// ColGenotype is the metadata genotype column
	ColGenotype = "genotype"
	// ColKnockdown is the TDP-43 knockdown indicator column
	ColKnockdown = "TDP43_kd"
	// ColRescue is the rescue-expression indicator column
	ColRescue = "rescueExpression"
)

// Experimental-condition values selected by the filters
const (
	// KnockdownPositive marks samples with TDP-43 knocked down
	KnockdownPositive = "siTDP43"
	// RescuePositive marks samples with rescue expression induced
	RescuePositive = "rescueInduced"
)

// Summary column names. TDP34_kd_associated keeps the header spelling the
// downstream consumers already depend on.
const (
	ColCrypticCount = "cryptic_count"
	ColKdAssociated = "TDP34_kd_associated"
	ColRescueCount  = "rescueInduced"
)

// Config holds every input and output path of a run. There is no implicit
// global state: a Pipeline does exactly what its Config says.
type Config struct {
	// ArchivePath is the ZIP container of parquet measurement shards
	ArchivePath string `yaml:"archive_path"`
	// EventsPath is the splice-event classification CSV
	EventsPath string `yaml:"events_path"`
	// MetadataPath is the sample metadata CSV
	MetadataPath string `yaml:"metadata_path"`
	// WorkDir is the transient directory shards are extracted into.
	// It is owned by the pipeline and removed when the run ends.
	WorkDir string `yaml:"work_dir"`

	// KnockdownOutput receives the knockdown-only intermediate table
	KnockdownOutput string `yaml:"knockdown_output"`
	// FilteredOutput receives the doubly-filtered junction table
	FilteredOutput string `yaml:"filtered_output"`
	// SummaryOutput receives the per-genotype summary counts
	SummaryOutput string `yaml:"summary_output"`

	// FooterLimit overrides the shard footer size ceiling; <= 0 keeps the
	// default
	FooterLimit int64 `yaml:"footer_limit"`
}

// Validate checks that every required path is set
func (c *Config) Validate() error {
	required := map[string]string{
		"archive_path":     c.ArchivePath,
		"events_path":      c.EventsPath,
		"metadata_path":    c.MetadataPath,
		"work_dir":         c.WorkDir,
		"knockdown_output": c.KnockdownOutput,
		"filtered_output":  c.FilteredOutput,
		"summary_output":   c.SummaryOutput,
	}
	for name, value := range required {
		if value == "" {
			return errors.Newf(errors.ErrorTypeConfig, "%s is required", name)
		}
	}
	return nil
}

// Result reports per-stage row counts. The counts are observable output for
// reporting; correctness never depends on them.
type Result struct {
	Shards          int `json:"shards"`
	MeasurementRows int `json:"measurement_rows"`
	CrypticEvents   int `json:"cryptic_events"`
	JoinedRows      int `json:"joined_rows"`
	KnockdownRows   int `json:"knockdown_rows"`
	FilteredRows    int `json:"filtered_rows"`
	Genotypes       int `json:"genotypes"`
}

// Pipeline sequences the ETL stages over one Config
type Pipeline struct {
	cfg    Config
	loader *shard.Loader
	logger *zap.Logger
}

// New creates a pipeline for the given configuration
func New(cfg Config, logger *zap.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:    cfg,
		loader: shard.NewLoader(cfg.FooterLimit, logger),
		logger: logger.With(zap.String("component", "pipeline")),
	}, nil
}

// Run executes the pipeline. It propagates the first stage failure without
// writing the final outputs; the knockdown-only intermediate is written as
// soon as it is computed. The working directory is released regardless of
// how the run ends.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	p.logger.Info("starting run",
		zap.String("archive", p.cfg.ArchivePath),
		zap.String("events", p.cfg.EventsPath),
		zap.String("metadata", p.cfg.MetadataPath))

	ext, err := archive.Extract(p.cfg.ArchivePath, p.cfg.WorkDir, p.logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ext.Cleanup(); err != nil {
			p.logger.Warn("failed to release working directory",
				zap.String("work_dir", ext.Dir), zap.Error(err))
		}
	}()

	measurements, err := p.loader.LoadAll(ctx, ext.Shards)
	if err != nil {
		return nil, err
	}

	cryptic, err := events.LoadCryptic(p.cfg.EventsPath, p.logger)
	if err != nil {
		return nil, err
	}

	joined, err := p.joinDatasets(measurements, cryptic)
	if err != nil {
		return nil, err
	}
	p.logger.Info("joined datasets",
		zap.Int("measurement_rows", measurements.NumRows()),
		zap.Int("cryptic_events", cryptic.NumRows()),
		zap.Int("joined_rows", joined.NumRows()))

	knockdown, filtered, err := p.filterConditions(joined)
	if err != nil {
		return nil, err
	}

	summary, err := p.summarize(joined)
	if err != nil {
		return nil, err
	}

	if err := table.WriteCSV(filtered, p.cfg.FilteredOutput); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeOutputWrite, "failed to write filtered table").
			WithDetail("path", p.cfg.FilteredOutput)
	}
	if err := table.WriteCSV(summary, p.cfg.SummaryOutput); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeOutputWrite, "failed to write summary table").
			WithDetail("path", p.cfg.SummaryOutput)
	}

	result := &Result{
		Shards:          len(ext.Shards),
		MeasurementRows: measurements.NumRows(),
		CrypticEvents:   cryptic.NumRows(),
		JoinedRows:      joined.NumRows(),
		KnockdownRows:   knockdown.NumRows(),
		FilteredRows:    filtered.NumRows(),
		Genotypes:       summary.NumRows(),
	}
	p.logger.Info("run complete",
		zap.Int("filtered_rows", result.FilteredRows),
		zap.Int("genotypes", result.Genotypes))
	return result, nil
}

// joinDatasets performs the two sequential inner joins: measurements with
// cryptic events on the junction coordinates, then the result with the
// sample metadata on the sample name. Unmatched rows on either side are
// dropped silently; callers wanting match statistics can compare input and
// output row counts.
func (p *Pipeline) joinDatasets(measurements, cryptic *table.Table) (*table.Table, error) {
	spliceJoined, err := table.InnerJoin(measurements, cryptic, ColJunction)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeJoinKey, "failed to join cryptic events with junctions").
			WithDetail("join", "events").
			WithDetail("key", ColJunction)
	}

	// Metadata is parsed here so its failures surface with the second join
	metadata, err := table.ReadCSV(p.cfg.MetadataPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeJoinKey, "failed to join metadata with junctions").
			WithDetail("join", "metadata").
			WithDetail("path", p.cfg.MetadataPath)
	}

	joined, err := table.InnerJoin(spliceJoined, metadata, ColSample)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeJoinKey, "failed to join metadata with junctions").
			WithDetail("join", "metadata").
			WithDetail("key", ColSample)
	}
	return joined, nil
}

// filterConditions applies the two sequential condition predicates. The
// knockdown-only intermediate is persisted unconditionally once computed,
// before the rescue filter runs.
func (p *Pipeline) filterConditions(joined *table.Table) (knockdown, filtered *table.Table, err error) {
	knockdown, err = joined.FilterEqual(ColKnockdown, KnockdownPositive)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypePredicateColumn, "knockdown filter failed").
			WithDetail("column", ColKnockdown)
	}
	p.logger.Info("filtered cryptic events to knockdown samples",
		zap.Int("rows", knockdown.NumRows()))

	if err := table.WriteCSV(knockdown, p.cfg.KnockdownOutput); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeOutputWrite, "failed to write knockdown table").
			WithDetail("path", p.cfg.KnockdownOutput)
	}

	filtered, err = knockdown.FilterEqual(ColRescue, RescuePositive)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypePredicateColumn, "rescue filter failed").
			WithDetail("column", ColRescue)
	}
	p.logger.Info("filtered knockdown events to induced rescue",
		zap.Int("rows", filtered.NumRows()))

	return knockdown, filtered, nil
}

// summarize groups the joined table by genotype and counts, per group, the
// cryptic events, the knockdown-associated events, and the rescue-induced
// events. Group order follows first occurrence; the column order is fixed.
func (p *Pipeline) summarize(joined *table.Table) (*table.Table, error) {
	if !joined.HasColumn(ColGenotype) {
		return nil, errors.Newf(errors.ErrorTypeAggregation, "joined table has no %s column", ColGenotype)
	}

	summary, err := table.GroupCount(joined, ColGenotype, []table.CountSpec{
		{Name: ColCrypticCount},
		{Name: ColKdAssociated, Column: ColKnockdown, Equals: KnockdownPositive},
		{Name: ColRescueCount, Column: ColRescue, Equals: RescuePositive},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeAggregation, "failed to count cryptic events per genotype")
	}

	p.logger.Info("counted cryptic events per genotype",
		zap.Int("genotypes", summary.NumRows()))
	return summary, nil
}
