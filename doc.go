// Package tdp43 is the root of a batch ETL pipeline that reconciles three
// datasets describing RNA splice-junction measurements from TDP-43
// knockdown experiments:
//
//   - a ZIP archive of parquet shards holding the junction measurement table,
//   - a CSV classification of splice-junction event categories,
//   - a CSV of sample metadata (genotype, knockdown status, rescue condition).
//
// The pipeline extracts the shards into a transient working directory, loads
// them into a single columnar table, narrows the classifications to cryptic
// event categories, joins the three datasets on the junction coordinates and
// the sample name, filters the result by the knockdown and rescue conditions,
// and aggregates a per-genotype summary. It produces three delimited text
// artifacts: the knockdown-only intermediate table, the doubly-filtered
// junction table, and the summary counts.
//
// See cmd/splicefilter for the command line entry point and
// internal/pipeline for the orchestration.
package tdp43
