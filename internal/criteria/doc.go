// Package criteria holds the static WCAG success-criterion tables: the catalog
// with tiers and tracker tags, the codes always reported as not applicable,
// the codes dropped from the report, and the fixed narratives used for fully
// supported criteria.
package criteria
