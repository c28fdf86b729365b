// Package renderer turns criterion assessments into an OpenACR YAML report.
//
// Each assessment is mapped to the report's adherence vocabulary with fixed
// overrides applied first, bucketed into the level A, AA and AAA chapters, and
// combined with a header template and static boilerplate chapters. The encoded
// document is parsed again before it is written.
package renderer
