// Package stageexec runs a single pipeline stage with the shared concerns every
// stage needs: a run id and stage name on the context, a scoped logger, the
// artifact directory lock, and notifications.
package stageexec
