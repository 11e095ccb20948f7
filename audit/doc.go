// Package audit records one entry per evaluation attempt.
//
// Sinks append entries to a JSON array file (the format the project has
// always written to logging.json), a Redis list or a SQLite table. Multi
// fans out to several sinks. Sink failures are reported to the caller, which
// logs them and carries on.
package audit
