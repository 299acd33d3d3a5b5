// Package archive keeps a history of comparison runs in a SQLite
// database, so a later invocation can list what regressed and when.
//
// A Run is a compat.Reporter: pass it to compat.NewChecker (usually
// alongside a console reporter via compat.MultiReporter) and every event
// is stored under the run's id.
package archive
