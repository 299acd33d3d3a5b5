// Package compat detects machine-type ABI drift between two emulator
// snapshots.
//
// For every machine type common to both snapshots the Checker
//
//   - expands the machine's compat properties over the devtype hierarchy
//     (Expand),
//   - resolves the effective value of each overridden device property on
//     both sides (Resolver): explicit override, then the declared
//     instance or class default, then the historical-default table,
//   - compares the two values with type-aware rules (Tables.CompareProperty),
//   - compares the remaining machine fields by per-field policy
//     (Tables.CompareField).
//
// Results are emitted as leveled Events to a Reporter: ERROR for a proven
// mismatch, WARN when ground truth can't be determined, DEBUG for
// successful comparisons. Counting failures is left to the caller.
//
// The knowledge tables (enum catalog, historical defaults, field policies
// and fixups) live in data/tables.yaml and can be replaced with LoadTables.
package compat
