// Package catalog records materialized datasets in a SQLite database.
//
// Each entry is keyed by the configuration fingerprint that names the
// materialization directory and carries its build id, row counts and
// location. The store follows the same WAL + busy-retry pattern as the rest
// of the on-disk state so concurrent CLI invocations do not trip over each
// other.
package catalog
