// Package registry maintains the ordered attribute/threshold watch list that
// scans are built from. Entries are deduplicated by attribute reference and
// addressed by index, matching the row-oriented editing surface of the API.
// The registry owns no scan state — a scan reads the list once at start and
// never writes back.
package registry
