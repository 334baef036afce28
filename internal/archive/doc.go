// Package archive turns a gzip-compressed tar stream into an immutable,
// in-memory FileTable. Extraction is all-or-nothing: a table is only returned
// after the tar end-of-archive state is reached and the gzip trailer has been
// verified, so callers never observe partially populated tables.
package archive
