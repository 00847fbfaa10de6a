// Package backup writes and replays logical dumps of a DecentDB database.
//
// A dump is JSON lines: a header, one record per table schema, one per
// explicit index and one per row, values in the same wire form the
// write-ahead log uses.
//
//	stats, err := backup.DumpTo(ctx, db, "s3://bucket/nightly.ndjson", nil)
//	stats, err = backup.RestoreFrom(ctx, fresh, "s3://bucket/nightly.ndjson", nil)
//
// Locations may be local paths, file:// URLs, s3://bucket/key (AWS default
// credential chain unless an S3Config is given) or, for restore only,
// http(s):// URLs.
package backup
