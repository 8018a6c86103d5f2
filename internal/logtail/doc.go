// Package logtail reads the tail of the application log and parses its
// lines for the activity overlay.
//
// Read keeps a ring buffer of the last N lines, so memory stays bounded by
// N regardless of file size. Parse understands both encodings the logger
// can write (console and JSON) and extracts level, logger name, message and
// structured fields; Filter combines the two with a minimum level.
package logtail
