// Package connectors holds the adapters that bring journal entries in from
// outside the store. The filesystem connector reads dated entry files and
// watches a journal directory for edits.
package connectors
