// Package submissions keeps the global append-only log of account events in
// submissions.json, mirrored from the per-account event lists.
package submissions
