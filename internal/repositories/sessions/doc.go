// Package sessions persists the last bind session per account in
// sessions.json ({"sessions": [...]}). A session whose account was deleted
// is kept and ignored by readers.
package sessions
