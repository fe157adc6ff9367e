// Package session keeps one conversation session per sender.
// Storage is in memory only and is owned by whoever constructs the Store.
package session
