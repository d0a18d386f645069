// Package files provides a directory-backed implementation of driven.DocumentStore.
//
// Each document is one JSON file named after its URL-escaped ID. Writes go
// through a temporary file and a rename so readers never see a partial
// document. The directory is watched with fsnotify, so edits made by other
// processes appear on the change feed alongside the store's own mutations.
//
// Checkpoints live in the same directory under a reserved file name.
package files
