// Package mcp provides an MCP (Model Context Protocol) server adapter for replisync.
// It lets assistants request syncs and read replication status and local documents.
package mcp

import "errors"

// ErrMissingCoordinator is returned when the sync coordinator is not provided.
var ErrMissingCoordinator = errors.New("mcp: sync coordinator is required")
