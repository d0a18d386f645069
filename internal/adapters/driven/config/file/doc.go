// Package file provides the TOML configuration store kept in the
// replisync config directory (~/.replisync/config.toml by default).
//
// Keys are exposed in dot notation ("gateway.host") and written back as
// nested TOML tables, so hand-edited files stay readable:
//
//	[gateway]
//	host = "sync.example.com/db"
//	cert_name = "gateway"
package file
