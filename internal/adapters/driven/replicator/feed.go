package replicator

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/custodia-labs/replisync/internal/core/domain"
)

// feedOptions is the first message sent on a changes feed connection.
type feedOptions struct {
	Since       string `json:"since,omitempty"`
	IncludeDocs bool   `json:"include_docs"`
	Style       string `json:"style"`
	Continuous  bool   `json:"continuous"`
}

// changeEntry is one row of a changes feed batch.
type changeEntry struct {
	Seq     json.RawMessage `json:"seq"`
	ID      string          `json:"id"`
	Deleted bool            `json:"deleted,omitempty"`
	Removed []string        `json:"removed,omitempty"`
	Changes []struct {
		Rev string `json:"rev"`
	} `json:"changes"`
	Doc json.RawMessage `json:"doc,omitempty"`
}

// sequence returns the entry's sequence as a string. Gateways send either
// numbers or strings such as "12:34".
func (e changeEntry) sequence() string {
	raw := strings.TrimSpace(string(e.Seq))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		return unquoted
	}
	return raw
}

// rev returns the leaf revision of the entry.
func (e changeEntry) rev() string {
	if len(e.Changes) == 0 {
		return ""
	}
	return e.Changes[0].Rev
}

// internal reports whether the entry is gateway bookkeeping such as a _user doc.
func (e changeEntry) internal() bool {
	return strings.HasPrefix(e.ID, "_")
}

// removed reports whether the document was deleted or revoked from our channels.
func (e changeEntry) removed() bool {
	return e.Deleted || len(e.Removed) > 0
}

// splitBatch separates a batch into documents to store and IDs to delete.
func splitBatch(entries []changeEntry) (upserts []domain.Document, deletes []string, lastSeq string) {
	for _, e := range entries {
		if seq := e.sequence(); seq != "" && seq != "null" {
			lastSeq = seq
		}
		if e.ID == "" || e.internal() {
			continue
		}
		if e.removed() {
			deletes = append(deletes, e.ID)
			continue
		}
		upserts = append(upserts, domain.Document{
			ID:   e.ID,
			Rev:  e.rev(),
			Body: e.Doc,
		})
	}
	return upserts, deletes, lastSeq
}
