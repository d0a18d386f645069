// Package replicator implements the replication engine as a websocket client
// of the Sync Gateway changes feed.
//
// A replicator dials {endpoint}/_changes?feed=websocket with the session
// cookie, sends its feed options and then reads JSON arrays of change
// entries. An empty array means the feed has caught up: one-shot replicators
// stop there, continuous replicators report idle and keep reading.
// Continuous replicators reconnect with exponential backoff.
//
// Every received batch is written to the local DocumentStore as one mutation
// and the last sequence is saved as the endpoint's checkpoint.
package replicator
