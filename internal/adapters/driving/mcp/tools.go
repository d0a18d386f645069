package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/replisync/internal/core/domain"
)

// latestWait bounds how long a status read waits for the hub replay.
const latestWait = time.Second

// RequestSyncInput is the input schema for the request_sync tool.
type RequestSyncInput struct{}

// SetContinuousInput is the input schema for the set_continuous tool.
type SetContinuousInput struct {
	Enabled bool `json:"enabled" jsonschema:"true to start the continuous job, false to stop it"`
}

// StatusInput is the input schema for the sync_status tool.
type StatusInput struct{}

// LaneOutput is the latest status of one replication lane.
type LaneOutput struct {
	Activity  string `json:"activity"`
	Completed uint64 `json:"completed"`
	Total     uint64 `json:"total"`
	Attempt   int    `json:"attempt"`
	Error     string `json:"error,omitempty"`
}

// StatusOutput is the output schema for the status tools.
type StatusOutput struct {
	State             string      `json:"state"`
	OneShot           *LaneOutput `json:"one_shot,omitempty"`
	Continuous        *LaneOutput `json:"continuous,omitempty"`
	ContinuousRunning bool        `json:"continuous_running"`
	JobID             string      `json:"job_id,omitempty"`
	JobStartedAt      *time.Time  `json:"job_started_at,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "request_sync",
		Description: "Start a one-shot sync, or queue one if a sync is already running",
	}, s.handleRequestSync)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "set_continuous",
		Description: "Start or stop the continuous replication job",
	}, s.handleSetContinuous)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_status",
		Description: "Report the coordinator state and the latest status of both lanes",
	}, s.handleStatus)
}

func (s *Server) handleRequestSync(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ RequestSyncInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	s.ports.Coordinator.RequestSync()
	return nil, s.status(ctx), nil
}

func (s *Server) handleSetContinuous(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SetContinuousInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	s.ports.Coordinator.SetContinuous(input.Enabled)
	return nil, s.status(ctx), nil
}

func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return nil, s.status(ctx), nil
}

func (s *Server) status(ctx context.Context) StatusOutput {
	c := s.ports.Coordinator
	out := StatusOutput{
		State:             c.State().String(),
		OneShot:           latest(ctx, c.Subscribe),
		Continuous:        latest(ctx, c.SubscribeContinuous),
		ContinuousRunning: c.ContinuousRunning(),
	}
	if job, ok := c.InFlight(); ok {
		started := job.StartedAt
		out.JobID = job.ID
		out.JobStartedAt = &started
	}
	return out
}

// latest reads the event a fresh subscription replays. Nil means no
// event arrived in time.
func latest(ctx context.Context, subscribe func(context.Context) <-chan domain.StatusEvent) *LaneOutput {
	ctx, cancel := context.WithTimeout(ctx, latestWait)
	defer cancel()

	select {
	case ev, ok := <-subscribe(ctx):
		if !ok {
			return nil
		}
		return laneOutput(ev)
	case <-ctx.Done():
		return nil
	}
}

func laneOutput(ev domain.StatusEvent) *LaneOutput {
	out := &LaneOutput{
		Activity:  ev.Status.Activity.String(),
		Completed: ev.Status.Progress.Completed,
		Total:     ev.Status.Progress.Total,
		Attempt:   ev.Attempt,
	}
	if ev.Status.Err != nil {
		out.Error = ev.Status.Err.Error()
	}
	return out
}
