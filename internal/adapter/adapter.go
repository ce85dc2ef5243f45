// Package adapter defines the capability contract every memory provider must
// satisfy, and a registry mapping provider kinds to factories. The benchmark
// core depends only on this contract, never on a concrete provider.
package adapter

import (
	"context"
	"fmt"

	"github.com/openclaw/membench/internal/models"
)

// Adapter is implemented by memory providers. The container tag on each call
// is an opaque isolation key: queries scoped to one tag must never see data
// ingested under another.
type Adapter interface {
	// Name returns the adapter kind (e.g. "subprocess", "gateway").
	Name() string

	// Initialize prepares the adapter with its resolved configuration map.
	Initialize(ctx context.Context, config map[string]any) error

	// Ingest stores the given sessions under the container tag and returns an
	// opaque ingest-result payload.
	Ingest(ctx context.Context, sessions []models.Session, containerTag string) (map[string]any, error)

	// AwaitIndexing blocks until data from a previous ingest is searchable.
	AwaitIndexing(ctx context.Context, ingestResult map[string]any, containerTag string) error

	// Search returns up to limit hits for the query within the container tag.
	Search(ctx context.Context, query, containerTag string, limit int) ([]models.SearchHit, error)

	// Clear removes all data under the container tag. Idempotent; must not
	// fail when there is nothing to clear.
	Clear(ctx context.Context, containerTag string) error
}

// CommandError reports a provider subprocess or tool that ran but returned a
// failure status. Classified as an adapter-runtime failure.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command failed: %s (exit code %d)", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += "\nstderr:\n" + e.Stderr
	}
	return msg
}
