package repository

import "context"

// IdentityCache is a fast-path dedup check in front of the warehouse. It is
// advisory only: the warehouse conflict handling remains authoritative, so a
// cold or unavailable cache degrades to extra no-op writes, never to
// duplicates or data loss.
type IdentityCache interface {
	// Seen reports whether the identity was committed by an earlier run.
	Seen(ctx context.Context, eventID string) (bool, error)

	// MarkSeen records an identity after its fact row is committed.
	MarkSeen(ctx context.Context, eventID string) error
}
