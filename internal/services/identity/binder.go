package identity

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/partyroom/internal/model"
)

// ConnectionID identifies one transport-level connection
type ConnectionID string

// TokenVerifier turns a presented credential into a participant identity
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (model.ParticipantID, error)
}

// Binder associates connections with verified participants. A connection is
// verified once when bound and the identity is reused for every later command.
type Binder struct {
	verifier TokenVerifier
	logger   *slog.Logger

	mu     sync.RWMutex
	conns  map[ConnectionID]model.ParticipantID
	counts map[model.ParticipantID]int
}

// NewBinder creates a Binder backed by verifier
func NewBinder(verifier TokenVerifier, logger *slog.Logger) *Binder {
	return &Binder{
		verifier: verifier,
		logger:   logger.With(slog.String("component", "identity")),
		conns:    make(map[ConnectionID]model.ParticipantID),
		counts:   make(map[model.ParticipantID]int),
	}
}

// Bind verifies credential and binds the result to conn. Binding an already
// bound connection returns the existing identity without re-verifying.
func (b *Binder) Bind(ctx context.Context, conn ConnectionID, credential string) (model.ParticipantID, error) {
	if participant, err := b.Resolve(conn); err == nil {
		return participant, nil
	}

	participant, err := b.verifier.Verify(ctx, credential)
	if err != nil {
		b.logger.Debug("credential rejected",
			slog.String("connection", string(conn)),
			slog.String("error", err.Error()),
		)
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.conns[conn]; ok {
		return existing, nil
	}
	b.conns[conn] = participant
	b.counts[participant]++

	b.logger.Debug("connection bound",
		slog.String("connection", string(conn)),
		slog.String("participant", string(participant)),
	)
	return participant, nil
}

// Resolve returns the participant bound to conn
func (b *Binder) Resolve(conn ConnectionID) (model.ParticipantID, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	participant, ok := b.conns[conn]
	if !ok {
		return "", model.ErrConnectionUnbound
	}
	return participant, nil
}

// Unbind forgets conn. It reports the participant that was bound and whether
// that participant has no remaining connections.
func (b *Binder) Unbind(conn ConnectionID) (model.ParticipantID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	participant, ok := b.conns[conn]
	if !ok {
		return "", false
	}
	delete(b.conns, conn)

	b.counts[participant]--
	last := b.counts[participant] <= 0
	if last {
		delete(b.counts, participant)
	}
	return participant, last
}

// Connections returns how many live connections participant has
func (b *Binder) Connections(participant model.ParticipantID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.counts[participant]
}
