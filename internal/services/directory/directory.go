package directory

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/mcoot/partyroom/internal/model"
)

// Directory tracks which participants are connected to which session.
// It has no game semantics and keeps nothing beyond the process lifetime.
type Directory struct {
	mu       sync.RWMutex
	sessions map[model.SessionID][]model.ParticipantID
	logger   *slog.Logger
}

// DirectoryInterface defines the membership operations used by the coordinator and engines
type DirectoryInterface interface {
	Join(ctx context.Context, session model.SessionID, participant model.ParticipantID) []model.ParticipantID
	Leave(ctx context.Context, session model.SessionID, participant model.ParticipantID) []model.ParticipantID
	Participants(ctx context.Context, session model.SessionID) []model.ParticipantID
	IsMember(ctx context.Context, session model.SessionID, participant model.ParticipantID) bool
	SessionsOf(ctx context.Context, participant model.ParticipantID) []model.SessionID
	Purge(ctx context.Context, participant model.ParticipantID) []model.SessionID
}

// Ensure Directory implements DirectoryInterface
var _ DirectoryInterface = (*Directory)(nil)

// New creates an empty directory
func New(logger *slog.Logger) *Directory {
	return &Directory{
		sessions: make(map[model.SessionID][]model.ParticipantID),
		logger:   logger.With(slog.String("component", "directory")),
	}
}

// Join adds participant to session, creating the session on first join.
// Joining twice is a no-op. Returns the participants in join order.
func (d *Directory) Join(ctx context.Context, session model.SessionID, participant model.ParticipantID) []model.ParticipantID {
	d.mu.Lock()
	defer d.mu.Unlock()

	members := d.sessions[session]
	if !slices.Contains(members, participant) {
		members = append(members, participant)
		d.sessions[session] = members
		d.logger.Debug("participant joined",
			slog.String("session", string(session)),
			slog.String("participant", string(participant)),
			slog.Int("members", len(members)),
		)
	}
	return slices.Clone(members)
}

// Leave removes participant from session. Removing a non-member is a no-op.
func (d *Directory) Leave(ctx context.Context, session model.SessionID, participant model.ParticipantID) []model.ParticipantID {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.removeLocked(session, participant)
	return slices.Clone(d.sessions[session])
}

// Participants returns the members of session in join order, empty for unknown sessions
func (d *Directory) Participants(ctx context.Context, session model.SessionID) []model.ParticipantID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members := d.sessions[session]
	if members == nil {
		return []model.ParticipantID{}
	}
	return slices.Clone(members)
}

// IsMember reports whether participant belongs to session
func (d *Directory) IsMember(ctx context.Context, session model.SessionID, participant model.ParticipantID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Contains(d.sessions[session], participant)
}

// SessionsOf returns the sessions participant belongs to, sorted by ID
func (d *Directory) SessionsOf(ctx context.Context, participant model.ParticipantID) []model.SessionID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var sessions []model.SessionID
	for session, members := range d.sessions {
		if slices.Contains(members, participant) {
			sessions = append(sessions, session)
		}
	}
	slices.Sort(sessions)
	return sessions
}

// Purge removes participant from every session and returns the sessions that changed
func (d *Directory) Purge(ctx context.Context, participant model.ParticipantID) []model.SessionID {
	d.mu.Lock()
	defer d.mu.Unlock()

	var affected []model.SessionID
	for session, members := range d.sessions {
		if slices.Contains(members, participant) {
			affected = append(affected, session)
		}
	}
	for _, session := range affected {
		d.removeLocked(session, participant)
	}
	slices.Sort(affected)

	if len(affected) > 0 {
		d.logger.Info("participant purged",
			slog.String("participant", string(participant)),
			slog.Int("sessions", len(affected)),
		)
	}
	return affected
}

// removeLocked drops participant from session. The emptied session keeps its
// entry so a later join finds it again; callers hold d.mu.
func (d *Directory) removeLocked(session model.SessionID, participant model.ParticipantID) {
	members, ok := d.sessions[session]
	if !ok {
		return
	}
	idx := slices.Index(members, participant)
	if idx < 0 {
		return
	}
	d.sessions[session] = slices.Delete(members, idx, idx+1)
	d.logger.Debug("participant left",
		slog.String("session", string(session)),
		slog.String("participant", string(participant)),
	)
}
