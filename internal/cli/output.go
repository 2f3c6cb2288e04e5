package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/mcoot/partyroom/internal/api/response"
	"github.com/mcoot/partyroom/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	w      io.Writer
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(w io.Writer, format string) *Output {
	return &Output{w: w, format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Player:
		o.printPlayer(v)
	case response.AuthResponse:
		o.printAuth(v)
	case response.Room:
		o.printRoom(v)
	case response.RoomList:
		for i, room := range v.Rooms {
			if i > 0 {
				fmt.Fprintln(o.w)
			}
			o.printRoom(room)
		}
	case response.Participants:
		fmt.Fprintf(o.w, "Session: %s\n", v.SessionID)
		fmt.Fprintf(o.w, "Participants: %s\n", joinOrNone(v.Participants))
	case response.History:
		o.printHistory(v)
	case *model.Snapshot:
		o.printSnapshot(v)
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printPlayer(p response.Player) {
	guestStr := "no"
	if p.IsGuest {
		guestStr = "yes"
	}
	fmt.Fprintf(o.w, "Player: %s (%s)\n", p.DisplayName, p.ID)
	fmt.Fprintf(o.w, "Guest: %s\n", guestStr)
}

func (o *Output) printAuth(a response.AuthResponse) {
	o.printPlayer(a.Player)
	fmt.Fprintf(o.w, "Token: %s\n", a.Token)
	fmt.Fprintf(o.w, "Expires: %s\n", a.ExpiresAt.Format("2006-01-02 15:04:05"))
}

func (o *Output) printRoom(r response.Room) {
	fmt.Fprintf(o.w, "Room: %s (%s)\n", r.ID, r.Name)
	fmt.Fprintf(o.w, "Game: %s\n", r.GameType)
	fmt.Fprintf(o.w, "Players: %d/%d %s\n", len(r.Participants), r.MaxPlayers, joinOrNone(r.Participants))
	fmt.Fprintf(o.w, "Created by: %s\n", r.CreatedBy)
}

func (o *Output) printHistory(h response.History) {
	fmt.Fprintf(o.w, "Session: %s\n", h.SessionID)
	if len(h.Rounds) == 0 {
		fmt.Fprintln(o.w, "No rounds played")
		return
	}
	for _, r := range h.Rounds {
		fmt.Fprintf(o.w, "Round %d [%s] %s: %s\n", r.Round, r.Letter, r.ScoredBy, formatScores(r.RoundScores))
	}
}

func (o *Output) printSnapshot(s *model.Snapshot) {
	fmt.Fprintf(o.w, "Session: %s\n", s.Session)
	fmt.Fprintf(o.w, "Participants: %s\n", joinOrNone(ids(s.Participants)))

	if s.Outcome != nil && s.Outcome.Message != "" {
		fmt.Fprintf(o.w, "Outcome: %s\n", s.Outcome.Message)
	}
	if s.War != nil {
		o.printWar(s.War)
	}
	if s.Word != nil && (s.Word.Status != model.WordGameWaiting || s.War == nil) {
		o.printWord(s.Word)
	}
}

func (o *Output) printWar(g *model.CardGameState) {
	fmt.Fprintf(o.w, "\nWar: %s\n", g.Status)
	for _, p := range g.Players {
		last := "-"
		if card := g.LastCards[p]; card != nil {
			last = card.String()
		}
		fmt.Fprintf(o.w, "  %s: %d cards, last played %s\n", p, g.HandCounts[p], last)
	}
	fmt.Fprintf(o.w, "Pile: %d cards\n", len(g.Pile))
	if g.Winner != "" {
		fmt.Fprintf(o.w, "Winner: %s\n", g.Winner)
	}
}

func (o *Output) printWord(g *model.WordGameState) {
	fmt.Fprintf(o.w, "\nEratz-ir: %s\n", g.Status)
	if g.Round > 0 {
		fmt.Fprintf(o.w, "Round: %d\n", g.Round)
	}
	if g.Letter != nil {
		fmt.Fprintf(o.w, "Letter: %s\n", *g.Letter)
	}
	if len(g.Categories) > 0 {
		fmt.Fprintf(o.w, "Categories: %s\n", strings.Join(g.Categories, ", "))
	}
	if g.Status == model.WordGamePlayingRound {
		fmt.Fprintf(o.w, "Submitted: %s\n", joinOrNone(ids(g.Submitted)))
	}
	if g.CountdownEndsAt != nil {
		fmt.Fprintf(o.w, "Countdown ends: %s\n", g.CountdownEndsAt.Format("15:04:05"))
	}

	for _, p := range sortedKeys(g.Answers) {
		fmt.Fprintf(o.w, "  %s:", p)
		for _, category := range g.Categories {
			mark := "✗"
			if g.Verdicts[p][category] {
				mark = "✓"
			}
			fmt.Fprintf(o.w, " %s=%q%s", category, g.Answers[p][category], mark)
		}
		fmt.Fprintln(o.w)
	}

	if len(g.Scores) > 0 {
		fmt.Fprintf(o.w, "Scores: %s\n", formatScores(g.Scores))
	}
	if g.ScoredBy != "" {
		fmt.Fprintf(o.w, "Scored by: %s\n", g.ScoredBy)
	}
	for _, e := range g.OracleErrors {
		fmt.Fprintf(o.w, "Oracle: %s\n", e)
	}
	if g.Leader != "" {
		fmt.Fprintf(o.w, "Leader: %s\n", g.Leader)
	}
}

func formatScores(scores map[model.ParticipantID]int) string {
	parts := make([]string, 0, len(scores))
	for _, p := range sortedKeys(scores) {
		parts = append(parts, fmt.Sprintf("%s=%d", p, scores[p]))
	}
	return joinOrNone(parts)
}

func sortedKeys[V any](m map[model.ParticipantID]V) []model.ParticipantID {
	keys := make([]model.ParticipantID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func ids(participants []model.ParticipantID) []string {
	out := make([]string, len(participants))
	for i, p := range participants {
		out[i] = string(p)
	}
	return out
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	return strings.Join(values, ", ")
}
