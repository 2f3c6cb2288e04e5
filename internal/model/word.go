package model

import "time"

// WordGameStatus is the lifecycle state of a word game
type WordGameStatus string

const (
	WordGameWaiting      WordGameStatus = "waiting"
	WordGameInProgress   WordGameStatus = "in-progress"
	WordGamePlayingRound WordGameStatus = "playing-round"
	WordGameEnded        WordGameStatus = "ended"
)

// Answers maps a category to a participant's free-text answer
type Answers map[string]string

// ScoreSource records how a round was scored
type ScoreSource string

const (
	ScoredByOracle    ScoreSource = "oracle"
	ScoredByHeuristic ScoreSource = "heuristic"
)

// WordGameState is the public view of a word game.
// Answers and verdicts are only populated once a round has ended.
type WordGameState struct {
	Session         SessionID                         `json:"session_id"`
	Status          WordGameStatus                    `json:"status"`
	Round           int                               `json:"round"`
	Letter          *string                           `json:"letter"`
	Categories      []string                          `json:"categories"`
	Participants    []ParticipantID                   `json:"participants"`
	Submitted       []ParticipantID                   `json:"submitted"`
	Answers         map[ParticipantID]Answers         `json:"answers,omitempty"`
	Verdicts        map[ParticipantID]map[string]bool `json:"verdicts,omitempty"`
	RoundScores     map[ParticipantID]int             `json:"round_scores"`
	Scores          map[ParticipantID]int             `json:"scores"`
	ScoredBy        ScoreSource                       `json:"scored_by,omitempty"`
	OracleErrors    []string                          `json:"oracle_errors,omitempty"`
	Leader          ParticipantID                     `json:"leader,omitempty"`
	CountdownEndsAt *time.Time                        `json:"countdown_ends_at,omitempty"`
}

// RoundRecord is the append-only history entry written when a round is scored
type RoundRecord struct {
	Session     SessionID                         `json:"session_id"`
	Round       int                               `json:"round"`
	Letter      string                            `json:"letter"`
	Categories  []string                          `json:"categories"`
	Answers     map[ParticipantID]Answers         `json:"answers"`
	Verdicts    map[ParticipantID]map[string]bool `json:"verdicts"`
	RoundScores map[ParticipantID]int             `json:"round_scores"`
	ScoredBy    ScoreSource                       `json:"scored_by"`
	FinishedAt  time.Time                         `json:"finished_at"`
}
