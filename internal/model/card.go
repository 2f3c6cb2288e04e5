package model

import "strconv"

// Suit of a playing card
type Suit string

const (
	SuitHearts   Suit = "hearts"
	SuitDiamonds Suit = "diamonds"
	SuitClubs    Suit = "clubs"
	SuitSpades   Suit = "spades"
)

// Suits lists the suits in deck order
var Suits = []Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

// Deck dimensions
const (
	MinRank  = 2
	MaxRank  = 14 // ace
	DeckSize = 52
)

// Card is a single playing card. Rank runs from 2 to 14 (ace high).
type Card struct {
	Rank int  `json:"rank"`
	Suit Suit `json:"suit"`
}

// String renders the card as e.g. "Q♠" or "10♥"
func (c Card) String() string {
	var rank string
	switch c.Rank {
	case 11:
		rank = "J"
	case 12:
		rank = "Q"
	case 13:
		rank = "K"
	case 14:
		rank = "A"
	default:
		rank = strconv.Itoa(c.Rank)
	}
	var suit string
	switch c.Suit {
	case SuitHearts:
		suit = "♥"
	case SuitDiamonds:
		suit = "♦"
	case SuitClubs:
		suit = "♣"
	case SuitSpades:
		suit = "♠"
	}
	return rank + suit
}

// CardPlay is one card placed on the pile
type CardPlay struct {
	Participant ParticipantID `json:"participant"`
	Card        Card          `json:"card"`
}

// CardGameStatus is the lifecycle state of a card game
type CardGameStatus string

const (
	CardGameOngoing  CardGameStatus = "ongoing"
	CardGameFinished CardGameStatus = "finished"
)

// CardGameState is the public view of a card game. Hands are reported as counts.
type CardGameState struct {
	Session    SessionID               `json:"session_id"`
	Status     CardGameStatus          `json:"status"`
	Players    []ParticipantID         `json:"players"`
	HandCounts map[ParticipantID]int   `json:"hand_counts"`
	Pile       []CardPlay              `json:"pile"`
	LastCards  map[ParticipantID]*Card `json:"last_cards"`
	Winner     ParticipantID           `json:"winner,omitempty"`
}

// Outcome carries informational results of a command that are not errors
type Outcome struct {
	Message     string        `json:"message,omitempty"`
	Tie         bool          `json:"tie,omitempty"`
	RoundWinner ParticipantID `json:"round_winner,omitempty"`
	NoOp        bool          `json:"no_op,omitempty"`
}
