package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/services/oracle"
)

// DefaultTimeout bounds a single oracle call
const DefaultTimeout = 5 * time.Second

// RoundResult is the outcome of scoring one word round
type RoundResult struct {
	Verdicts    map[model.ParticipantID]map[string]bool
	RoundScores map[model.ParticipantID]int
	Source      model.ScoreSource
	Errors      []string
}

// Service scores word rounds using the oracle, falling back to a local heuristic
type Service struct {
	oracle  oracle.Oracle
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a new scoring service
func New(o oracle.Oracle, timeout time.Duration, logger *slog.Logger) *Service {
	if o == nil {
		o = oracle.Unavailable{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		oracle:  o,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "scoring")),
	}
}

// ScoreRound judges every participant's answers for the round. It calls the
// oracle once and never fails: an unavailable or malformed oracle result
// degrades to Heuristic. Participants without a submission score zero.
func (s *Service) ScoreRound(
	ctx context.Context,
	letter string,
	participants []model.ParticipantID,
	answers map[model.ParticipantID]model.Answers,
	categories []string,
) RoundResult {
	result := RoundResult{Source: model.ScoredByOracle}

	verdict, err := s.callOracle(ctx, letter, answers, categories)
	if err == nil {
		err = checkVerdict(verdict, answers)
	}
	if err != nil {
		s.logger.Warn("oracle scoring failed, using heuristic",
			slog.String("letter", letter),
			slog.String("error", err.Error()),
		)
		result.Source = model.ScoredByHeuristic
		result.Verdicts = Heuristic(answers, categories)
	} else {
		result.Verdicts = normalize(verdict.Details, answers, categories)
		result.Errors = append([]string(nil), verdict.Errors...)
	}

	result.RoundScores = make(map[model.ParticipantID]int, len(participants))
	for _, p := range participants {
		result.RoundScores[p] = 0
	}
	for p, verdicts := range result.Verdicts {
		result.RoundScores[p] = CountCorrect(verdicts, categories)
	}
	return result
}

func (s *Service) callOracle(ctx context.Context, letter string, answers map[model.ParticipantID]model.Answers, categories []string) (*oracle.Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.oracle.Validate(ctx, oracle.Request{
		Letter:     letter,
		Answers:    answers,
		Categories: categories,
	})
}

// checkVerdict rejects results that do not cover every submitted participant
func checkVerdict(v *oracle.Verdict, answers map[model.ParticipantID]model.Answers) error {
	if v == nil || v.Details == nil {
		return model.ErrOracleMalformed
	}
	for p := range answers {
		if _, ok := v.Details[p]; !ok {
			return fmt.Errorf("%w: no verdict for participant %s", model.ErrOracleMalformed, p)
		}
	}
	return nil
}

// normalize keeps only verdicts for submitted participants and round categories.
// Categories the oracle left out count as incorrect.
func normalize(details map[model.ParticipantID]map[string]bool, answers map[model.ParticipantID]model.Answers, categories []string) map[model.ParticipantID]map[string]bool {
	out := make(map[model.ParticipantID]map[string]bool, len(answers))
	for p := range answers {
		verdicts := make(map[string]bool, len(categories))
		for _, c := range categories {
			verdicts[c] = details[p][c]
		}
		out[p] = verdicts
	}
	return out
}

// Heuristic marks an answer correct when it is non-empty after trimming
func Heuristic(answers map[model.ParticipantID]model.Answers, categories []string) map[model.ParticipantID]map[string]bool {
	out := make(map[model.ParticipantID]map[string]bool, len(answers))
	for p, a := range answers {
		verdicts := make(map[string]bool, len(categories))
		for _, c := range categories {
			verdicts[c] = strings.TrimSpace(a[c]) != ""
		}
		out[p] = verdicts
	}
	return out
}

// CountCorrect counts the categories marked correct
func CountCorrect(verdicts map[string]bool, categories []string) int {
	n := 0
	for _, c := range categories {
		if verdicts[c] {
			n++
		}
	}
	return n
}

// DetermineLeader returns the participant with the highest score.
// Returns empty if there is a tie for first place or nobody has scored.
func DetermineLeader(scores map[model.ParticipantID]int) model.ParticipantID {
	var leader model.ParticipantID
	best := -1
	tied := false
	for p, score := range scores {
		switch {
		case score > best:
			leader, best, tied = p, score, false
		case score == best:
			tied = true
		}
	}
	if tied || best <= 0 {
		return ""
	}
	return leader
}
