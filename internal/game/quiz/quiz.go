// Package quiz implements question-list duels: both seats work through one
// shared list, each move answers the question under the cursor, and correct
// answers score a point for the seat that gave them.
package quiz

import (
	"fmt"
	"math/rand"
	"strings"

	"arcade/internal/game"
)

// Question is one prompt. Choices is empty for free-text answers.
type Question struct {
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices,omitempty"`
	Answer  string   `json:"answer,omitempty"`
}

// Result records who answered a question and whether they were right.
type Result struct {
	Seat    game.Seat `json:"seat"`
	Given   string    `json:"given"`
	Correct bool      `json:"correct"`
}

// State is the question list, the cursor and the running scores.
type State struct {
	Type      game.Type  `json:"type"`
	Questions []Question `json:"questions"`
	Results   []Result   `json:"results"`
	Scores    [2]int     `json:"scores"`
}

func (s *State) GameType() game.Type { return s.Type }

// Cursor is the index of the next unanswered question.
func (s *State) Cursor() int { return len(s.Results) }

// Move answers the current question.
type Move struct {
	Type   game.Type `json:"-"`
	Answer string    `json:"answer"`
}

func (m Move) GameType() game.Type { return m.Type }

// Rules is one quiz game: a question generator plus an answer validator.
type Rules struct {
	info     game.Info
	generate func(rng *rand.Rand) []Question
	// validate rejects answers that are malformed for the question, as
	// opposed to merely wrong.
	validate func(q Question, answer string) error
	// decoy produces a wrong but well-formed answer for free-text questions.
	decoy func(q Question) string
}

func (r Rules) Info() game.Info { return r.info }

func (r Rules) NewState(rng *rand.Rand, _ game.Seat) game.State {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &State{Type: r.info.Type, Questions: r.generate(rng)}
}

// Redact hides the answers of questions nobody has reached yet.
func (Rules) Redact(s game.State) game.State {
	st, ok := s.(*State)
	if !ok {
		return s
	}
	v := *st
	v.Questions = append([]Question(nil), st.Questions...)
	for i := st.Cursor(); i < len(v.Questions); i++ {
		v.Questions[i].Answer = ""
	}
	return &v
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (r Rules) ApplyMove(s game.State, m game.Move, seat game.Seat) (game.State, error) {
	st, err := game.Cast[*State](s)
	if err != nil {
		return nil, err
	}
	mv, err := game.Cast[Move](m)
	if err != nil {
		return nil, err
	}
	if !seat.Valid() {
		return nil, fmt.Errorf("%w: invalid seat %q", game.ErrIllegalMove, seat)
	}
	cur := st.Cursor()
	if cur >= len(st.Questions) {
		return nil, fmt.Errorf("%w: no questions left", game.ErrIllegalMove)
	}
	q := st.Questions[cur]
	answer := normalize(mv.Answer)
	if answer == "" {
		return nil, fmt.Errorf("%w: empty answer", game.ErrIllegalMove)
	}
	if len(q.Choices) > 0 && !hasChoice(q.Choices, answer) {
		return nil, fmt.Errorf("%w: %q is not one of the choices", game.ErrIllegalMove, mv.Answer)
	}
	if r.validate != nil {
		if err := r.validate(q, answer); err != nil {
			return nil, fmt.Errorf("%w: %v", game.ErrIllegalMove, err)
		}
	}

	next := &State{
		Type:      st.Type,
		Questions: st.Questions,
		Results:   append(append([]Result(nil), st.Results...), Result{Seat: seat, Given: mv.Answer}),
		Scores:    st.Scores,
	}
	if answer == normalize(q.Answer) {
		next.Results[cur].Correct = true
		next.Scores[seat.Index()]++
	}
	return next, nil
}

func hasChoice(choices []string, answer string) bool {
	for _, c := range choices {
		if normalize(c) == answer {
			return true
		}
	}
	return false
}

func (r Rules) Outcome(s game.State) game.Outcome {
	st, ok := s.(*State)
	if !ok || st.Cursor() < len(st.Questions) {
		return game.Ongoing()
	}
	return game.ScoreOutcome(st.Scores[0], st.Scores[1])
}

// LegalMoves offers every choice for multiple-choice questions, and the
// answer plus a decoy for free-text ones.
func (r Rules) LegalMoves(s game.State, _ game.Seat) []game.Move {
	st, ok := s.(*State)
	if !ok || st.Cursor() >= len(st.Questions) {
		return nil
	}
	q := st.Questions[st.Cursor()]
	if len(q.Choices) == 0 {
		moves := []game.Move{Move{Type: st.Type, Answer: q.Answer}}
		if r.decoy != nil {
			moves = append(moves, Move{Type: st.Type, Answer: r.decoy(q)})
		}
		return moves
	}
	moves := make([]game.Move, len(q.Choices))
	for i, c := range q.Choices {
		moves[i] = Move{Type: st.Type, Answer: c}
	}
	return moves
}

func (r Rules) DecodeState(data []byte) (game.State, error) {
	st, err := game.DecodeStateJSON[State](data)
	if err != nil {
		return nil, err
	}
	if st.Type != r.info.Type {
		return nil, fmt.Errorf("decode state: type %q, want %q", st.Type, r.info.Type)
	}
	return st, nil
}

func (r Rules) DecodeMove(data []byte) (game.Move, error) {
	mv, err := game.DecodeMoveJSON[Move](data)
	if err != nil {
		return nil, err
	}
	mv.Type = r.info.Type
	return mv, nil
}
