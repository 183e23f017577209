// Package catalog wires every rule module into a game.Registry.
package catalog

import (
	"arcade/internal/game"
	"arcade/internal/game/checkers"
	"arcade/internal/game/chess"
	"arcade/internal/game/crossword"
	"arcade/internal/game/dots"
	"arcade/internal/game/puzzle15"
	"arcade/internal/game/quiz"
	"arcade/internal/game/sudoku"
	"arcade/internal/game/tictactoe"
)

// BaseTypes is the list matchmaking draws from when neither player asked for
// a particular game. Larger tic-tac-toe boards are opt-in only.
var BaseTypes = []game.Type{
	tictactoe.Classic,
	chess.Type,
	checkers.Type,
	dots.Type,
	quiz.MathDuelType,
	quiz.FlagsType,
	quiz.AnagramsType,
	crossword.Type,
	sudoku.Type,
	puzzle15.Type,
}

// Register adds all rule modules to reg.
func Register(reg *game.Registry) {
	for _, cfg := range tictactoe.Variants {
		reg.Register(tictactoe.New(cfg))
	}
	reg.Register(chess.Rules{})
	reg.Register(checkers.Rules{})
	reg.Register(dots.Rules{Size: dots.DefaultSize})
	reg.Register(quiz.MathDuel())
	reg.Register(quiz.Flags())
	reg.Register(quiz.Anagrams())
	reg.Register(crossword.Rules{})
	reg.Register(sudoku.Rules{})
	reg.Register(puzzle15.Rules{})
}

// NewRegistry returns a registry with every rule module registered.
func NewRegistry() *game.Registry {
	reg := game.NewRegistry()
	Register(reg)
	return reg
}
