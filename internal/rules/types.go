// Package rules adapts the chess rule engine to the board interface the peer
// session consumes.
package rules

import (
	"fmt"
	"strings"
)

// Color identifies chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Kind is a piece type.
type Kind string

const (
	Pawn   Kind = "pawn"
	Knight Kind = "knight"
	Bishop Kind = "bishop"
	Rook   Kind = "rook"
	Queen  Kind = "queen"
	King   Kind = "king"
)

type Piece struct {
	Color Color
	Kind  Kind
}

// Content is what a board cell holds: either empty or occupied by Piece.
type Content struct {
	Occupied bool
	Piece    Piece
}

// Pos is a board coordinate: X is the file (0 = a), Y the rank (0 = 1).
type Pos struct {
	X int
	Y int
}

func (p Pos) Valid() bool { return p.X >= 0 && p.X < 8 && p.Y >= 0 && p.Y < 8 }

func (p Pos) String() string {
	if !p.Valid() {
		return fmt.Sprintf("(%d,%d)", p.X, p.Y)
	}
	return string([]byte{byte('a' + p.X), byte('1' + p.Y)})
}

// ParsePos reads algebraic square names such as "e2".
func ParsePos(s string) (Pos, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return Pos{}, fmt.Errorf("invalid square %q", s)
	}
	p := Pos{X: int(s[0] - 'a'), Y: int(s[1] - '1')}
	if !p.Valid() {
		return Pos{}, fmt.Errorf("invalid square %q", s)
	}
	return p, nil
}

// Board is the rule-engine collaborator. IsValidMove never mutates; MoveFromTo
// is only called after IsValidMove agreed.
type Board interface {
	GetContent(pos Pos) Content
	CoordinatesPlayable(pos Pos) bool
	IsValidMove(from, to Pos, promo Kind) bool
	MoveFromTo(from, to Pos, promo Kind) error
	Destinations(from Pos) []Pos
	Turn() Color
	FEN() string
	Outcome() string
}
