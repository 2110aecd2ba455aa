package rules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var ErrIllegalMove = errors.New("illegal move")

// ChessBoard implements Board on top of corentings/chess.
type ChessBoard struct {
	game *nchess.Game
}

var _ Board = (*ChessBoard)(nil)

// NewBoard builds a board from a FEN string; "" and "startpos" select the
// standard starting position.
func NewBoard(fen string) (*ChessBoard, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return &ChessBoard{game: nchess.NewGame()}, nil
	}
	option, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	return &ChessBoard{game: nchess.NewGame(option)}, nil
}

func (b *ChessBoard) GetContent(pos Pos) Content {
	if !pos.Valid() {
		return Content{}
	}
	piece := b.game.Position().Board().Piece(toSquare(pos))
	if piece == nchess.NoPiece {
		return Content{}
	}
	return Content{Occupied: true, Piece: Piece{Color: colorFrom(piece.Color()), Kind: kindFrom(piece.Type())}}
}

// CoordinatesPlayable reports whether pos holds a piece of the side to move.
func (b *ChessBoard) CoordinatesPlayable(pos Pos) bool {
	c := b.GetContent(pos)
	return c.Occupied && c.Piece.Color == b.Turn()
}

// IsValidMove checks from→to against the engine's legal move list. A pawn
// reaching the last rank without an explicit promo promotes to a queen.
func (b *ChessBoard) IsValidMove(from, to Pos, promo Kind) bool {
	_, ok := b.find(from, to, promo)
	return ok
}

func (b *ChessBoard) MoveFromTo(from, to Pos, promo Kind) error {
	uci, ok := b.find(from, to, promo)
	if !ok {
		return fmt.Errorf("%w: %s%s", ErrIllegalMove, from, to)
	}
	if err := b.game.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
		return fmt.Errorf("apply %s: %w", uci, err)
	}
	return nil
}

// Destinations lists the squares the piece on from may legally reach.
func (b *ChessBoard) Destinations(from Pos) []Pos {
	if !from.Valid() {
		return nil
	}
	sq := toSquare(from)
	seen := make(map[Pos]bool)
	var out []Pos
	for _, mv := range b.game.ValidMoves() {
		if mv.S1() != sq {
			continue
		}
		to := fromSquare(mv.S2())
		if seen[to] {
			continue
		}
		seen[to] = true
		out = append(out, to)
	}
	return out
}

func (b *ChessBoard) Turn() Color { return colorFrom(b.game.Position().Turn()) }

func (b *ChessBoard) FEN() string { return b.game.FEN() }

// Outcome is "" while the game is in progress, otherwise the PGN result
// followed by the termination method, e.g. "1-0 checkmate".
func (b *ChessBoard) Outcome() string {
	o := b.game.Outcome()
	if o == nchess.NoOutcome {
		return ""
	}
	return fmt.Sprintf("%s %s", o, strings.ToLower(b.game.Method().String()))
}

// find returns the UCI text of the legal move matching from, to and promo.
func (b *ChessBoard) find(from, to Pos, promo Kind) (string, bool) {
	if !from.Valid() || !to.Valid() {
		return "", false
	}
	s1, s2 := toSquare(from), toSquare(to)
	want := nchess.NoPieceType
	if promo != "" {
		pt, ok := promoType(promo)
		if !ok {
			return "", false
		}
		want = pt
	}
	for _, mv := range b.game.ValidMoves() {
		if mv.S1() != s1 || mv.S2() != s2 {
			continue
		}
		got := mv.Promo()
		if got == nchess.NoPieceType {
			if want != nchess.NoPieceType {
				return "", false
			}
			return from.String() + to.String(), true
		}
		if want == nchess.NoPieceType {
			want = nchess.Queen
		}
		if got == want {
			return from.String() + to.String() + promoLetter(want), true
		}
	}
	return "", false
}

func toSquare(p Pos) nchess.Square {
	return nchess.NewSquare(nchess.File(p.X), nchess.Rank(p.Y))
}

func fromSquare(sq nchess.Square) Pos {
	return Pos{X: int(sq.File()), Y: int(sq.Rank())}
}

func colorFrom(c nchess.Color) Color {
	if c == nchess.White {
		return White
	}
	return Black
}

func kindFrom(pt nchess.PieceType) Kind {
	switch pt {
	case nchess.Pawn:
		return Pawn
	case nchess.Knight:
		return Knight
	case nchess.Bishop:
		return Bishop
	case nchess.Rook:
		return Rook
	case nchess.Queen:
		return Queen
	case nchess.King:
		return King
	}
	return ""
}

func promoType(k Kind) (nchess.PieceType, bool) {
	switch k {
	case Queen:
		return nchess.Queen, true
	case Rook:
		return nchess.Rook, true
	case Bishop:
		return nchess.Bishop, true
	case Knight:
		return nchess.Knight, true
	}
	return nchess.NoPieceType, false
}

func promoLetter(pt nchess.PieceType) string {
	switch pt {
	case nchess.Rook:
		return "r"
	case nchess.Bishop:
		return "b"
	case nchess.Knight:
		return "n"
	default:
		return "q"
	}
}
