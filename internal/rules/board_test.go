package rules

import (
	"errors"
	"strings"
	"testing"
)

func mustBoard(t *testing.T, fen string) *ChessBoard {
	t.Helper()
	b, err := NewBoard(fen)
	if err != nil {
		t.Fatalf("NewBoard(%q): %v", fen, err)
	}
	return b
}

func mustPos(t *testing.T, s string) Pos {
	t.Helper()
	p, err := ParsePos(s)
	if err != nil {
		t.Fatalf("ParsePos(%q): %v", s, err)
	}
	return p
}

func TestStartPositionContent(t *testing.T) {
	b := mustBoard(t, "startpos")
	c := b.GetContent(mustPos(t, "e1"))
	if !c.Occupied || c.Piece != (Piece{Color: White, Kind: King}) {
		t.Fatalf("e1: got %+v", c)
	}
	if b.GetContent(mustPos(t, "e4")).Occupied {
		t.Fatalf("e4 should be empty")
	}
	if !b.CoordinatesPlayable(mustPos(t, "g1")) {
		t.Fatalf("white knight should be playable on white's turn")
	}
	if b.CoordinatesPlayable(mustPos(t, "e7")) {
		t.Fatalf("black pawn should not be playable on white's turn")
	}
	if b.Turn() != White {
		t.Fatalf("turn: got %s", b.Turn())
	}
}

func TestIsValidMoveDoesNotMutate(t *testing.T) {
	b := mustBoard(t, "")
	before := b.FEN()
	if !b.IsValidMove(mustPos(t, "e2"), mustPos(t, "e4"), "") {
		t.Fatalf("e2e4 should be legal")
	}
	if b.IsValidMove(mustPos(t, "e2"), mustPos(t, "e5"), "") {
		t.Fatalf("e2e5 should be illegal")
	}
	if b.IsValidMove(Pos{X: 4, Y: 6}, Pos{X: 4, Y: 4}, "") {
		t.Fatalf("moving a black pawn on white's turn should be illegal")
	}
	if b.FEN() != before {
		t.Fatalf("IsValidMove mutated the board: %s", b.FEN())
	}
}

func TestMoveFromTo(t *testing.T) {
	b := mustBoard(t, "")
	if err := b.MoveFromTo(mustPos(t, "e2"), mustPos(t, "e4"), ""); err != nil {
		t.Fatalf("MoveFromTo: %v", err)
	}
	if !b.GetContent(mustPos(t, "e4")).Occupied || b.GetContent(mustPos(t, "e2")).Occupied {
		t.Fatalf("pawn did not move: %s", b.FEN())
	}
	if b.Turn() != Black {
		t.Fatalf("turn should pass to black")
	}
	err := b.MoveFromTo(mustPos(t, "e4"), mustPos(t, "e5"), "")
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
}

func TestDestinations(t *testing.T) {
	b := mustBoard(t, "")
	got := b.Destinations(mustPos(t, "e2"))
	if len(got) != 2 {
		t.Fatalf("e2 destinations: %v", got)
	}
	want := map[string]bool{"e3": true, "e4": true}
	for _, p := range got {
		if !want[p.String()] {
			t.Fatalf("unexpected destination %s", p)
		}
	}
	if d := b.Destinations(mustPos(t, "e4")); len(d) != 0 {
		t.Fatalf("empty square has destinations: %v", d)
	}
}

func TestPromotionDefaultsToQueen(t *testing.T) {
	b := mustBoard(t, "8/4P3/8/8/8/8/8/k6K w - - 0 1")
	from, to := mustPos(t, "e7"), mustPos(t, "e8")
	if !b.IsValidMove(from, to, Knight) {
		t.Fatalf("underpromotion should be legal")
	}
	if err := b.MoveFromTo(from, to, ""); err != nil {
		t.Fatalf("MoveFromTo: %v", err)
	}
	c := b.GetContent(to)
	if !c.Occupied || c.Piece.Kind != Queen {
		t.Fatalf("expected queen on e8, got %+v", c)
	}
}

func TestPromotionOnNonPawnMoveRejected(t *testing.T) {
	b := mustBoard(t, "")
	if b.IsValidMove(mustPos(t, "g1"), mustPos(t, "f3"), Queen) {
		t.Fatalf("promotion piece on a knight move should be rejected")
	}
}

func TestOutcomeCheckmate(t *testing.T) {
	b := mustBoard(t, "")
	for _, mv := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		if err := b.MoveFromTo(mustPos(t, mv[:2]), mustPos(t, mv[2:]), ""); err != nil {
			t.Fatalf("%s: %v", mv, err)
		}
	}
	out := b.Outcome()
	if !strings.HasPrefix(out, "0-1") || !strings.Contains(out, "checkmate") {
		t.Fatalf("outcome: got %q", out)
	}
}

func TestParsePos(t *testing.T) {
	p, err := ParsePos("E2")
	if err != nil || p != (Pos{X: 4, Y: 1}) {
		t.Fatalf("ParsePos(E2): %+v %v", p, err)
	}
	for _, bad := range []string{"", "i1", "a9", "e22"} {
		if _, err := ParsePos(bad); err == nil {
			t.Fatalf("ParsePos(%q) should fail", bad)
		}
	}
}

func TestNewBoardBadFEN(t *testing.T) {
	if _, err := NewBoard("not a fen"); err == nil {
		t.Fatalf("expected error for malformed fen")
	}
}
