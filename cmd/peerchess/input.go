package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/park285/Cheese-PeerChess/internal/msgcat"
	"github.com/park285/Cheese-PeerChess/internal/netproto"
	"github.com/park285/Cheese-PeerChess/internal/rules"
	"github.com/park285/Cheese-PeerChess/internal/session"
)

var errBadMove = errors.New("bad move syntax")

// parseMove reads coordinate notation: e2e4, e7e8q, e7-e8=n.
func parseMove(s string) (session.ProposedMove, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "", "=", "").Replace(s)
	if len(s) != 4 && len(s) != 5 {
		return session.ProposedMove{}, fmt.Errorf("%w: %q", errBadMove, s)
	}
	from, err := rules.ParsePos(s[0:2])
	if err != nil {
		return session.ProposedMove{}, fmt.Errorf("%w: %v", errBadMove, err)
	}
	to, err := rules.ParsePos(s[2:4])
	if err != nil {
		return session.ProposedMove{}, fmt.Errorf("%w: %v", errBadMove, err)
	}
	m := session.ProposedMove{From: from, To: to}
	if len(s) == 5 {
		var p netproto.Piece
		switch s[4] {
		case 'q':
			p = netproto.Queen
		case 'r':
			p = netproto.Rook
		case 'b':
			p = netproto.Bishop
		case 'n':
			p = netproto.Knight
		default:
			return session.ProposedMove{}, fmt.Errorf("%w: promotion %q", errBadMove, s[4])
		}
		m.Promotion = netproto.PieceRef(p)
	}
	return m, nil
}

var pieceLetters = map[rules.Kind]byte{
	rules.Pawn: 'p', rules.Knight: 'n', rules.Bishop: 'b',
	rules.Rook: 'r', rules.Queen: 'q', rules.King: 'k',
}

// printBoard draws the board from the local player's side. White pieces are
// upper case.
func printBoard(w io.Writer, b rules.Board, whiteView bool) {
	if b == nil {
		return
	}
	var sb strings.Builder
	for row := 0; row < 8; row++ {
		y := 7 - row
		if !whiteView {
			y = row
		}
		fmt.Fprintf(&sb, "%d ", y+1)
		for col := 0; col < 8; col++ {
			x := col
			if !whiteView {
				x = 7 - col
			}
			sb.WriteByte(' ')
			sb.WriteByte(squareGlyph(b.GetContent(rules.Pos{X: x, Y: y})))
		}
		sb.WriteByte('\n')
	}
	if whiteView {
		sb.WriteString("   a b c d e f g h\n")
	} else {
		sb.WriteString("   h g f e d c b a\n")
	}
	io.WriteString(w, sb.String())
}

func squareGlyph(c rules.Content) byte {
	if !c.Occupied {
		return '.'
	}
	g := pieceLetters[c.Piece.Kind]
	if c.Piece.Color == rules.White {
		g -= 'a' - 'A'
	}
	return g
}

// diagnose turns a fatal error into the line shown before exit.
func diagnose(cat *msgcat.Catalog, err error) string {
	data := map[string]any{"Err": err}
	switch {
	case errors.Is(err, session.ErrConnectRefused):
		return cat.Text("fatal.refused", data)
	case errors.Is(err, session.ErrDesync):
		return cat.Text("fatal.desync", data)
	case errors.Is(err, session.ErrProtocolViolation):
		return cat.Text("fatal.protocol", data)
	case errors.Is(err, session.ErrDecode):
		return cat.Text("fatal.decode", data)
	case errors.Is(err, session.ErrTransport):
		return cat.Text("fatal.transport", data)
	}
	return cat.Text("fatal.other", data)
}
