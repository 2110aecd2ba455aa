package netproto

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the chess_networking schema.
const (
	fieldC2SMove           protowire.Number = 1
	fieldC2SConnectRequest protowire.Number = 2

	fieldS2CMove       protowire.Number = 1
	fieldS2CMoveAck    protowire.Number = 2
	fieldS2CConnectAck protowire.Number = 3

	fieldMoveFrom      protowire.Number = 1
	fieldMoveTo        protowire.Number = 2
	fieldMovePromotion protowire.Number = 3

	fieldConnReqGameID   protowire.Number = 1
	fieldConnReqSpectate protowire.Number = 2

	fieldAckSuccess       protowire.Number = 1
	fieldAckClientIsWhite protowire.Number = 2
	fieldAckGameID        protowire.Number = 3
	fieldAckStartingPos   protowire.Number = 4

	fieldBoardFEN protowire.Number = 1

	fieldMoveAckLegal       protowire.Number = 1
	fieldMoveAckBoardResult protowire.Number = 2
)

// EncodeClient serializes a guest → host envelope.
func EncodeClient(m ClientMessage) ([]byte, error) {
	if m.variants() > 1 {
		return nil, invalid("client message has %d variants set", m.variants())
	}
	var b []byte
	switch {
	case m.Move != nil:
		inner, err := appendMove(nil, m.Move)
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, fieldC2SMove, inner)
	case m.ConnectRequest != nil:
		b = appendMessage(b, fieldC2SConnectRequest, appendConnectRequest(nil, m.ConnectRequest))
	}
	return b, nil
}

// EncodeServer serializes a host → guest envelope.
func EncodeServer(m ServerMessage) ([]byte, error) {
	if m.variants() > 1 {
		return nil, invalid("server message has %d variants set", m.variants())
	}
	var b []byte
	switch {
	case m.Move != nil:
		inner, err := appendMove(nil, m.Move)
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, fieldS2CMove, inner)
	case m.MoveAck != nil:
		b = appendMessage(b, fieldS2CMoveAck, appendMoveAck(nil, m.MoveAck))
	case m.ConnectAck != nil:
		b = appendMessage(b, fieldS2CConnectAck, appendConnectAck(nil, m.ConnectAck))
	}
	return b, nil
}

// DecodeClient parses a guest → host envelope.
func DecodeClient(b []byte) (ClientMessage, error) {
	var m ClientMessage
	fields, err := readFields("ClientToServer", b)
	if err != nil {
		return m, err
	}
	for _, f := range fields {
		switch f.num {
		case fieldC2SMove:
			if err := f.expect("ClientToServer", protowire.BytesType); err != nil {
				return m, err
			}
			mv, err := decodeMove(f.bytes)
			if err != nil {
				return m, err
			}
			m.Move = &mv
		case fieldC2SConnectRequest:
			if err := f.expect("ClientToServer", protowire.BytesType); err != nil {
				return m, err
			}
			req, err := decodeConnectRequest(f.bytes)
			if err != nil {
				return m, err
			}
			m.ConnectRequest = &req
		default:
			return m, unknownField("ClientToServer", f.num)
		}
	}
	if m.variants() > 1 {
		return ClientMessage{}, decodeErr("ClientToServer", "more than one variant set", nil)
	}
	return m, nil
}

// DecodeServer parses a host → guest envelope.
func DecodeServer(b []byte) (ServerMessage, error) {
	var m ServerMessage
	fields, err := readFields("ServerToClient", b)
	if err != nil {
		return m, err
	}
	for _, f := range fields {
		switch f.num {
		case fieldS2CMove:
			if err := f.expect("ServerToClient", protowire.BytesType); err != nil {
				return m, err
			}
			mv, err := decodeMove(f.bytes)
			if err != nil {
				return m, err
			}
			m.Move = &mv
		case fieldS2CMoveAck:
			if err := f.expect("ServerToClient", protowire.BytesType); err != nil {
				return m, err
			}
			ack, err := decodeMoveAck(f.bytes)
			if err != nil {
				return m, err
			}
			m.MoveAck = &ack
		case fieldS2CConnectAck:
			if err := f.expect("ServerToClient", protowire.BytesType); err != nil {
				return m, err
			}
			ack, err := decodeConnectAck(f.bytes)
			if err != nil {
				return m, err
			}
			m.ConnectAck = &ack
		default:
			return m, unknownField("ServerToClient", f.num)
		}
	}
	if m.variants() > 1 {
		return ServerMessage{}, decodeErr("ServerToClient", "more than one variant set", nil)
	}
	return m, nil
}

// encoders. Required scalars are written even when zero so presence can be checked.

func appendMessage(b []byte, num protowire.Number, inner []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMove(b []byte, m *Move) ([]byte, error) {
	if !ValidSquare(m.FromSquare) || !ValidSquare(m.ToSquare) {
		return nil, invalid("move squares out of range: %d -> %d", m.FromSquare, m.ToSquare)
	}
	b = appendVarint(b, fieldMoveFrom, uint64(m.FromSquare))
	b = appendVarint(b, fieldMoveTo, uint64(m.ToSquare))
	if m.Promotion != nil {
		if !m.Promotion.Valid() {
			return nil, invalid("unknown promotion piece %d", int32(*m.Promotion))
		}
		b = appendVarint(b, fieldMovePromotion, uint64(*m.Promotion))
	}
	return b, nil
}

func appendConnectRequest(b []byte, r *ConnectRequest) []byte {
	b = appendVarint(b, fieldConnReqGameID, uint64(r.GameID))
	return appendVarint(b, fieldConnReqSpectate, protowire.EncodeBool(r.Spectate))
}

func appendConnectAck(b []byte, a *ConnectAck) []byte {
	b = appendVarint(b, fieldAckSuccess, protowire.EncodeBool(a.Success))
	if a.ClientIsWhite != nil {
		b = appendVarint(b, fieldAckClientIsWhite, protowire.EncodeBool(*a.ClientIsWhite))
	}
	if a.GameID != nil {
		b = appendVarint(b, fieldAckGameID, uint64(*a.GameID))
	}
	if a.StartingPosition != nil {
		b = appendMessage(b, fieldAckStartingPos, appendString(nil, fieldBoardFEN, a.StartingPosition.FEN))
	}
	return b
}

func appendMoveAck(b []byte, a *MoveAck) []byte {
	b = appendVarint(b, fieldMoveAckLegal, protowire.EncodeBool(a.Legal))
	if a.BoardResult != nil {
		b = appendString(b, fieldMoveAckBoardResult, *a.BoardResult)
	}
	return b
}

// decoders

type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

func (f field) expect(msg string, typ protowire.Type) error {
	if f.typ != typ {
		return decodeErr(msg, "wrong wire type for field "+itoa(int64(f.num)), nil)
	}
	return nil
}

func (f field) uint32(msg string) (uint32, error) {
	if err := f.expect(msg, protowire.VarintType); err != nil {
		return 0, err
	}
	if f.varint > math.MaxUint32 {
		return 0, decodeErr(msg, "field "+itoa(int64(f.num))+" overflows uint32", nil)
	}
	return uint32(f.varint), nil
}

func (f field) bool(msg string) (bool, error) {
	if err := f.expect(msg, protowire.VarintType); err != nil {
		return false, err
	}
	return protowire.DecodeBool(f.varint), nil
}

// readFields splits a buffer into its top-level fields. A field number that
// appears twice is a cardinality violation.
func readFields(msg string, b []byte) ([]field, error) {
	var out []field
	seen := make(map[protowire.Number]bool)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, decodeErr(msg, "bad tag", protowire.ParseError(n))
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, decodeErr(msg, "truncated varint", protowire.ParseError(n))
			}
			f.varint = v
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, decodeErr(msg, "truncated bytes", protowire.ParseError(n))
			}
			f.bytes = v
			b = b[n:]
		default:
			return nil, decodeErr(msg, "unsupported wire type for field "+itoa(int64(num)), nil)
		}
		if seen[num] {
			return nil, decodeErr(msg, "field "+itoa(int64(num))+" repeated", nil)
		}
		seen[num] = true
		out = append(out, f)
	}
	return out, nil
}

func unknownField(msg string, num protowire.Number) error {
	return decodeErr(msg, "unknown field "+itoa(int64(num)), nil)
}

func decodeMove(b []byte) (Move, error) {
	const msg = "Move"
	var (
		m              Move
		hasFrom, hasTo bool
	)
	fields, err := readFields(msg, b)
	if err != nil {
		return m, err
	}
	for _, f := range fields {
		switch f.num {
		case fieldMoveFrom:
			if m.FromSquare, err = f.uint32(msg); err != nil {
				return m, err
			}
			hasFrom = true
		case fieldMoveTo:
			if m.ToSquare, err = f.uint32(msg); err != nil {
				return m, err
			}
			hasTo = true
		case fieldMovePromotion:
			v, err := f.uint32(msg)
			if err != nil {
				return m, err
			}
			p := Piece(v)
			if !p.Valid() {
				return m, decodeErr(msg, "unknown promotion piece "+itoa(int64(v)), nil)
			}
			m.Promotion = &p
		default:
			return m, unknownField(msg, f.num)
		}
	}
	if !hasFrom || !hasTo {
		return m, decodeErr(msg, "missing from_square or to_square", nil)
	}
	if !ValidSquare(m.FromSquare) || !ValidSquare(m.ToSquare) {
		return m, decodeErr(msg, "square out of range", nil)
	}
	return m, nil
}

func decodeConnectRequest(b []byte) (ConnectRequest, error) {
	const msg = "ConnectRequest"
	var (
		r       ConnectRequest
		hasGame bool
	)
	fields, err := readFields(msg, b)
	if err != nil {
		return r, err
	}
	for _, f := range fields {
		switch f.num {
		case fieldConnReqGameID:
			if r.GameID, err = f.uint32(msg); err != nil {
				return r, err
			}
			hasGame = true
		case fieldConnReqSpectate:
			if r.Spectate, err = f.bool(msg); err != nil {
				return r, err
			}
		default:
			return r, unknownField(msg, f.num)
		}
	}
	if !hasGame {
		return r, decodeErr(msg, "missing game_id", nil)
	}
	return r, nil
}

func decodeConnectAck(b []byte) (ConnectAck, error) {
	const msg = "ConnectAck"
	var (
		a          ConnectAck
		hasSuccess bool
	)
	fields, err := readFields(msg, b)
	if err != nil {
		return a, err
	}
	for _, f := range fields {
		switch f.num {
		case fieldAckSuccess:
			if a.Success, err = f.bool(msg); err != nil {
				return a, err
			}
			hasSuccess = true
		case fieldAckClientIsWhite:
			v, err := f.bool(msg)
			if err != nil {
				return a, err
			}
			a.ClientIsWhite = &v
		case fieldAckGameID:
			v, err := f.uint32(msg)
			if err != nil {
				return a, err
			}
			a.GameID = &v
		case fieldAckStartingPos:
			if err := f.expect(msg, protowire.BytesType); err != nil {
				return a, err
			}
			bs, err := decodeBoardState(f.bytes)
			if err != nil {
				return a, err
			}
			a.StartingPosition = &bs
		default:
			return a, unknownField(msg, f.num)
		}
	}
	if !hasSuccess {
		return a, decodeErr(msg, "missing success", nil)
	}
	return a, nil
}

func decodeBoardState(b []byte) (BoardState, error) {
	const msg = "BoardState"
	var bs BoardState
	fields, err := readFields(msg, b)
	if err != nil {
		return bs, err
	}
	for _, f := range fields {
		if f.num != fieldBoardFEN {
			return bs, unknownField(msg, f.num)
		}
		if err := f.expect(msg, protowire.BytesType); err != nil {
			return bs, err
		}
		bs.FEN = string(f.bytes)
	}
	return bs, nil
}

func decodeMoveAck(b []byte) (MoveAck, error) {
	const msg = "MoveAck"
	var (
		a        MoveAck
		hasLegal bool
	)
	fields, err := readFields(msg, b)
	if err != nil {
		return a, err
	}
	for _, f := range fields {
		switch f.num {
		case fieldMoveAckLegal:
			if a.Legal, err = f.bool(msg); err != nil {
				return a, err
			}
			hasLegal = true
		case fieldMoveAckBoardResult:
			if err := f.expect(msg, protowire.BytesType); err != nil {
				return a, err
			}
			s := string(f.bytes)
			a.BoardResult = &s
		default:
			return a, unknownField(msg, f.num)
		}
	}
	if !hasLegal {
		return a, decodeErr(msg, "missing legal", nil)
	}
	return a, nil
}
