package board

import "fmt"

// Move encodes a chess move in 32 bits:
//
//	bits 0-5:   from square (0-63)
//	bits 6-11:  to square (0-63)
//	bits 12-15: moving piece (Piece, 0-12)
//	bits 16-18: promotion piece type (0-6, NoPieceType = none)
//	bits 19-20: flag (0=normal, 1=promotion, 2=en passant, 3=castling)
//	bit 21:     capture flag
//	bit 22:     null-move flag
//
// Carrying the moving piece and the capture flag in the move itself (rather
// than deriving them from the board on demand) is what lets the move
// selector and search stack cheaply classify a move without a position
// lookup.
type Move uint32

const (
	moveFromMask   = 0x3F
	moveToShift    = 6
	moveToMask     = 0x3F << moveToShift
	movePieceShift = 12
	movePieceMask  = 0xF << movePieceShift
	movePromoShift = 16
	movePromoMask  = 0x7 << movePromoShift
	moveFlagShift  = 19
	moveFlagMask   = 0x3 << moveFlagShift
	moveCaptureBit = 1 << 21
	moveNullBit    = 1 << 22
)

// Move flags (bits 19-20).
const (
	FlagNormal uint32 = iota
	FlagPromotion
	FlagEnPassant
	FlagCastling
)

// NoMove represents the absence of a move.
const NoMove Move = 0

// NullMove is the sentinel used by null-move pruning. It is not producible
// by move generation: from and to both encode A1 but the null bit is set,
// a pattern no generator ever emits.
const NullMove Move = moveNullBit

func packMove(from, to Square, piece Piece, promo PieceType, flag uint32, capture bool) Move {
	m := Move(from) | Move(to)<<moveToShift | Move(piece)<<movePieceShift |
		Move(promo)<<movePromoShift | Move(flag)<<moveFlagShift
	if capture {
		m |= moveCaptureBit
	}
	return m
}

// NewMove creates a normal (non-promotion, non-castling, non-en-passant) move.
func NewMove(from, to Square, piece Piece, capture bool) Move {
	return packMove(from, to, piece, NoPieceType, FlagNormal, capture)
}

// NewPromotion creates a promotion move.
func NewPromotion(from, to Square, piece Piece, promo PieceType, capture bool) Move {
	return packMove(from, to, piece, promo, FlagPromotion, capture)
}

// NewEnPassant creates an en passant capture move.
func NewEnPassant(from, to Square, piece Piece) Move {
	return packMove(from, to, piece, NoPieceType, FlagEnPassant, true)
}

// NewCastling creates a castling move (the king's movement).
func NewCastling(from, to Square, piece Piece) Move {
	return packMove(from, to, piece, NoPieceType, FlagCastling, false)
}

// From returns the origin square.
func (m Move) From() Square { return Square(m & moveFromMask) }

// To returns the destination square.
func (m Move) To() Square { return Square((m & moveToMask) >> moveToShift) }

// Piece returns the moving piece.
func (m Move) Piece() Piece { return Piece((m & movePieceMask) >> movePieceShift) }

// Flag returns the move flag.
func (m Move) Flag() uint32 { return uint32(m&moveFlagMask) >> moveFlagShift }

// Promotion returns the promotion piece type (only meaningful if IsPromotion).
func (m Move) Promotion() PieceType { return PieceType((m & movePromoMask) >> movePromoShift) }

// IsPromotion returns true if this is a promotion move.
func (m Move) IsPromotion() bool { return m.Flag() == FlagPromotion }

// IsCastling returns true if this is a castling move.
func (m Move) IsCastling() bool { return m.Flag() == FlagCastling }

// IsEnPassant returns true if this is an en passant capture.
func (m Move) IsEnPassant() bool { return m.Flag() == FlagEnPassant }

// IsCapture returns true if this move captures a piece. Stored directly on
// the move rather than derived, since by the time the move is unmade the
// captured piece may no longer be inferable from the board alone.
func (m Move) IsCapture() bool { return m&moveCaptureBit != 0 }

// IsNull returns true for the NullMove sentinel.
func (m Move) IsNull() bool { return m&moveNullBit != 0 }

// IsQuiet returns true if this is neither a capture nor a promotion.
func (m Move) IsQuiet() bool { return !m.IsCapture() && !m.IsPromotion() }

// String returns the UCI long algebraic form of the move (e.g. "e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove || m.IsNull() {
		return "0000"
	}

	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		switch m.Promotion() {
		case Knight:
			s += "n"
		case Bishop:
			s += "b"
		case Rook:
			s += "r"
		case Queen:
			s += "q"
		}
	}
	return s
}

// ParseMove parses a UCI long algebraic move string against the given
// position, filling in the moving piece and capture/castling/en-passant
// classification that the wire format itself doesn't carry.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 {
		return NoMove, fmt.Errorf("invalid move string: %s", s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return NoMove, fmt.Errorf("no piece at %s", from)
	}
	pt := piece.Type()
	capture := !pos.IsEmpty(to)

	if len(s) == 5 {
		var promo PieceType
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("invalid promotion piece: %c", s[4])
		}
		return NewPromotion(from, to, piece, promo, capture), nil
	}

	if pt == King && abs(int(to)-int(from)) == 2 {
		return NewCastling(from, to, piece), nil
	}
	if pt == Pawn && to == pos.EnPassant && to != NoSquare {
		return NewEnPassant(from, to, piece), nil
	}

	return NewMove(from, to, piece, capture), nil
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [256]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList { return &MoveList{} }

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int { return ml.count }

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move { return ml.moves[i] }

// Set sets the move at index i.
func (ml *MoveList) Set(i int, m Move) { ml.moves[i] = m }

// Swap swaps two moves in the list.
func (ml *MoveList) Swap(i, j int) { ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i] }

// Clear empties the list.
func (ml *MoveList) Clear() { ml.count = 0 }

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice sharing the list's backing array.
func (ml *MoveList) Slice() []Move { return ml.moves[:ml.count] }

// UndoInfo stores the information needed to undo a move.
type UndoInfo struct {
	CapturedPiece  Piece
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	Hash           uint64
	PawnKey        uint64
	Checkers       Bitboard
	PSQTScore      int16
	KingSquare     [2]Square
	Pieces         [2][6]Bitboard
	Occupied       [2]Bitboard
	AllOccupied    Bitboard
	Valid          bool
}
