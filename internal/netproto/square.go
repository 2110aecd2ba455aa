package netproto

// BoardSize is the number of files (and ranks) on the board.
const BoardSize = 8

// Square encodes a file index x and rank index y (both 0..7) as x + y*8.
func Square(x, y int) uint32 {
	return uint32(x + y*BoardSize)
}

// Coords is the inverse of Square.
func Coords(square uint32) (x, y int) {
	return int(square % BoardSize), int(square / BoardSize)
}

// ValidSquare reports whether square addresses a cell of the board.
func ValidSquare(square uint32) bool {
	return square < BoardSize*BoardSize
}

// ValidCoords reports whether (x, y) lies on the board.
func ValidCoords(x, y int) bool {
	return x >= 0 && x < BoardSize && y >= 0 && y < BoardSize
}
