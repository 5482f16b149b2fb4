package proto

// Scanner frames a raw byte stream. It hunts for STX before treating bytes
// as a frame body, so partial or corrupted leading bytes are skipped
// instead of misinterpreted.
type Scanner struct {
	buf [FrameLen]byte
	n   int
}

// Reset discards any partially collected frame.
func (s *Scanner) Reset() {
	s.n = 0
}

// Feed consumes one byte. When a full frame has been collected it returns
// the decode result with ok set; a decode error reports the dropped window
// and the scanner resynchronizes on the next STX candidate.
func (s *Scanner) Feed(b byte) (f Frame, ok bool, err error) {
	if s.n == 0 && b != STX {
		return
	}
	s.buf[s.n] = b
	s.n++
	if s.n < FrameLen {
		return
	}
	f, err = Decode(s.buf[:])
	if err == nil {
		s.n = 0
		return f, true, nil
	}
	s.shift()
	return Frame{}, false, err
}

// shift drops bytes up to the next STX inside the window so a frame
// starting mid-window is not lost.
func (s *Scanner) shift() {
	for i := 1; i < s.n; i++ {
		if s.buf[i] == STX {
			s.n = copy(s.buf[:], s.buf[i:s.n])
			return
		}
	}
	s.n = 0
}
