package bitbuffer

import "errors"

// BitStream is a non-owning, MSB-first bit-level view over a byte range. It
// is the read side of the package: unlike BitBuffer, it never grows its
// backing array; slicing it (via Sub) shares memory with the parent instead
// of copying, so a decoder can hand a nested sub-stream to a descriptor's
// open-type payload without allocating.
type BitStream struct {
	e engine
}

// NewBitStream creates a BitStream reading from data, starting at the first
// bit of the first byte.
func NewBitStream(data []byte) *BitStream {
	return &BitStream{e: engine{buff: data}}
}

// Read reads the next num bits (1 <= num <= 64), MSB-first.
func (s *BitStream) Read(num uint8) (uint64, error) {
	return s.e.read(num)
}

// ReadBytes reads exactly n full octets, continuing from the current bit offset.
func (s *BitStream) ReadBytes(n int) ([]byte, error) {
	return s.e.readBytes(n)
}

// Advance skips any remaining bits in the current byte, the read-side
// counterpart of BitBuffer.Align.
func (s *BitStream) Advance() error {
	return s.e.advance()
}

// NumRead returns the total number of bits consumed so far.
func (s *BitStream) NumRead() uint64 {
	return s.e.nread
}

// Remaining returns the number of bits not yet consumed.
func (s *BitStream) Remaining() uint64 {
	return s.e.remainingBits()
}

// Done reports whether the stream has no more bits to read.
func (s *BitStream) Done() bool {
	return s.Remaining() == 0
}

// Sub skips to the next octet boundary, then carves out a zero-copy
// sub-stream over the next n bytes, advancing this stream past them. The
// returned stream shares memory with this one.
func (s *BitStream) Sub(n int) (*BitStream, error) {
	if n < 0 {
		return nil, errors.New("negative byte count")
	}
	if err := s.e.advance(); err != nil {
		return nil, err
	}
	if s.e.offset == 8 {
		if len(s.e.buff) == 0 {
			return nil, errors.New("insufficient data")
		}
		s.e.buff = s.e.buff[1:]
		s.e.offset = 0
	}
	if len(s.e.buff) < n {
		return nil, errors.New("insufficient data")
	}
	view := s.e.buff[:n:n]
	s.e.buff = s.e.buff[n:]
	s.e.incrementRead(uint64(n) * bitsPerByte)
	return NewBitStream(view), nil
}
