package bitbuffer

// BitBuffer is an owning, growable MSB-first bit sink. It is the write side
// of the package: callers append bit fields and byte runs, and retrieve the
// accumulated, byte-aligned result with Bytes.
type BitBuffer struct {
	e engine
}

// NewBitBuffer creates an empty BitBuffer, pre-sized to InitialBufferSize
// bytes to reduce early reallocations.
func NewBitBuffer() *BitBuffer {
	return &BitBuffer{e: engine{buff: make([]byte, 0, InitialBufferSize)}}
}

// Write appends the least significant num bits of value (1 <= num <= 64),
// MSB-first.
func (b *BitBuffer) Write(num uint8, value uint64) error {
	return b.e.write(num, value)
}

// WriteBytes appends full octets, continuing from the current bit offset.
// Does not force alignment; call Align first if the format requires it.
func (b *BitBuffer) WriteBytes(data []byte) error {
	return b.e.writeBytes(data)
}

// Align pads to the next byte boundary with zero bits.
func (b *BitBuffer) Align() error {
	return b.e.align()
}

// NumWritten returns the total number of bits written so far.
func (b *BitBuffer) NumWritten() uint64 {
	return b.e.written
}

// Len returns the number of bytes currently held (including a partial final byte).
func (b *BitBuffer) Len() int {
	return len(b.e.buff)
}

// Bytes returns the encoded data. Includes a partial final byte if the total
// bits written is not a multiple of 8; callers that require byte alignment
// must call Align beforehand.
func (b *BitBuffer) Bytes() []byte {
	if b.e.written == 0 {
		return nil
	}
	return b.e.buff
}

// Reset empties the buffer for reuse, keeping its backing array.
func (b *BitBuffer) Reset() {
	b.e.buff = b.e.buff[:0]
	b.e.offset = 0
	b.e.written = 0
}
