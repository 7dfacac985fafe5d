package cpu

import (
	"encoding/binary"
	"io"
)

// Image is the full addressable memory of the target.
type Image [IMAGE_SIZE]byte

// Write overwrites the bytes starting at addr with data.
func (im *Image) Write(addr int, data ...byte) (err error) {
	if addr < 0 || addr+len(data) > len(im) {
		err = ErrImageOverflow
		return
	}

	copy(im[addr:], data)

	return
}

// PutUint16 writes a big-endian 16-bit value at addr.
func (im *Image) PutUint16(addr int, value uint16) (err error) {
	var word [2]byte
	binary.BigEndian.PutUint16(word[:], value)
	return im.Write(addr, word[:]...)
}

// WriteTo writes the entire image to w.
func (im *Image) WriteTo(w io.Writer) (n int64, err error) {
	count, err := w.Write(im[:])
	n = int64(count)
	return
}
