package tblog

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

// TFRecord framing: every record is stored as
//
//	uint64 length (little-endian)
//	uint32 masked crc32c of the length bytes
//	byte   data[length]
//	uint32 masked crc32c of the data
//
// The checksum is CRC-32 with the Castagnoli polynomial, rotated and
// offset by a fixed delta before storage.
const crcMaskDelta = 0xa282ead8

// maxRecordSize guards against reading absurd lengths from corrupt files.
const maxRecordSize = 64 << 20

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// maskedCRC32C computes the masked Castagnoli CRC used by the record format.
func maskedCRC32C(data []byte) uint32 {
	crc := crc32.Checksum(data, castagnoli)

	return ((crc >> 15) | (crc << 17)) + crcMaskDelta
}

// recordReader reads length-prefixed, checksummed records from an event file.
type recordReader struct {
	r *bufio.Reader
}

func newRecordReader(r io.Reader) *recordReader {
	return &recordReader{r: bufio.NewReader(r)}
}

// Next returns the payload of the next record. It returns io.EOF at a
// clean end of file and a descriptive error for any framing or checksum
// failure.
func (rr *recordReader) Next() ([]byte, error) {
	var header [12]byte

	if _, err := io.ReadFull(rr.r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}

		return nil, fmt.Errorf("reading record header: %w", err)
	}

	length := binary.LittleEndian.Uint64(header[:8])
	lengthCRC := binary.LittleEndian.Uint32(header[8:12])

	if maskedCRC32C(header[:8]) != lengthCRC {
		return nil, fmt.Errorf("length checksum mismatch")
	}

	if length > maxRecordSize {
		return nil, fmt.Errorf("record length %d exceeds limit", length)
	}

	payload := make([]byte, length+4)
	if _, err := io.ReadFull(rr.r, payload); err != nil {
		return nil, fmt.Errorf("reading record payload: %w", err)
	}

	data := payload[:length]
	dataCRC := binary.LittleEndian.Uint32(payload[length:])

	if maskedCRC32C(data) != dataCRC {
		return nil, fmt.Errorf("data checksum mismatch")
	}

	return data, nil
}
