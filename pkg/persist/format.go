package persist

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

var (
	ErrInvalidFormat    = errors.New("invalid snapshot format")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrVersionMismatch  = errors.New("snapshot version mismatch")
	ErrExists           = errors.New("snapshot already exists")
)

// Magic opens every snapshot file.
var Magic = [4]byte{'A', 'C', 'H', '1'}

const (
	// Version is the format version written by this package.
	Version uint16 = 1

	HeaderSize   = 8
	ChecksumSize = sha256.Size

	flagCompressed uint8 = 1 << 0
)

// Compression identifies the algorithm applied to the body.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// Header is the fixed-size prefix of a snapshot:
//
//	magic[4] | version uint16 LE | flags[1] | compression[1]
type Header struct {
	Version     uint16
	Flags       uint8
	Compression Compression
}

// Compressed reports whether the body is compressed.
func (h Header) Compressed() bool {
	return h.Flags&flagCompressed != 0
}

func (h Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	copy(buf, Magic[:])
	binary.LittleEndian.PutUint16(buf[4:], h.Version)
	buf[6] = h.Flags
	buf[7] = byte(h.Compression)
	return buf, nil
}

func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: file too small for header (%d bytes)", ErrInvalidFormat, len(data))
	}
	if [4]byte(data[:4]) != Magic {
		return fmt.Errorf("%w: bad magic %q", ErrInvalidFormat, data[:4])
	}
	h.Version = binary.LittleEndian.Uint16(data[4:])
	h.Flags = data[6]
	h.Compression = Compression(data[7])
	switch h.Compression {
	case CompressionNone:
		if h.Compressed() {
			return fmt.Errorf("%w: compressed flag set without a compression algorithm", ErrInvalidFormat)
		}
	case CompressionZstd:
	default:
		return fmt.Errorf("%w: unknown compression id %d", ErrInvalidFormat, h.Compression)
	}
	return nil
}

// CheckVersion rejects newer snapshots, and with strict set any snapshot
// whose version differs from Version.
func (h Header) CheckVersion(strict bool) error {
	if h.Version > Version || (strict && h.Version != Version) {
		return fmt.Errorf("%w: file has version %d, this build reads version %d", ErrVersionMismatch, h.Version, Version)
	}
	return nil
}

func checksum(data []byte) [ChecksumSize]byte {
	return sha256.Sum256(data)
}

// compress encodes the body with zstd at the given level, using the same
// 1-22 scale as the zstd command line.
func compress(body []byte, level int) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(body, nil), nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrInvalidFormat, err)
	}
	return out, nil
}

// split validates the header and separates the body from its checksum.
func split(data []byte) (Header, []byte, [ChecksumSize]byte, error) {
	var h Header
	var sum [ChecksumSize]byte
	if err := h.UnmarshalBinary(data); err != nil {
		return h, nil, sum, err
	}
	rest := data[HeaderSize:]
	if len(rest) < ChecksumSize {
		return h, nil, sum, fmt.Errorf("%w: file too small to contain checksum", ErrInvalidFormat)
	}
	body := rest[:len(rest)-ChecksumSize]
	copy(sum[:], rest[len(rest)-ChecksumSize:])
	return h, body, sum, nil
}
