package protocol

import (
	"fmt"
	"strings"
)

// Encoding identifies which wire encoding a connection speaks.
type Encoding int

const (
	EncodingUndetermined Encoding = iota
	EncodingBinary
	EncodingText
)

func (e Encoding) String() string {
	switch e {
	case EncodingBinary:
		return "binary"
	case EncodingText:
		return "text"
	default:
		return "undetermined"
	}
}

// ParseEncoding reads an encoding name. Empty and "auto" select
// EncodingUndetermined, asking the session to detect.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return EncodingUndetermined, nil
	case "binary":
		return EncodingBinary, nil
	case "text":
		return EncodingText, nil
	default:
		return EncodingUndetermined, fmt.Errorf("unknown encoding %q", s)
	}
}

// CodecFor returns the codec for a determined encoding, or nil for
// EncodingUndetermined.
func CodecFor(e Encoding) Codec {
	switch e {
	case EncodingBinary:
		return BinaryCodec{}
	case EncodingText:
		return TextCodec{}
	default:
		return nil
	}
}

// DetectEncoding classifies the leading bytes of a server reply. A binary
// response opens with the magic byte, which sits outside printable ASCII,
// while a text response opens with one of the line leaders A, C, T or B.
// Anything else is EncodingUndetermined.
func DetectEncoding(data []byte) Encoding {
	if len(data) == 0 {
		return EncodingUndetermined
	}
	switch data[0] {
	case Magic:
		return EncodingBinary
	case 'A', 'C', 'T', 'B':
		return EncodingText
	default:
		return EncodingUndetermined
	}
}
