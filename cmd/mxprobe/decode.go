package main

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mxprobe/mxprobe/internal/framing"
	"github.com/mxprobe/mxprobe/internal/protocol"
)

func runDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	hexIn := fs.String("hex", "", "hex bytes (whitespace and commas ignored)")
	file := fs.String("file", "", "raw capture file, - for stdin")
	framed := fs.Bool("framed", false, "input carries 4-byte stream frame prefixes")
	fs.Parse(args)

	data, err := readDecodeInput(*hexIn, *file)
	if err != nil {
		fatal(err)
	}
	if len(data) == 0 {
		fatal(fmt.Errorf("no input; pass -hex or -file"))
	}

	if *framed {
		decodeFramed(data)
		return
	}
	if data[0] == protocol.Magic {
		decodeBinaryStream(data)
		return
	}
	decodeTextStream(data)
}

func readDecodeInput(hexIn, file string) ([]byte, error) {
	switch {
	case hexIn != "" && file != "":
		return nil, fmt.Errorf("pass either -hex or -file, not both")

	case hexIn != "":
		clean := strings.Map(func(r rune) rune {
			switch r {
			case ' ', '\t', '\n', '\r', ',':
				return -1
			}
			return r
		}, hexIn)
		data, err := hex.DecodeString(clean)
		if err != nil {
			return nil, fmt.Errorf("bad hex input: %w", err)
		}
		return data, nil

	case file == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil

	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read capture: %w", err)
		}
		return data, nil

	default:
		return nil, nil
	}
}

// decodeFramed walks length-prefixed frames. A framing violation loses the
// message boundary, so it stops there.
func decodeFramed(data []byte) {
	i := 0
	for off := 0; off < len(data); {
		if len(data)-off < framing.HeaderSize {
			fmt.Printf("[%d] truncated frame header at offset %d (%d bytes left)\n", i, off, len(data)-off)
			return
		}
		size := int(binary.BigEndian.Uint32(data[off : off+framing.HeaderSize]))
		off += framing.HeaderSize
		if size > len(data)-off {
			fmt.Printf("[%d] frame at offset %d declares %d bytes, %d remain\n", i, off-framing.HeaderSize, size, len(data)-off)
			return
		}
		printMessage(i, data[off:off+size])
		off += size
		i++
	}
}

// binaryMessageSize reports the canonical record length for a kind byte.
func binaryMessageSize(kind byte) int {
	switch kind {
	case protocol.KindNewOrder:
		return protocol.NewOrderSize
	case protocol.KindCancel:
		return protocol.CancelSize
	case protocol.KindFlush:
		return protocol.FlushSize
	case protocol.KindAck, protocol.KindCancelAck:
		return protocol.AckSize
	case protocol.KindTrade:
		return protocol.TradeSize
	case protocol.KindTopOfBook:
		return protocol.TopOfBookSize
	case protocol.KindReject:
		return protocol.RejectSize
	default:
		return 0
	}
}

// decodeBinaryStream splits back-to-back binary records by their fixed
// sizes. An unknown kind loses the boundary and stops the walk.
func decodeBinaryStream(data []byte) {
	i := 0
	for off := 0; off < len(data); {
		rest := data[off:]
		if len(rest) < 2 {
			fmt.Printf("[%d] %d trailing byte(s) at offset %d\n", i, len(rest), off)
			return
		}
		size := binaryMessageSize(rest[1])
		if size == 0 {
			fmt.Printf("[%d] unknown kind 0x%02X at offset %d\n", i, rest[1], off)
			return
		}
		if len(rest) < size {
			fmt.Printf("[%d] truncated record at offset %d: need %d bytes, have %d\n", i, off, size, len(rest))
			return
		}
		printMessage(i, rest[:size])
		off += size
		i++
	}
}

func decodeTextStream(data []byte) {
	i := 0
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		printMessage(i, line)
		i++
	}
}

// printMessage renders one payload, trying the request shape first so an
// ambiguous text C line reads as a cancel.
func printMessage(i int, payload []byte) {
	if len(payload) > 0 && payload[0] == protocol.Magic {
		if req, err := protocol.DecodeRequest(payload); err == nil {
			fmt.Printf("[%d] %s\n", i, req)
			return
		}
		resp, err := protocol.DecodeResponse(payload)
		if err != nil {
			fmt.Printf("[%d] decode error: %v\n", i, err)
			return
		}
		fmt.Printf("[%d] %s\n", i, resp)
		return
	}

	if req, err := protocol.ParseRequest(payload); err == nil {
		fmt.Printf("[%d] %s\n", i, req)
		return
	}
	resp, err := protocol.ParseResponse(payload)
	if err != nil {
		fmt.Printf("[%d] decode error: %v\n", i, err)
		return
	}
	fmt.Printf("[%d] %s\n", i, resp)
}
