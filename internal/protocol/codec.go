package protocol

import "fmt"

// Codec converts typed messages to and from one wire encoding. Both codecs
// produce the same in-memory message types, so callers stay encoding-agnostic.
type Codec interface {
	Encoding() Encoding
	EncodeRequest(Request) ([]byte, error)
	DecodeRequest([]byte) (Request, error)
	EncodeResponse(Response) ([]byte, error)
	DecodeResponse([]byte) (Response, error)
}

// BinaryCodec carries messages in the fixed-layout binary encoding.
type BinaryCodec struct{}

func (BinaryCodec) Encoding() Encoding { return EncodingBinary }

func (BinaryCodec) EncodeRequest(req Request) ([]byte, error) {
	switch m := req.(type) {
	case NewOrder:
		return EncodeNewOrder(m)
	case Cancel:
		return EncodeCancel(m)
	case Flush:
		return EncodeFlush()
	default:
		return nil, fmt.Errorf("%w: unsupported request %T", ErrEncode, req)
	}
}

func (BinaryCodec) DecodeRequest(data []byte) (Request, error) {
	return DecodeRequest(data)
}

func (BinaryCodec) EncodeResponse(resp Response) ([]byte, error) {
	switch m := resp.(type) {
	case Ack:
		return EncodeAck(m)
	case CancelAck:
		return EncodeCancelAck(m)
	case Trade:
		return EncodeTrade(m)
	case TopOfBook:
		return EncodeTopOfBook(m)
	case Reject:
		return EncodeReject(m)
	default:
		return nil, fmt.Errorf("%w: unsupported response %T", ErrEncode, resp)
	}
}

func (BinaryCodec) DecodeResponse(data []byte) (Response, error) {
	return DecodeResponse(data)
}

// TextCodec carries messages in the comma-separated line encoding.
type TextCodec struct{}

func (TextCodec) Encoding() Encoding { return EncodingText }

func (TextCodec) EncodeRequest(req Request) ([]byte, error) {
	switch m := req.(type) {
	case NewOrder:
		return FormatNewOrder(m)
	case Cancel:
		return FormatCancel(m)
	case Flush:
		return FormatFlush()
	default:
		return nil, fmt.Errorf("%w: unsupported request %T", ErrEncode, req)
	}
}

func (TextCodec) DecodeRequest(data []byte) (Request, error) {
	return ParseRequest(data)
}

func (TextCodec) EncodeResponse(resp Response) ([]byte, error) {
	switch m := resp.(type) {
	case Ack:
		return FormatAck(m)
	case CancelAck:
		return FormatCancelAck(m)
	case Trade:
		return FormatTrade(m)
	case TopOfBook:
		return FormatTopOfBook(m)
	default:
		return nil, fmt.Errorf("%w: %T has no text form", ErrEncode, resp)
	}
}

func (TextCodec) DecodeResponse(data []byte) (Response, error) {
	return ParseResponse(data)
}
