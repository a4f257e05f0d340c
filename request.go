package icap

import (
	"io"
	"strings"
)

// EncapsulatedData holds the sub-entities the Encapsulated header
// names, each either absent (nil) or present (non-nil, possibly
// zero-length). At most one of each field is ever populated for a
// given request or response.
type EncapsulatedData struct {
	RequestHeader  []byte
	ResponseHeader []byte
	RequestBody    []byte
	ResponseBody   []byte
	OptionsBody    []byte
}

func (d *EncapsulatedData) set(name EncapsulatedEntityName, value []byte) {
	switch name {
	case ReqHdr:
		d.RequestHeader = value
	case ResHdr:
		d.ResponseHeader = value
	case ReqBody:
		d.RequestBody = value
	case ResBody:
		d.ResponseBody = value
	case OptBody:
		d.OptionsBody = value
	}
}

// IcapRequest is a fully parsed ICAP request: the request line, the
// lowercased header multimap, and whatever encapsulated sub-entities
// its Encapsulated header declared.
type IcapRequest struct {
	RequestLine IcapRequestLine
	Headers     Header
	Body        EncapsulatedData
}

// readHeaders reads "Name: Value" lines until a blank line terminates
// the block, lowercasing names and preserving repeated values in
// order.
func readHeaders(sr StreamReader) (Header, error) {
	headers := NewHeader()
	for {
		line, err := sr.ReadLine()
		if err != nil {
			return headers, err
		}
		if len(line) == 0 {
			return headers, nil
		}
		name, value, ok := strings.Cut(string(line), ": ")
		if !ok {
			return headers, &ParseError{Kind: MalformedHeaderLine, Observed: string(line), Expected: `"Name: Value"`}
		}
		headers.Add(name, value)
	}
}

// readEncapsulatedData reads the encapsulated payload described by the
// request's Encapsulated header. Offsets are treated as absolute
// positions from the start of the encapsulated region: the length
// of entry i is offset(i+1) - offset(i), computed directly rather than
// via a running counter.
func readEncapsulatedData(sr StreamReader, method IcapMethod, encapsulatedValues []string) (EncapsulatedData, error) {
	entries, err := parseEncapsulatedHeader(encapsulatedValues, method)
	if err != nil {
		return EncapsulatedData{}, err
	}

	var data EncapsulatedData
	for i, entry := range entries {
		if entry.Name == NullBody {
			continue
		}

		if i+1 < len(entries) {
			length := entries[i+1].Offset - entry.Offset
			content, err := sr.ReadExactly(length - 2)
			if err != nil {
				return EncapsulatedData{}, err
			}
			if _, err := sr.ReadExactly(2); err != nil {
				return EncapsulatedData{}, err
			}
			data.set(entry.Name, content)
			continue
		}

		body, err := readChunkedBody(sr)
		if err != nil {
			return EncapsulatedData{}, err
		}
		data.set(entry.Name, body)
	}

	return data, nil
}

// ReadRequest reads one ICAP request from sr. A clean EOF before any
// bytes of a request line are read returns (nil, nil), signalling
// orderly stream end rather than an error. Any
// other error is a *ParseError or an I/O error and is fatal to the
// connection's framing.
func ReadRequest(sr StreamReader) (*IcapRequest, error) {
	line, err := sr.ReadLine()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	requestLine, err := parseRequestLine(string(line))
	if err != nil {
		return nil, err
	}

	headers, err := readHeaders(sr)
	if err != nil {
		return nil, err
	}

	body, err := readEncapsulatedData(sr, requestLine.Method, headers.Values("encapsulated"))
	if err != nil {
		return nil, err
	}

	return &IcapRequest{
		RequestLine: requestLine,
		Headers:     headers,
		Body:        body,
	}, nil
}
