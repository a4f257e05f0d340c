package icap

import (
	"bytes"
	"crypto/rand"
)

// AdaptationResult is what a Handler returns after inspecting (and
// optionally rewriting) an IcapRequest's encapsulated content.
type AdaptationResult struct {
	Content           EncapsulatedData
	StatusCode        int
	Headers           Header
	ContentWasAltered bool
}

// IcapResponseBody is the encapsulated portion of a response: an
// optional re-serialised header block and an optional chunk-encoded
// body. A nil Header/BodyChunk means that sub-entity is absent, matching
// the absent/present-empty distinction EncapsulatedData carries.
type IcapResponseBody struct {
	Header    []byte
	BodyChunk []byte
}

// Bytes renders the response body section: the header block (with its
// terminating blank line reattached) followed by the chunk-encoded
// body, or nothing at all for a 204.
func (b IcapResponseBody) Bytes() []byte {
	var buf bytes.Buffer
	if b.Header != nil {
		buf.Write(b.Header)
		buf.WriteString("\r\n")
	}
	if b.BodyChunk != nil {
		buf.Write(b.BodyChunk)
	}
	return buf.Bytes()
}

// headerBlockLen is the full byte length of the header block as it
// will appear on the wire, i.e. including the blank-line CRLF that
// Bytes reattaches. The Encapsulated header this package emits
// declares body offsets using this length (rather than len(Header)
// alone) so that parseEncapsulatedHeader/readEncapsulatedData round
// trip the emitted response correctly — see DESIGN.md for why this
// departs from the reference implementation's arithmetic.
func (b IcapResponseBody) headerBlockLen() int {
	if b.Header == nil {
		return 0
	}
	return len(b.Header) + 2
}

// IcapResponse is a fully assembled ICAP response ready to serialise.
type IcapResponse struct {
	StatusCode int
	Reason     string
	Headers    Header
	Body       IcapResponseBody
}

// Bytes serialises the response: status line, headers, a blank line,
// then the optional encapsulated body.
func (r IcapResponse) Bytes() ([]byte, error) {
	line, err := statusLine(r.StatusCode, r.Reason)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(line)
	for _, name := range r.Headers.Names() {
		for _, value := range r.Headers.Values(name) {
			buf.WriteString(name)
			buf.WriteString(": ")
			buf.WriteString(value)
			buf.WriteString("\r\n")
		}
	}
	buf.WriteString("\r\n")
	buf.Write(r.Body.Bytes())

	return buf.Bytes(), nil
}

const istagAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
const istagLength = 30

// generateISTag returns a 30-character random alphanumeric token to
// serve as a service-instance tag. It need not be cryptographically
// random, but crypto/rand is a convenient, already-imported
// source of entropy and avoids a package-level PRNG with its own seed
// management.
func generateISTag() (string, error) {
	raw := make([]byte, istagLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	out := make([]byte, istagLength)
	for i, b := range raw {
		out[i] = istagAlphabet[int(b)%len(istagAlphabet)]
	}
	return string(out), nil
}

// BuildResponse assembles an IcapResponse from a handler's adaptation
// result. When addRequiredHeaders is true, each required header (ISTag,
// Encapsulated) not already present in headers is added to the returned
// response's Headers. headers is passed by value but shares its value
// map with that copy, so the additions are also visible through the
// caller's Get/Has/Values, though not through its Names.
func BuildResponse(method IcapMethod, content EncapsulatedData, statusCode int, headers Header, addRequiredHeaders bool) (*IcapResponse, error) {
	if addRequiredHeaders && !headers.Has("istag") {
		tag, err := generateISTag()
		if err != nil {
			return nil, err
		}
		headers.Set("ISTag", tag)
	}

	var body IcapResponseBody
	var headerEntity, bodyEntity EncapsulatedEntityName

	if statusCode != 204 {
		switch method {
		case REQMOD:
			headerEntity, bodyEntity = ReqHdr, ReqBody
			body = IcapResponseBody{Header: content.RequestHeader, BodyChunk: encodeBodyChunk(content.RequestBody)}
		case RESPMOD:
			headerEntity, bodyEntity = ResHdr, ResBody
			body = IcapResponseBody{Header: content.ResponseHeader, BodyChunk: encodeBodyChunk(content.ResponseBody)}
		case OPTIONS:
			bodyEntity = OptBody
			body = IcapResponseBody{BodyChunk: encodeBodyChunk(content.OptionsBody)}
		}
	}

	if addRequiredHeaders && !headers.Has("encapsulated") {
		value := emitEncapsulatedHeader(headerEntity, body.Header != nil, body.headerBlockLen(), bodyEntity, body.BodyChunk != nil)
		headers.Set("Encapsulated", value)
	}

	return &IcapResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       body,
	}, nil
}

// encodeBodyChunk wraps a present body in a single HTTP chunk. An
// absent body (nil) stays nil so the response carries no body section.
func encodeBodyChunk(body []byte) []byte {
	if body == nil {
		return nil
	}
	return chunkEncode(body)
}
