package main

import (
	"bytes"

	"github.com/gocap/icap"
)

// EchoHandler is the reference REQMOD/OPTIONS service: it logs the
// first line of the encapsulated request header and echoes the
// request content back unaltered, performing no content adaptation.
// It is the default handler the runner registers under the CLI's
// service_name argument when no other handler is supplied.
type EchoHandler struct {
	Logger interface {
		Infof(format string, v ...interface{})
	}
}

func (h EchoHandler) Adapt(req *icap.IcapRequest) (icap.AdaptationResult, error) {
	if firstLine := firstLineOf(req.Body.RequestHeader); firstLine != "" && h.Logger != nil {
		h.Logger.Infof("%s", firstLine)
	}

	headers := icap.NewHeader()

	switch req.RequestLine.Method {
	case icap.OPTIONS:
		headers.Set("Methods", "REQMOD")
		headers.Set("Preview", "0")
		return icap.AdaptationResult{StatusCode: 200, Headers: headers}, nil
	case icap.REQMOD:
		return icap.AdaptationResult{
			Content:           req.Body,
			StatusCode:        200,
			Headers:           headers,
			ContentWasAltered: false,
		}, nil
	default:
		return icap.AdaptationResult{StatusCode: 501, Headers: headers}, nil
	}
}

func firstLineOf(b []byte) string {
	if b == nil {
		return ""
	}
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimRight(b, "\r"))
}
