package icap

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"runtime/debug"
	"strings"
	"time"
)

// Logger is the minimal logging surface a Listener needs. *log.Logger
// satisfies it, matching the "log" package's own Printf shape;
// callers wanting structured logs (see cmd/icap-server's obslog
// wrapper) supply their own implementation instead of the core
// package taking on a logging dependency.
type Logger interface {
	Printf(format string, v ...interface{})
}

// AccessLogger is an optional capability a Logger may also implement
// to receive one event per completed request/response cycle, carrying
// the same fields (method, service, status code) the reference
// implementation's access log line records. The session loop checks
// for this interface at each request rather than requiring every
// Logger to implement it.
type AccessLogger interface {
	LogAccess(remoteAddr, method, serviceName string, statusCode int, duration time.Duration)
}

// sessionLogger is kept as an internal alias so the rest of this file
// reads the way it did before Logger was exported.
type sessionLogger = Logger

// session drives one connection's request/response cycle.
type session struct {
	remoteAddr string
	rwc        net.Conn
	sr         StreamReader
	bw         *bufio.Writer
	mux        *ServeMux
	logger     sessionLogger
}

func newSession(rwc net.Conn, mux *ServeMux, logger sessionLogger) *session {
	if logger == nil {
		logger = log.Default()
	}
	br := bufio.NewReader(rwc)
	return &session{
		remoteAddr: rwc.RemoteAddr().String(),
		rwc:        rwc,
		sr:         NewStreamReader(br),
		bw:         bufio.NewWriter(rwc),
		mux:        mux,
		logger:     logger,
	}
}

// serve runs the request/response loop until the connection is closed,
// a request's framing is unrecoverable, or the client asks to close.
func (s *session) serve() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("icap: panic serving %s: %v\n%s", s.remoteAddr, r, debug.Stack())
		}
		s.bw.Flush()
		s.rwc.Close()
	}()

	for {
		req, err := ReadRequest(s.sr)
		if err != nil {
			s.logger.Printf("icap: error reading request from %s: %v", s.remoteAddr, err)
			return
		}
		if req == nil {
			return
		}

		start := time.Now()
		resp, shouldClose := s.handle(req)

		wire, err := resp.Bytes()
		if err != nil {
			s.logger.Printf("icap: error building response for %s: %v", s.remoteAddr, err)
			continue
		}

		if _, err := s.bw.Write(wire); err != nil {
			s.logger.Printf("icap: error writing response to %s: %v", s.remoteAddr, err)
			continue
		}
		if err := s.bw.Flush(); err != nil {
			s.logger.Printf("icap: error flushing response to %s: %v", s.remoteAddr, err)
			continue
		}

		if al, ok := s.logger.(AccessLogger); ok {
			al.LogAccess(s.remoteAddr, string(req.RequestLine.Method), req.RequestLine.ServiceName(), resp.StatusCode, time.Since(start))
		}

		if shouldClose || connectionRequestsClose(req.Headers) {
			return
		}
	}
}

// handle dispatches req to its service handler and builds the
// response, applying the 204 shortcut and the unknown-service/internal
// error fallbacks.
func (s *session) handle(req *IcapRequest) (resp *IcapResponse, shouldClose bool) {
	handler, ok := s.mux.Handler(req.RequestLine.ServiceName())
	if !ok {
		return s.notFoundResponse(req), false
	}

	result, err := s.invokeHandler(handler, req)
	if err != nil {
		s.logger.Printf("icap: handler error for %q: %v", req.RequestLine.String(), err)
		return s.internalErrorResponse(req), false
	}

	statusCode := result.StatusCode
	if !result.ContentWasAltered && allowsTwoOhFour(req.Headers) {
		statusCode = 204
	}

	headers := result.Headers
	if headers.values == nil {
		headers = NewHeader()
	}

	built, err := BuildResponse(req.RequestLine.Method, result.Content, statusCode, headers, true)
	if err != nil {
		s.logger.Printf("icap: error building response: %v", err)
		return s.internalErrorResponse(req), false
	}

	return built, false
}

// invokeHandler calls handler.Adapt, converting a panic into an error
// so a single bad request cannot tear down the connection for every
// other request sharing it: a handler failure becomes a 500, not a
// dead connection, as long as request framing stayed intact.
func (s *session) invokeHandler(handler Handler, req *IcapRequest) (result AdaptationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("icap: handler panic: %v", r)
		}
	}()
	return handler.Adapt(req)
}

func (s *session) notFoundResponse(req *IcapRequest) *IcapResponse {
	headers := NewHeader()
	resp, err := BuildResponse(req.RequestLine.Method, EncapsulatedData{}, 404, headers, true)
	if err != nil {
		return &IcapResponse{StatusCode: 404, Headers: headers}
	}
	return resp
}

func (s *session) internalErrorResponse(req *IcapRequest) *IcapResponse {
	headers := NewHeader()
	resp, err := BuildResponse(req.RequestLine.Method, EncapsulatedData{}, 500, headers, true)
	if err != nil {
		return &IcapResponse{StatusCode: 500, Headers: headers}
	}
	return resp
}

// allowsTwoOhFour reports whether the client's request makes the 204
// shortcut available: either "204" appears as an exact token in the
// Allow header, or any Preview header is present at all, using real
// comma-separated token matching instead of a substring check against
// tokenizing the header.
func allowsTwoOhFour(headers Header) bool {
	if headers.commaTokenPresent("allow", "204") {
		return true
	}
	return headers.Has("preview")
}

// connectionRequestsClose reports whether the client asked this
// connection to close after the current response, comparing
// case-insensitively against the literal token "close" (the source's
// raw string comparison never matches the bytes it reads off the wire,
// per spec §9 note 2).
func connectionRequestsClose(headers Header) bool {
	for _, value := range headers.Values("connection") {
		if strings.EqualFold(strings.TrimSpace(value), "close") {
			return true
		}
	}
	return false
}
