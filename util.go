package icap

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"time"
)

// SimulateRequestHandling spins up a throwaway Listener on an ephemeral
// port, registers handler under "modify", sends a synthesised REQMOD or
// RESPMOD request carrying the given HTTP headers/body, and returns the
// raw response bytes it reads back. It exists for codec- and
// handler-level tests that want a real socket round trip without
// hardcoding a port or duplicating the wire-format fixtures by hand.
func SimulateRequestHandling(icapMethod string, inputHTTPHeaders []string, httpBody string, xURL string, handler func(*IcapRequest) (AdaptationResult, error)) (string, error) {
	var request string
	switch icapMethod {
	case "OPTIONS":
		return "", nil
	case "REQMOD":
		httpHeaders := ""
		for _, arg := range inputHTTPHeaders {
			httpHeaders = httpHeaders + arg + "\r\n"
		}
		httpHeaders += "\r\n"
		httpHeadersLen := len(httpHeaders)

		request = fmt.Sprintf("REQMOD icap://icap-server.net/modify ICAP/1.0\r\n"+
			"Host: icap-server.net\r\n"+
			Optional(xURL != "", fmt.Sprintf("X-Original-URL: %s\r\n", xURL), "")+
			Optional(httpBody != "", fmt.Sprintf("Encapsulated: req-hdr=0, req-body=%d\r\n", httpHeadersLen), "Encapsulated: req-hdr=0, null-body="+fmt.Sprint(httpHeadersLen)+"\r\n")+
			"\r\n"+
			"%s"+
			"%x\r\n"+
			"%s\r\n"+
			"0\r\n"+
			"\r\n", httpHeaders, len(httpBody), httpBody)

	case "RESPMOD":
		httpHeaders := ""
		for _, arg := range inputHTTPHeaders {
			httpHeaders = httpHeaders + arg + "\r\n"
		}
		httpHeaders += fmt.Sprintf("Content-Length: %d\r\n", len(httpBody))
		httpHeaders += "\r\n"
		httpHeadersLen := len(httpHeaders)

		request = fmt.Sprintf("RESPMOD icap://icap-server.net/modify ICAP/1.0\r\n"+
			"Host: icap-server.net\r\n"+
			Optional(xURL != "", fmt.Sprintf("X-ICAP-Request-URL: %s\r\n", xURL), "")+
			Optional(httpBody != "", fmt.Sprintf("Encapsulated: res-hdr=0, res-body=%d\r\n", httpHeadersLen), "Encapsulated: res-hdr=0, null-body="+fmt.Sprint(httpHeadersLen)+"\r\n")+
			"\r\n"+
			"%s"+
			"%x\r\n"+
			"%s\r\n"+
			"0\r\n"+
			"\r\n", httpHeaders, len(httpBody), httpBody)
	default:
		return "", nil
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer ln.Close()

	mux := NewServeMux()
	mux.HandleFunc("modify", handler)
	l := &Listener{Mux: mux}
	go l.Serve(ln)

	// Give the accept loop a moment to be ready for the dial below.
	time.Sleep(50 * time.Millisecond)

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		return "", err
	}
	defer conn.Close()

	io.WriteString(conn, request)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	reader := bufio.NewReader(conn)
	respBuffer := make([]byte, 4096)
	n, err := reader.Read(respBuffer)
	if err != nil {
		return "", err
	}

	return string(respBuffer[:n]), nil
}

// Optional returns a if condition holds, otherwise b. It exists to keep
// the conditional wire-fragment assembly above readable.
func Optional(condition bool, a string, b string) string {
	if condition {
		return a
	}
	return b
}
