// Copyright 2011 Andy Balholm. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package icap

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func mustReadRequest(t *testing.T, wire string) *IcapRequest {
	t.Helper()
	req, err := ReadRequest(NewStreamReader(strings.NewReader(wire)))
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	if req == nil {
		t.Fatalf("ReadRequest: unexpected clean EOF")
	}
	return req
}

func TestReadRequestEOF(t *testing.T) {
	req, err := ReadRequest(NewStreamReader(strings.NewReader("")))
	if err != nil {
		t.Fatalf("expected clean EOF, got error %v", err)
	}
	if req != nil {
		t.Fatalf("expected nil request on clean EOF, got %+v", req)
	}
}

func TestReadRequestLineAndHeaders(t *testing.T) {
	httpHeaders := "GET /example.html HTTP/1.1\r\n" +
		"Host: www.example.com\r\n" +
		"Accept: text/html\r\n" +
		"\r\n"
	httpBody := "This is a test request body."

	wire := fmt.Sprintf("REQMOD icap://icap-server.net/modify ICAP/1.0\r\n"+
		"Host: icap-server.net\r\n"+
		"Allow: 204\r\n"+
		"Encapsulated: req-hdr=0, req-body=%d\r\n"+
		"\r\n"+
		"%s"+
		"%x\r\n"+
		"%s\r\n"+
		"0\r\n"+
		"\r\n", len(httpHeaders), httpHeaders, len(httpBody), httpBody)

	req := mustReadRequest(t, wire)

	if req.RequestLine.Method != REQMOD {
		t.Errorf("Method = %v, want REQMOD", req.RequestLine.Method)
	}
	if got := req.RequestLine.ServiceName(); got != "modify" {
		t.Errorf("ServiceName = %q, want %q", got, "modify")
	}
	if req.RequestLine.VersionMajor != 1 || req.RequestLine.VersionMinor != 0 {
		t.Errorf("version = %d.%d, want 1.0", req.RequestLine.VersionMajor, req.RequestLine.VersionMinor)
	}
	if got := req.Headers.Get("host"); got != "icap-server.net" {
		t.Errorf("Host header (looked up lowercased) = %q, want %q", got, "icap-server.net")
	}
	if !allowsTwoOhFour(req.Headers) {
		t.Errorf("expected Allow: 204 to be detected")
	}

	wantHeader := httpHeaders[:len(httpHeaders)-2] // the trailing blank-line CRLF is stripped off as the terminator
	if !bytes.Equal(req.Body.RequestHeader, []byte(wantHeader)) {
		t.Errorf("RequestHeader = %q, want %q", req.Body.RequestHeader, wantHeader)
	}
	if !bytes.Equal(req.Body.RequestBody, []byte(httpBody)) {
		t.Errorf("RequestBody = %q, want %q", req.Body.RequestBody, httpBody)
	}
}

func TestReadRequestHeaderCaseInsensitivity(t *testing.T) {
	wire := "OPTIONS icap://h/svc ICAP/1.0\r\n" +
		"Host: h\r\n" +
		"Allow: 204\r\n" +
		"Encapsulated: null-body=0\r\n" +
		"\r\n"

	req := mustReadRequest(t, wire)
	if got := req.Headers.Get("ALLOW"); got != "204" {
		t.Errorf("Get(\"ALLOW\") = %q, want %q", got, "204")
	}
	if got := req.Headers.Get("allow"); got != "204" {
		t.Errorf("Get(\"allow\") = %q, want %q", got, "204")
	}
}

func TestReadRequestMalformedRequestLine(t *testing.T) {
	_, err := ReadRequest(NewStreamReader(strings.NewReader("HELLO icap://h/svc ICAP/1.0\r\n\r\n")))
	var pe *ParseError
	if err == nil {
		t.Fatal("expected an error for an unknown method")
	}
	if !asParseError(err, &pe) {
		t.Fatalf("expected a *ParseError, got %T: %v", err, err)
	}
	if pe.Kind != BadIcapMethod {
		t.Errorf("Kind = %v, want BadIcapMethod", pe.Kind)
	}
}

func TestReadRequestNonIncreasingOffset(t *testing.T) {
	wire := "REQMOD icap://h/svc ICAP/1.0\r\n" +
		"Host: h\r\n" +
		"Encapsulated: req-hdr=0, req-body=0\r\n" +
		"\r\n"

	_, err := ReadRequest(NewStreamReader(strings.NewReader(wire)))
	var pe *ParseError
	if !asParseError(err, &pe) || pe.Kind != NonIncreasingEncapsulatedOffset {
		t.Fatalf("expected NonIncreasingEncapsulatedOffset, got %v", err)
	}
}

func TestReadRequestMissingEncapsulatedHeader(t *testing.T) {
	wire := "REQMOD icap://h/svc ICAP/1.0\r\nHost: h\r\n\r\n"
	_, err := ReadRequest(NewStreamReader(strings.NewReader(wire)))
	var pe *ParseError
	if !asParseError(err, &pe) || pe.Kind != MissingEncapsulatedHeader {
		t.Fatalf("expected MissingEncapsulatedHeader, got %v", err)
	}
}

func TestReadRequestOptionsWithoutEncapsulatedHeader(t *testing.T) {
	wire := "OPTIONS icap://h/svc ICAP/1.0\r\nHost: h\r\n\r\n"
	req, err := ReadRequest(NewStreamReader(strings.NewReader(wire)))
	if err != nil {
		t.Fatalf("OPTIONS without Encapsulated should be tolerated, got %v", err)
	}
	if req.Body.RequestHeader != nil || req.Body.ResponseHeader != nil ||
		req.Body.RequestBody != nil || req.Body.ResponseBody != nil || req.Body.OptionsBody != nil {
		t.Errorf("expected empty EncapsulatedData, got %+v", req.Body)
	}
}

// asParseError is a small stand-in for errors.As kept local to this file
// to avoid importing the "errors" package purely for test plumbing. It
// is a plain type assertion and does not unwrap wrapped errors.
func asParseError(err error, target **ParseError) bool {
	pe, ok := err.(*ParseError)
	if !ok {
		return false
	}
	*target = pe
	return true
}
