package icap

import (
	"fmt"
)

// statusReasons maps a numeric status code to its canonical reason
// phrase: ICAP's own 100 and 204, plus the HTTP status codes ICAP
// borrows wholesale from HTTP.
var statusReasons = map[int]string{
	100: "Continue",
	101: "Switching Protocols",
	200: "OK",
	201: "Created",
	202: "Accepted",
	203: "Non-Authoritative Information",
	204: "No Content",
	205: "Reset Content",
	206: "Partial Content",
	300: "Multiple Choices",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	305: "Use Proxy",
	307: "Temporary Redirect",
	400: "Bad Request",
	401: "Unauthorized",
	402: "Payment Required",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	407: "Proxy Authentication Required",
	408: "Request Timeout",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	412: "Precondition Failed",
	413: "Request Entity Too Large",
	414: "Request-URI Too Long",
	415: "Unsupported Media Type",
	416: "Requested Range Not Satisfiable",
	417: "Expectation Failed",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "Protocol Version Not Supported",
}

// statusLine serialises an ICAP status line. A caller-supplied reason
// overrides the table; otherwise code must be present in the table.
func statusLine(code int, reason string) ([]byte, error) {
	if reason == "" {
		var ok bool
		reason, ok = statusReasons[code]
		if !ok {
			return nil, fmt.Errorf("icap: no reason phrase known for status code %d", code)
		}
	}
	return []byte(fmt.Sprintf("ICAP/1.0 %d %s\r\n", code, reason)), nil
}
