package icap

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// requestLinePattern matches "METHOD icap://URI ICAP/MAJOR.MINOR".
var requestLinePattern = regexp.MustCompile(`^([^ ]+) icap://([^ ]+) ICAP/(\d+)\.(\d+)$`)

// IcapRequestLine is the parsed first line of an ICAP request.
type IcapRequestLine struct {
	Method       IcapMethod
	URI          *url.URL
	VersionMajor int
	VersionMinor int
}

// ServiceName returns the routing key: the URI path with its leading
// slash removed.
func (l IcapRequestLine) ServiceName() string {
	return strings.TrimPrefix(l.URI.Path, "/")
}

// String renders the request line back to wire form.
func (l IcapRequestLine) String() string {
	return fmt.Sprintf("%s icap://%s ICAP/%d.%d", l.Method, l.URI.Host+l.URI.RequestURI(), l.VersionMajor, l.VersionMinor)
}

// parseRequestLine parses a trimmed request line. A method token
// outside the closed IcapMethod enumeration
// produces a BadIcapMethod error instead of MalformedRequestLine, even
// though the line otherwise matched the grammar.
func parseRequestLine(line string) (IcapRequestLine, error) {
	line = strings.TrimRight(line, "\r\n")
	m := requestLinePattern.FindStringSubmatch(line)
	if m == nil {
		return IcapRequestLine{}, &ParseError{
			Kind:     MalformedRequestLine,
			Observed: line,
			Expected: `"Method SP icap://URI SP ICAP/Major.Minor"`,
		}
	}

	method, err := parseIcapMethod(m[1])
	if err != nil {
		return IcapRequestLine{}, err
	}

	u, err := url.Parse("icap://" + m[2])
	if err != nil {
		return IcapRequestLine{}, &ParseError{
			Kind:     MalformedRequestLine,
			Observed: line,
			Expected: "a valid icap:// URI",
		}
	}

	major, _ := strconv.Atoi(m[3])
	minor, _ := strconv.Atoi(m[4])

	return IcapRequestLine{
		Method:       method,
		URI:          u,
		VersionMajor: major,
		VersionMinor: minor,
	}, nil
}
