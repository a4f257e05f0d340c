/*
Package icap implements the Internet Content Adaptation Protocol (ICAP) as
defined in RFC 3507.

ICAP is a protocol that allows edge devices such as proxies to offload tasks
to dedicated servers. It is commonly used for content filtering, antivirus
scanning, and other content adaptation services.

This package provides a server implementation of the ICAP protocol: the wire
codec for requests and responses, the Encapsulated-header bookkeeping that
locates sub-entities within a request's payload, and a per-connection session
loop that dispatches to a pluggable Handler.

Basic usage example:

	package main

	import (
		"fmt"
		"os"

		"github.com/gocap/icap"
	)

	func main() {
		icap.HandleFunc("example", exampleHandler)
		fmt.Println("Starting ICAP server on port 1344...")
		if err := icap.ListenAndServe(":1344", nil); err != nil {
			fmt.Println("Error starting server:", err)
			os.Exit(1)
		}
	}

	func exampleHandler(req *icap.IcapRequest) (icap.AdaptationResult, error) {
		headers := icap.NewHeader()

		switch req.RequestLine.Method {
		case icap.OPTIONS:
			headers.Set("Methods", "REQMOD")
			headers.Set("Allow", "204")
			return icap.AdaptationResult{StatusCode: 200, Headers: headers}, nil
		case icap.REQMOD:
			return icap.AdaptationResult{
				Content:           req.Body,
				StatusCode:        200,
				Headers:           headers,
				ContentWasAltered: false,
			}, nil
		default:
			return icap.AdaptationResult{StatusCode: 405, Headers: headers}, nil
		}
	}
*/
package icap
