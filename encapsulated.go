package icap

import (
	"strconv"
	"strings"
)

// encapsulatedEntry is one "name=offset" pair from a parsed
// Encapsulated header, in the order it appeared on the wire.
type encapsulatedEntry struct {
	Name   EncapsulatedEntityName
	Offset int
}

// parseEncapsulatedHeader parses the (at most one) Encapsulated header
// value bound to a request. method determines whether
// the header's absence is tolerated (OPTIONS) or fatal (REQMOD/RESPMOD).
func parseEncapsulatedHeader(values []string, method IcapMethod) ([]encapsulatedEntry, error) {
	if len(values) == 0 {
		if method == REQMOD || method == RESPMOD {
			return nil, &ParseError{Kind: MissingEncapsulatedHeader, Observed: "(missing)", Expected: "an Encapsulated header"}
		}
		return nil, nil
	}

	if len(values) != 1 {
		return nil, &ParseError{
			Kind:     MultipleEncapsulatedHeaders,
			Observed: strconv.Itoa(len(values)),
			Expected: "exactly one Encapsulated header",
		}
	}

	var entries []encapsulatedEntry
	seen := make(map[EncapsulatedEntityName]bool)
	previousOffset := -1

	for _, rawEntity := range strings.Split(values[0], ",") {
		entity := strings.TrimSpace(rawEntity)
		nameValue := strings.SplitN(entity, "=", 2)
		if len(nameValue) != 2 {
			return nil, &ParseError{Kind: BadEncapsulatedEntityName, Observed: entity, Expected: `"name=offset"`}
		}
		nameToken, offsetToken := nameValue[0], nameValue[1]

		if !isKnownEntityName(nameToken) {
			return nil, &ParseError{
				Kind:     BadEncapsulatedEntityName,
				Observed: nameToken,
				Expected: "one of req-hdr, res-hdr, req-body, res-body, opt-body, null-body",
			}
		}
		name := EncapsulatedEntityName(nameToken)

		if seen[name] {
			return nil, &ParseError{Kind: DuplicateEncapsulatedEntityName, Observed: nameToken}
		}
		seen[name] = true

		offset, err := strconv.Atoi(offsetToken)
		if err != nil {
			return nil, &ParseError{Kind: EncapsulatedOffsetNotInteger, Observed: offsetToken, Expected: "an integer"}
		}
		if offset < 0 {
			return nil, &ParseError{Kind: NegativeEncapsulatedOffset, Observed: offsetToken, Expected: "a non-negative integer"}
		}
		if offset <= previousOffset {
			return nil, &ParseError{
				Kind:     NonIncreasingEncapsulatedOffset,
				Observed: offsetToken,
				Expected: "an integer greater than " + strconv.Itoa(previousOffset),
			}
		}
		previousOffset = offset

		entries = append(entries, encapsulatedEntry{Name: name, Offset: offset})
	}

	return entries, nil
}

// emitEncapsulatedHeader builds the value of a synthesised Encapsulated
// header for a response. headerEntity is
// the empty string when the method has no header entity (OPTIONS).
func emitEncapsulatedHeader(headerEntity EncapsulatedEntityName, headerPresent bool, headerLen int, bodyEntity EncapsulatedEntityName, bodyPresent bool) string {
	effectiveBodyEntity := bodyEntity
	if !bodyPresent {
		effectiveBodyEntity = NullBody
	}

	if headerPresent && headerEntity != "" {
		return string(headerEntity) + "=0, " + string(effectiveBodyEntity) + "=" + strconv.Itoa(headerLen)
	}
	return string(effectiveBodyEntity) + "=0"
}
