package icap

import "strings"

// Header is an ordered multimap of lowercased header names to their
// raw values, matching the ICAP data model: header name comparison is
// case-insensitive, a name may repeat with order
// preserved within that name, but order between distinct names is not
// significant on the wire and so is tracked only for deterministic
// serialization.
type Header struct {
	order  []string
	values map[string][]string
}

// NewHeader returns an empty Header ready for use.
func NewHeader() Header {
	return Header{values: make(map[string][]string)}
}

func canonicalHeaderName(name string) string {
	return strings.ToLower(name)
}

// Add appends value to name's list, lowercasing name for storage.
func (h *Header) Add(name, value string) {
	if h.values == nil {
		h.values = make(map[string][]string)
	}
	name = canonicalHeaderName(name)
	if _, ok := h.values[name]; !ok {
		h.order = append(h.order, name)
	}
	h.values[name] = append(h.values[name], value)
}

// Set replaces all existing values for name with a single value.
func (h *Header) Set(name, value string) {
	if h.values == nil {
		h.values = make(map[string][]string)
	}
	name = canonicalHeaderName(name)
	if _, ok := h.values[name]; !ok {
		h.order = append(h.order, name)
	}
	h.values[name] = []string{value}
}

// Get returns the first value stored for name, or "" if absent.
func (h Header) Get(name string) string {
	vs := h.values[canonicalHeaderName(name)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns every value stored for name, in the order added.
func (h Header) Values(name string) []string {
	return h.values[canonicalHeaderName(name)]
}

// Has reports whether name has at least one value.
func (h Header) Has(name string) bool {
	_, ok := h.values[canonicalHeaderName(name)]
	return ok
}

// Del removes every value stored for name.
func (h *Header) Del(name string) {
	name = canonicalHeaderName(name)
	if _, ok := h.values[name]; !ok {
		return
	}
	delete(h.values, name)
	for i, n := range h.order {
		if n == name {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Names returns the stored header names in first-insertion order.
func (h Header) Names() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Clone returns an independent copy of h.
func (h Header) Clone() Header {
	out := NewHeader()
	for _, name := range h.order {
		out.order = append(out.order, name)
		vs := make([]string, len(h.values[name]))
		copy(vs, h.values[name])
		out.values[name] = vs
	}
	return out
}

// commaTokenPresent reports whether token appears, after trimming
// surrounding whitespace, as one of the comma-separated items across
// all of name's values. This is used for headers such as Allow, which
// may carry "204" alongside other tokens in a single comma-separated
// value or spread across repeated header lines.
func (h Header) commaTokenPresent(name, token string) bool {
	for _, value := range h.Values(name) {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == token {
				return true
			}
		}
	}
	return false
}
