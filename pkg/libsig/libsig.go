// Package libsig implements the narrow library-signature-matching
// surface the flow-follower's CALL handling calls into. The
// perfect-hash generator a production matcher would normally be built
// on (original_source/src/perfhlib.c) is out of scope; this package
// provides only the interface contract and a trivial linear-scan
// default so the call site is exercised without that generator.
package libsig

// Matcher recognizes a known library routine from its byte pattern.
type Matcher interface {
	// Match reports whether pattern corresponds to a known library
	// routine, returning its name if so.
	Match(pattern []byte) (name string, ok bool)
}

// Signature is one entry of a linear-scan signature database.
type Signature struct {
	Name    string
	Pattern []byte // exact bytes to match, wildcards unsupported by this default matcher
}

// LinearMatcher is the trivial default Matcher: an ordered scan over a
// signature list, exact byte-for-byte comparison. A perfect-hash-backed
// matcher (out of scope) would replace this without changing the
// Matcher interface the flow-follower depends on.
type LinearMatcher struct {
	sigs []Signature
}

// NewLinearMatcher returns a matcher over sigs.
func NewLinearMatcher(sigs []Signature) *LinearMatcher {
	return &LinearMatcher{sigs: sigs}
}

// Match implements Matcher.
func (m *LinearMatcher) Match(pattern []byte) (string, bool) {
	for _, s := range m.sigs {
		if len(s.Pattern) != len(pattern) {
			continue
		}
		if bytesEqual(s.Pattern, pattern) {
			return s.Name, true
		}
	}
	return "", false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NoneMatcher never matches; used when no signature database is loaded.
type NoneMatcher struct{}

// Match implements Matcher.
func (NoneMatcher) Match(pattern []byte) (string, bool) { return "", false }
