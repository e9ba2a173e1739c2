package scout

import "strings"

const openTag = "<tool_call>"

// streamFilter withholds tool-call markup from a live token stream. Text
// flows through until an opening tag appears; from that point the rest of
// the turn is suppressed (the loop re-enters with the tool results, so
// nothing after a call is worth showing). A trailing fragment that could be
// the start of a tag is held back until the next chunk decides it.
type streamFilter struct {
	inCall  bool
	pending string
}

func newStreamFilter() *streamFilter {
	return &streamFilter{}
}

// feed accepts the next raw chunk and returns the text safe to emit now.
func (f *streamFilter) feed(chunk string) string {
	if f.inCall {
		return ""
	}

	buf := f.pending + chunk
	f.pending = ""

	if i := strings.Index(strings.ToLower(buf), openTag); i >= 0 {
		f.inCall = true
		return buf[:i]
	}

	// Hold back a suffix that might grow into an opening tag.
	if k := tagPrefixLen(buf); k > 0 {
		f.pending = buf[len(buf)-k:]
		return buf[:len(buf)-k]
	}
	return buf
}

// flush releases any withheld suffix at end of turn; what looked like a tag
// prefix turned out to be plain text.
func (f *streamFilter) flush() string {
	if f.inCall {
		return ""
	}
	tail := f.pending
	f.pending = ""
	return tail
}

// tagPrefixLen returns the length of the longest suffix of s that is a
// proper prefix of the opening tag, case-insensitively.
func tagPrefixLen(s string) int {
	max := len(openTag) - 1
	if len(s) < max {
		max = len(s)
	}
	for k := max; k > 0; k-- {
		if strings.EqualFold(s[len(s)-k:], openTag[:k]) {
			return k
		}
	}
	return 0
}
