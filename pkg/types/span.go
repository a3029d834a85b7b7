package types

// Span is an immutable view on part of an expression buffer.
//
// Several walks may re-scan the same span; nothing ever mutates it.
type Span struct {
	buf   string
	start int
	end   int
}

// NewSpan returns the span buf[start:end], clamped to the buffer.
func NewSpan(buf string, start, end int) Span {
	if start < 0 {
		start = 0
	}
	if end > len(buf) {
		end = len(buf)
	}
	if end < start {
		end = start
	}
	return Span{buf: buf, start: start, end: end}
}

// SpanOf returns a span covering the whole of s.
func SpanOf(s string) Span {
	return Span{buf: s, end: len(s)}
}

// Buffer returns the owning buffer.
func (s Span) Buffer() string { return s.buf }

// Start returns the start offset within the buffer.
func (s Span) Start() int { return s.start }

// End returns the end offset (exclusive) within the buffer.
func (s Span) End() int { return s.end }

// Len returns the number of bytes in the span.
func (s Span) Len() int { return s.end - s.start }

// String returns the text of the span.
func (s Span) String() string { return s.buf[s.start:s.end] }
