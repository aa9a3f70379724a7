package temporal

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ParseError reports a literal that does not match the temporal grammar.
type ParseError struct {
	Kind    string // "date", "time" or "date/time"
	Literal string
	Reason  string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q as %s: %s", e.Literal, e.Kind, e.Reason)
}

type cacheKey struct {
	kind    byte
	literal string
}

type cacheEntry struct {
	date     Date
	time     Time
	dateTime DateTime
	err      error
}

// maxCacheEntries bounds the memo. Once full, new literals are parsed on
// every call.
const maxCacheEntries = 4096

// cache memoises successful parses. Entries are never modified after being
// stored.
var (
	cache     sync.Map // cacheKey -> cacheEntry
	cacheSize atomic.Int64
)

// ParseDate parses a YYYY-MM-DD literal.
func ParseDate(s string) (Date, error) {
	e := memo('d', s, func() cacheEntry {
		p := parser{kind: "date", src: s}
		d := p.date()
		p.end()
		return cacheEntry{date: d, err: p.err}
	})
	return e.date, e.err
}

// ParseTime parses an HH:mm, HH:mm:ss or HH:mm:ss.f literal.
func ParseTime(s string) (Time, error) {
	e := memo('t', s, func() cacheEntry {
		p := parser{kind: "time", src: s}
		t := p.time()
		p.end()
		return cacheEntry{time: t, err: p.err}
	})
	return e.time, e.err
}

// ParseDateTime parses a date literal optionally followed by 'T' and a time
// literal. A date alone is midnight of that day.
func ParseDateTime(s string) (DateTime, error) {
	e := memo('x', s, func() cacheEntry {
		p := parser{kind: "date/time", src: s}
		d := p.date()
		var t Time
		if p.err == nil && p.pos < len(p.src) {
			p.expect('T')
			t = p.time()
		}
		p.end()
		return cacheEntry{dateTime: DateTime{date: d, time: t}, err: p.err}
	})
	return e.dateTime, e.err
}

// MustParseDate is like ParseDate but panics on error.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MustParseTime is like ParseTime but panics on error.
func MustParseTime(s string) Time {
	t, err := ParseTime(s)
	if err != nil {
		panic(err)
	}
	return t
}

// MustParseDateTime is like ParseDateTime but panics on error.
func MustParseDateTime(s string) DateTime {
	dt, err := ParseDateTime(s)
	if err != nil {
		panic(err)
	}
	return dt
}

func memo(kind byte, s string, parse func() cacheEntry) cacheEntry {
	key := cacheKey{kind: kind, literal: s}
	if e, ok := cache.Load(key); ok {
		return e.(cacheEntry)
	}
	e := parse()
	if e.err != nil || cacheSize.Load() >= maxCacheEntries {
		return e
	}
	if _, loaded := cache.LoadOrStore(key, e); !loaded {
		cacheSize.Add(1)
	}
	return e
}

// parser is a single-use scanner. After the first failure every method is a
// no-op and err holds the failure.
type parser struct {
	kind string
	src  string
	pos  int
	err  error
}

func (p *parser) fail(format string, args ...any) {
	if p.err == nil {
		p.err = &ParseError{Kind: p.kind, Literal: p.src, Reason: fmt.Sprintf(format, args...)}
	}
}

func (p *parser) digits(n int) int {
	if p.err != nil {
		return 0
	}
	v := 0
	for i := 0; i < n; i++ {
		if p.pos >= len(p.src) {
			p.fail("unexpected end of input at offset %d", p.pos)
			return 0
		}
		c := p.src[p.pos]
		if c < '0' || c > '9' {
			p.fail("expected digit at offset %d, found %q", p.pos, c)
			return 0
		}
		v = v*10 + int(c-'0')
		p.pos++
	}
	return v
}

func (p *parser) expect(c byte) {
	if p.err != nil {
		return
	}
	if p.pos >= len(p.src) {
		p.fail("expected %q at offset %d, found end of input", c, p.pos)
		return
	}
	if p.src[p.pos] != c {
		p.fail("expected %q at offset %d, found %q", c, p.pos, p.src[p.pos])
		return
	}
	p.pos++
}

func (p *parser) peek(c byte) bool {
	return p.err == nil && p.pos < len(p.src) && p.src[p.pos] == c
}

func (p *parser) end() {
	if p.err == nil && p.pos != len(p.src) {
		p.fail("unexpected %q at offset %d", p.src[p.pos], p.pos)
	}
}

func (p *parser) date() Date {
	year := p.digits(4)
	p.expect('-')
	month := p.digits(2)
	p.expect('-')
	day := p.digits(2)
	if p.err != nil {
		return Date{}
	}
	d, err := NewDate(year, month, day)
	if err != nil {
		p.fail("%v", err)
		return Date{}
	}
	return d
}

func (p *parser) time() Time {
	hour := p.digits(2)
	p.expect(':')
	minute := p.digits(2)
	second, nanos := 0, 0
	if p.peek(':') {
		p.pos++
		second = p.digits(2)
		if p.peek('.') {
			p.pos++
			nanos = p.fraction()
		}
	}
	if p.err != nil {
		return Time{}
	}
	t, err := NewTime(hour, minute, second, nanos)
	if err != nil {
		p.fail("%v", err)
		return Time{}
	}
	return t
}

// fraction reads 1 to 9 digits and scales them to nanoseconds.
func (p *parser) fraction() int {
	start := p.pos
	v := 0
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		if p.pos-start == 9 {
			p.fail("more than 9 fractional digits at offset %d", p.pos)
			return 0
		}
		v = v*10 + int(p.src[p.pos]-'0')
		p.pos++
	}
	n := p.pos - start
	if n == 0 {
		p.fail("expected fractional digits at offset %d", p.pos)
		return 0
	}
	for ; n < 9; n++ {
		v *= 10
	}
	return v
}
