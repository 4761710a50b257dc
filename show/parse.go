// Package show turns an operator-level show description into the
// per-device directives the controller transmits. The syntax is the
// historical console format:
//
//	<dev>{<red>,<orange>,<green>[,<off>]}[@<volume>];...
//
// where <dev> is a two-digit device id, offsets are seconds relative
// to the batch's master start, and the optional @<volume> overrides
// the default playback volume. A malformed entry is skipped with an
// error; the rest of the batch proceeds, since a show should run for
// reachable devices even when one line is wrong.
package show

import (
	"fmt"
	"strconv"
	"strings"

	proto "github.com/jmercer/startgate/protocol"
)

// maxOffsetSeconds is the largest offset a decisecond u16 can carry.
const maxOffsetSeconds = 6553.5

// Entry is one parsed show line before compilation.
type Entry struct {
	DeviceID uint8
	Offsets  []float64 // seconds from master start
	Volume   int       // -1 when the entry names no volume
}

// Parse scans a show description with a small recursive-descent
// parser. It returns every valid entry plus one error per rejected
// entry; callers log the errors and carry on.
func Parse(input string) ([]Entry, []error) {
	p := &parser{s: input}
	var entries []Entry
	var errs []error

	p.skipSpace()
	for !p.eof() {
		start := p.pos
		entry, err := p.entry()
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: entry at offset %d: %v", proto.ErrInvalidDirective, start, err))
			p.skipToSeparator()
		} else {
			entries = append(entries, entry)
		}
		p.accept(';')
		p.skipSpace()
	}
	return entries, errs
}

type parser struct {
	s   string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.s) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.s[p.pos]
}

func (p *parser) accept(c byte) bool {
	if !p.eof() && p.s[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for !p.eof() && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t' || p.s[p.pos] == '\n') {
		p.pos++
	}
}

func (p *parser) skipToSeparator() {
	for !p.eof() && p.s[p.pos] != ';' {
		p.pos++
	}
}

// entry := deviceId '{' offsets '}' [ '@' volume ]
func (p *parser) entry() (Entry, error) {
	entry := Entry{Volume: -1}

	id, err := p.deviceID()
	if err != nil {
		return entry, err
	}
	entry.DeviceID = id

	if !p.accept('{') {
		return entry, fmt.Errorf("expected '{' after device id")
	}
	offsets, err := p.offsets()
	if err != nil {
		return entry, err
	}
	if !p.accept('}') {
		return entry, fmt.Errorf("expected '}' after offsets")
	}
	entry.Offsets = offsets

	if p.accept('@') {
		vol, err := p.integer()
		if err != nil {
			return entry, fmt.Errorf("volume: %v", err)
		}
		entry.Volume = vol
	}

	p.skipSpace()
	if !p.eof() && p.peek() != ';' {
		return entry, fmt.Errorf("unexpected %q after entry", p.peek())
	}
	return entry, nil
}

// deviceId := digit digit
func (p *parser) deviceID() (uint8, error) {
	start := p.pos
	for !p.eof() && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	tok := p.s[start:p.pos]
	if len(tok) != 2 {
		return 0, fmt.Errorf("device id must be two digits, got %q", tok)
	}
	n, _ := strconv.Atoi(tok)
	return uint8(n), nil
}

// offsets := number (',' number)*  — 3 or 4 required
func (p *parser) offsets() ([]float64, error) {
	var out []float64
	for {
		n, err := p.number()
		if err != nil {
			return nil, err
		}
		if n < 0 || n > maxOffsetSeconds {
			return nil, fmt.Errorf("offset %v out of range 0..%v", n, maxOffsetSeconds)
		}
		out = append(out, n)
		if !p.accept(',') {
			break
		}
	}
	if len(out) < proto.MinSteps || len(out) > proto.MaxSteps {
		return nil, fmt.Errorf("need %d or %d offsets, got %d", proto.MinSteps, proto.MaxSteps, len(out))
	}
	return out, nil
}

func (p *parser) number() (float64, error) {
	start := p.pos
	for !p.eof() && (p.s[p.pos] == '.' || (p.s[p.pos] >= '0' && p.s[p.pos] <= '9')) {
		p.pos++
	}
	tok := p.s[start:p.pos]
	if tok == "" {
		return 0, fmt.Errorf("expected number")
	}
	n, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", tok)
	}
	return n, nil
}

func (p *parser) integer() (int, error) {
	start := p.pos
	for !p.eof() && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	tok := p.s[start:p.pos]
	if tok == "" {
		return 0, fmt.Errorf("expected integer")
	}
	return strconv.Atoi(tok)
}

// String renders an entry back in show syntax, for logs and status
// output.
func (e Entry) String() string {
	parts := make([]string, len(e.Offsets))
	for i, o := range e.Offsets {
		parts[i] = strconv.FormatFloat(o, 'g', -1, 64)
	}
	s := fmt.Sprintf("%02d{%s}", e.DeviceID, strings.Join(parts, ","))
	if e.Volume >= 0 {
		s += fmt.Sprintf("@%d", e.Volume)
	}
	return s
}
