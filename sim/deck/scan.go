package deck

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/resbridge/resbridge/sim"
)

// tok is a single data token with the line it came from, so size and format
// errors can cite their origin.
type tok struct {
	val  string
	line int
}

// line is one comment-stripped, trimmed deck line.
type line struct {
	num  int
	text string
}

// scanner holds the comment-stripped lines of a deck. Decks are small
// enough to read up front.
type scanner struct {
	src   string
	lines []line
	idx   int
}

func newScanner(src string, r io.Reader) (*scanner, error) {
	sc := &scanner{src: src}
	br := bufio.NewScanner(r)
	br.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	num := 0
	for br.Scan() {
		num++
		text := br.Text()
		if i := strings.Index(text, "--"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		sc.lines = append(sc.lines, line{num: num, text: text})
	}
	if err := br.Err(); err != nil {
		return nil, &sim.ParseError{Source: src, Line: num, Msg: err.Error()}
	}
	return sc, nil
}

// peek returns the next line without consuming it, or nil at EOF.
func (sc *scanner) peek() *line {
	if sc.idx >= len(sc.lines) {
		return nil
	}
	return &sc.lines[sc.idx]
}

func (sc *scanner) next() *line {
	l := sc.peek()
	if l != nil {
		sc.idx++
	}
	return l
}

func (sc *scanner) lastLine() int {
	if len(sc.lines) == 0 {
		return 0
	}
	return sc.lines[len(sc.lines)-1].num
}

// readRecord collects tokens starting with rest (remainder of the keyword
// line) until a slash terminator, expanding the N*value repetition
// shorthand. The slash may close a data line or stand alone.
func (sc *scanner) readRecord(keyword string, kwLine int, rest []string) ([]tok, error) {
	var out []tok
	appendToks := func(fields []string, num int) (bool, error) {
		for _, f := range fields {
			if f == "/" {
				return true, nil
			}
			done := false
			if strings.HasSuffix(f, "/") {
				f = strings.TrimSuffix(f, "/")
				done = true
			}
			if f != "" {
				expanded, err := expandToken(sc.src, keyword, f, num)
				if err != nil {
					return false, err
				}
				out = append(out, expanded...)
			}
			if done {
				return true, nil
			}
		}
		return false, nil
	}

	if done, err := appendToks(rest, kwLine); err != nil || done {
		return out, err
	}
	for {
		l := sc.next()
		if l == nil {
			return nil, &sim.ParseError{Source: sc.src, Line: sc.lastLine(), Keyword: keyword, Msg: "unterminated record (missing /)"}
		}
		if done, err := appendToks(strings.Fields(l.text), l.num); err != nil || done {
			return out, err
		}
	}
}

// expandToken applies the N*value shorthand: "3*0.25" becomes three copies
// of "0.25" before numeric interpretation.
func expandToken(src, keyword, f string, num int) ([]tok, error) {
	star := strings.Index(f, "*")
	if star <= 0 {
		return []tok{{val: f, line: num}}, nil
	}
	count, err := strconv.Atoi(f[:star])
	if err != nil {
		// Not a repeat count (e.g. a quoted name containing *); keep as-is.
		return []tok{{val: f, line: num}}, nil
	}
	value := f[star+1:]
	if count <= 0 || value == "" {
		return nil, &sim.ParseError{Source: src, Line: num, Keyword: keyword, Msg: "malformed repetition " + strconv.Quote(f)}
	}
	out := make([]tok, count)
	for i := range out {
		out[i] = tok{val: value, line: num}
	}
	return out, nil
}

// unquote strips the single quotes the deck format allows around names.
func unquote(s string) string {
	return strings.Trim(s, "'")
}

func parseFloats(src, keyword string, toks []tok) ([]float64, error) {
	out := make([]float64, len(toks))
	for i, t := range toks {
		v, err := strconv.ParseFloat(t.val, 64)
		if err != nil {
			return nil, &sim.ParseError{Source: src, Line: t.line, Keyword: keyword, Msg: "bad number " + strconv.Quote(t.val)}
		}
		out[i] = v
	}
	return out, nil
}

func parseInt(src, keyword string, t tok) (int, error) {
	v, err := strconv.Atoi(t.val)
	if err != nil {
		return 0, &sim.ParseError{Source: src, Line: t.line, Keyword: keyword, Msg: "bad integer " + strconv.Quote(t.val)}
	}
	return v, nil
}
