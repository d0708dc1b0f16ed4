// Package smtpreply implements the SMTP reply-line state machine used to
// recognize server greetings, shutdown notices, and multiline replies
// while transiting an SMTP connection (spec §4.2).
package smtpreply

import "fmt"

// ReplyCode is a three-digit SMTP reply code (RFC 5321 §4.2), stored as its
// three ASCII digit bytes rather than an integer so construction can reject
// digits outside the ranges the RFC actually allows per position.
type ReplyCode struct {
	a, b, c byte
	set     bool
}

// NewReplyCode validates and builds a ReplyCode from three ASCII digit
// bytes. The first digit is restricted to 2-5 (RFC 5321 reply code
// classes), the rest to ordinary decimal digits with the second restricted
// to 0-5 as the classification digit.
func NewReplyCode(a, b, c byte) (ReplyCode, bool) {
	if a < 0x32 || a > 0x35 {
		return ReplyCode{}, false
	}
	if b < 0x30 || b > 0x35 {
		return ReplyCode{}, false
	}
	if c < 0x30 || c > 0x39 {
		return ReplyCode{}, false
	}
	return ReplyCode{a: a, b: b, c: c, set: true}, true
}

func (r ReplyCode) String() string {
	if !r.set {
		return ""
	}
	return string([]byte{r.a, r.b, r.c})
}

func (r ReplyCode) isSet() bool { return r.set }

// Named reply codes the inspection path recognizes without constructing a
// ReplyCode by hand (spec supplement, reinstated from the original's
// SERVICE_READY/NO_SERVICE constants).
var (
	CodeServiceReady = ReplyCode{a: '2', b: '2', c: '0', set: true}
	CodeNoService    = ReplyCode{a: '5', b: '5', c: '4', set: true}
)

// LineErrorKind is the closed set of reasons feeding a reply line can fail.
type LineErrorKind int

const (
	TooShort LineErrorKind = iota
	InvalidCode
	InvalidDelimiter
	Finished
)

func (k LineErrorKind) String() string {
	switch k {
	case TooShort:
		return "too short"
	case InvalidCode:
		return "invalid code"
	case InvalidDelimiter:
		return "invalid delimiter"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// LineError reports why FeedLine rejected a reply line.
type LineError struct{ Kind LineErrorKind }

func (e *LineError) Error() string { return fmt.Sprintf("smtp reply line: %s", e.Kind) }

func lineErr(k LineErrorKind) error { return &LineError{Kind: k} }

// MaxLineSize is the SMTP reply line length limit, matching the wire limit
// most SMTP servers enforce on a single reply line. FeedLine does not check
// line length against it.
const MaxLineSize = 512

// Response accumulates one (possibly multiline) SMTP reply across however
// many FeedLine calls it takes to see the final line.
type Response struct {
	code      ReplyCode
	multiline bool
}

// FeedLine consumes one reply line (without its trailing CRLF) and returns
// the remainder after the 3-digit code and its delimiter. A space or bare
// CRLF/EOF after the code ends the reply; a hyphen marks a continuation.
func (r *Response) FeedLine(line []byte) ([]byte, error) {
	if r.code.isSet() {
		return r.feedFollowingLine(line)
	}
	return r.feedFirstLine(line)
}

func (r *Response) feedFirstLine(line []byte) ([]byte, error) {
	if len(line) < 3 {
		return nil, lineErr(TooShort)
	}
	code, ok := NewReplyCode(line[0], line[1], line[2])
	if !ok {
		return nil, lineErr(InvalidCode)
	}
	r.code = code

	if len(line) == 3 {
		r.multiline = false
		return line[3:], nil
	}
	switch line[3] {
	case ' ', '\r', '\n':
		r.multiline = false
	case '-':
		r.multiline = true
	default:
		return nil, lineErr(InvalidDelimiter)
	}
	return line[4:], nil
}

func (r *Response) feedFollowingLine(line []byte) ([]byte, error) {
	if !r.multiline {
		return nil, lineErr(Finished)
	}
	if len(line) < 3 {
		return nil, lineErr(TooShort)
	}
	code, ok := NewReplyCode(line[0], line[1], line[2])
	if !ok {
		return nil, lineErr(InvalidCode)
	}
	if code != r.code {
		return nil, lineErr(InvalidCode)
	}

	if len(line) == 3 {
		r.multiline = false
		return line[3:], nil
	}
	switch line[3] {
	case ' ', '\r', '\n':
		r.multiline = false
	case '-':
		// still multiline
	default:
		return nil, lineErr(InvalidDelimiter)
	}
	return line[4:], nil
}

// Finished reports whether the reply is complete: a code has been seen and
// no further continuation line is expected.
func (r *Response) Finished() bool { return r.code.isSet() && !r.multiline }

// Code returns the reply code seen so far; the zero value if none yet.
func (r *Response) Code() ReplyCode { return r.code }
