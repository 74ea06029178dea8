package projector

import (
	"regexp"
	"strings"
)

// The wire protocol is plain text with carriage-return terminators.
// Prompts are matched as substrings of the accumulated stream rather
// than as complete lines: the projector pads its prompts inconsistently
// and TCP segmentation does not respect line boundaries.
var (
	// passwordPrompt matches the password request sent immediately
	// after the connection is accepted.
	passwordPrompt = regexp.MustCompile(`(?i)PASSWORD:`)

	// helloPrompt matches the ready greeting ("HELLO" or "Hello")
	// sent after the password is accepted.
	helloPrompt = regexp.MustCompile(`(?i)HELLO`)

	// powerToken matches the one-or-two character hex-like reply to a
	// CR0 power status query (e.g. "00", "80").
	powerToken = regexp.MustCompile(`[0-9A-Fa-f]{1,2}`)

	// inputToken matches the single character reply to a CR1 input
	// status query.
	inputToken = regexp.MustCompile(`[0-9A-Fa-f]`)
)

// EncodeCommand renders a command code for the wire: the code followed by
// a single carriage return. No other escaping is performed. An empty code
// encodes to a bare "\r", which is how an empty password is sent.
func EncodeCommand(code string) []byte {
	return append([]byte(code), '\r')
}

// LineDecoder reassembles carriage-return delimited lines from a TCP
// stream. The protocol gives no guarantee that reads are line-aligned, so
// any trailing partial line is retained until the next chunk arrives.
//
// The decoder also keeps the full accumulated text since the last Reset,
// which is what prompt detection matches against.
//
// The zero value is ready for use. Not safe for concurrent use; each
// session owns exactly one decoder.
type LineDecoder struct {
	text    strings.Builder
	pending []byte
}

// Feed appends a chunk of received bytes and returns any newly completed
// lines, split on '\r'. A trailing partial line is held back.
func (d *LineDecoder) Feed(chunk []byte) []string {
	d.text.Write(chunk)
	d.pending = append(d.pending, chunk...)

	var lines []string
	for {
		i := indexCR(d.pending)
		if i < 0 {
			return lines
		}
		lines = append(lines, string(d.pending[:i]))
		d.pending = d.pending[i+1:]
	}
}

// Text returns everything received since the last Reset, including any
// partial line. Prompt substrings are matched against this.
func (d *LineDecoder) Text() string {
	return d.text.String()
}

// Pending returns the current partial line, if any.
func (d *LineDecoder) Pending() string {
	return string(d.pending)
}

// Reset discards all accumulated text and any partial line. Sessions
// reset the decoder between protocol phases so that query replies are
// parsed only from bytes received after the query was sent.
func (d *LineDecoder) Reset() {
	d.text.Reset()
	d.pending = nil
}

func indexCR(b []byte) int {
	for i, c := range b {
		if c == '\r' {
			return i
		}
	}
	return -1
}
