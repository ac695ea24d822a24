package decode

import (
	"reflect"
	"unicode/utf8"
)

// DefaultMaxDepth bounds the parser's state-stack depth as a stack guard;
// a push that would exceed it fails with UnexpectedToken. Every frame on
// the stack counts, not only objects and arrays: a scalar terminal and the
// lexical primitive it pushes take one frame each, so the number of nested
// objects/arrays that fit is somewhat below this value.
const DefaultMaxDepth = 512

// Options configures a single parse. The zero value is not ready to use;
// construct with NewOptions.
type Options struct {
	MaxDepth              int
	RejectUnknownFields   bool
	StrictDuplicateFields bool
}

// NewOptions returns the default Options (matching the mapper facade's
// Config defaults): unknown fields are discarded, duplicate fields use
// last-write-wins, nesting is capped at DefaultMaxDepth.
func NewOptions() Options {
	return Options{MaxDepth: DefaultMaxDepth}
}

// frame is one entry of the state stack: the state node plus whatever
// progress bookkeeping that node needs between successive Advance calls.
// progress is the small integer sub-step spec describes (e.g. for Object:
// expecting-open-brace, expecting-key, ...); scratch holds whatever
// additional per-frame data a state needs (a pending FieldSpec, a
// partially-read key string, an in-progress composite value) without that
// state's single shared instance in the plan tree needing any mutable
// state of its own (plan nodes are immutable and reused across parses).
type frame struct {
	state    State
	progress int
	scratch  any
}

// Context is the per-parse, single-threaded, resumable parser state: the
// byte buffer cursor, the suspension stack of in-progress states, the
// token scratchpad for the scalar currently being scanned, the value stack
// for assembling composite results, and escape-state that survives a
// buffer refill mid-escape-sequence.
type Context struct {
	opts Options

	buf []byte
	pos int

	// base is the total number of bytes consumed in prior chunks, so that
	// error offsets and the `pos` exposed to callers are absolute across a
	// streaming feed rather than relative to the current chunk.
	base int64

	stack []frame

	token []byte

	// escapeHigh holds a pending UTF-16 high surrogate half read across a
	// buffer boundary, so a `\uD800`..`\uDBFF` followed later by its low
	// surrogate half still decodes to one rune even when the two escapes
	// land in different chunks.
	escapeHigh    rune
	hasEscapeHigh bool

	values []reflect.Value

	suspended bool
	done      bool
	atEOF     bool
	result    reflect.Value
}

// NewContext creates a parse context rooted at root, configured by opts.
func NewContext(root State, opts Options) *Context {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	c := &Context{opts: opts}
	c.stack = append(c.stack, frame{state: root})
	return c
}

// Feed supplies the next chunk of input. It drives the state machine until
// either the stack empties (the value is complete and Finish may be
// called), input exhausts (Suspended reports true and more bytes must be
// fed), or a failure occurs.
func (c *Context) Feed(chunk []byte) error {
	c.buf = chunk
	c.pos = 0
	c.suspended = false
	return c.run()
}

func (c *Context) run() error {
	for {
		if len(c.stack) == 0 {
			c.done = true
			if len(c.values) != 1 {
				return newError(UnexpectedToken, c.Offset(), "", "malformed value stack at completion")
			}
			c.result = c.values[0]
			return nil
		}
		if c.pos >= len(c.buf) && !c.atEOF {
			c.suspended = true
			c.base += int64(c.pos)
			c.buf = nil
			c.pos = 0
			return nil
		}
		top := &c.stack[len(c.stack)-1]
		out := top.state.Advance(c)
		switch out.kind {
		case outcomeStay:
			if c.atEOF && c.pos >= len(c.buf) {
				// The state made no progress and no further input is
				// coming: it was mid-value when input ran out.
				return newError(UnexpectedEndOfInput, c.Offset(), "", "input ended before value completed")
			}
		case outcomePush:
			if len(c.stack) >= c.opts.MaxDepth {
				return newError(UnexpectedToken, c.Offset(), "", "maximum nesting depth exceeded")
			}
			c.stack = append(c.stack, frame{state: out.child})
		case outcomePop:
			c.stack = c.stack[:len(c.stack)-1]
			c.pushValue(out.value)
		case outcomeFail:
			return out.err
		}
	}
}

// Finish signals end of input: a scalar sitting at top level (a bare
// number, literal, or string with no following byte) is allowed to
// self-terminate against EOF (mirroring the teacher's own state table,
// which has an explicit EOF-column transition out of its number states);
// anything else still on the stack at this point is
// UnexpectedEndOfInput.
func (c *Context) Finish() (reflect.Value, error) {
	if c.done {
		return c.result, nil
	}
	c.atEOF = true
	c.buf = nil
	c.pos = 0
	if err := c.run(); err != nil {
		return reflect.Value{}, err
	}
	if !c.done {
		return reflect.Value{}, newError(UnexpectedEndOfInput, c.Offset(), "", "input ended before value completed")
	}
	return c.result, nil
}

// AtEOF reports whether Finish has been called, i.e. no further bytes will
// ever be fed. Scalar terminal states (number/literal) consult this to
// decide whether running out of buffer means "suspend" or "terminate".
func (c *Context) AtEOF() bool { return c.atEOF }

// Suspended reports whether the last Feed call returned because the
// supplied chunk was fully consumed without completing the value.
func (c *Context) Suspended() bool { return c.suspended }

// Done reports whether the root value has finished parsing.
func (c *Context) Done() bool { return c.done }

// Offset returns the absolute byte offset of the cursor, for error reporting.
func (c *Context) Offset() int64 { return c.base + int64(c.pos) }

// Options returns the configuration this context was built with.
func (c *Context) Options() Options { return c.opts }

// --- byte cursor primitives used by lexical primitives and states ---

// Peek returns the current byte and true, or 0, false if input is exhausted.
func (c *Context) Peek() (byte, bool) {
	if c.pos >= len(c.buf) {
		return 0, false
	}
	return c.buf[c.pos], true
}

// advanceByte consumes the current byte.
func (c *Context) advanceByte() {
	c.pos++
}

// Remaining returns the unconsumed portion of the current chunk. Valid
// right after a Feed call that completed the root value (Done() true):
// the mapper facade's strict_trailing check uses it to see whatever
// bytes followed the value in that same chunk, without being able to
// advance the cursor itself.
func (c *Context) Remaining() []byte { return c.buf[c.pos:] }

// --- token accumulator ---

func (c *Context) ResetToken() { c.token = c.token[:0] }

func (c *Context) AppendToken(b byte) { c.token = append(c.token, b) }

func (c *Context) AppendTokenRune(r rune) {
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	c.token = append(c.token, buf[:n]...)
}

func (c *Context) Token() []byte { return c.token }

// --- value stack ---

func (c *Context) pushValue(v reflect.Value) {
	c.values = append(c.values, v)
}

// PopValue removes and returns the top of the value stack: the result of
// the most recently popped child state, ready for the parent state (now
// back on top of the state stack) to integrate into its own in-progress
// composite value.
func (c *Context) PopValue() reflect.Value {
	v := c.values[len(c.values)-1]
	c.values = c.values[:len(c.values)-1]
	return v
}

// ValueStackLen reports the current depth of the value stack, letting a
// composite state detect "a child just popped for me" by comparing depth
// against a baseline it recorded when it pushed that child.
func (c *Context) ValueStackLen() int { return len(c.values) }

// --- frame progress/scratch, used by composite states ---

func (c *Context) Progress() int { return c.stack[len(c.stack)-1].progress }

func (c *Context) SetProgress(p int) { c.stack[len(c.stack)-1].progress = p }

func (c *Context) Scratch() any { return c.stack[len(c.stack)-1].scratch }

func (c *Context) SetScratch(v any) { c.stack[len(c.stack)-1].scratch = v }

// --- escape-state spanning buffer refills ---

func (c *Context) PendingHighSurrogate() (rune, bool) { return c.escapeHigh, c.hasEscapeHigh }

func (c *Context) SetPendingHighSurrogate(r rune) {
	c.escapeHigh, c.hasEscapeHigh = r, true
}

func (c *Context) ClearPendingHighSurrogate() {
	c.escapeHigh, c.hasEscapeHigh = 0, false
}
