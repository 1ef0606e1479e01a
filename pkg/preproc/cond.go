package preproc

import "github.com/yaklabco/pawnls/pkg/source"

// condState is the state of one #if nesting level.
type condState uint8

const (
	// stateActive: the current branch is being compiled.
	stateActive condState = iota

	// stateInactiveBranch: no branch taken yet; a later #elseif or #else may
	// still activate.
	stateInactiveBranch

	// stateSkippedUntilEndif: a branch was already taken, or the whole
	// conditional sits inside an inactive region.
	stateSkippedUntilEndif
)

type condFrame struct {
	state   condState
	sawElse bool
	opener  source.Span
}

// condStack drives conditional compilation as an explicit state machine.
type condStack struct {
	frames []condFrame
}

func (c *condStack) active() bool {
	return len(c.frames) == 0 || c.frames[len(c.frames)-1].state == stateActive
}

func (c *condStack) depth() int {
	return len(c.frames)
}

// pushIf enters an #if. eval is only called when the enclosing region is
// active.
func (c *condStack) pushIf(opener source.Span, eval func() bool) {
	if !c.active() {
		c.frames = append(c.frames, condFrame{state: stateSkippedUntilEndif, opener: opener})
		return
	}
	state := stateInactiveBranch
	if eval() {
		state = stateActive
	}
	c.frames = append(c.frames, condFrame{state: state, opener: opener})
}

// elseIf handles #elseif. It returns false when there is no open #if or the
// #else was already seen.
func (c *condStack) elseIf(eval func() bool) bool {
	if len(c.frames) == 0 {
		return false
	}
	top := &c.frames[len(c.frames)-1]
	if top.sawElse {
		return false
	}

	switch top.state {
	case stateActive:
		top.state = stateSkippedUntilEndif
	case stateInactiveBranch:
		if eval() {
			top.state = stateActive
		}
	case stateSkippedUntilEndif:
	}
	return true
}

// elseBranch handles #else.
func (c *condStack) elseBranch() bool {
	if len(c.frames) == 0 {
		return false
	}
	top := &c.frames[len(c.frames)-1]
	if top.sawElse {
		return false
	}
	top.sawElse = true

	switch top.state {
	case stateActive:
		top.state = stateSkippedUntilEndif
	case stateInactiveBranch:
		top.state = stateActive
	case stateSkippedUntilEndif:
	}
	return true
}

// endIf handles #endif.
func (c *condStack) endIf() bool {
	if len(c.frames) == 0 {
		return false
	}
	c.frames = c.frames[:len(c.frames)-1]
	return true
}

// unterminated returns the openers of every #if still open.
func (c *condStack) unterminated() []source.Span {
	out := make([]source.Span, 0, len(c.frames))
	for _, f := range c.frames {
		out = append(out, f.opener)
	}
	return out
}
