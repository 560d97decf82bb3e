package lockorder

// Context is a token recording the ordered sequence of levels held by one
// call path. A Context is created empty at the start of an external request
// or scheduler tick, extended by each successful Acquire, and discarded when
// the path finishes. The level sequence itself is append-only: an Acquire
// never modifies the caller's Context, it returns a child Context.
//
// A Context belongs to exactly one call path and must not be shared between
// goroutines. The children/released fields are bookkeeping used to detect
// out-of-order and double release, which are programmer errors.
type Context struct {
	parent *Context
	level  Level
	write  bool

	children int
	released bool
}

// Background returns an empty Context holding no levels. Every external
// request and every scheduler tick starts from here.
func Background() *Context {
	return &Context{level: LevelNone}
}

// Holds reports whether the context holds the given level in any mode.
func (ctx *Context) Holds(level Level) bool {
	for c := ctx; c != nil; c = c.parent {
		if c.level == level {
			return true
		}
	}
	return false
}

// HoldsWrite reports whether the context holds the given level in write mode.
func (ctx *Context) HoldsWrite(level Level) bool {
	for c := ctx; c != nil; c = c.parent {
		if c.level == level && c.write {
			return true
		}
	}
	return false
}

// Max returns the highest level held by the context, or LevelNone.
func (ctx *Context) Max() Level {
	max := LevelNone
	for c := ctx; c != nil; c = c.parent {
		if c.level > max {
			max = c.level
		}
	}
	return max
}

// Levels returns the held levels in acquisition order.
func (ctx *Context) Levels() []Level {
	var reversed []Level
	for c := ctx; c != nil; c = c.parent {
		if c.level != LevelNone {
			reversed = append(reversed, c.level)
		}
	}
	levels := make([]Level, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		levels = append(levels, reversed[i])
	}
	return levels
}

// String returns the held level sequence, for error messages and logs.
func (ctx *Context) String() string {
	levels := ctx.Levels()
	if len(levels) == 0 {
		return "[]"
	}
	s := "["
	for i, l := range levels {
		if i > 0 {
			s += " < "
		}
		s += l.String()
	}
	return s + "]"
}
