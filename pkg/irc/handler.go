package irc

// NumericHandler reacts to numeric replies. A handler is asked whether
// it applies to a code, and if so is invoked with the raw line, its
// whitespace-split tokens, and the connection it arrived on (so it may
// itself send lines while processing).
type NumericHandler interface {
	AppliesTo(numeric int) bool
	Process(line string, tokens []string, conn *Connection)
}

// CommandHandler reacts to textual commands. AppliesTo additionally
// receives the raw line, so a handler can match on more than the verb.
type CommandHandler interface {
	AppliesTo(command, line string) bool
	Process(line string, tokens []string, conn *Connection)
}

// ProcessFunc is the processing half of a handler, for use with the
// OnNumeric and OnCommand adapters.
type ProcessFunc func(line string, tokens []string, conn *Connection)

// OnNumeric adapts a function into a NumericHandler matching a single code.
func OnNumeric(code int, fn ProcessFunc) NumericHandler {
	return &numericFunc{
		applies: func(n int) bool { return n == code },
		fn:      fn,
	}
}

// NumericFunc adapts a function into a NumericHandler with a custom
// applicability predicate.
func NumericFunc(applies func(numeric int) bool, fn ProcessFunc) NumericHandler {
	return &numericFunc{applies: applies, fn: fn}
}

type numericFunc struct {
	applies func(int) bool
	fn      ProcessFunc
}

func (h *numericFunc) AppliesTo(numeric int) bool {
	return h.applies(numeric)
}

func (h *numericFunc) Process(line string, tokens []string, conn *Connection) {
	h.fn(line, tokens, conn)
}

// OnCommand adapts a function into a CommandHandler matching a single verb.
func OnCommand(name string, fn ProcessFunc) CommandHandler {
	return &commandFunc{
		applies: func(command, _ string) bool { return command == name },
		fn:      fn,
	}
}

// CommandFunc adapts a function into a CommandHandler with a custom
// applicability predicate.
func CommandFunc(applies func(command, line string) bool, fn ProcessFunc) CommandHandler {
	return &commandFunc{applies: applies, fn: fn}
}

type commandFunc struct {
	applies func(string, string) bool
	fn      ProcessFunc
}

func (h *commandFunc) AppliesTo(command, line string) bool {
	return h.applies(command, line)
}

func (h *commandFunc) Process(line string, tokens []string, conn *Connection) {
	h.fn(line, tokens, conn)
}
