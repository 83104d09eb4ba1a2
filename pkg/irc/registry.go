package irc

// Registry is an ordered collection of handlers owned by a Connection.
// It is populated before Connect and treated as read-only once dispatch
// begins; mutating it concurrently with a running read loop is
// undefined. Each inbound line is offered to every registered handler
// of the matching kind, in registration order; all applicable handlers
// run, not just the first.
type Registry struct {
	numerics []NumericHandler
	commands []CommandHandler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterNumeric appends a numeric handler.
func (r *Registry) RegisterNumeric(h NumericHandler) {
	r.numerics = append(r.numerics, h)
}

// RegisterCommand appends a command handler.
func (r *Registry) RegisterCommand(h CommandHandler) {
	r.commands = append(r.commands, h)
}

// Numerics returns the registered numeric handlers in order.
func (r *Registry) Numerics() []NumericHandler {
	return r.numerics
}

// Commands returns the registered command handlers in order.
func (r *Registry) Commands() []CommandHandler {
	return r.commands
}
