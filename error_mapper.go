package bcycle

// ErrorMapper maps final response status codes onto handlers. It runs after the routing cycle,
// whether or not that cycle failed.
type ErrorMapper struct {
	handlers map[int][]Handler
}

// NewErrorMapper inits an empty mapper.
func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{handlers: make(map[int][]Handler)}
}

// Register adds a handler for the status code. Handlers for the same status run in
// registration order.
func (m *ErrorMapper) Register(status int, h Handler) {
	m.handlers[status] = append(m.handlers[status], h)
}

// Handle runs the handlers registered for status. A status without handlers is a no-op.
func (m *ErrorMapper) Handle(status int, c *Context) error {
	for _, h := range m.handlers[status] {
		if err := h.Handle(c); err != nil {
			return err
		}
	}
	return nil
}
