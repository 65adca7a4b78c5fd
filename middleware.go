package prioq

// Middleware is a function that wraps a Work callback to provide
// cross-cutting concerns.
type Middleware func(Work) Work

// Use adds middleware(s) to the manager. Middlewares are executed in the
// order they are added and are applied to the work callback at admission
// time. Use must be called before the first Enqueue.
func (m *Manager) Use(mw Middleware) {
	m.middlewares = append(m.middlewares, mw)
}

func (m *Manager) wrapWork(w Work) Work {
	for i := len(m.middlewares) - 1; i >= 0; i-- {
		w = m.middlewares[i](w)
	}
	return w
}
