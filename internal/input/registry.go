package input

import "slices"

// subscribers is an ordered set of handlers. Handlers are compared with ==,
// so they must have comparable dynamic types; pointers are the usual choice.
type subscribers[H comparable] struct {
	hs []H
}

func (s *subscribers[H]) add(h H) bool {
	if slices.Contains(s.hs, h) {
		return false
	}
	s.hs = append(s.hs, h)
	return true
}

func (s *subscribers[H]) remove(h H) bool {
	i := slices.Index(s.hs, h)
	if i < 0 {
		return false
	}
	s.hs = slices.Delete(s.hs, i, i+1)
	return true
}

// each calls fn for the handlers registered when dispatch began, in
// registration order.
func (s *subscribers[H]) each(fn func(H)) {
	for _, h := range slices.Clone(s.hs) {
		fn(h)
	}
}

// Registry holds one subscription list per event kind. On* returns false if
// the handler was already subscribed. A Registry is driven from the window
// thread and is not safe for concurrent use.
type Registry struct {
	cursor subscribers[CursorHandler]
	button subscribers[ButtonHandler]
	scroll subscribers[ScrollHandler]
	key    subscribers[KeyHandler]
	resize subscribers[ResizeHandler]
}

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) OnCursor(h CursorHandler) bool { return r.cursor.add(h) }
func (r *Registry) OnButton(h ButtonHandler) bool { return r.button.add(h) }
func (r *Registry) OnScroll(h ScrollHandler) bool { return r.scroll.add(h) }
func (r *Registry) OnKey(h KeyHandler) bool       { return r.key.add(h) }
func (r *Registry) OnResize(h ResizeHandler) bool { return r.resize.add(h) }

func (r *Registry) OffCursor(h CursorHandler) bool { return r.cursor.remove(h) }
func (r *Registry) OffButton(h ButtonHandler) bool { return r.button.remove(h) }
func (r *Registry) OffScroll(h ScrollHandler) bool { return r.scroll.remove(h) }
func (r *Registry) OffKey(h KeyHandler) bool       { return r.key.remove(h) }
func (r *Registry) OffResize(h ResizeHandler) bool { return r.resize.remove(h) }

// Subscribe registers h for every event kind it implements.
func (r *Registry) Subscribe(h any) {
	if c, ok := h.(CursorHandler); ok {
		r.OnCursor(c)
	}
	if b, ok := h.(ButtonHandler); ok {
		r.OnButton(b)
	}
	if s, ok := h.(ScrollHandler); ok {
		r.OnScroll(s)
	}
	if k, ok := h.(KeyHandler); ok {
		r.OnKey(k)
	}
	if z, ok := h.(ResizeHandler); ok {
		r.OnResize(z)
	}
}

func (r *Registry) DispatchCursor(e CursorEvent) {
	r.cursor.each(func(h CursorHandler) { h.HandleCursor(e) })
}

func (r *Registry) DispatchButton(e ButtonEvent) {
	r.button.each(func(h ButtonHandler) { h.HandleButton(e) })
}

func (r *Registry) DispatchScroll(e ScrollEvent) {
	r.scroll.each(func(h ScrollHandler) { h.HandleScroll(e) })
}

func (r *Registry) DispatchKey(e KeyEvent) {
	r.key.each(func(h KeyHandler) { h.HandleKey(e) })
}

func (r *Registry) DispatchResize(e ResizeEvent) {
	r.resize.each(func(h ResizeHandler) { h.HandleResize(e) })
}

// Len reports how many handlers are subscribed across all kinds.
func (r *Registry) Len() int {
	return len(r.cursor.hs) + len(r.button.hs) + len(r.scroll.hs) + len(r.key.hs) + len(r.resize.hs)
}
