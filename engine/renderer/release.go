package renderer

type release struct {
	name string
	fn   func()
}

// ReleaseStack collects teardown functions as resources are created and runs
// them in reverse order. Each function runs at most once.
type ReleaseStack struct {
	releases []release
}

func (s *ReleaseStack) Push(name string, fn func()) {
	s.releases = append(s.releases, release{name: name, fn: fn})
}

// Release runs every pushed function, newest first, and empties the stack.
func (s *ReleaseStack) Release() {
	for i := len(s.releases) - 1; i >= 0; i-- {
		r := s.releases[i]
		s.releases = s.releases[:i]
		r.fn()
	}
}

func (s *ReleaseStack) Len() int {
	return len(s.releases)
}

// Track pushes destroy(handle) unless handle is the null handle.
func Track[H ~uint64](s *ReleaseStack, name string, handle H, destroy func(H)) {
	if handle == 0 {
		return
	}
	s.Push(name, func() { destroy(handle) })
}

// destroyIf calls destroy unless handle is the null handle.
func destroyIf[H ~uint64](handle H, destroy func(H)) {
	if handle != 0 {
		destroy(handle)
	}
}
