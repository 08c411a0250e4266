package crawler

// Frontier is a FIFO queue of canonical URLs waiting to be fetched.
// A URL is held at most once. Frontier is not safe for concurrent use;
// the Spider guards it with its own mutex.
type Frontier struct {
	queue   []string
	members map[string]struct{}
}

// NewFrontier creates an empty Frontier.
func NewFrontier() *Frontier {
	return &Frontier{members: make(map[string]struct{})}
}

// Push appends u unless it is already queued. It reports whether u was added.
func (f *Frontier) Push(u string) bool {
	if _, ok := f.members[u]; ok {
		return false
	}
	f.members[u] = struct{}{}
	f.queue = append(f.queue, u)
	return true
}

// Pop removes and returns the oldest URL.
func (f *Frontier) Pop() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	u := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	delete(f.members, u)
	return u, true
}

// Contains reports whether u is queued.
func (f *Frontier) Contains(u string) bool {
	_, ok := f.members[u]
	return ok
}

// Len returns the number of queued URLs.
func (f *Frontier) Len() int {
	return len(f.queue)
}

// Drain empties the frontier and returns what was left, oldest first.
func (f *Frontier) Drain() []string {
	rest := f.queue
	f.queue = nil
	f.members = make(map[string]struct{})
	return rest
}
