package transport

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/kprusa/rpfmesh/internal/wire"
)

// Sinks owns the per-(receiver, root) received-payload files named in
// spec.md §6, adapted from the teacher's NewNode, which lazily creates
// one file per concern under a working directory instead of a hardcoded
// "./log".
type Sinks struct {
	dir string

	mu       sync.Mutex
	received map[wire.NodeID]*os.File
}

// NewSinks ensures dir exists and returns a Sinks rooted there.
func NewSinks(dir string) (*Sinks, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, errors.Wrap(err, "create sink directory")
	}
	return &Sinks{dir: dir, received: make(map[wire.NodeID]*os.File)}, nil
}

// Received returns the append-only payload sink for root, creating it on
// first use.
func (s *Sinks) Received(root wire.NodeID) (io.Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.received[root]; ok {
		return f, nil
	}
	path := filepath.Join(s.dir, fmt.Sprintf("received_%s.txt", root))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open received sink for root %s", root)
	}
	s.received[root] = f
	return f, nil
}

// Close flushes and releases every opened sink, run even on early exit
// per spec.md §9's replacement for destructor-driven log closing.
func (s *Sinks) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, f := range s.received {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
