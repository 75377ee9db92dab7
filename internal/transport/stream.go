package transport

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// Stream is the narrow interface the engine uses for inbound/outbound
// transport (spec.md §1's "how those bytes reach peers is the
// controller's problem", generalized per spec.md §9's Stream seam).
type Stream interface {
	// ReadNew returns lines appended to the inbound side since the last
	// call, deduplicated within this batch; order within the batch is
	// unspecified (spec.md §4.6, §5).
	ReadNew() []string
	// Append writes one line to the outbound side, retrying transient
	// failures within a bounded loop.
	Append(line string) error
}

// MemoryStream is an in-process Stream backed by slices, used by the
// in-memory Controller (simulation/tests) instead of real files.
type MemoryStream struct {
	mu       sync.Mutex
	outLines []string
	inLines  []string
	readAt   int
}

// NewMemoryStream creates an empty MemoryStream.
func NewMemoryStream() *MemoryStream {
	return &MemoryStream{}
}

func (s *MemoryStream) Append(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outLines = append(s.outLines, line)
	return nil
}

func (s *MemoryStream) ReadNew() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readAt >= len(s.inLines) {
		return nil
	}
	batch := s.inLines[s.readAt:]
	s.readAt = len(s.inLines)
	return dedupe(batch)
}

// deliver appends lines to the inbound side; only the Controller calls
// this.
func (s *MemoryStream) deliver(lines []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inLines = append(s.inLines, lines...)
}

// outboundSince returns the outbound lines appended since index from,
// along with the new high-water mark; only the Controller calls this.
func (s *MemoryStream) outboundSince(from int) ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.outLines[from:]...), len(s.outLines)
}

func dedupe(lines []string) []string {
	seen := make(map[string]bool, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// maxAppendAttempts bounds the retry loop on outbound writes, per
// spec.md §4.6: the engine must not block a tick indefinitely on one
// write.
const maxAppendAttempts = 5

// FileStream is a Stream backed by two real files, one per direction, the
// production transport named in spec.md §6.
type FileStream struct {
	mu      sync.Mutex
	inPath  string
	outFile *os.File
	readAt  int
}

// OpenFileStream opens (creating if needed) the outbound file for append
// and ensures the inbound file exists.
func OpenFileStream(inPath, outPath string) (*FileStream, error) {
	if _, err := os.Stat(inPath); os.IsNotExist(err) {
		if err := os.WriteFile(inPath, nil, 0644); err != nil {
			return nil, errors.Wrap(err, "create inbound file")
		}
	}
	f, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "open outbound file")
	}
	return &FileStream{inPath: inPath, outFile: f}, nil
}

func (s *FileStream) ReadNew() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.inPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	var all []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		all = append(all, scanner.Text())
	}
	if s.readAt >= len(all) {
		return nil
	}
	batch := all[s.readAt:]
	s.readAt = len(all)
	return dedupe(batch)
}

func (s *FileStream) Append(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		if _, err = fmt.Fprintln(s.outFile, line); err == nil {
			return nil
		}
	}
	return errors.Wrap(err, "append to outbound file after retries")
}

// Close releases the outbound file handle.
func (s *FileStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outFile.Close()
}
