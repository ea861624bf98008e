// Package idx generates the opaque identifiers used for request correlation
// and token ids. Identifiers are ULIDs, so they sort by creation time.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrInvalid reports a malformed identifier.
var ErrInvalid = errors.New("idx: invalid identifier")

// Generator hands out monotonic ULIDs and is safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewGenerator returns a Generator reading the time from now. A nil now falls
// back to time.Now.
func NewGenerator(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     now,
	}
}

// New returns the next identifier.
func (g *Generator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(g.now().UTC()), g.entropy).String()
}

var (
	defaultOnce sync.Once
	defaultGen  *Generator
)

// New returns an identifier from the process-wide generator.
func New() string {
	defaultOnce.Do(func() { defaultGen = NewGenerator(nil) })
	return defaultGen.New()
}

// Valid reports whether s is a well-formed identifier. Surrounding whitespace
// is not accepted, since ids travel in headers verbatim.
func Valid(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	_, err := ulid.ParseStrict(s)
	return err == nil
}

// Time returns the creation time embedded in id.
func Time(id string) (time.Time, error) {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, ErrInvalid
	}
	return ulid.Time(u.Time()).UTC(), nil
}
