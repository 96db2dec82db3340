package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID string stamped with the current time.
func New() string {
	id, err := NewAt(time.Now())
	if err != nil {
		// entropy failure; the current time is always in range
		panic(err)
	}
	return id
}

// NewAt returns a ULID whose timestamp part is t. Executions are keyed this
// way so their ids sort with the fill time rather than the import time.
// Times before 1970 cannot be encoded.
func NewAt(t time.Time) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), mono)
	if err != nil {
		return "", fmt.Errorf("id at %s: %w", t.UTC().Format(time.RFC3339), err)
	}
	return id.String(), nil
}
