package idhash

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	runMu   sync.Mutex
	runMono io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// Monotonic entropy keeps IDs from the same millisecond increasing.
	runMono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// NewRunID returns a time-sortable analysis run identifier (ULID).
func NewRunID() string {
	runMu.Lock()
	defer runMu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), runMono)
	if err != nil {
		panic(err)
	}
	return id.String()
}

// RunTime extracts the creation time encoded in a run identifier.
func RunTime(runID string) (time.Time, error) {
	id, err := ulid.ParseStrict(runID)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(id.Time()), nil
}
