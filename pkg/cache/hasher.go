package cache

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// NetworkArc is one stored arc of a network as seen by the hasher.
type NetworkArc struct {
	From     int
	To       int
	Capacity int64
	Flow     int64
}

// Network is the hashed view of a solver input. Arc order is significant
// because it fixes the scan order and hence the returned flows.
type Network struct {
	Nodes  int
	Source int
	Arcs   []NetworkArc
}

// NetworkHash returns a 32 hex digit blake2b digest of n.
func NetworkHash(n Network) string {
	h, _ := blake2b.New256(nil) //nolint:errcheck // unkeyed hashes never fail

	var buf [8]byte
	word := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}

	word(uint64(n.Nodes))
	word(uint64(n.Source))
	word(uint64(len(n.Arcs)))
	for _, a := range n.Arcs {
		word(uint64(a.From))
		word(uint64(a.To))
		word(uint64(a.Capacity))
		word(uint64(a.Flow))
	}

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// BuildSolveKey builds the cache key of a solve result. variant separates
// option sets that may produce different flows for the same value.
func BuildSolveKey(networkHash, algorithm, variant string) string {
	if variant == "" {
		return fmt.Sprintf("solve:%s:%s", algorithm, networkHash)
	}
	return fmt.Sprintf("solve:%s:%s:%s", algorithm, variant, networkHash)
}
