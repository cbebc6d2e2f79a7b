package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, enough to tell instances apart in reports
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// InstanceHash fingerprints a bandit instance (group layout plus true means)
type InstanceHash Hash

func (h InstanceHash) String() string { return Hash(h).String() }
func (h InstanceHash) Short() string  { return Hash(h).Short() }

// ComputeInstanceHash hashes groups in order and means at full float precision.
// Group order matters because group indices are the algorithms' identity.
func ComputeInstanceHash(groups [][]ArmID, means []float64) InstanceHash {
	var data strings.Builder
	for _, g := range groups {
		data.WriteByte('[')
		for i, arm := range g {
			if i > 0 {
				data.WriteByte(',')
			}
			data.WriteString(strconv.Itoa(int(arm)))
		}
		data.WriteByte(']')
	}
	data.WriteByte('|')
	for _, m := range means {
		data.WriteString(strconv.FormatFloat(m, 'g', -1, 64))
		data.WriteByte(';')
	}
	return InstanceHash(NewHash([]byte(data.String())))
}
