package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// MetaplexMetadataProgramID owns Token Metadata accounts.
const MetaplexMetadataProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

const (
	pubkeyLen    = 32
	maxSeedLen   = 32
	pdaMarker    = "ProgramDerivedAddress"
	metadataSeed = "metadata"
)

// ErrNoViableBump is returned when every bump seed lands on the curve.
var ErrNoViableBump = errors.New("unable to find a viable program address bump seed")

// DecodePubkey decodes a base58 public key and checks its length.
func DecodePubkey(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode pubkey %q: %w", s, err)
	}
	if len(b) != pubkeyLen {
		return nil, fmt.Errorf("decode pubkey %q: got %d bytes, want %d", s, len(b), pubkeyLen)
	}
	return b, nil
}

// IsValidPubkey reports whether s is a base58 encoded 32-byte key.
func IsValidPubkey(s string) bool {
	_, err := DecodePubkey(s)
	return err == nil
}

// FindProgramAddress searches bump seeds from 255 down for an address off the
// ed25519 curve, matching the runtime's find_program_address.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	program, err := DecodePubkey(programID)
	if err != nil {
		return "", 0, err
	}
	for _, seed := range seeds {
		if len(seed) > maxSeedLen {
			return "", 0, fmt.Errorf("seed longer than %d bytes", maxSeedLen)
		}
	}

	for bump := 255; bump > 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(program)
		h.Write([]byte(pdaMarker))
		sum := h.Sum(nil)

		if !IsOnCurve(sum) {
			return base58.Encode(sum), uint8(bump), nil
		}
	}
	return "", 0, ErrNoViableBump
}

// IsOnCurve reports whether b decodes to a valid ed25519 point.
func IsOnCurve(b []byte) bool {
	if len(b) != pubkeyLen {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// MetadataAddress derives the Metaplex metadata account for mint.
func MetadataAddress(mint string) (string, error) {
	mintKey, err := DecodePubkey(mint)
	if err != nil {
		return "", err
	}
	program, err := DecodePubkey(MetaplexMetadataProgramID)
	if err != nil {
		return "", err
	}
	addr, _, err := FindProgramAddress([][]byte{[]byte(metadataSeed), program, mintKey}, MetaplexMetadataProgramID)
	return addr, err
}
