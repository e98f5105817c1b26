// Package idhash derives deterministic identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// artifactIDLen is the number of hex characters kept from the digest.
const artifactIDLen = 32

// ComputeArtifactID computes a deterministic artifact id for a trade.
// Formula: SHA256(signature|asset_id), hex-encoded and truncated to 32 characters.
// Re-rendering the same trade overwrites the same artifact.
func ComputeArtifactID(signature, assetID string) string {
	data := fmt.Sprintf("%s|%s", signature, assetID)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:artifactIDLen]
}
