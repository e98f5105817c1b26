package idhash

import (
	"regexp"
	"testing"
)

var hexID = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestComputeArtifactID(t *testing.T) {
	tests := []struct {
		name      string
		signature string
		assetID   string
	}{
		{
			name:      "hadeswap sale",
			signature: "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
			assetID:   "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
		},
		{
			name:      "empty inputs",
			signature: "",
			assetID:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeArtifactID(tt.signature, tt.assetID)
			if !hexID.MatchString(got) {
				t.Errorf("ComputeArtifactID() = %q, want 32 lowercase hex chars", got)
			}
			if again := ComputeArtifactID(tt.signature, tt.assetID); again != got {
				t.Errorf("ComputeArtifactID() not deterministic: %s != %s", got, again)
			}
		})
	}
}

func TestComputeArtifactID_DifferentInputs(t *testing.T) {
	base := ComputeArtifactID("sig", "mint")

	if base == ComputeArtifactID("other_sig", "mint") {
		t.Error("Different signature should produce different id")
	}
	if base == ComputeArtifactID("sig", "other_mint") {
		t.Error("Different asset should produce different id")
	}
	// Separator keeps field boundaries distinct.
	if ComputeArtifactID("ab", "c") == ComputeArtifactID("a", "bc") {
		t.Error("Field boundary collision")
	}
}
