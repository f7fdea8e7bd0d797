package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/jordanhubbard/mtcore/internal/core"
)

// Fingerprint computes a TMKey over (providerFamily, source, target,
// normalized text), where normalization is trim + lowercase, per spec.md
// §3. providerFamily is the requested model ID rather than the eventually
// selected provider instance, since TM lookup (step 2) precedes provider
// selection (step 3) in the orchestrator's lifecycle.
func Fingerprint(providerFamily string, req core.TranslationRequest) core.TMKey {
	normalized := strings.ToLower(strings.TrimSpace(req.Text))
	h := sha256.New()
	h.Write([]byte(providerFamily))
	h.Write([]byte{0})
	h.Write([]byte(req.Source))
	h.Write([]byte{0})
	h.Write([]byte(req.Target))
	h.Write([]byte{0})
	h.Write([]byte(normalized))
	return core.TMKey(hex.EncodeToString(h.Sum(nil)))
}
