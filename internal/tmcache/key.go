package tmcache

import (
	"crypto/sha256"
	"encoding/hex"

	"horse.fit/babel/internal/provider"
)

// keySeparator keeps field boundaries unambiguous inside the fingerprint
// input: no translatable text contains a unit separator byte.
const keySeparator = "\x1f"

// Key computes the deterministic fingerprint of one translation unit plus
// the batch options that affect its output. Case- and whitespace-sensitive:
// trimming here would silently break round-trip fidelity for formatted text.
func Key(unit provider.Unit, opts provider.Options) string {
	h := sha256.New()
	h.Write([]byte(unit.Text))
	h.Write([]byte(keySeparator))
	h.Write([]byte(unit.SourceLang))
	h.Write([]byte(keySeparator))
	h.Write([]byte(unit.TargetLang))
	h.Write([]byte(keySeparator))
	h.Write([]byte(unit.Format))
	h.Write([]byte(keySeparator))
	h.Write([]byte(opts.GlossaryID))
	h.Write([]byte(keySeparator))
	h.Write([]byte(opts.Formality))
	return hex.EncodeToString(h.Sum(nil))
}
