package canon

import (
	"crypto/sha256"
	"encoding/hex"
)

// fieldSep keeps field boundaries from colliding: ("ab","c") and ("a","bc")
// must not hash the same. US is stripped from inputs by Clean, so it can
// never occur inside a field.
const fieldSep = 0x1F

// Hash returns the hex sha256 over the canonicalized fields. Each field is
// passed through Text before hashing, so cosmetic upstream drift (stray
// zero-widths, doubled spaces, NFKC-equivalent forms) does not flip the
// digest. Callers are responsible for field ordering; pass multi-valued
// fields pre-sorted.
func Hash(fields ...string) string {
	h := sha256.New()
	for i, f := range fields {
		if i > 0 {
			h.Write([]byte{fieldSep})
		}
		h.Write([]byte(Text(f)))
	}
	return hex.EncodeToString(h.Sum(nil))
}
