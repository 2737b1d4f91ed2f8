package user

import (
	"crypto/md5"
	"encoding/hex"
)

const gravatarBase = "https://www.gravatar.com/avatar/"

// DefaultAvatarURL is the deterministic identicon for an email address.
func DefaultAvatarURL(email string) string {
	sum := md5.Sum([]byte(NormalizeEmail(email)))
	return gravatarBase + hex.EncodeToString(sum[:]) + "?s=250&d=identicon"
}
