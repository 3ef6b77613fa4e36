package model

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// keyBytes random bytes give 48-bit keys: collisions inside one document
// are negligible, so no registry of minted keys is kept.
const keyBytes = 6

// GenKey returns a short random block key.
func GenKey() string {
	id := uuid.New()
	return hex.EncodeToString(id[:keyBytes])
}
