package tool

import (
	"strings"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewTransactionRef builds an internal transaction reference such as
// "TRX-018F4C2AB3D1722CAF95B3E4D827C99A". UUIDv7 keeps refs roughly sortable
// by creation time; the full 128 bits carry the random tail, so refs created
// within the same millisecond never collide.
func NewTransactionRef() string {
	id := uuid.Must(uuid.NewV7())
	return "TRX-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
}
