package orders

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// GenerateOrderNo builds an order number from a compact timestamp and a random
// 6-digit suffix, e.g. "20260901154233-483920". The suffix alone is not
// collision-proof; the unique column on orders plus retry-on-conflict in
// CreateTx makes the number unique.
func GenerateOrderNo(t time.Time) (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	suffix := binary.BigEndian.Uint32(b[:]) % 1000000
	return fmt.Sprintf("%s-%06d", t.UTC().Format("20060102150405"), suffix), nil
}
