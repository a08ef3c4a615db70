// Package reference generates booking references and QR tokens.  Both
// combine the current timestamp with a random alphanumeric suffix, which
// makes collisions unlikely without a central sequence.  Uniqueness is
// still enforced by the unique indexes on the bookings table; callers must
// regenerate and retry when the store reports a duplicate.
package reference

import (
	"crypto/rand"
	"strconv"
	"time"
)

const (
	bookingPrefix = "BK"
	qrPrefix      = "QR"

	referenceSuffixLen = 5
	qrSuffixLen        = 9

	charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NewBookingReference returns a human-shareable booking reference of the
// form BK<unix-millis><5 random chars>.
func NewBookingReference() (string, error) {
	return generate(bookingPrefix, referenceSuffixLen)
}

// NewQRToken returns a check-in token of the form QR<unix-millis><9 random
// chars>.  It is independent of the booking reference.
func NewQRToken() (string, error) {
	return generate(qrPrefix, qrSuffixLen)
}

func generate(prefix string, suffixLen int) (string, error) {
	buf := make([]byte, suffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = charset[int(buf[i])%len(charset)]
	}
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return prefix + now + string(buf), nil
}
