package user

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

var (
	salt = []byte("campusdesk.portal.core.user.otp")

	codeDigits  = 6
	codeModulus = uint32(1000000) // 10^codeDigits
)

// codeGenerator derives sign-in codes: HMAC-SHA256 over the email and a fresh nonce, keyed by
// the app secret, then cut down to codeDigits decimal digits the way HOTP (RFC 4226) does.
type codeGenerator struct {
	secretKey []byte
}

func (gen codeGenerator) makeCode(email string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(err, "reading nonce")
	}
	sum, err := gen.sign([]byte(email), nonce)
	if err != nil {
		return "", err
	}
	return truncate(sum), nil
}

func (gen codeGenerator) sign(parts ...[]byte) ([]byte, error) {
	key := sha256.Sum256(append(append([]byte{}, salt...), gen.secretKey...))
	h := hmac.New(sha256.New, key[:])
	for _, p := range parts {
		if _, err := h.Write(p); err != nil {
			return nil, errors.Wrap(err, "writing hmac")
		}
	}
	return h.Sum(nil), nil
}

// truncate is HOTP's dynamic truncation: the low nibble of the last byte picks 4 bytes,
// read big endian without the sign bit.
func truncate(sum []byte) string {
	offset := int(sum[len(sum)-1] & 0x0f)
	bin := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%0*d", codeDigits, bin%codeModulus)
}
