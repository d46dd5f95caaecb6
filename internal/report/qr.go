package report

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

var ErrDigest = errors.New("not a SHA-256 digest")

// digestPayload is the QR text for a channel list digest. Upper case keeps
// the code in alphanumeric mode, which is denser than byte mode.
func digestPayload(digest string) (string, error) {
	d := strings.TrimSpace(digest)
	if b, err := hex.DecodeString(d); err != nil || len(b) != 32 {
		return "", fmt.Errorf("%w: %q", ErrDigest, digest)
	}
	return "SHA256:" + strings.ToUpper(d), nil
}

// DigestQR renders the channel list digest as a size x size PNG, so a
// printed list can be matched against the blob it came from.
func DigestQR(digest string, size int) ([]byte, error) {
	payload, err := digestPayload(digest)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 128
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}
