package credential

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const qrImageSize = 256

// DataURL renders the payload document as a PNG data URL so clients can
// display the code without a second request.
func DataURL(document string) (string, error) {
	png, err := qrcode.Encode(document, qrcode.Medium, qrImageSize)
	if err != nil {
		return "", fmt.Errorf("qr encode: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
