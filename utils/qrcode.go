package utils

import (
	qrcode "github.com/skip2/go-qrcode"
)

// QRCodeSize is the pixel edge of rendered join codes. 512px scans
// reliably from phone screens and printed labels alike.
const QRCodeSize = 512

// RenderJoinQR encodes a join URL as a PNG image.
func RenderJoinQR(joinURL string) ([]byte, error) {
	return qrcode.Encode(joinURL, qrcode.Medium, QRCodeSize)
}
