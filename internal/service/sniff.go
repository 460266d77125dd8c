package service

import (
	"bytes"
	"net/http"
	"slices"
)

// Formats the gallery accepts, other than WebP. http.DetectContentType
// knows their signatures.
var sniffedImageTypes = []string{"image/jpeg", "image/png", "image/gif"}

var (
	riffMagic = []byte("RIFF")
	webpMagic = []byte("WEBP")
)

// DetectImageType names the image format of data from its leading bytes.
// Whatever type the browser declared is ignored.
func DetectImageType(data []byte) (string, bool) {
	// RIFF <size> WEBP; the net/http sniffer has no entry for it.
	if len(data) >= 12 && bytes.Equal(data[:4], riffMagic) && bytes.Equal(data[8:12], webpMagic) {
		return "image/webp", true
	}
	if t := http.DetectContentType(data); slices.Contains(sniffedImageTypes, t) {
		return t, true
	}
	return "", false
}
