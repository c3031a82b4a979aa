package utils

import (
	"net/http"
	"strings"
)

var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// DetectPhotoType sniffs the first 512 bytes of data and reports the image
// content type, or false when the data is not a supported image.
func DetectPhotoType(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	detected := strings.ToLower(http.DetectContentType(head))
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = strings.TrimSpace(detected[:i])
	}
	return detected, allowedPhotoTypes[detected]
}
