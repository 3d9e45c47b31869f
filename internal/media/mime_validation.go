package media

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// sniffImage detects the content type from the leading bytes and returns it
// with the canonical file extension. Anything but a supported image is rejected.
func sniffImage(head []byte) (string, string, error) {
	if len(head) == 0 {
		return "", "", fmt.Errorf("file is empty")
	}
	detected := mimetype.Detect(head)
	mediaType := strings.ToLower(detected.String())
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	ext, ok := allowedImageTypes[mediaType]
	if !ok {
		return "", "", fmt.Errorf("unsupported file type %s: upload png, jpeg, webp or gif images", mediaType)
	}
	return mediaType, ext, nil
}
