package forms

import (
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
)

var ErrNotAnImage = errors.New("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// CheckImage sniffs an uploaded file and returns the extension it should be
// stored under. The client-supplied name and content type are ignored.
func CheckImage(fh *multipart.FileHeader, maxBytes int64) (string, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return "", fmt.Errorf("Ensure this file is at most %d bytes (it is %d).", maxBytes, fh.Size)
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return "", ErrNotAnImage
	}
	for m := mtype; m != nil; m = m.Parent() {
		if ext, ok := imageExtensions[m.String()]; ok {
			return ext, nil
		}
	}
	return "", ErrNotAnImage
}
