package handlers

import (
	"errors"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
)

var errNotImage = errors.New("image must be a PNG, JPEG, GIF or WebP file")

// Stored file extension per accepted image type.
var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// imageExtension sniffs the uploaded content and returns the extension to store it
// under. The client's filename and part Content-Type are ignored.
func imageExtension(file *multipart.FileHeader) (string, error) {
	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return "", err
	}
	for mime, ext := range imageExtensions {
		if mtype.Is(mime) {
			return ext, nil
		}
	}
	return "", errNotImage
}
