package web

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"os"
	"strings"
)

const placeholderSize = 300

var placeholderColor = color.RGBA{R: 0xf0, G: 0xf2, B: 0xf6, A: 0xff}

type MascotImage struct {
	Data        []byte
	ContentType string
	Placeholder bool
}

// LoadMascotImage reads the mascot picture from disk. When the file is missing
// or not an image it returns a plain placeholder together with the reason.
func LoadMascotImage(path string) (*MascotImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return placeholderImage(), fmt.Errorf("reading mascot image: %w", err)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return placeholderImage(), fmt.Errorf("mascot image %s has content type %s", path, contentType)
	}

	return &MascotImage{Data: data, ContentType: contentType}, nil
}

func placeholderImage() *MascotImage {
	img := image.NewRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: placeholderColor}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	// encoding an in-memory RGBA image cannot fail
	_ = png.Encode(&buf, img)

	return &MascotImage{
		Data:        buf.Bytes(),
		ContentType: "image/png",
		Placeholder: true,
	}
}
