package service

import (
	"bytes"
	"encoding/binary"
	"image"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

var (
	pngSignature = []byte("\x89PNG\r\n\x1a\n")
	tiffLE       = []byte("II*\x00")
	tiffBE       = []byte("MM\x00*")
	exifPrefix   = []byte("Exif\x00\x00")
)

func isJPEG(data []byte) bool {
	return len(data) > 2 && data[0] == 0xff && data[1] == 0xd8
}

// exifBlob returns the EXIF payload of a PNG, WebP or TIFF file, or nil.
// JPEG orientation is handled by imaging while decoding.
func exifBlob(data []byte) []byte {
	switch {
	case bytes.HasPrefix(data, tiffLE), bytes.HasPrefix(data, tiffBE):
		return data
	case bytes.HasPrefix(data, pngSignature):
		return pngChunk(data, "eXIf")
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		b, err := webp.GetMetadata(data, "EXIF")
		if err != nil || len(b) == 0 {
			return nil
		}
		return b
	}
	return nil
}

// pngChunk returns the data of the first chunk of type name.
func pngChunk(data []byte, name string) []byte {
	pos := len(pngSignature)
	for pos+8 <= len(data) {
		n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		typ := string(data[pos+4 : pos+8])
		end := pos + 8 + n
		if n < 0 || end+4 > len(data) {
			return nil
		}
		if typ == name {
			return data[pos+8 : end]
		}
		if typ == "IEND" {
			return nil
		}
		pos = end + 4
	}
	return nil
}

// exifOrientation reads tag 0x0112 from an EXIF blob. Missing or broken
// metadata counts as upright.
func exifOrientation(blob []byte) (o int) {
	if len(blob) == 0 {
		return 1
	}
	defer func() {
		if recover() != nil {
			o = 1
		}
	}()
	blob = bytes.TrimPrefix(blob, exifPrefix)
	// a partial parse comes back with an error but still holds IFD0
	x, _ := exif.Decode(bytes.NewReader(blob))
	if x == nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// orient applies an EXIF orientation the same way imaging does for JPEG.
func orient(img image.Image, o int) image.Image {
	switch o {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
