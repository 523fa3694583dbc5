package service

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	xtiff "golang.org/x/image/tiff"
)

// createTestImage fills a width x height image with a horizontal red/green
// gradient over a constant blue channel.
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((x * 255) / max(width-1, 1)),
				G: uint8((y * 255) / max(height-1, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// createBlockImage paints 16x16 blocks in two colors: the left half of the
// image is green and the right half yellow. Uniform JPEG blocks decode exactly.
func createBlockImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA{R: 40, G: 180, B: 40, A: 255}
			if x >= width/2 {
				c = color.NRGBA{R: 230, G: 210, B: 30, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// orientationTIFF is a big-endian EXIF/TIFF blob holding only the
// orientation tag.
func orientationTIFF(orientation uint16) []byte {
	var tiff bytes.Buffer
	tiff.WriteString("MM")
	binary.Write(&tiff, binary.BigEndian, uint16(42))
	binary.Write(&tiff, binary.BigEndian, uint32(8))
	binary.Write(&tiff, binary.BigEndian, uint16(1))
	binary.Write(&tiff, binary.BigEndian, uint16(0x0112))
	binary.Write(&tiff, binary.BigEndian, uint16(3))
	binary.Write(&tiff, binary.BigEndian, uint32(1))
	binary.Write(&tiff, binary.BigEndian, orientation)
	binary.Write(&tiff, binary.BigEndian, uint16(0))
	binary.Write(&tiff, binary.BigEndian, uint32(0))
	return tiff.Bytes()
}

// withOrientation inserts an APP1 EXIF segment carrying only the orientation
// tag right after the JPEG SOI marker.
func withOrientation(t *testing.T, jpg []byte, orientation uint16) []byte {
	t.Helper()
	if len(jpg) < 2 || jpg[0] != 0xff || jpg[1] != 0xd8 {
		t.Fatal("not a JPEG")
	}
	payload := append([]byte("Exif\x00\x00"), orientationTIFF(orientation)...)
	var out bytes.Buffer
	out.Write(jpg[:2])
	out.Write([]byte{0xff, 0xe1})
	binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(jpg[2:])
	return out.Bytes()
}

// withPNGOrientation adds an eXIf chunk right after IHDR.
func withPNGOrientation(t *testing.T, png []byte, orientation uint16) []byte {
	t.Helper()
	const ihdrEnd = 8 + 4 + 4 + 13 + 4
	if len(png) < ihdrEnd || string(png[12:16]) != "IHDR" {
		t.Fatal("not a PNG")
	}
	data := orientationTIFF(orientation)
	var out bytes.Buffer
	out.Write(png[:ihdrEnd])
	binary.Write(&out, binary.BigEndian, uint32(len(data)))
	out.WriteString("eXIf")
	out.Write(data)
	binary.Write(&out, binary.BigEndian, crc32.ChecksumIEEE(append([]byte("eXIf"), data...)))
	out.Write(png[ihdrEnd:])
	return out.Bytes()
}

// fixPNGCRC recomputes the CRC of the chunk starting at off.
func fixPNGCRC(t *testing.T, png []byte, off int) []byte {
	t.Helper()
	n := int(binary.BigEndian.Uint32(png[off : off+4]))
	end := off + 8 + n
	binary.BigEndian.PutUint32(png[end:end+4], crc32.ChecksumIEEE(png[off+4:end]))
	return png
}

// withWebPOrientation rewraps a simple-format WebP as an extended one (VP8X)
// with an EXIF chunk after the image data.
func withWebPOrientation(t *testing.T, simple []byte, width, height int, orientation uint16) []byte {
	t.Helper()
	if len(simple) < 20 || string(simple[:4]) != "RIFF" || string(simple[8:12]) != "WEBP" {
		t.Fatal("not a WebP")
	}
	exifData := orientationTIFF(orientation)

	var chunks bytes.Buffer
	chunks.WriteString("VP8X")
	binary.Write(&chunks, binary.LittleEndian, uint32(10))
	chunks.Write([]byte{0x08, 0, 0, 0})
	w, h := uint32(width-1), uint32(height-1)
	chunks.Write([]byte{byte(w), byte(w >> 8), byte(w >> 16), byte(h), byte(h >> 8), byte(h >> 16)})
	chunks.Write(simple[12:])
	chunks.WriteString("EXIF")
	binary.Write(&chunks, binary.LittleEndian, uint32(len(exifData)))
	chunks.Write(exifData)
	if len(exifData)%2 == 1 {
		chunks.WriteByte(0)
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(4+chunks.Len()))
	out.WriteString("WEBP")
	out.Write(chunks.Bytes())
	return out.Bytes()
}

// encodeTIFF writes img as TIFF and, when orientation is non-zero, appends a
// copy of IFD0 that also carries the orientation tag.
func encodeTIFF(t *testing.T, img image.Image, orientation uint16) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := xtiff.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode tiff: %v", err)
	}
	data := buf.Bytes()
	if orientation == 0 {
		return data
	}

	le := binary.LittleEndian
	ifd := int(le.Uint32(data[4:8]))
	n := int(le.Uint16(data[ifd : ifd+2]))
	entries := make([][]byte, 0, n+1)
	for i := 0; i < n; i++ {
		off := ifd + 2 + 12*i
		entries = append(entries, data[off:off+12])
	}
	tag := make([]byte, 12)
	le.PutUint16(tag[0:], 0x0112)
	le.PutUint16(tag[2:], 3)
	le.PutUint32(tag[4:], 1)
	le.PutUint16(tag[8:], orientation)
	entries = append(entries, tag)
	sort.Slice(entries, func(i, j int) bool {
		return le.Uint16(entries[i]) < le.Uint16(entries[j])
	})

	out := append([]byte(nil), data...)
	if len(out)%2 == 1 {
		out = append(out, 0)
	}
	le.PutUint32(out[4:8], uint32(len(out)))
	out = le.AppendUint16(out, uint16(len(entries)))
	for _, e := range entries {
		out = append(out, e...)
	}
	return le.AppendUint32(out, 0)
}

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

// sameImage compares two images pixel by pixel within tol per 8-bit channel.
func sameImage(t *testing.T, want, got image.Image, tol uint32) {
	t.Helper()
	if want.Bounds().Size() != got.Bounds().Size() {
		t.Fatalf("Expected size %v, got %v", want.Bounds().Size(), got.Bounds().Size())
	}
	wb, gb := want.Bounds(), got.Bounds()
	for y := 0; y < wb.Dy(); y++ {
		for x := 0; x < wb.Dx(); x++ {
			r1, g1, b1, _ := want.At(wb.Min.X+x, wb.Min.Y+y).RGBA()
			r2, g2, b2, _ := got.At(gb.Min.X+x, gb.Min.Y+y).RGBA()
			if absDiff(r1, r2) > tol<<8 || absDiff(g1, g2) > tol<<8 || absDiff(b1, b2) > tol<<8 {
				t.Fatalf("Pixel (%d,%d) differs: %v vs %v", x, y,
					[3]uint32{r1 >> 8, g1 >> 8, b1 >> 8}, [3]uint32{r2 >> 8, g2 >> 8, b2 >> 8})
			}
		}
	}
}

// countingDecoder wraps the real decoder and counts calls.
type countingDecoder struct {
	inner   Decoder
	configs int
	decodes int
}

func (d *countingDecoder) DecodeConfig(r io.Reader) (image.Config, string, error) {
	d.configs++
	return d.inner.DecodeConfig(r)
}

func (d *countingDecoder) Decode(r io.Reader) (image.Image, error) {
	d.decodes++
	return d.inner.Decode(r)
}

func newCountingValidator(maxBytes, maxPixels int64) (*Validator, *countingDecoder) {
	d := &countingDecoder{inner: orientingDecoder{}}
	return NewValidator(maxBytes, maxPixels).WithDecoder(d), d
}
