package encoder

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"

	"qrious/internal/core"

	qrcode "github.com/skip2/go-qrcode"
)

const dataURLPrefix = "data:image/png;base64,"

// ErrUnencodable 內容超出該容錯等級可容納的長度，屬於用戶端錯誤
var ErrUnencodable = errors.New("content cannot be encoded at this error correction level")

// Encoder 將內容依樣式轉成 PNG
type Encoder interface {
	Encode(ctx context.Context, content string, style core.Style) ([]byte, error)
}

// QREncoder 以 skip2/go-qrcode 產生模組矩陣，自行依樣式繪製
type QREncoder struct{}

func NewQREncoder() *QREncoder {
	return &QREncoder{}
}

func (e *QREncoder) Encode(ctx context.Context, content string, style core.Style) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fg, err := ParseHexColor(style.ForegroundColor)
	if err != nil {
		return nil, err
	}
	bg, err := ParseHexColor(style.BackgroundColor)
	if err != nil {
		return nil, err
	}

	q, err := qrcode.New(content, recoveryLevel(style.ErrorCorrectionLevel))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnencodable, err)
	}
	q.DisableBorder = true
	bitmap := q.Bitmap()

	img := render(bitmap, style.Size, style.Margin, fg, bg)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// render 以最近鄰取樣把 (n + 2*margin) 個模組縮放到 size×size
func render(bitmap [][]bool, size, margin int, fg, bg color.Color) *image.Paletted {
	n := len(bitmap)
	total := n + 2*margin
	img := image.NewPaletted(image.Rect(0, 0, size, size), color.Palette{bg, fg})

	for y := 0; y < size; y++ {
		my := y*total/size - margin
		for x := 0; x < size; x++ {
			mx := x*total/size - margin
			if my >= 0 && my < n && mx >= 0 && mx < n && bitmap[my][mx] {
				img.SetColorIndex(x, y, 1)
			}
		}
	}
	return img
}

func recoveryLevel(level core.ErrorCorrection) qrcode.RecoveryLevel {
	switch level {
	case core.ErrorCorrectionL:
		return qrcode.Low
	case core.ErrorCorrectionQ:
		return qrcode.High
	case core.ErrorCorrectionH:
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// ParseHexColor 解析 #RRGGBB
func ParseHexColor(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// DataURL 轉成前端可直接使用的 data URL
func DataURL(png []byte) string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png)
}

// DecodeDataURL DataURL 的反向操作
func DecodeDataURL(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, dataURLPrefix) {
		return nil, errors.New("not a png data url")
	}
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, dataURLPrefix))
}
