package client

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"civitai/harvester/internal/domain"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/gabriel-vasile/mimetype"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
	"resty.dev/v3"
)

const (
	placeholderSize  = 300
	placeholderGray  = 128
	placeholderWrap  = 40
	placeholderLineH = 15
)

// ImageFetcher loads the images shown by the curator.
type ImageFetcher interface {
	// Fetch always returns a displayable image. On failure it is a gray
	// placeholder annotated with the error, returned alongside that error.
	Fetch(ctx context.Context, url string) (image.Image, error)
	Close()
}

type imageFetcher struct {
	httpClient *resty.Client
	cache      *ristretto.Cache[string, image.Image]
}

// NewImageFetcher creates a fetcher that keeps up to maxCost bytes of decoded
// pixels in memory.
func NewImageFetcher(timeout time.Duration, maxCost int64) (ImageFetcher, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, image.Image]{
		NumCounters: 10_000,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}

	return &imageFetcher{
		httpClient: resty.New().
			SetTimeout(timeout).
			SetRetryCount(0).
			SetHeader("User-Agent", "civitai-harvester/1.0"),
		cache: cache,
	}, nil
}

func (f *imageFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	if img, ok := f.cache.Get(url); ok {
		return img, nil
	}

	img, err := f.fetch(ctx, url)
	if err != nil {
		log.Debugf("Image %s unavailable: %v", url, err)
		return Placeholder(err.Error()), err
	}

	b := img.Bounds()
	if f.cache.Set(url, img, int64(b.Dx()*b.Dy()*4)) {
		f.cache.Wait()
	}
	return img, nil
}

func (f *imageFetcher) fetch(ctx context.Context, url string) (image.Image, error) {
	if url == "" {
		return nil, &domain.DecodeError{URL: url, Err: fmt.Errorf("item has no image url")}
	}

	resp, err := f.httpClient.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &domain.TransportError{StatusCode: resp.StatusCode(), Status: resp.Status(), URL: url}
	}

	return DecodeImage(url, resp.Bytes())
}

func (f *imageFetcher) Close() {
	f.cache.Close()
}

// DecodeImage sniffs and decodes jpeg, png, gif and webp bytes.
func DecodeImage(url string, data []byte) (image.Image, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, &domain.DecodeError{URL: url, Err: fmt.Errorf("unsupported content type %s", mt.String())}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &domain.DecodeError{URL: url, Err: err}
	}
	return img, nil
}

// Placeholder returns a solid gray square with msg written across it in red.
func Placeholder(msg string) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
	gray := color.RGBA{R: placeholderGray, G: placeholderGray, B: placeholderGray, A: 0xff}
	draw.Draw(img, img.Bounds(), image.NewUniform(gray), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 0xff, A: 0xff}),
		Face: basicfont.Face7x13,
	}

	lines := wrap(msg, placeholderWrap)
	y := placeholderSize/2 - (len(lines)-1)*placeholderLineH/2
	for _, line := range lines {
		d.Dot = fixed.P(10, y)
		d.DrawString(line)
		y += placeholderLineH
	}
	return img
}

func wrap(s string, width int) []string {
	runes := []rune(s)
	if len(runes) == 0 {
		return []string{""}
	}
	var lines []string
	for len(runes) > width {
		lines = append(lines, string(runes[:width]))
		runes = runes[width:]
	}
	return append(lines, string(runes))
}
