package client

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"civitai/harvester/internal/config"
	"civitai/harvester/internal/domain"
	"civitai/harvester/internal/proxy"
	"civitai/harvester/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (CivitaiClient, repository.PageStore, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := repository.NewFilePageStore(t.TempDir(), "civitai_datas_*.json")
	cfg := config.CivitaiConfig{
		BaseURL:              srv.URL + "/api/v1/images",
		Timeout:              5,
		MaxRetries:           0,
		MaxRequestsPerSecond: 1000,
	}
	return NewCivitaiClient(cfg, proxy.NewProxySupplier(nil), store), store, srv
}

func TestFetchPageSplitsCompositeCursor(t *testing.T) {
	var gotQuery map[string]string
	c, store, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{"cursor": q.Get("cursor"), "limit": q.Get("limit"), "nsfw": q.Get("nsfw")}
		_, _ = w.Write([]byte(`{"items":[{"id":1},{"id":2}],"metadata":{"nextCursor":"abc|xyz"}}`))
	})

	res, err := c.FetchPage(context.Background(), "prev", domain.PageParams{Limit: 2, NSFW: true})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"cursor": "prev", "limit": "2", "nsfw": "true"}, gotQuery)
	assert.Equal(t, "abc", res.NextCursor)
	assert.Equal(t, 2, res.Items)

	page, err := store.LoadPage(res.Path)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestFetchFirstPageOmitsCursor(t *testing.T) {
	hasCursor := true
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hasCursor = r.URL.Query().Has("cursor")
		_, _ = w.Write([]byte(`{"items":[],"metadata":{"nextCursor":"5"}}`))
	})

	res, err := c.FetchPage(context.Background(), "", domain.PageParams{Limit: 10})
	require.NoError(t, err)
	assert.False(t, hasCursor)
	assert.Contains(t, res.Path, "civitai_datas_start.json")
}

func TestFetchPageEndOfStream(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"id":1}],"metadata":{}}`))
	})

	res, err := c.FetchPage(context.Background(), "9", domain.PageParams{Limit: 10})
	assert.ErrorIs(t, err, domain.ErrEndOfStream)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Items)
	_, statErr := os.Stat(res.Path)
	assert.NoError(t, statErr)
}

func TestFetchPageTransportError(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.FetchPage(context.Background(), "", domain.PageParams{Limit: 10})
	var terr *domain.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusBadRequest, terr.StatusCode)
}

func TestFetchPageMalformedBody(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	})

	_, err := c.FetchPage(context.Background(), "", domain.PageParams{Limit: 10})
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)
}

func TestFetchPageRejectsNonPositiveLimit(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.FetchPage(context.Background(), "", domain.PageParams{Limit: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidParams)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 0xff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageFetcherDecodesAndCaches(t *testing.T) {
	body := pngBytes(t, 4, 3)
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	f, err := NewImageFetcher(5*time.Second, 1<<20)
	require.NoError(t, err)
	defer f.Close()

	img, err := f.Fetch(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())

	_, err = f.Fetch(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, 1, requests)
}

func TestImageFetcherPlaceholderOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("definitely not an image"))
	}))
	defer srv.Close()

	f, err := NewImageFetcher(5*time.Second, 1<<20)
	require.NoError(t, err)
	defer f.Close()

	img, err := f.Fetch(context.Background(), srv.URL+"/text")
	var derr *domain.DecodeError
	assert.ErrorAs(t, err, &derr)
	require.NotNil(t, img)
	assert.Equal(t, image.Rect(0, 0, placeholderSize, placeholderSize), img.Bounds())

	img, err = f.Fetch(context.Background(), srv.URL+"/missing")
	var terr *domain.TransportError
	assert.ErrorAs(t, err, &terr)
	require.NotNil(t, img)
}

func TestPlaceholderIsGrayWithText(t *testing.T) {
	img := Placeholder("connection refused")

	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(placeholderGray), r>>8)
	assert.Equal(t, uint32(placeholderGray), g>>8)
	assert.Equal(t, uint32(placeholderGray), b>>8)

	red := 0
	bounds := img.Bounds()
	for x := bounds.Min.X; x < bounds.Max.X; x++ {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			r, g, _, _ := img.At(x, y).RGBA()
			if r>>8 == 0xff && g>>8 == 0 {
				red++
			}
		}
	}
	assert.Positive(t, red)
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"abc", "def", "g"}, wrap("abcdefg", 3))
	assert.Equal(t, []string{""}, wrap("", 3))
}
