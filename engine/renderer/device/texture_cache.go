package device

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
)

// TextureCache loads named textures from a store and keeps them resident until their file changes.
type TextureCache interface {
	// Get returns the texture for name, decoding and uploading it on first use.
	//
	// Parameters:
	//   - name: the texture file name within the store
	//
	// Returns:
	//   - *TextureView: the texture
	//   - error: the load error, or asset.ErrPending while an asynchronous load is in flight
	Get(name string) (*TextureView, error)
}

type textureCache struct {
	ctx     Context
	store   asset.Store
	entries asset.Cache[string, *TextureView]
}

var _ TextureCache = &textureCache{}

// NewTextureCache creates a texture cache that uploads through ctx.
//
// Parameters:
//   - ctx: the device context textures are created on
//   - store: the store textures are read from
//   - opts: options forwarded to the underlying asset cache
//
// Returns:
//   - TextureCache: the cache
func NewTextureCache(ctx Context, store asset.Store, opts ...asset.CacheBuilderOption) TextureCache {
	if ctx == nil || store == nil {
		panic("device: NewTextureCache requires a context and a store")
	}
	t := &textureCache{ctx: ctx, store: store}
	opts = append([]asset.CacheBuilderOption{asset.WithCacheName("textures")}, opts...)
	t.entries = asset.NewCache[string, *TextureView](t.load, opts...)
	return t
}

func (t *textureCache) Get(name string) (*TextureView, error) {
	return t.entries.Get(name)
}

func (t *textureCache) load(name string) (*TextureView, asset.DependencyValidation, error) {
	dv := t.store.Validation(name)
	data, err := t.store.ReadFile(name)
	if err != nil {
		return nil, dv, err
	}
	staging, err := DecodeTexture(data)
	if err != nil {
		return nil, dv, fmt.Errorf("texture %s: %w", name, err)
	}
	view, err := t.ctx.CreateTexture(name, staging)
	if err != nil {
		return nil, dv, fmt.Errorf("texture %s: %w", name, err)
	}
	return view, dv, nil
}

// DecodeTexture decodes an encoded image (png, jpeg, bmp, tiff or webp) into RGBA staging data.
//
// Parameters:
//   - data: the encoded image
//
// Returns:
//   - common.TextureStagingData: the decoded pixels
//   - error: an error if the format is unknown or the data is corrupt
func DecodeTexture(data []byte) (common.TextureStagingData, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return common.TextureStagingData{}, err
	}
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != b.Dx()*4 {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return common.TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
	}, nil
}
