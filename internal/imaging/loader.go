package imaging

import (
	"fmt"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// ImageCache provides thread-safe caching of decoded channel sets to avoid
// redundant disk reads and channel splitting.
//
// The cache stores the per-channel buffers of an image keyed by file path.
// Buffers handed out by Load are shared between callers and must be treated
// as read-only; pipeline stages always allocate their own outputs.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached channels remain in memory until explicitly removed via Evict() or
// Clear(). Batch runs evict each image once its outputs are written.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string][]*Buffer
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string][]*Buffer),
	}
}

// Load retrieves the channels of an image from the cache or decodes the file
// if it is not cached yet.
//
// Parameters:
//   - path: File path to the image. Supported formats are TIFF, PNG, JPEG,
//     GIF and BMP. Single-page files only; the first page of a TIFF is used.
//
// Returns:
//   - []*Buffer: One single-plane buffer per channel (see Channels).
//   - error: Non-nil if the file cannot be opened or decoded.
//
// The image is cached using the exact path string provided. Different paths to
// the same file (e.g., relative vs absolute) result in separate cache entries.
func (c *ImageCache) Load(path string) ([]*Buffer, error) {
	c.mu.RLock()
	if chans, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return chans, nil
	}
	c.mu.RUnlock()

	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	chans := Channels(img)

	c.mu.Lock()
	c.images[path] = chans
	c.mu.Unlock()

	return chans, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string][]*Buffer)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
//
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Channels is the number of channels the image splits into.
	Channels int `json:"channels"`

	// Format is the detected image format: "tiff", "png", "jpeg", "gif", "bmp" or "unknown".
	// Detection is based on file extension, not file contents.
	Format string `json:"format"`

	// BitDepth is the per-channel sample depth: "8-bit" or "16-bit".
	BitDepth string `json:"bit_depth"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image through the cache and returns its metadata.
//
// Parameters:
//   - cache: The image cache to use for loading. Must not be nil.
//   - path: Path to the image file.
//
// Returns:
//   - *ImageInfo: Metadata about the image.
//   - error: Non-nil if the image cannot be loaded or the file cannot be stat'd.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	chans, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	first := chans[0]
	return &ImageInfo{
		Width:         first.Width,
		Height:        first.Height,
		Channels:      len(chans),
		Format:        formatFromExt(path),
		BitDepth:      first.Depth.String(),
		FileSizeBytes: stat.Size(),
	}, nil
}

// formatFromExt maps a file extension to a format name.
func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return "tiff"
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".bmp":
		return "bmp"
	}
	return "unknown"
}

// Channel returns the 1-based channel of an image, the way channel numbers are
// given on the command line and in configuration files.
func Channel(chans []*Buffer, id int) (*Buffer, error) {
	if id < 1 || id > len(chans) {
		return nil, fmt.Errorf("channel %d out of range (image has %d channels)", id, len(chans))
	}
	return chans[id-1], nil
}

// SplitPath returns the directory of an image file and its base name
// without extension.
func SplitPath(path string) (dir, base string) {
	dir = filepath.Dir(path)
	name := filepath.Base(path)
	return dir, strings.TrimSuffix(name, filepath.Ext(name))
}
