// Package imaging provides the image buffer type shared by every pipeline
// stage, plus the file I/O around it.
//
// A Buffer is a dense grid of scalar samples with a declared bit depth and one
// or more planes. Decoded files are split into one Buffer per channel, so a
// grayscale TIFF gives one channel and an RGB image three.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Plane: index into a stack (0 = first plane)
//
// # Output Formats
//
// Measurement maps are written as uncompressed 32-bit float TIFFs (one page
// per plane) so values of any sign or magnitude round-trip without clipping.
// An optional colour preview (PNG) is rendered through an HCL colour ramp.
// EncodePNG crops and scales any image into a base64 PNG for inline results,
// and OutlineOverlay draws region borders and labels over a channel.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Buffers returned from the
// cache are shared and must be treated as read-only.
package imaging
