// Package server implements the MCP (Model Context Protocol) server for
// measurement maps.
//
// This package provides a JSON-RPC 2.0 server that exposes the segmentation
// and measurement pipeline through the MCP protocol, so MCP-compatible
// clients can detect regions in microscopy images and render per-region
// statistics without writing a workflow file.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// Notifications (methods under "notifications/") get no response.
//
// # Available Tools
//
//   - image_load: Load image and get dimensions, channels and bit depth
//   - segment_regions: Detect regions on one channel
//   - region_overlay: Return a PNG of a channel with region outlines drawn on it
//   - measurement_map: Render statistics of the regions on a channel,
//     optionally with inline PNG previews
//   - list_statistics: List the statistics a map can hold
//   - run_workflow: Run the whole pipeline on image files
//
// Optional parameters default to the server's configuration (see package
// config), which the command line loads from a YAML file.
//
// # Thread Safety
//
// Requests are handled one at a time in arrival order. Decoded images are
// cached between calls by path; run_workflow evicts the images it processed.
package server
