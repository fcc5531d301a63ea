package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, channel count and bit depth. The decoded channels are cached for later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},

		// Segmentation
		{
			Name:        "segment_regions",
			Description: "Detect bright objects on a dark background in one channel (median filter, triangle threshold, opening, hole filling) and return the connected regions that exceed the minimum area, with their shape descriptors.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"channel": map[string]interface{}{
						"type":        "integer",
						"description": "1-based channel to segment. Defaults to the configured reference channel",
					},
					"min_area": map[string]interface{}{
						"type":        "integer",
						"description": "Regions must have more pixels than this to be kept. Defaults to the configured value (50)",
					},
					"median_radius": map[string]interface{}{
						"type":        "integer",
						"description": "Radius of the denoising median filter. Defaults to the configured value (3)",
					},
					"label_map_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to write a 16-bit TIFF where each region's pixels hold its label",
					},
				},
				"required": []string{"path"},
			},
		},

		// Measurement
		{
			Name:        "measurement_map",
			Description: "Segment the reference channel, measure every region on a channel and paint each region with its value. Returns one results row per region and any per-region conditions (undefined ratios, unparsable names). Maps are written as float TIFFs (32-bit, or 64-bit when the server is configured with float64Maps) when output_path is given.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"channel": map[string]interface{}{
						"type":        "integer",
						"description": "1-based channel to measure. Default 1",
						"default":     1,
					},
					"reference_channel": map[string]interface{}{
						"type":        "integer",
						"description": "1-based channel regions are detected on. Defaults to the configured reference channel",
					},
					"statistics": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Statistics to render, by column name (Mean, Circ., AR) or full name (Circularity, AspectRatio). Use list_statistics for the full list. Defaults to the configured statistics",
					},
					"names": map[string]interface{}{
						"type":                 "object",
						"additionalProperties": map[string]interface{}{"type": "string"},
						"description":          "Optional region names keyed by label, e.g. {\"1\": \"Track-0001:Frame-0001\"}. Defaults to the configured names file",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional TIFF path for the map. With several statistics the statistic name is inserted before the extension",
					},
					"preview": map[string]interface{}{
						"type":        "boolean",
						"description": "Also write a colour PNG next to each TIFF. Requires output_path",
						"default":     false,
					},
					"inline_preview": map[string]interface{}{
						"type":        "boolean",
						"description": "Return a base64 colour PNG of each map in the response",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "region_overlay",
			Description: "Segment a channel and return it as a base64 PNG with the outline of every kept region drawn on top, optionally numbered with region labels. Use it to check segmentation before measuring.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"channel": map[string]interface{}{
						"type":        "integer",
						"description": "1-based channel to segment and show. Defaults to the configured reference channel",
					},
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "Optional crop: left edge (inclusive)",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "Optional crop: top edge (inclusive)",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Optional crop: right edge (exclusive)",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Optional crop: bottom edge (exclusive)",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Scale factor for the output. Default 1.0",
						"default":     1.0,
					},
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Outline colour as hex. Default #FFFF00",
						"default":     "#FFFF00",
					},
					"show_labels": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw each region's label at its centroid. Default true",
						"default":     true,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "list_statistics",
			Description: "List every statistic a measurement map can hold, with its column name and meaning.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Workflow
		{
			Name:        "run_workflow",
			Description: "Run the full pipeline on one or more image files: segment the reference channel, measure every channel and write maps, tables and the region list to an output folder next to each image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths to the image files",
					},
					"statistics": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Statistics to render. Defaults to the configured statistics",
					},
					"output_folder": map[string]interface{}{
						"type":        "string",
						"description": "Name of the folder created next to each image. Default output_go",
					},
					"preview": map[string]interface{}{
						"type":        "boolean",
						"description": "Also write colour PNG previews of every map",
						"default":     false,
					},
				},
				"required": []string{"paths"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
