package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ironsheep/measurement-maps/internal/imaging"
	"github.com/ironsheep/measurement-maps/internal/measure"
	"github.com/ironsheep/measurement-maps/internal/regions"
	"github.com/ironsheep/measurement-maps/internal/segment"
	"github.com/ironsheep/measurement-maps/internal/workflow"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "measurement_map").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies configured defaults for optional parameters
//  3. Loads images from cache as needed
//  4. Runs the segment/regions/measure stages it needs
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "segment_regions":
		return s.handleSegmentRegions(args)
	case "measurement_map":
		return s.handleMeasurementMap(args)
	case "region_overlay":
		return s.handleRegionOverlay(args)
	case "list_statistics":
		return s.handleListStatistics(args)
	case "run_workflow":
		return s.handleRunWorkflow(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response. An empty data is omitted.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	e := &MCPError{Code: code, Message: message}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{JSONRPC: "2.0", ID: id, Error: e}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments, treating missing arguments as {}.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	return json.Unmarshal(args, v)
}

// === Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === Segmentation Handlers ===

// detection holds the channels of an image and the regions found on one of them.
type detection struct {
	chans  []*imaging.Buffer
	mask   *imaging.Buffer
	result *regions.Result
}

// detect segments one channel of an image and extracts its regions.
func (s *Server) detect(path string, channel, minArea, medianRadius int) (*detection, error) {
	chans, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}
	ref, err := imaging.Channel(chans, channel)
	if err != nil {
		return nil, err
	}
	mask, err := segment.New(medianRadius).Segment(ref)
	if err != nil {
		return nil, err
	}
	res, err := regions.Extract(mask, minArea)
	if err != nil {
		return nil, err
	}
	return &detection{chans: chans, mask: mask, result: res}, nil
}

type segmentRegionsArgs struct {
	Path         string `json:"path"`
	Channel      *int   `json:"channel"`
	MinArea      *int   `json:"min_area"`
	MedianRadius *int   `json:"median_radius"`
	LabelMapPath string `json:"label_map_path"`
}

type segmentRegionsResult struct {
	Channel      int              `json:"channel"`
	RawRegions   int              `json:"raw_regions"`
	Kept         int              `json:"kept"`
	MinArea      int              `json:"min_area"`
	Condition    string           `json:"condition,omitempty"`
	Regions      []regions.Region `json:"regions"`
	LabelMapPath string           `json:"label_map_path,omitempty"`
}

func (s *Server) handleSegmentRegions(args json.RawMessage) (interface{}, error) {
	var a segmentRegionsArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	channel := intOr(a.Channel, s.cfg.Segmentation.ReferenceChannel)
	minArea := intOr(a.MinArea, s.cfg.Segmentation.MinArea)
	radius := intOr(a.MedianRadius, s.cfg.Segmentation.MedianRadius)

	d, err := s.detect(a.Path, channel, minArea, radius)
	if err != nil {
		return nil, err
	}

	out := &segmentRegionsResult{
		Channel:    channel,
		RawRegions: d.result.Raw,
		Kept:       len(d.result.Regions),
		MinArea:    d.result.MinArea,
		Regions:    d.result.Regions,
	}
	if out.Regions == nil {
		out.Regions = []regions.Region{}
	}
	if cond := d.result.Condition(); cond != nil {
		out.Condition = cond.Error()
	}

	if a.LabelMapPath != "" {
		labels := regions.LabelMap(d.result.Regions, d.mask.Width, d.mask.Height, d.mask.Planes)
		if err := imaging.SaveTIFF(a.LabelMapPath, labels); err != nil {
			return nil, err
		}
		out.LabelMapPath = a.LabelMapPath
	}
	return out, nil
}

type regionOverlayArgs struct {
	Path       string  `json:"path"`
	Channel    *int    `json:"channel"`
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
	Scale      float64 `json:"scale"`
	Color      string  `json:"color"`
	ShowLabels *bool   `json:"show_labels"`
}

type regionOverlayResult struct {
	*imaging.EncodedImage
	Regions   int    `json:"regions"`
	Condition string `json:"condition,omitempty"`
}

func (s *Server) handleRegionOverlay(args json.RawMessage) (interface{}, error) {
	var a regionOverlayArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	channel := intOr(a.Channel, s.cfg.Segmentation.ReferenceChannel)
	showLabels := a.ShowLabels == nil || *a.ShowLabels

	d, err := s.detect(a.Path, channel, s.cfg.Segmentation.MinArea, s.cfg.Segmentation.MedianRadius)
	if err != nil {
		return nil, err
	}
	ref, err := imaging.Channel(d.chans, channel)
	if err != nil {
		return nil, err
	}

	overlay := regions.Outlines(ref, d.result.Regions, 0, a.Color, showLabels)
	crop := image.Rect(a.X1, a.Y1, a.X2, a.Y2)
	if a.X1 == 0 && a.Y1 == 0 && a.X2 == 0 && a.Y2 == 0 {
		crop = image.Rectangle{}
	}
	enc, err := imaging.EncodePNG(overlay, crop, a.Scale)
	if err != nil {
		return nil, err
	}

	res := &regionOverlayResult{EncodedImage: enc, Regions: len(d.result.Regions)}
	if cond := d.result.Condition(); cond != nil {
		res.Condition = cond.Error()
	}
	return res, nil
}

// === Measurement Handlers ===

type measurementMapArgs struct {
	Path             string            `json:"path"`
	Channel          int               `json:"channel"`
	ReferenceChannel *int              `json:"reference_channel"`
	Statistics       []string          `json:"statistics"`
	Names            map[string]string `json:"names"`
	OutputPath       string            `json:"output_path"`
	Preview          bool              `json:"preview"`
	InlinePreview    bool              `json:"inline_preview"`
}

type measurementMapResult struct {
	Channel    int                      `json:"channel"`
	Statistics []string                 `json:"statistics"`
	Regions    int                      `json:"regions"`
	Rows       []map[string]interface{} `json:"rows"`
	Conditions []string                 `json:"conditions,omitempty"`
	Outputs    []string                 `json:"outputs,omitempty"`

	// Previews holds one inline PNG per statistic when requested.
	Previews []*imaging.EncodedImage `json:"previews,omitempty"`
}

func (s *Server) handleMeasurementMap(args json.RawMessage) (interface{}, error) {
	var a measurementMapArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Channel == 0 {
		a.Channel = 1
	}
	if a.Preview && a.OutputPath == "" {
		return nil, errors.New("preview requires output_path")
	}

	kinds, err := s.kinds(a.Statistics)
	if err != nil {
		return nil, err
	}
	names, err := s.regionNames(a.Names)
	if err != nil {
		return nil, err
	}
	engine, err := s.cfg.Engine()
	if err != nil {
		return nil, err
	}

	ref := intOr(a.ReferenceChannel, s.cfg.Segmentation.ReferenceChannel)
	d, err := s.detect(a.Path, ref, s.cfg.Segmentation.MinArea, s.cfg.Segmentation.MedianRadius)
	if err != nil {
		return nil, err
	}
	src, err := imaging.Channel(d.chans, a.Channel)
	if err != nil {
		return nil, err
	}

	regs := workflow.Rename(d.result.Regions, names)
	out, err := engine.RenderAll(src, regs, kinds)
	if err != nil {
		return nil, err
	}

	res := &measurementMapResult{
		Channel: a.Channel,
		Regions: len(regs),
		Rows:    out.Table.Rows(),
	}
	for _, k := range kinds {
		res.Statistics = append(res.Statistics, k.String())
	}
	if cond := d.result.Condition(); cond != nil {
		res.Conditions = append(res.Conditions, cond.Error())
	}
	for _, c := range out.Conditions {
		res.Conditions = append(res.Conditions, c.Error())
	}

	if a.InlinePreview {
		for i := range out.Kinds {
			enc, err := inlinePreview(out.Maps[i], s.cfg.Output.PreviewMaxSide)
			if err != nil {
				return nil, err
			}
			res.Previews = append(res.Previews, enc)
		}
	}

	if a.OutputPath != "" {
		for i, k := range out.Kinds {
			path := mapPath(a.OutputPath, k, len(out.Kinds))
			m := out.Maps[i]
			if s.cfg.Output.Float64Maps {
				m = m.WithDepth(imaging.Depth64F)
			}
			if err := imaging.SaveTIFF(path, m); err != nil {
				return nil, err
			}
			res.Outputs = append(res.Outputs, path)

			if a.Preview {
				preview := strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
				if err := imaging.SavePreview(preview, out.Maps[i], 0, s.cfg.Output.PreviewMaxSide); err != nil {
					return nil, err
				}
				res.Outputs = append(res.Outputs, preview)
			}
		}
	}
	return res, nil
}

type statisticInfo struct {
	Name        string `json:"name"`
	Column      string `json:"column"`
	Description string `json:"description"`
}

func (s *Server) handleListStatistics(args json.RawMessage) (interface{}, error) {
	kinds := measure.Kinds()
	out := make([]statisticInfo, len(kinds))
	for i, k := range kinds {
		out[i] = statisticInfo{Name: k.Ident(), Column: k.String(), Description: k.Description()}
	}
	return out, nil
}

// === Workflow Handlers ===

type runWorkflowArgs struct {
	Paths        []string `json:"paths"`
	Statistics   []string `json:"statistics"`
	OutputFolder string   `json:"output_folder"`
	Preview      bool     `json:"preview"`
}

func (s *Server) handleRunWorkflow(args json.RawMessage) (interface{}, error) {
	var a runWorkflowArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, errors.New("paths must list at least one image")
	}

	cfg := *s.cfg
	if len(a.Statistics) > 0 {
		cfg.Measurement.Statistics = a.Statistics
	}
	if a.OutputFolder != "" {
		cfg.Output.Folder = a.OutputFolder
	}
	cfg.Output.Preview = cfg.Output.Preview || a.Preview

	runner, err := workflow.New(&cfg, s.cache)
	if err != nil {
		return nil, err
	}
	reports, err := runner.RunBatch(context.Background(), a.Paths)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"reports": reports}, nil
}

// === Helpers ===

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// kinds resolves requested statistic names, falling back to the configured ones.
func (s *Server) kinds(names []string) ([]measure.Kind, error) {
	if len(names) == 0 {
		return s.cfg.Kinds()
	}
	return measure.ParseKinds(names)
}

// parseNames converts label-keyed names from JSON object form.
// regionNames returns the names given with the call, or those of the
// configured names file when the call has none.
func (s *Server) regionNames(in map[string]string) (map[int]string, error) {
	if len(in) == 0 && s.cfg.Measurement.NamesFile != "" {
		return workflow.LoadNames(s.cfg.Measurement.NamesFile)
	}
	return parseNames(in)
}

func parseNames(in map[string]string) (map[int]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[int]string, len(in))
	for k, v := range in {
		label, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("names: invalid label %q", k)
		}
		out[label] = v
	}
	return out, nil
}

// inlinePreview renders the first plane of a map and encodes it for the
// response, shrunk so its longer side is at most maxSide.
func inlinePreview(m *imaging.Buffer, maxSide int) (*imaging.EncodedImage, error) {
	scale := 1.0
	if side := max(m.Width, m.Height); maxSide > 0 && side > maxSide {
		scale = float64(maxSide) / float64(side)
	}
	return imaging.EncodePNG(imaging.Preview(m, 0, 0, nil), image.Rectangle{}, scale)
}

// mapPath returns the file a map is written to. With several statistics the
// statistic name is inserted before the extension.
func mapPath(path string, k measure.Kind, n int) string {
	if n == 1 {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + k.Ident() + ext
}
