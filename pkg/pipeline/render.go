package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/matzehuels/tapesched/pkg/dataset"
	"github.com/matzehuels/tapesched/pkg/render"
)

// Render generates output artifacts for res in the requested formats.
// Seek costs in drawings use the cost options, with defaults applied.
func Render(ctx context.Context, ds *dataset.Dataset, res *Result, opts Options) (map[string][]byte, error) {
	opts.SetCostDefaults()
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	var dot string
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatJSON:
			data, err = json.MarshalIndent(res, "", "  ")
		case FormatDOT, FormatSVG:
			if dot == "" {
				dot = render.ToDOT(ds, res.Schedule, opts.Oracle(), render.Options{Detailed: opts.Detailed})
			}
			if format == FormatDOT {
				data = []byte(dot)
			} else {
				data, err = render.RenderSVG(ctx, dot)
			}
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
