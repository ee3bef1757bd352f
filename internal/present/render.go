package present

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/floodsense/internal/model"
)

// Format is an output encoding for views.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatGeoJSON Format = "geojson"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML, FormatGeoJSON:
		return f, nil
	default:
		return "", eris.Errorf("present: unknown format %q (want text, json, yaml, or geojson)", s)
	}
}

// RenderText writes the region panel as aligned text.
func RenderText(out io.Writer, v View) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if !v.Selected {
		_, _ = fmt.Fprintln(w, v.Prompt)
		return w.Flush()
	}

	location := v.Location
	if v.LocationLoading {
		location = "Loading location..."
	}
	_, _ = fmt.Fprintf(w, "Location:\t%s\n", location)
	_, _ = fmt.Fprintf(w, "Latitude:\t%s\n", v.Latitude)
	_, _ = fmt.Fprintf(w, "Longitude:\t%s\n", v.Longitude)
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", v.Status)

	if v.Action != "" {
		action := "[" + v.Action + "]"
		if !v.ActionEnabled {
			action += " (disabled)"
		}
		_, _ = fmt.Fprintf(w, "Action:\t%s\n", action)
	}
	if v.Error != "" {
		_, _ = fmt.Fprintf(w, "Error:\t%s\n", v.Error)
	}

	if v.Risk != nil {
		_, _ = fmt.Fprintf(w, "Flood Risk:\t%s (%d%%)\n", v.Risk.Label, v.Risk.Percent)
	}
	if len(v.Conditions) > 0 {
		_, _ = fmt.Fprintln(w, "")
		_, _ = fmt.Fprintln(w, "Conditions")
		for _, c := range v.Conditions {
			_, _ = fmt.Fprintf(w, "  %s\t%s\n", c.Label, c.Display())
		}
	}

	return w.Flush()
}

// RenderJSON writes v as indented JSON.
func RenderJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "present: encode json")
}

// RenderYAML writes v as YAML.
func RenderYAML(out io.Writer, v any) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "present: encode yaml")
	}
	return eris.Wrap(enc.Close(), "present: close yaml encoder")
}

// RenderLegend writes the legend as aligned text.
func RenderLegend(out io.Writer, entries []LegendEntry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEY\tRANGE\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "---\t-----\t-----------")
	lower := 0
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%d-%d%%\t%s\n", e.Key, lower, e.MaxPercent, e.Description)
		lower = e.MaxPercent + 1
	}
	return w.Flush()
}

// Render writes snap in format f.
func Render(out io.Writer, f Format, snap model.Snapshot) error {
	switch f {
	case FormatJSON:
		return RenderJSON(out, Build(snap))
	case FormatYAML:
		return RenderYAML(out, Build(snap))
	case FormatGeoJSON:
		return RenderJSON(out, PointFeature(snap))
	default:
		return RenderText(out, Build(snap))
	}
}
