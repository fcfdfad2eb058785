package render

import (
	"fmt"
	"image/color"
)

// classColors is the standard MODIS land cover palette.
var classColors = map[string]string{
	"Evergreen Needleleaf Forest":        "#05450a",
	"Evergreen Broadleaf Forest":         "#086a10",
	"Deciduous Needleleaf Forest":        "#54a708",
	"Deciduous Broadleaf Forest":         "#78d203",
	"Mixed Forests":                      "#009900",
	"Closed Shrublands":                  "#c6b044",
	"Open Shrublands":                    "#dcd159",
	"Woody Savannas":                     "#dade48",
	"Savannas":                           "#fbff13",
	"Grasslands":                         "#b6ff05",
	"Permanent Wetlands":                 "#27ff87",
	"Croplands":                          "#c24f44",
	"Urban and Built-up":                 "#a5a5a5",
	"Cropland/Natural Vegetation Mosaic": "#ff6d4c",
	"Snow and Ice":                       "#f9ffa4",
	"Barren":                             "#1c0dff",
	"Water Bodies":                       "#1919ff",
}

const defaultClassColor = "#808080"

// Fixed colours for change charts.
const (
	gainHex  = "#008000"
	lossHex  = "#ff0000"
	startHex = "#4682b4"
	endHex   = "#ff7f50"
)

// ClassHex returns the "#rrggbb" colour of a class, grey for unknown names.
func ClassHex(name string) string {
	if hex, ok := classColors[name]; ok {
		return hex
	}
	return defaultClassColor
}

// ClassColor is ClassHex as a color.RGBA.
func ClassColor(name string) color.RGBA {
	return mustHex(ClassHex(name))
}

func parseHex(s string) (color.RGBA, error) {
	c := color.RGBA{A: 255}
	if len(s) != 7 || s[0] != '#' {
		return c, fmt.Errorf("invalid colour %q", s)
	}
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return c, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return c, nil
}

func mustHex(s string) color.RGBA {
	c, err := parseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}
