package overlay

// Style holds the resolved visual parameters for one rendered feature.
type Style struct {
	Color       string  `json:"color" doc:"Outline color (CSS)"`
	FillColor   string  `json:"fillColor,omitempty" doc:"Fill color (CSS), markers only"`
	Weight      float64 `json:"weight,omitempty" doc:"Outline width"`
	Opacity     float64 `json:"opacity,omitempty" doc:"Outline opacity (0-1)"`
	FillOpacity float64 `json:"fillOpacity,omitempty" doc:"Fill opacity (0-1)"`
	Radius      float64 `json:"radius,omitempty" doc:"Marker radius"`
	Marker      bool    `json:"marker" doc:"Whether the feature renders as a circle marker"`
}

var (
	basaltStyle     = Style{Color: "#8B0000"}
	olivineStyle    = Style{Color: "#008B8B"}
	geologicalStyle = Style{Color: "#808080"}

	volcanicStyle = Style{
		Color:       "#000",
		FillColor:   "#FF4500",
		Weight:      1,
		Opacity:     1,
		FillOpacity: 0.8,
		Radius:      8,
		Marker:      true,
	}
	mangroveStyle = Style{
		Color:       "#000",
		FillColor:   "#008000",
		Weight:      1,
		Opacity:     1,
		FillOpacity: 0.8,
		Radius:      6,
		Marker:      true,
	}
)

// ResolveStyle maps a record to its style. Geological records are styled by
// type with a gray fallback; point overlays use one fixed style per category.
// An unknown category panics.
func ResolveStyle(c Category, rec Record) Style {
	switch c {
	case CategoryGeological:
		switch rec.Type() {
		case "basalt":
			return basaltStyle
		case "olivine":
			return olivineStyle
		default:
			return geologicalStyle
		}
	case CategoryVolcanic:
		return volcanicStyle
	case CategoryMangrove:
		return mangroveStyle
	default:
		violate("no style for %s", c)
		return Style{}
	}
}
