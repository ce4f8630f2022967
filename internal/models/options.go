package models

import (
	"fmt"
	"strings"
)

var (
	Styles = []string{
		"Cinematic", "Anime", "Documentary", "Vibrant Animation", "Noir", "Hyper-realistic", "Fantasy", "Sci-Fi",
	}

	ShotSizes = []string{
		"Extreme Wide Shot", "Wide Shot (WS)", "Full Shot (FS)", "Medium Full Shot (MFS)",
		"Medium Shot (MS)", "Medium Close-Up (MCU)", "Close-Up (CU)", "Extreme Close-Up (ECU)",
	}

	Angles = []string{
		"Eye-Level Shot",
		"Low-Angle Shot",
		"High-Angle Shot",
		"Bird's-Eye View",
		"Dutch Angle",
		"Worm's-Eye View",
		"Over-the-Shoulder Shot",
		"Point of View (POV) Shot",
		"Two-Shot",
		"Three-Shot",
		"Master Shot",
	}

	Movements = []string{
		"Static",
		"Pan",
		"Tilt",
		"Dolly (Tracking Shot)",
		"Zoom",
		"Crane/Boom Shot",
		"Steadicam",
		"Handheld",
		"Pedestal",
		"Truck (Crab)",
		"Rack Focus (Focus Pull)",
		"Push In",
		"Pull Out",
		"360-degree Spin",
	}

	ActorMovements = []string{
		"Running", "Walking", "Jumping", "Dancing", "Fighting", "Slow Motion", "Waving", "Sitting", "Standing Still",
	}

	Transitions = []string{
		"Cut", "Fade to Black", "Dissolve", "Wipe", "Push", "Slide", "J-Cut", "L-Cut", "Match Cut",
	}

	TimesOfDay = []string{
		"Morning", "Afternoon", "Evening", "Night", "Sunrise", "Sunset", "Golden Hour", "Blue Hour",
	}

	LightingOptions = []string{
		"Bright Daylight", "Soft Ambient", "Dramatic Shadows", "Backlit", "Neon Glow",
	}
)

// OptionCatalog is the set of choices the scene form offers.
type OptionCatalog struct {
	Styles         []string `json:"styles"`
	ShotSizes      []string `json:"shot_sizes"`
	Angles         []string `json:"angles"`
	Movements      []string `json:"movements"`
	ActorMovements []string `json:"actor_movements"`
	Transitions    []string `json:"transitions"`
	TimesOfDay     []string `json:"times_of_day"`
	Lighting       []string `json:"lighting"`
	OutputFormats  []string `json:"output_formats"`
}

// Catalog returns every enumerated set.
func Catalog() OptionCatalog {
	return OptionCatalog{
		Styles:         Styles,
		ShotSizes:      ShotSizes,
		Angles:         Angles,
		Movements:      Movements,
		ActorMovements: ActorMovements,
		Transitions:    Transitions,
		TimesOfDay:     TimesOfDay,
		Lighting:       LightingOptions,
		OutputFormats:  []string{string(FormatMarkdown), string(FormatJSON)},
	}
}

// OutputFormat selects the shape of the generated prompt.
type OutputFormat string

const (
	FormatMarkdown OutputFormat = "markdown"
	FormatJSON     OutputFormat = "json"
)

// ParseOutputFormat accepts "markdown" or "json", case-insensitively.
// An empty string selects Markdown.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatMarkdown:
		return FormatMarkdown, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// FileExtension returns the extension used when the output is saved.
func (f OutputFormat) FileExtension() string {
	if f == FormatJSON {
		return ".json"
	}
	return ".md"
}

// ContentType returns the MIME type used when the output is downloaded.
func (f OutputFormat) ContentType() string {
	if f == FormatJSON {
		return "application/json; charset=utf-8"
	}
	return "text/markdown; charset=utf-8"
}
