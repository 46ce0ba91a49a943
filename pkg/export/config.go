package export

// FontConfig contains font settings for the invisible text layer.
type FontConfig struct {
	Name        string  // Font name (e.g., "Helvetica")
	Style       string  // Font style ("", "B", "I", "BI")
	Size        float64 // Default font size
	AscentRatio float64 // Vertical positioning ratio
}

// DefaultFont is Helvetica, which renders reliably in the text layer.
var DefaultFont = FontConfig{
	Name:        "Helvetica",
	Style:       "",
	Size:        10,
	AscentRatio: 0.718,
}

// Config holds options for exporting a searchable page PDF.
type Config struct {
	Debug     bool   // Render the text layer visibly in red with box outlines
	LayerName string // Name of the OCR text layer
	Font      FontConfig
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Debug:     false,
		LayerName: "OCR Text",
		Font:      DefaultFont,
	}
}
