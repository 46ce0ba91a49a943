// Package gocr runs page images through Google Document AI and converts the
// response into the proofing editor's word-box model: the page's plain text
// plus one pixel-coordinate box per recognized word, ready to store in the
// page's bounding-box field.
//
// Usage requirements:
//
// - Google Cloud project with Document AI API enabled
// - Document AI processor configured for OCR
// - Authentication via GOOGLE_APPLICATION_CREDENTIALS environment variable
package gocr

import "fmt"

// Config identifies the Document AI processor to use.
type Config struct {
	ProjectID   string `yaml:"project_id"`
	Location    string `yaml:"location"`
	ProcessorID string `yaml:"processor_id"`
}

// Validate checks that all processor coordinates are present.
func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("project_id is required")
	}
	if c.Location == "" {
		return fmt.Errorf("location is required")
	}
	if c.ProcessorID == "" {
		return fmt.Errorf("processor_id is required")
	}
	return nil
}
