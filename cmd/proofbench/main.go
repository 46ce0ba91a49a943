// proofbench is a command-line companion for the proofing editor: it
// validates and round-trips page markup, runs page images through Google
// Document AI, converts hOCR output into the flat box transport, and exports
// proofed pages as searchable PDFs.
//
// Configuration:
//
// OCR commands require a YAML configuration file with Document AI settings:
//
//	server: "https://ambuda.org"
//	project: "my-project-slug"
//	documentai:
//	  project_id: "your-gcp-project-id"
//	  location: "us"
//	  processor_id: "your-processor-id"
//
// Usage:
//
//	proofbench [options]
//
// Markup options:
//
//	-validate string   Path to a page markup file to validate
//	-roundtrip string  Path to a page markup file to parse and re-serialize
//	-out string        Path to save fetched or re-serialized markup (default stdout)
//
// Server options:
//
//	-fetch string  Page slug to fetch from the configured server (requires -config)
//
// OCR options:
//
//	-config string  Path to the YAML configuration file (required with -ocr)
//	-ocr string     Path to a page image to OCR with Document AI
//	-mime string    MIME type of the page image (default image/png)
//	-hocr string    Path to an hOCR file to convert instead of calling OCR
//	-text string    Path to save the recognized plain text
//	-boxes string   Path to save the word boxes as TSV
//
// Export options:
//
//	-export string  Path to save a searchable page PDF
//	-image string   Path to the page image (required with -export)
//	-from string    Path to the word-box TSV for the text layer
//	-export-debug   Render the text layer visibly for inspection
//
// Debug options:
//
//	-debug-api string  Path to save the raw Document AI response as JSON
//
// Authentication:
//
// OCR uses the GOOGLE_APPLICATION_CREDENTIALS environment variable for
// authentication with Google Cloud.
//
// Example:
//
//	export GOOGLE_APPLICATION_CREDENTIALS=/path/to/credentials.json
//	proofbench -validate page.xml
//	proofbench -config config.yml -fetch 42 -out page.xml -boxes page.tsv
//	proofbench -config config.yml -ocr page.png -text page.txt -boxes page.tsv
//	proofbench -export page.pdf -image page.png -from page.tsv

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/marici/proofbench/pkg/export"
	"github.com/marici/proofbench/pkg/gocr"
	"github.com/marici/proofbench/pkg/markup"
	"github.com/marici/proofbench/pkg/ocr"
	"github.com/marici/proofbench/pkg/session"
)

type yamlConfig struct {
	Server     string      `yaml:"server"`
	Project    string      `yaml:"project"`
	DocumentAI gocr.Config `yaml:"documentai"`
}

// loadConfig reads the YAML configuration file.
func loadConfig(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, err
	}
	return &yc, nil
}

func main() {
	configPath := flag.String("config", "", "Path to the config YAML file (required with -ocr)")

	// Markup flags
	validatePath := flag.String("validate", "", "Path to a page markup file to validate")
	roundtripPath := flag.String("roundtrip", "", "Path to a page markup file to parse and re-serialize")
	outPath := flag.String("out", "", "Path to save fetched or re-serialized markup (default stdout)")

	// Server flags
	fetchSlug := flag.String("fetch", "", "Page slug to fetch from the configured server (requires -config)")

	// OCR flags
	ocrPath := flag.String("ocr", "", "Path to a page image to OCR with Document AI")
	mimeType := flag.String("mime", "image/png", "MIME type of the page image")
	hocrPath := flag.String("hocr", "", "Path to an hOCR file to convert instead of calling OCR")
	textPath := flag.String("text", "", "Path to save the recognized plain text")
	boxesPath := flag.String("boxes", "", "Path to save the word boxes as TSV")
	debugAPIPath := flag.String("debug-api", "", "Path to save the raw Document AI response as JSON")

	// Export flags
	exportPath := flag.String("export", "", "Path to save a searchable page PDF")
	imagePath := flag.String("image", "", "Path to the page image (required with -export)")
	fromPath := flag.String("from", "", "Path to the word-box TSV for the text layer")
	exportDebug := flag.Bool("export-debug", false, "Render the text layer visibly for inspection")

	flag.Parse()

	providedFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		providedFlags[f.Name] = true
	})

	hasError := false
	validateFlag := func(name string, value string) {
		if providedFlags[name] && value == "" {
			fmt.Fprintf(os.Stderr, "Error: -%s flag requires a value\n", name)
			hasError = true
		}
	}
	validateFlag("validate", *validatePath)
	validateFlag("roundtrip", *roundtripPath)
	validateFlag("fetch", *fetchSlug)
	validateFlag("ocr", *ocrPath)
	validateFlag("hocr", *hocrPath)
	validateFlag("text", *textPath)
	validateFlag("boxes", *boxesPath)
	validateFlag("export", *exportPath)
	validateFlag("image", *imagePath)
	validateFlag("from", *fromPath)
	if hasError {
		fmt.Fprintln(os.Stderr, "Usage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	hasCommand := *validatePath != "" || *roundtripPath != "" || *fetchSlug != "" ||
		*ocrPath != "" || *hocrPath != "" || *exportPath != ""
	if !hasCommand {
		fmt.Fprintln(os.Stderr, "Error: At least one command flag must be provided (-validate, -roundtrip, -fetch, -ocr, -hocr, or -export)")
		fmt.Fprintln(os.Stderr, "Usage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	schema := markup.DefaultSchema()

	// Validate page markup.
	if *validatePath != "" {
		data, err := os.ReadFile(*validatePath)
		if err != nil {
			log.Fatalf("Failed to read markup file: %v", err)
		}
		doc, err := markup.Parse(schema, string(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", *validatePath, err)
			os.Exit(1)
		}
		fmt.Printf("%s: OK (%d blocks)\n", *validatePath, len(doc.Blocks))
	}

	// Parse and re-serialize page markup.
	if *roundtripPath != "" {
		data, err := os.ReadFile(*roundtripPath)
		if err != nil {
			log.Fatalf("Failed to read markup file: %v", err)
		}
		doc, err := markup.Parse(schema, string(data))
		if err != nil {
			log.Fatalf("Failed to parse markup: %v", err)
		}
		serialized := markup.Serialize(schema, doc)
		if *outPath != "" {
			if err := os.WriteFile(*outPath, []byte(serialized), 0644); err != nil {
				log.Fatalf("Failed to write markup output: %v", err)
			}
			fmt.Println("Serialized markup saved to:", *outPath)
		} else {
			fmt.Println(serialized)
		}
	}

	// Fetch a page from the configured server.
	if *fetchSlug != "" {
		if *configPath == "" {
			fmt.Fprintln(os.Stderr, "Error: -config flag is required with -fetch")
			os.Exit(1)
		}
		cfg, err := loadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if cfg.Server == "" || cfg.Project == "" {
			log.Fatalf("Config must set server and project for -fetch")
		}

		client := session.NewClient(cfg.Server, nil)
		page, err := client.PageData(context.Background(), cfg.Project, *fetchSlug)
		if err != nil {
			log.Fatalf("Failed to fetch page: %v", err)
		}
		if *outPath != "" {
			if err := os.WriteFile(*outPath, []byte(page.Content), 0644); err != nil {
				log.Fatalf("Failed to write markup output: %v", err)
			}
			fmt.Printf("Page %s/%s (version %d) saved to: %s\n",
				cfg.Project, page.PageSlug, page.Version, *outPath)
		} else {
			fmt.Println(page.Content)
		}
		if *boxesPath != "" {
			if err := os.WriteFile(*boxesPath, []byte(page.OCRBoundingBoxes), 0644); err != nil {
				log.Fatalf("Failed to write box output: %v", err)
			}
			fmt.Println("Word boxes saved to:", *boxesPath)
		}
	}

	// OCR a page image with Document AI.
	if *ocrPath != "" {
		if *configPath == "" {
			fmt.Fprintln(os.Stderr, "Error: -config flag is required with -ocr")
			os.Exit(1)
		}
		cfg, err := loadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		imageBytes, err := os.ReadFile(*ocrPath)
		if err != nil {
			log.Fatalf("Failed to read page image: %v", err)
		}

		fmt.Println("Processing page image:", *ocrPath)
		ctx := context.Background()
		rawDoc, err := gocr.ProcessImage(ctx, imageBytes, *mimeType, &cfg.DocumentAI)
		if err != nil {
			log.Fatalf("Error processing page: %v", err)
		}

		if *debugAPIPath != "" {
			apiJSON, err := gocr.RawJSON(rawDoc)
			if err != nil {
				log.Fatalf("Failed to convert API response to JSON: %v", err)
			}
			if err := os.WriteFile(*debugAPIPath, []byte(apiJSON), 0644); err != nil {
				log.Fatalf("Failed to write API response JSON: %v", err)
			}
			fmt.Println("API response JSON saved to:", *debugAPIPath)
		}

		result, err := gocr.ExtractPage(rawDoc)
		if err != nil {
			log.Fatalf("Failed to extract page: %v", err)
		}
		writeOCRResult(result.Text, result.Boxes, *textPath, *boxesPath)
	}

	// Convert an hOCR file into the flat transport.
	if *hocrPath != "" {
		data, err := os.ReadFile(*hocrPath)
		if err != nil {
			log.Fatalf("Failed to read hOCR file: %v", err)
		}
		boxes, err := ocr.ParseHOCRBoxes(data)
		if err != nil {
			log.Fatalf("Failed to parse hOCR: %v", err)
		}
		lines := ocr.GroupIntoLines(boxes, ocr.DefaultLineTolerance)
		writeOCRResult(ocr.PlainText(lines), boxes, *textPath, *boxesPath)
	}

	// Export a searchable page PDF.
	if *exportPath != "" {
		if *imagePath == "" {
			fmt.Fprintln(os.Stderr, "Error: -image flag is required with -export")
			os.Exit(1)
		}
		imageBytes, err := os.ReadFile(*imagePath)
		if err != nil {
			log.Fatalf("Failed to read page image: %v", err)
		}
		imgCfg, _, err := image.DecodeConfig(bytes.NewReader(imageBytes))
		if err != nil {
			log.Fatalf("Failed to decode page image: %v", err)
		}

		var boxes []ocr.WordBox
		if *fromPath != "" {
			tsv, err := os.ReadFile(*fromPath)
			if err != nil {
				log.Fatalf("Failed to read word-box TSV: %v", err)
			}
			boxes = ocr.ParseTSV(string(tsv))
		}

		cfg := export.DefaultConfig()
		cfg.Debug = *exportDebug
		pdfBytes, err := export.SearchablePDF(imageBytes, boxes,
			float64(imgCfg.Width), float64(imgCfg.Height), cfg)
		if err != nil {
			log.Fatalf("Failed to export PDF: %v", err)
		}
		if err := os.WriteFile(*exportPath, pdfBytes, 0644); err != nil {
			log.Fatalf("Failed to write PDF: %v", err)
		}
		fmt.Println("Searchable PDF saved to:", *exportPath)
	}
}

// writeOCRResult saves the recognized text and boxes to the requested paths.
func writeOCRResult(text string, boxes []ocr.WordBox, textPath, boxesPath string) {
	if textPath != "" {
		if err := os.WriteFile(textPath, []byte(text), 0644); err != nil {
			log.Fatalf("Failed to write text output: %v", err)
		}
		fmt.Println("Recognized text saved to:", textPath)
	}
	if boxesPath != "" {
		if err := os.WriteFile(boxesPath, []byte(ocr.FormatTSV(boxes)), 0644); err != nil {
			log.Fatalf("Failed to write box output: %v", err)
		}
		fmt.Printf("Saved %d word boxes to: %s\n", len(boxes), boxesPath)
	}
}
