// Command validate runs the validation pipeline over one file and writes the
// corrected outputs next to it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Guilhermefoliveira/csv-validador/internal/cep"
	"github.com/Guilhermefoliveira/csv-validador/internal/config"
	"github.com/Guilhermefoliveira/csv-validador/internal/core"
	"github.com/Guilhermefoliveira/csv-validador/internal/logging"
	"github.com/Guilhermefoliveira/csv-validador/internal/schema"
)

func main() {
	var (
		filePath  = flag.String("file", "", "input file to validate (required)")
		mapPath   = flag.String("map", "", "YAML header-map override file")
		noLookup  = flag.Bool("no-lookup", false, "skip postal-code lookups against external providers")
		outFormat = flag.String("out-format", "", "where to write the format-only variant (default: skip)")
		outFull   = flag.String("out-full", "", "where to write the fully-corrected variant (default: <file>_corrected.csv)")
	)
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: validate -file input.csv [-map headers.yaml] [-no-lookup]")
		os.Exit(2)
	}

	_ = godotenv.Overload()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	var headerMap schema.HeaderMap
	if *mapPath != "" {
		headerMap, err = schema.LoadHeaderMap(*mapPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "header map error: %v\n", err)
			os.Exit(1)
		}
	}

	resolver := cep.NewClient(
		cep.WithTimeout(cfg.Lookup.Timeout),
		cep.WithMaxConcurrent(cfg.Lookup.MaxConcurrent),
		cep.WithNotFoundThreshold(cfg.Lookup.NotFoundThreshold),
		cep.WithMinLookupDigits(cfg.Lookup.MinDigits),
		cep.WithUserAgent(cfg.Lookup.UserAgent),
	)
	pipeline := core.New(resolver)

	result, err := pipeline.ValidateFile(context.Background(), *filePath, core.Options{
		HeaderMap: headerMap,
		Lookup:    !*noLookup,
	})
	if err != nil {
		slog.Error("validation failed", "error", err)
		os.Exit(1)
	}

	printReport(result.Report)

	if result.HasCritical() {
		os.Exit(1)
	}

	full := *outFull
	if full == "" {
		full = defaultOutputPath(*filePath)
	}
	if err := core.SaveCSV(full, result.FullRows); err != nil {
		slog.Error("writing output", "error", err, "path", full)
		os.Exit(1)
	}
	fmt.Printf("fully-corrected file written to %s\n", full)

	if *outFormat != "" {
		if err := core.SaveCSV(*outFormat, result.FormatRows); err != nil {
			slog.Error("writing output", "error", err, "path", *outFormat)
			os.Exit(1)
		}
		fmt.Printf("format-only file written to %s\n", *outFormat)
	}
}

// defaultOutputPath places the corrected file next to the input.
func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_corrected" + ext
}

func printReport(rep core.Report) {
	if len(rep.CriticalErrors) > 0 {
		fmt.Println("critical errors:")
		for _, e := range rep.CriticalErrors {
			fmt.Printf("  - %s\n", e)
		}
		return
	}

	if len(rep.Warnings) > 0 {
		fmt.Println("warnings:")
		for _, wmsg := range rep.Warnings {
			fmt.Printf("  - %s\n", wmsg)
		}
	}
	if len(rep.RowErrors) > 0 {
		fmt.Println("row errors:")
		for _, e := range rep.RowErrors {
			fmt.Printf("  - row %d, %s: %s\n", e.Row, e.Field, e.Message)
		}
	}
	if len(rep.Corrections) > 0 {
		fmt.Println("corrections:")
		for _, c := range rep.Corrections {
			fmt.Printf("  - row %d, %s [%s]: %q -> %q\n", c.Row, c.Field, c.Source, c.Original, c.Corrected)
		}
	}
	if len(rep.RowErrors) == 0 && len(rep.Corrections) == 0 {
		fmt.Println("no errors or corrections")
	}
}
