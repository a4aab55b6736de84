// openapi-gen writes the OpenAPI 3 description of the REST API as YAML.
//
// Usage:
//
//	go run ./cmd/openapi-gen -out openapi.yaml
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/stive2025/collapi-sub001/handlers"
	"gopkg.in/yaml.v3"
)

func render(w io.Writer, title, version string) error {
	doc, err := handlers.BuildOpenAPI(title, version, handlers.Routes(handlers.DefaultMetricsDeps()))
	if err != nil {
		return fmt.Errorf("build openapi: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return fmt.Errorf("invalid openapi: %w", err)
	}
	data, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode openapi: %w", err)
	}
	// JSON is valid YAML; decoding it again drops the flow style
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("decode openapi: %w", err)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		return fmt.Errorf("encode openapi: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func main() {
	out := flag.String("out", "", "output file (stdout when empty)")
	title := flag.String("title", "collapi", "API title")
	version := flag.String("version", "1.0.0", "API version")
	flag.Parse()

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create %s: %v\n", *out, err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	if err := render(w, *title, *version); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
