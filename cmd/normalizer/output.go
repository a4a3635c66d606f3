package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	normalizer "github.com/gofhir/normalizer"
	"github.com/gofhir/normalizer/registry"
	"github.com/gofhir/normalizer/worker"
)

type outputFormat string

const (
	outputText outputFormat = "text"
	outputJSON outputFormat = "json"
)

func parseFormat(s string) (outputFormat, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return outputText, nil
	case "json":
		return outputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

func parseForce(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("--force: %w", err)
	}
	return &t, nil
}

// input is one resource document read from disk or stdin.
type input struct {
	name string
	data []byte
	err  error
}

// readInputs expands globs and reads every file; "-" reads stdin.
func readInputs(args []string, stdin io.Reader) ([]input, error) {
	var inputs []input
	for _, arg := range args {
		if arg == "-" {
			data, err := io.ReadAll(stdin)
			inputs = append(inputs, input{name: "stdin", data: data, err: err})
			continue
		}

		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", arg)
		}
		for _, m := range matches {
			data, err := os.ReadFile(m)
			inputs = append(inputs, input{name: m, data: data, err: err})
		}
	}
	return inputs, nil
}

// fileOutput is the JSON form of one normalized file.
type fileOutput struct {
	File     string             `json:"file"`
	Resource json.RawMessage    `json:"resource,omitempty"`
	Result   *normalizer.Result `json:"result,omitempty"`
	Error    string             `json:"error,omitempty"`
	Duration string             `json:"duration"`
}

func (o fileOutput) ok() bool {
	return o.Error == "" && (o.Result == nil || o.Result.Valid)
}

// normalizeInputs runs every readable input through a worker pool and
// returns one output per input, in input order.
func normalizeInputs(ctx context.Context, n worker.Normalizer, workers int, tenant string, force *time.Time, inputs []input) []fileOutput {
	outs := make([]fileOutput, len(inputs))
	pool := worker.NewPool(ctx, n, workers)

	go func() {
		defer pool.CloseInput()
		for i, in := range inputs {
			if in.err != nil {
				continue
			}
			if !pool.Submit(worker.Job{ID: strconv.Itoa(i), Tenant: tenant, Resource: in.data, Force: force}) {
				return
			}
		}
	}()

	for i, in := range inputs {
		outs[i] = fileOutput{File: in.name}
		if in.err != nil {
			outs[i].Error = in.err.Error()
		}
	}

	for r := range pool.Results() {
		i, err := strconv.Atoi(r.ID)
		if err != nil || i < 0 || i >= len(outs) {
			continue
		}
		outs[i].Result = r.Result
		outs[i].Error = r.ErrorMessage()
		outs[i].Duration = time.Duration(r.Duration).Round(time.Microsecond).String()
		if r.Resource != nil {
			data, err := json.Marshal(r.Resource)
			if err != nil {
				outs[i].Error = fmt.Sprintf("encoding result: %v", err)
				continue
			}
			outs[i].Resource = data
		}
	}

	for i := range outs {
		if outs[i].Error == "" && outs[i].Result == nil && outs[i].Resource == nil {
			outs[i].Error = "not processed"
			if err := ctx.Err(); err != nil {
				outs[i].Error = err.Error()
			}
		}
	}
	return outs
}

func writeOutputs(w io.Writer, format outputFormat, outs []fileOutput) error {
	if format == outputJSON {
		return writeJSON(w, outs)
	}

	for _, o := range outs {
		status := "NORMALIZED"
		switch {
		case o.Error != "":
			status = "FAILED"
		case o.Result != nil && !o.Result.Valid:
			status = "ISSUES"
		case o.Resource == nil:
			status = "REJECTED"
		}
		fmt.Fprintf(w, "== %s ==\n", o.File)
		fmt.Fprintf(w, "Status: %s\n", status)
		if o.Error != "" {
			fmt.Fprintf(w, "Error: %s\n", o.Error)
		}
		if o.Result != nil {
			fmt.Fprintf(w, "Errors: %d, Warnings: %d, Unmapped: %d\n",
				o.Result.ErrorCount(), o.Result.Count(normalizer.SeverityWarning), len(o.Result.WithID(normalizer.IssueConceptMapLookup)))
		}
		if o.Result != nil && len(o.Result.Issues) > 0 {
			fmt.Fprintln(w, "Issues:")
			for _, iss := range o.Result.Issues {
				fmt.Fprintf(w, "  %s [%s] %s @ %s\n", severityLabel(iss.Severity), iss.Code, iss.Diagnostics, iss.Location())
			}
		}
		if o.Resource != nil {
			fmt.Fprintf(w, "Resource: %s\n", o.Resource)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func severityLabel(s normalizer.IssueSeverity) string {
	switch s {
	case normalizer.SeverityFatal, normalizer.SeverityError:
		return "ERROR"
	case normalizer.SeverityWarning:
		return "WARN "
	default:
		return "INFO "
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeManifest(w io.Writer, entries []registry.ManifestEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tELEMENT\tTENANT\tPROFILE\tFILE\tVERSION\tNAME")
	for _, e := range entries {
		tenant := e.TenantID
		if tenant == "" {
			tenant = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", e.Kind, e.DataElement, tenant, e.ProfileURL, e.Filename, e.Version, e.Metadata.Name)
	}
	return tw.Flush()
}
