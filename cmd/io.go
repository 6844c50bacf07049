package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/landgeo/internal/land"
)

// Output formats accepted by --output.
const (
	outputJSON = "json"
	outputYAML = "yaml"
)

// inputDoc is a decoded input file. YAML files are detected by extension,
// everything else is treated as JSON.
type inputDoc struct {
	data []byte
	yaml bool
}

func readInput(path string) (inputDoc, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return inputDoc{}, eris.Wrapf(err, "read input %s", path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return inputDoc{data: data, yaml: ext == ".yaml" || ext == ".yml"}, nil
}

func (d inputDoc) unmarshal(v any) error {
	if d.yaml {
		return eris.Wrap(yaml.Unmarshal(d.data, v), "decode yaml input")
	}
	return eris.Wrap(json.Unmarshal(d.data, v), "decode json input")
}

// records decodes one land record or a list of them. list reports whether
// the input was a list, so callers can answer in the same shape.
func (d inputDoc) records() (recs []land.LandRecord, list bool, err error) {
	var many []land.LandRecord
	if err := d.unmarshal(&many); err == nil {
		return many, true, nil
	}
	var one land.LandRecord
	if err := d.unmarshal(&one); err != nil {
		return nil, false, err
	}
	return []land.LandRecord{one}, false, nil
}

// submission decodes a partial create-land payload.
func (d inputDoc) submission() (land.LandSubmission, error) {
	if !d.yaml {
		return land.DecodeSubmissionJSON(d.data)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(d.data, &raw); err != nil {
		return land.LandSubmission{}, eris.Wrap(err, "decode yaml submission")
	}
	return land.DecodeSubmission(raw), nil
}

func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml output")
		}
		return eris.Wrap(enc.Close(), "encode yaml output")
	case outputJSON, "":
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode json output")
		}
		_, err := w.Write(buf.Bytes())
		return err
	default:
		return eris.Errorf("unsupported output format %q", format)
	}
}
