package batch

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/guardkit/guardkit/internal/models"
	"github.com/rs/zerolog"
)

// Writer emits guard runs in the selected output format. The jsonl format
// writes one GuardResult per line; summary counts outcomes and writes a
// single JSON object on Close.
type Writer struct {
	output  io.Writer
	format  string
	encoder *json.Encoder
	summary summaryStats
	logger  *zerolog.Logger
}

type summaryStats struct {
	Total         int `json:"total"`
	Passed        int `json:"passed"`
	Failed        int `json:"failed"`
	ShortCircuits int `json:"short_circuits"`
}

func NewWriter(output io.Writer, format string, logger *zerolog.Logger) (*Writer, error) {
	switch format {
	case "jsonl", "summary":
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	return &Writer{
		output:  output,
		format:  format,
		encoder: json.NewEncoder(output),
		logger:  logger,
	}, nil
}

func (w *Writer) Write(run models.GuardResult) error {
	w.summary.Total++
	switch run.Outcome {
	case models.OutcomePass:
		w.summary.Passed++
	default:
		w.summary.Failed++
	}
	if run.ShortCircuit {
		w.summary.ShortCircuits++
	}

	if w.format == "jsonl" {
		return w.encoder.Encode(run)
	}
	return nil
}

func (w *Writer) Close() error {
	if w.format != "summary" {
		return nil
	}

	data, err := json.MarshalIndent(w.summary, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.output, string(data))
	return err
}
