package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/guardkit/guardkit/internal/models"
	"github.com/rs/zerolog"
)

// InputRecord is one parsed JSONL line. A malformed line carries its parse
// error so the caller can decide whether to stop or skip.
type InputRecord struct {
	LineNumber int
	Payload    models.ValidatePayload
	Error      error
}

type Reader struct {
	input  io.Reader
	logger *zerolog.Logger
}

func NewReader(input io.Reader, logger *zerolog.Logger) *Reader {
	return &Reader{
		input:  input,
		logger: logger,
	}
}

// ReadAll streams records line by line. The channel closes on EOF or
// context cancellation.
func (r *Reader) ReadAll(ctx context.Context) <-chan InputRecord {
	out := make(chan InputRecord)

	go func() {
		defer close(out)

		scanner := bufio.NewScanner(r.input)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		lineNumber := 0
		for scanner.Scan() {
			lineNumber++

			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			record := InputRecord{LineNumber: lineNumber}
			if err := json.Unmarshal(line, &record.Payload); err != nil {
				record.Error = fmt.Errorf("line %d: %w", lineNumber, err)
			} else if record.Payload.Text == "" {
				record.Error = fmt.Errorf("line %d: missing text field", lineNumber)
			}

			select {
			case out <- record:
			case <-ctx.Done():
				r.logger.Warn().Int("line", lineNumber).Msg("Reader stopped by context")
				return
			}
		}

		if err := scanner.Err(); err != nil {
			r.logger.Error().Err(err).Msg("Failed to read input")
		}
	}()

	return out
}
