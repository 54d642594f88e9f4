package batch

import (
	"context"
	"errors"
	"sync"

	"github.com/guardkit/guardkit/internal/guard"
	"github.com/guardkit/guardkit/internal/models"
	"github.com/rs/zerolog"
)

// Processor fans records out to a fixed pool of workers, each running the
// full guard chain. Output order follows completion, not input order.
type Processor struct {
	guard   *guard.Guard
	workers int
	logger  *zerolog.Logger
}

func NewProcessor(g *guard.Guard, workers int, logger *zerolog.Logger) *Processor {
	if workers <= 0 {
		workers = 1
	}
	return &Processor{
		guard:   g,
		workers: workers,
		logger:  logger,
	}
}

func (p *Processor) Process(ctx context.Context, records []InputRecord) <-chan models.GuardResult {
	jobs := make(chan InputRecord)
	out := make(chan models.GuardResult)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range jobs {
				run, err := p.guard.Validate(ctx, record.Payload.RequestID, record.Payload.Text)
				if err != nil && !errors.Is(err, guard.ErrValidationFailed) {
					p.logger.Error().
						Err(err).
						Int("line", record.LineNumber).
						Str("request_id", record.Payload.RequestID).
						Msg("Validation failed to run")
					continue
				}

				select {
				case out <- run:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, record := range records {
			if record.Error != nil {
				p.logger.Warn().Int("line", record.LineNumber).Err(record.Error).Msg("Skipping malformed record")
				continue
			}

			select {
			case jobs <- record:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
