package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/guardkit/guardkit/internal/api/middleware"
	"github.com/guardkit/guardkit/internal/audit"
	"github.com/guardkit/guardkit/internal/executor"
	"github.com/guardkit/guardkit/internal/guard"
	"github.com/guardkit/guardkit/internal/inference"
	"github.com/guardkit/guardkit/internal/models"
	"github.com/guardkit/guardkit/internal/router"
	"github.com/guardkit/guardkit/internal/validator"
	"github.com/rs/zerolog"
)

// ResultsCache memoizes single-validator results. Satisfied by
// cache.ResultsCache.
type ResultsCache interface {
	Get(ctx context.Context, validatorName, text string) (models.ValidationResult, bool)
	Set(ctx context.Context, validatorName, text string, result models.ValidationResult)
}

type Handler struct {
	guard    *guard.Guard
	executor *executor.SingleExecutor
	results  ResultsCache
	auditor  *audit.Store
	logger   *zerolog.Logger
}

// NewHandler wires the HTTP surface. The cache and audit store are optional;
// pass nil to run without them.
func NewHandler(g *guard.Guard, exec *executor.SingleExecutor, results ResultsCache, auditor *audit.Store, logger *zerolog.Logger) *Handler {
	return &Handler{
		guard:    g,
		executor: exec,
		results:  results,
		auditor:  auditor,
		logger:   logger,
	}
}

// POST /api/v1/validate
// Body: ValidatePayload
// Returns: GuardResult
func (h *Handler) Validate(req *restful.Request, resp *restful.Response) {
	var payload models.ValidatePayload
	if err := req.ReadEntity(&payload); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse request body")
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	h.logger.Info().
		Str("request_id", payload.RequestID).
		Msg("Start validation")

	ctx := req.Request.Context()

	run, err := h.guard.Validate(ctx, payload.RequestID, payload.Text)
	if err != nil && !errors.Is(err, guard.ErrValidationFailed) {
		middleware.HandleError(resp, err, statusFor(err))
		return
	}

	h.recordRun(req, run)

	h.logger.Info().
		Str("request_id", run.RequestID).
		Str("outcome", string(run.Outcome)).
		Msg("Validation complete")

	// A failed verdict is still a successful validation request.
	resp.WriteHeaderAndEntity(http.StatusOK, run)
}

// POST /api/v1/validate/{validator_name}
func (h *Handler) ValidateSingle(req *restful.Request, resp *restful.Response) {
	validatorName := req.PathParameter("validator_name")

	var payload models.ValidatePayload
	if err := req.ReadEntity(&payload); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse request body")
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	h.logger.Info().
		Str("request_id", payload.RequestID).
		Str("validator", validatorName).
		Msg("Start validation")

	ctx := req.Request.Context()

	if h.results != nil {
		if result, ok := h.results.Get(ctx, validatorName, payload.Text); ok {
			result.RequestID = payload.RequestID
			h.logger.Debug().
				Str("request_id", payload.RequestID).
				Str("validator", validatorName).
				Msg("serving cached result")
			resp.WriteHeaderAndEntity(http.StatusOK, result)
			return
		}
	}

	result, err := h.executor.Execute(ctx, validatorName, normalize(payload))
	if err != nil {
		middleware.HandleError(resp, err, statusFor(err))
		return
	}

	// Error outcomes are transient (a provider outage, a timeout inside the
	// validator); memoizing one would serve it for the whole TTL.
	if h.results != nil && result.Outcome != models.OutcomeError {
		h.results.Set(ctx, validatorName, payload.Text, result)
	}

	h.logger.Info().
		Str("request_id", result.RequestID).
		Str("validator", validatorName).
		Str("outcome", string(result.Outcome)).
		Msg("Validation complete")

	resp.WriteHeaderAndEntity(http.StatusOK, result)
}

// POST /api/v1/validate/stream
// Body: NDJSON, one ValidatePayload per line.
// Returns: NDJSON, one GuardResult per line, in request order.
func (h *Handler) ValidateStream(req *restful.Request, resp *restful.Response) {
	ctx := req.Request.Context()

	resp.Header().Set("Content-Type", "application/x-ndjson")
	resp.WriteHeader(http.StatusOK)

	encoder := json.NewEncoder(resp)
	scanner := bufio.NewScanner(req.Request.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var payload models.ValidatePayload
		if err := json.Unmarshal(line, &payload); err != nil {
			h.logger.Error().Err(err).Msg("Failed to decode stream line")
			return
		}

		run, err := h.guard.Validate(ctx, payload.RequestID, payload.Text)
		if err != nil && !errors.Is(err, guard.ErrValidationFailed) {
			h.logger.Error().Err(err).Str("request_id", payload.RequestID).Msg("Stream validation stopped")
			return
		}

		h.recordRun(req, run)

		if encodeErr := encoder.Encode(run); encodeErr != nil {
			h.logger.Error().Err(encodeErr).Msg("Failed to write stream result")
			return
		}
		resp.Flush()

		if err != nil {
			// Exception policy ends the stream; the failing result has
			// already been written, the remaining fragments are skipped.
			return
		}
	}
}

// POST /api/v1/validate/{validator_name}/stream
// Body: NDJSON, one ValidatePayload per line.
// Returns: NDJSON, one ValidationResult per line, in request order. This is
// the streaming half of the remote validation contract.
func (h *Handler) ValidateSingleStream(req *restful.Request, resp *restful.Response) {
	validatorName := req.PathParameter("validator_name")
	ctx, cancel := context.WithCancel(req.Request.Context())
	defer cancel()

	requests := make(chan models.ValidationRequest)
	go func() {
		defer close(requests)

		scanner := bufio.NewScanner(req.Request.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var payload models.ValidatePayload
			if err := json.Unmarshal(line, &payload); err != nil {
				h.logger.Error().Err(err).Msg("Failed to decode stream line")
				return
			}

			select {
			case requests <- normalize(payload):
			case <-ctx.Done():
				return
			}
		}
	}()

	results, err := h.executor.ExecuteStream(ctx, validatorName, requests)
	if err != nil {
		middleware.HandleError(resp, err, statusFor(err))
		return
	}

	resp.Header().Set("Content-Type", "application/x-ndjson")
	resp.WriteHeader(http.StatusOK)

	encoder := json.NewEncoder(resp)
	for sr := range results {
		if sr.Err != nil {
			h.logger.Error().Err(sr.Err).
				Str("validator", validatorName).
				Msg("Stream validation stopped")
			return
		}

		if err := encoder.Encode(sr.Result); err != nil {
			h.logger.Error().Err(err).Msg("Failed to write stream result")
			return
		}
		resp.Flush()
	}
}

// Health handler GET /api/v1/health
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	resp.WriteHeaderAndEntity(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	})
}

func (h *Handler) recordRun(req *restful.Request, run models.GuardResult) {
	if h.auditor == nil {
		return
	}
	if err := h.auditor.RecordRun(req.Request.Context(), run); err != nil {
		h.logger.Warn().Err(err).Str("request_id", run.RequestID).Msg("Failed to record audit entry")
	}
}

func normalize(payload models.ValidatePayload) models.ValidationRequest {
	return models.ValidationRequest{
		RequestID: payload.RequestID,
		Validator: payload.Validator,
		Text:      payload.Text,
		Metadata:  payload.Metadata,
		CreatedAt: time.Now(),
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, validator.ErrValidatorNotFound):
		return http.StatusNotFound
	case errors.Is(err, router.ErrConnectivity), errors.Is(err, inference.ErrUnreachable):
		return http.StatusBadGateway
	case errors.Is(err, inference.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, router.ErrMissingModel):
		return http.StatusFailedDependency
	default:
		return http.StatusInternalServerError
	}
}
