package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/guardkit/guardkit/internal/executor/mocks"
	"github.com/guardkit/guardkit/internal/models"
	"github.com/guardkit/guardkit/internal/validator"
	vmocks "github.com/guardkit/guardkit/internal/validator/mocks"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func TestSingleExecutor_Execute(t *testing.T) {
	tests := []struct {
		name          string
		validatorName string
		result        models.ValidationResult
		factoryErr    error
		validateErr   error
		request       models.ValidationRequest
		expectErr     error
		expectOutcome models.Outcome
	}{
		{
			name:          "clean text - pass",
			validatorName: "toxic-language",
			result: models.ValidationResult{
				RequestID: "test-001",
				Validator: "toxic-language",
				Outcome:   models.OutcomePass,
				Mode:      models.ModeLocal,
				Duration:  100 * time.Millisecond,
			},
			request: models.ValidationRequest{
				RequestID: "test-001",
				Text:      "What a lovely day.",
				CreatedAt: time.Now(),
			},
			expectOutcome: models.OutcomePass,
		},
		{
			name:          "toxic text - fail",
			validatorName: "toxic-language",
			result: models.ValidationResult{
				RequestID: "test-002",
				Validator: "toxic-language",
				Outcome:   models.OutcomeFail,
				Reason:    "toxic language detected (severity 0.80, threshold 0.50)",
				Mode:      models.ModeLocal,
				Duration:  120 * time.Millisecond,
			},
			request: models.ValidationRequest{
				RequestID: "test-002",
				Text:      "offensive content",
				CreatedAt: time.Now(),
			},
			expectOutcome: models.OutcomeFail,
		},
		{
			name:          "validator not found - error",
			validatorName: "unknown-validator",
			factoryErr:    validator.ErrValidatorNotFound,
			request: models.ValidationRequest{
				RequestID: "test-003",
				Text:      "text",
				CreatedAt: time.Now(),
			},
			expectErr: validator.ErrValidatorNotFound,
		},
		{
			name:          "validator transport error surfaces",
			validatorName: "toxic-language",
			validateErr:   errors.New("endpoint returned status 502"),
			request: models.ValidationRequest{
				RequestID: "test-004",
				Text:      "text",
				CreatedAt: time.Now(),
			},
			expectErr: errors.New("endpoint returned status 502"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockFactory := mocks.NewMockValidatorFactory(ctrl)
			mockValidator := vmocks.NewMockValidator(ctrl)

			// Setup expectations
			if tt.factoryErr != nil {
				mockFactory.EXPECT().Get(tt.validatorName).Return(nil, tt.factoryErr)
			} else {
				mockFactory.EXPECT().Get(tt.validatorName).Return(mockValidator, nil)
				mockValidator.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(tt.result, tt.validateErr)
			}

			// Execute
			exec := NewSingleExecutor(mockFactory, testLogger())
			result, err := exec.Execute(context.Background(), tt.validatorName, tt.request)

			// Assert error
			if tt.expectErr != nil {
				if err == nil {
					t.Fatalf("expected error %v, got nil", tt.expectErr)
				}
				if tt.factoryErr != nil && !errors.Is(err, validator.ErrValidatorNotFound) {
					t.Errorf("expected ErrValidatorNotFound, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			// Assert result fields
			if result.RequestID != tt.request.RequestID {
				t.Errorf("expected request id %s, got %s", tt.request.RequestID, result.RequestID)
			}
			if result.Outcome != tt.expectOutcome {
				t.Errorf("expected outcome %s, got %s", tt.expectOutcome, result.Outcome)
			}
			if result.Validator != tt.validatorName {
				t.Errorf("expected validator %s, got %s", tt.validatorName, result.Validator)
			}
		})
	}
}

func TestSingleExecutor_SetsValidatorOnRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockFactory := mocks.NewMockValidatorFactory(ctrl)
	mockValidator := vmocks.NewMockValidator(ctrl)

	mockFactory.EXPECT().Get("detect-pii").Return(mockValidator, nil)
	mockValidator.EXPECT().
		Validate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req models.ValidationRequest) (models.ValidationResult, error) {
			if req.Validator != "detect-pii" {
				t.Errorf("expected validator set on request, got %q", req.Validator)
			}
			if req.CreatedAt.IsZero() {
				t.Error("expected CreatedAt to be populated")
			}
			return models.ValidationResult{RequestID: req.RequestID, Validator: req.Validator, Outcome: models.OutcomePass}, nil
		})

	exec := NewSingleExecutor(mockFactory, testLogger())
	if _, err := exec.Execute(context.Background(), "detect-pii", models.ValidationRequest{RequestID: "test-005", Text: "text"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSingleExecutor_ExecuteStream_PerCallFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockFactory := mocks.NewMockValidatorFactory(ctrl)
	mockValidator := vmocks.NewMockValidator(ctrl)

	// A validator without a streaming path is validated call by call.
	mockFactory.EXPECT().Get("detect-pii").Return(mockValidator, nil)
	mockValidator.EXPECT().
		Validate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req models.ValidationRequest) (models.ValidationResult, error) {
			return models.ValidationResult{RequestID: req.RequestID, Validator: req.Validator, Outcome: models.OutcomePass}, nil
		}).
		Times(2)

	requests := make(chan models.ValidationRequest, 2)
	requests <- models.ValidationRequest{RequestID: "frag-1", Text: "one"}
	requests <- models.ValidationRequest{RequestID: "frag-2", Text: "two"}
	close(requests)

	exec := NewSingleExecutor(mockFactory, testLogger())
	results, err := exec.ExecuteStream(context.Background(), "detect-pii", requests)
	if err != nil {
		t.Fatalf("ExecuteStream() failed: %v", err)
	}

	var got []models.ValidationResult
	for sr := range results {
		if sr.Err != nil {
			t.Fatalf("unexpected stream error: %v", sr.Err)
		}
		got = append(got, sr.Result)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].RequestID != "frag-1" || got[1].RequestID != "frag-2" {
		t.Errorf("results out of order: %s, %s", got[0].RequestID, got[1].RequestID)
	}
}

// stubStreamValidator fails the test if the per-call path is taken.
type stubStreamValidator struct{}

func (s *stubStreamValidator) Name() string               { return "toxic-language" }
func (s *stubStreamValidator) Mode() models.ExecutionMode { return models.ModeRemote }
func (s *stubStreamValidator) Validate(context.Context, models.ValidationRequest) (models.ValidationResult, error) {
	return models.ValidationResult{}, errors.New("per-call path must not be used")
}

func (s *stubStreamValidator) ValidateStream(ctx context.Context, requests <-chan models.ValidationRequest) <-chan validator.StreamResult {
	out := make(chan validator.StreamResult)
	go func() {
		defer close(out)
		for req := range requests {
			out <- validator.StreamResult{Result: models.ValidationResult{
				RequestID: req.RequestID,
				Validator: "toxic-language",
				Outcome:   models.OutcomePass,
				Mode:      models.ModeRemote,
			}}
		}
	}()
	return out
}

func TestSingleExecutor_ExecuteStream_NativeStreaming(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockFactory := mocks.NewMockValidatorFactory(ctrl)
	mockFactory.EXPECT().Get("toxic-language").Return(&stubStreamValidator{}, nil)

	requests := make(chan models.ValidationRequest, 2)
	requests <- models.ValidationRequest{RequestID: "frag-1", Text: "one"}
	requests <- models.ValidationRequest{RequestID: "frag-2", Text: "two"}
	close(requests)

	exec := NewSingleExecutor(mockFactory, testLogger())
	results, err := exec.ExecuteStream(context.Background(), "toxic-language", requests)
	if err != nil {
		t.Fatalf("ExecuteStream() failed: %v", err)
	}

	count := 0
	for sr := range results {
		if sr.Err != nil {
			t.Fatalf("unexpected stream error: %v", sr.Err)
		}
		if sr.Result.Mode != models.ModeRemote {
			t.Errorf("expected remote mode, got %s", sr.Result.Mode)
		}
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 results, got %d", count)
	}
}

func TestSingleExecutor_ExecuteStream_UnknownValidator(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockFactory := mocks.NewMockValidatorFactory(ctrl)
	mockFactory.EXPECT().Get("missing").Return(nil, validator.ErrValidatorNotFound)

	exec := NewSingleExecutor(mockFactory, testLogger())
	if _, err := exec.ExecuteStream(context.Background(), "missing", make(chan models.ValidationRequest)); !errors.Is(err, validator.ErrValidatorNotFound) {
		t.Errorf("expected ErrValidatorNotFound, got %v", err)
	}
}
