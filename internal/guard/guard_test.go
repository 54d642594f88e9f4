package guard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/guardkit/guardkit/internal/config"
	"github.com/guardkit/guardkit/internal/guard"
	"github.com/guardkit/guardkit/internal/models"
	"github.com/guardkit/guardkit/internal/router"
	"github.com/guardkit/guardkit/internal/validator"
	"github.com/guardkit/guardkit/internal/validator/mocks"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func passResult(name string) models.ValidationResult {
	return models.ValidationResult{Validator: name, Outcome: models.OutcomePass}
}

func failResult(name, reason, corrected string) models.ValidationResult {
	return models.ValidationResult{
		Validator:     name,
		Outcome:       models.OutcomeFail,
		Reason:        reason,
		CorrectedText: corrected,
	}
}

func newMockValidator(ctrl *gomock.Controller, name string) *mocks.MockValidator {
	v := mocks.NewMockValidator(ctrl)
	v.EXPECT().Name().Return(name).AnyTimes()
	v.EXPECT().Mode().Return(models.ModeLocal).AnyTimes()
	return v
}

func TestGuard_AllPass(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	first := newMockValidator(ctrl, "detect-pii")
	second := newMockValidator(ctrl, "toxic-language")

	var order []string
	first.EXPECT().Validate(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req models.ValidationRequest) (models.ValidationResult, error) {
			order = append(order, "detect-pii")
			return passResult("detect-pii"), nil
		})
	second.EXPECT().Validate(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req models.ValidationRequest) (models.ValidationResult, error) {
			order = append(order, "toxic-language")
			return passResult("toxic-language"), nil
		})

	g := guard.New(testLogger()).
		Use(first, models.OnFailException).
		Use(second, models.OnFailException)

	run, err := g.Validate(context.Background(), "req-001", "clean text")
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	if run.Outcome != models.OutcomePass {
		t.Errorf("expected pass, got %s", run.Outcome)
	}
	if len(run.Results) != 2 {
		t.Fatalf("expected one result per validator, got %d", len(run.Results))
	}
	if order[0] != "detect-pii" || order[1] != "toxic-language" {
		t.Errorf("validators ran out of order: %v", order)
	}
	if run.OutputText != "clean text" {
		t.Errorf("expected output unchanged, got %q", run.OutputText)
	}
}

func TestGuard_ExceptionShortCircuits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	first := newMockValidator(ctrl, "toxic-language")
	first.EXPECT().Validate(gomock.Any(), gomock.Any()).
		Return(failResult("toxic-language", "severity above threshold", ""), nil)

	// The second validator must never run.
	second := newMockValidator(ctrl, "detect-pii")

	g := guard.New(testLogger()).
		Use(first, models.OnFailException).
		Use(second, models.OnFailException)

	run, err := g.Validate(context.Background(), "req-002", "bad text")
	if !errors.Is(err, guard.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}

	if !run.ShortCircuit {
		t.Error("expected short circuit flag")
	}
	if run.Outcome != models.OutcomeFail {
		t.Errorf("expected fail, got %s", run.Outcome)
	}
	if len(run.Results) != 1 {
		t.Errorf("expected one result before the stop, got %d", len(run.Results))
	}
}

func TestGuard_FilterRecordsFailureAndContinues(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	first := newMockValidator(ctrl, "regex-match")
	first.EXPECT().Validate(gomock.Any(), gomock.Any()).
		Return(failResult("regex-match", "pattern matched", ""), nil)

	second := newMockValidator(ctrl, "detect-pii")
	second.EXPECT().Validate(gomock.Any(), gomock.Any()).
		Return(passResult("detect-pii"), nil)

	g := guard.New(testLogger()).
		Use(first, models.OnFailFilter).
		Use(second, models.OnFailException)

	run, err := g.Validate(context.Background(), "req-003", "text")
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	if run.Outcome != models.OutcomeFail {
		t.Errorf("expected overall fail, got %s", run.Outcome)
	}
	if run.ShortCircuit {
		t.Error("filter must not short circuit")
	}
	if len(run.Results) != 2 {
		t.Errorf("expected both validators to run, got %d results", len(run.Results))
	}
}

func TestGuard_FixRewritesTextForRemainingChain(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	first := newMockValidator(ctrl, "detect-pii")
	first.EXPECT().Validate(gomock.Any(), gomock.Any()).
		Return(failResult("detect-pii", "email address detected", "contact <EMAIL> please"), nil)

	second := newMockValidator(ctrl, "toxic-language")
	second.EXPECT().Validate(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req models.ValidationRequest) (models.ValidationResult, error) {
			if req.Text != "contact <EMAIL> please" {
				t.Errorf("expected corrected text to flow downstream, got %q", req.Text)
			}
			return passResult("toxic-language"), nil
		})

	g := guard.New(testLogger()).
		Use(first, models.OnFailFix).
		Use(second, models.OnFailException)

	run, err := g.Validate(context.Background(), "req-004", "contact bob@example.com please")
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	// A fixed failure does not fail the run.
	if run.Outcome != models.OutcomePass {
		t.Errorf("expected pass after fix, got %s", run.Outcome)
	}
	if run.OutputText != "contact <EMAIL> please" {
		t.Errorf("expected corrected output, got %q", run.OutputText)
	}
	if run.Text != "contact bob@example.com please" {
		t.Errorf("original text must be preserved, got %q", run.Text)
	}
}

func TestGuard_FixWithoutCorrectionDegradesToFilter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	first := newMockValidator(ctrl, "toxic-language")
	first.EXPECT().Validate(gomock.Any(), gomock.Any()).
		Return(failResult("toxic-language", "no correction possible", ""), nil)

	second := newMockValidator(ctrl, "detect-pii")
	second.EXPECT().Validate(gomock.Any(), gomock.Any()).
		Return(passResult("detect-pii"), nil)

	g := guard.New(testLogger()).
		Use(first, models.OnFailFix).
		Use(second, models.OnFailException)

	run, err := g.Validate(context.Background(), "req-005", "text")
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if run.Outcome != models.OutcomeFail {
		t.Errorf("expected fail when no correction is available, got %s", run.Outcome)
	}
}

func TestGuard_TransportErrorSurfaces(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	v := newMockValidator(ctrl, "toxic-language")
	v.EXPECT().Validate(gomock.Any(), gomock.Any()).
		Return(models.ValidationResult{}, router.ErrConnectivity)

	g := guard.New(testLogger()).Use(v, models.OnFailException)

	_, err := g.Validate(context.Background(), "req-006", "text")
	if !errors.Is(err, router.ErrConnectivity) {
		t.Errorf("expected connectivity error to surface, got %v", err)
	}
}

func TestGuard_GeneratesRequestID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	v := newMockValidator(ctrl, "detect-pii")
	v.EXPECT().Validate(gomock.Any(), gomock.Any()).
		Return(passResult("detect-pii"), nil)

	g := guard.New(testLogger()).Use(v, models.OnFailException)

	run, err := g.Validate(context.Background(), "", "text")
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if run.RequestID == "" {
		t.Error("expected a generated request id")
	}
}

func TestGuard_ValidateStream(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	v := newMockValidator(ctrl, "detect-pii")
	v.EXPECT().Validate(gomock.Any(), gomock.Any()).
		Return(passResult("detect-pii"), nil).Times(3)

	g := guard.New(testLogger()).Use(v, models.OnFailException)

	fragments := make(chan string, 3)
	fragments <- "first fragment"
	fragments <- "second fragment"
	fragments <- "third fragment"
	close(fragments)

	var got []guard.StreamResult
	for sr := range g.ValidateStream(context.Background(), fragments) {
		got = append(got, sr)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 stream results, got %d", len(got))
	}
	// Results arrive in fragment order
	if got[0].Fragment != "first fragment" || got[2].Fragment != "third fragment" {
		t.Errorf("stream results out of order: %+v", got)
	}
	for _, sr := range got {
		if sr.Err != nil {
			t.Errorf("unexpected stream error: %v", sr.Err)
		}
	}
}

func TestGuard_ValidateStreamStopsOnException(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	v := newMockValidator(ctrl, "toxic-language")
	v.EXPECT().Validate(gomock.Any(), gomock.Any()).
		Return(failResult("toxic-language", "blocked", ""), nil)

	g := guard.New(testLogger()).Use(v, models.OnFailException)

	fragments := make(chan string, 2)
	fragments <- "bad fragment"
	fragments <- "never validated"
	close(fragments)

	var got []guard.StreamResult
	for sr := range g.ValidateStream(context.Background(), fragments) {
		got = append(got, sr)
	}

	// The channel closes after the failing fragment; the second fragment is
	// never validated.
	if len(got) != 1 {
		t.Fatalf("expected the stream to end after the failure, got %d results", len(got))
	}
	if !errors.Is(got[0].Err, guard.ErrValidationFailed) {
		t.Errorf("expected ErrValidationFailed, got %v", got[0].Err)
	}
}

func TestGuard_ValidateStreamRespectsCancellation(t *testing.T) {
	g := guard.New(testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	fragments := make(chan string)

	out := g.ValidateStream(ctx, fragments)
	cancel()

	if _, ok := <-out; ok {
		t.Error("expected the stream to close after cancellation")
	}
}

func TestGuard_FromValidatorsSharesBuiltInstances(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	first := newMockValidator(ctrl, "first")
	second := newMockValidator(ctrl, "second")

	builder := mocks.NewMockBuilder(ctrl)
	builder.EXPECT().
		Build(gomock.Any()).
		DoAndReturn(func(spec config.ValidatorSpec) (validator.Validator, error) {
			if spec.Name == "first" {
				return first, nil
			}
			return second, nil
		}).
		Times(2) // one build per enabled entry, shared by guard and factory

	cfg := &config.ValidatorsConfig{Validators: config.ValidatorsSection{Entries: []config.ValidatorSpec{
		{Name: "first", Type: "regex_match", Enabled: true, OnFail: models.OnFailFilter},
		{Name: "second", Type: "regex_match", Enabled: true, OnFail: models.OnFailException},
	}}}

	pool := validator.NewPool(builder, testLogger())
	validators, err := pool.BuildFromConfig(cfg)
	if err != nil {
		t.Fatalf("BuildFromConfig() failed: %v", err)
	}

	g := guard.FromValidators(cfg, validators, testLogger())
	factory := validator.NewFactory(validators)

	got, err := factory.Get("first")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != validator.Validator(first) {
		t.Error("expected the factory to serve the same instance the guard runs")
	}

	first.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(passResult("first"), nil)
	second.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(passResult("second"), nil)

	run, err := g.Validate(context.Background(), "req-shared", "text")
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if run.Outcome != models.OutcomePass {
		t.Errorf("expected pass, got '%s'", run.Outcome)
	}
	if len(run.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(run.Results))
	}
}

func TestGuard_FromConfigAppliesPolicies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	blocker := newMockValidator(ctrl, "blocker")
	builder := mocks.NewMockBuilder(ctrl)
	builder.EXPECT().Build(gomock.Any()).Return(blocker, nil)

	cfg := &config.ValidatorsConfig{Validators: config.ValidatorsSection{Entries: []config.ValidatorSpec{
		{Name: "blocker", Type: "regex_match", Enabled: true, OnFail: models.OnFailException},
	}}}

	g, err := guard.FromConfig(cfg, builder, testLogger())
	if err != nil {
		t.Fatalf("FromConfig() failed: %v", err)
	}

	blocker.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(failResult("blocker", "blocked", ""), nil)

	run, err := g.Validate(context.Background(), "req-policy", "text")
	if !errors.Is(err, guard.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if !run.ShortCircuit {
		t.Error("expected short circuit for exception policy")
	}
}
