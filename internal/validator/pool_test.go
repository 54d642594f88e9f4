package validator_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/guardkit/guardkit/internal/config"
	"github.com/guardkit/guardkit/internal/models"
	"github.com/guardkit/guardkit/internal/validator"
	"github.com/guardkit/guardkit/internal/validator/mocks"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func TestPool_BuildFromConfig(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := &config.ValidatorsConfig{
		Validators: config.ValidatorsSection{
			Entries: []config.ValidatorSpec{
				{Name: "toxic-language", Type: "toxic_language", Enabled: true, OnFail: models.OnFailException},
				{Name: "detect-pii", Type: "detect_pii", Enabled: false, OnFail: models.OnFailFix},
				{Name: "no-internal-urls", Type: "regex_match", Enabled: true, OnFail: models.OnFailFilter, Pattern: "internal"},
			},
		},
	}

	builder := mocks.NewMockBuilder(ctrl)

	toxic := mocks.NewMockValidator(ctrl)
	toxic.EXPECT().Name().Return("toxic-language").AnyTimes()
	toxic.EXPECT().Mode().Return(models.ModeLocal).AnyTimes()

	urls := mocks.NewMockValidator(ctrl)
	urls.EXPECT().Name().Return("no-internal-urls").AnyTimes()
	urls.EXPECT().Mode().Return(models.ModeLocal).AnyTimes()

	// Disabled entries are never built
	builder.EXPECT().Build(cfg.Validators.Entries[0]).Return(toxic, nil)
	builder.EXPECT().Build(cfg.Validators.Entries[2]).Return(urls, nil)

	pool := validator.NewPool(builder, testLogger())
	validators, err := pool.BuildFromConfig(cfg)
	if err != nil {
		t.Fatalf("BuildFromConfig() failed: %v", err)
	}

	if len(validators) != 2 {
		t.Fatalf("expected 2 validators, got %d", len(validators))
	}
	if validators[0].Name() != "toxic-language" {
		t.Errorf("expected toxic-language first, got %s", validators[0].Name())
	}
	if validators[1].Name() != "no-internal-urls" {
		t.Errorf("expected no-internal-urls second, got %s", validators[1].Name())
	}
}

func TestPool_BuildFromConfig_BuilderError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := &config.ValidatorsConfig{
		Validators: config.ValidatorsSection{
			Entries: []config.ValidatorSpec{
				{Name: "toxic-language", Type: "toxic_language", Enabled: true, OnFail: models.OnFailException},
			},
		},
	}

	builder := mocks.NewMockBuilder(ctrl)
	builder.EXPECT().Build(gomock.Any()).Return(nil, errors.New("local model not installed"))

	pool := validator.NewPool(builder, testLogger())
	if _, err := pool.BuildFromConfig(cfg); err == nil {
		t.Error("expected error from builder, got nil")
	}
}

func TestPool_BuildFromConfig_NoEnabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := &config.ValidatorsConfig{
		Validators: config.ValidatorsSection{
			Entries: []config.ValidatorSpec{
				{Name: "detect-pii", Type: "detect_pii", Enabled: false, OnFail: models.OnFailFix},
			},
		},
	}

	pool := validator.NewPool(mocks.NewMockBuilder(ctrl), testLogger())
	if _, err := pool.BuildFromConfig(cfg); err == nil {
		t.Error("expected error when no validators are enabled, got nil")
	}
}

func TestPool_BuildFromConfig_NilConfig(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pool := validator.NewPool(mocks.NewMockBuilder(ctrl), testLogger())
	if _, err := pool.BuildFromConfig(nil); err == nil {
		t.Error("expected error for nil config, got nil")
	}
}

func TestFactory_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	v := mocks.NewMockValidator(ctrl)
	v.EXPECT().Name().Return("toxic-language").AnyTimes()

	factory := validator.NewFactory([]validator.Validator{v})

	got, err := factory.Get("toxic-language")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Name() != "toxic-language" {
		t.Errorf("expected toxic-language, got %s", got.Name())
	}

	if _, err := factory.Get("missing"); !errors.Is(err, validator.ErrValidatorNotFound) {
		t.Errorf("expected ErrValidatorNotFound, got %v", err)
	}
}

func TestFactory_GetUnknownListsKnown(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pii := mocks.NewMockValidator(ctrl)
	pii.EXPECT().Name().Return("detect-pii").AnyTimes()
	toxic := mocks.NewMockValidator(ctrl)
	toxic.EXPECT().Name().Return("toxic-language").AnyTimes()

	factory := validator.NewFactory([]validator.Validator{toxic, pii})

	if got, want := factory.Names(), []string{"detect-pii", "toxic-language"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected sorted names %v, got %v", want, got)
	}

	_, err := factory.Get("no-such-validator")
	if !errors.Is(err, validator.ErrValidatorNotFound) {
		t.Fatalf("expected ErrValidatorNotFound, got %v", err)
	}
	// The error names what is registered, so a typo is self-diagnosing.
	for _, name := range []string{"detect-pii", "toxic-language"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("expected error to list %q, got %q", name, err.Error())
		}
	}
}
