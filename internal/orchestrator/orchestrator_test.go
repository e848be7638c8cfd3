package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valpere/phrasecheck/internal/translator"
)

type mockService struct {
	nameVal       string
	translateFunc func(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error)
	availableFunc func(ctx context.Context) error
	languagesFunc func(ctx context.Context) ([]string, error)
	callCount     atomic.Int32
}

func (m *mockService) Name() string { return m.nameVal }

func (m *mockService) Translate(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	m.callCount.Add(1)
	if m.translateFunc != nil {
		return m.translateFunc(ctx, cfg, req)
	}
	return &translator.ServiceResult{ServiceName: m.nameVal, TranslatedText: "mock result"}, nil
}

func (m *mockService) IsAvailable(ctx context.Context) error {
	if m.availableFunc != nil {
		return m.availableFunc(ctx)
	}
	return nil
}

func (m *mockService) SupportedLanguages(ctx context.Context) ([]string, error) {
	if m.languagesFunc != nil {
		return m.languagesFunc(ctx)
	}
	return []string{"en", "uk"}, nil
}

func TestOrchestrator_New(t *testing.T) {
	services := []translator.TranslationService{
		&mockService{nameVal: "mock1"},
	}

	config := OrchestratorConfig{
		Timeout:     10 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  100 * time.Millisecond,
	}

	o := New(services, config)

	if o == nil {
		t.Fatal("expected non-nil Orchestrator")
	}
	if o.validator == nil {
		t.Error("expected validator to be created by default")
	}
}

func TestOrchestrator_New_SkipValidation(t *testing.T) {
	services := []translator.TranslationService{
		&mockService{nameVal: "mock1"},
	}

	config := OrchestratorConfig{
		Timeout:        10 * time.Second,
		SkipValidation: true,
	}

	o := New(services, config)

	if o == nil {
		t.Fatal("expected non-nil Orchestrator")
	}
	if o.validator != nil {
		t.Error("expected nil validator when SkipValidation is true")
	}
}

func TestOrchestrator_New_Defaults(t *testing.T) {
	services := []translator.TranslationService{
		&mockService{nameVal: "mock1"},
	}

	config := OrchestratorConfig{}

	o := New(services, config)

	if o.config.MaxAttempts != 3 {
		t.Errorf("expected MaxAttempts=3, got %d", o.config.MaxAttempts)
	}
	if o.config.RetryDelay <= 0 {
		t.Error("expected positive RetryDelay")
	}
}

func TestOrchestrator_Execute_SingleService(t *testing.T) {
	svc := &mockService{nameVal: "mock1"}
	services := []translator.TranslationService{svc}

	o := New(services, OrchestratorConfig{
		Timeout:     5 * time.Second,
		MaxAttempts: 1,
		RetryDelay:  10 * time.Millisecond,
	})

	req := translator.TranslateRequest{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "uk",
	}

	result := o.Execute(context.Background(), translator.ServiceConfig{}, req)

	if result.Succeeded != 1 {
		t.Errorf("expected 1 succeeded, got %d", result.Succeeded)
	}
	if result.Failed != 0 {
		t.Errorf("expected 0 failed, got %d", result.Failed)
	}
	if len(result.Outcomes) != 1 || !result.Outcomes[0].OK() {
		t.Errorf("expected 1 successful outcome, got %+v", result.Outcomes)
	}
}

func TestOrchestrator_Execute_MultipleServices(t *testing.T) {
	svc1 := &mockService{nameVal: "service1"}
	svc2 := &mockService{nameVal: "service2"}
	svc3 := &mockService{nameVal: "service3"}
	services := []translator.TranslationService{svc1, svc2, svc3}

	o := New(services, OrchestratorConfig{
		Timeout:     5 * time.Second,
		MaxAttempts: 1,
		RetryDelay:  10 * time.Millisecond,
	})

	req := translator.TranslateRequest{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "uk",
	}

	result := o.Execute(context.Background(), translator.ServiceConfig{}, req)

	if result.Succeeded != 3 {
		t.Errorf("expected 3 succeeded, got %d", result.Succeeded)
	}
	if result.Failed != 0 {
		t.Errorf("expected 0 failed, got %d", result.Failed)
	}
	if len(result.Outcomes) != 3 {
		t.Errorf("expected 3 outcomes, got %d", len(result.Outcomes))
	}
}

func TestOrchestrator_Execute_WithFailures(t *testing.T) {
	svc1 := &mockService{
		nameVal: "service1",
		translateFunc: func(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			return nil, errors.New("service unavailable")
		},
	}
	svc2 := &mockService{nameVal: "service2"}
	services := []translator.TranslationService{svc1, svc2}

	o := New(services, OrchestratorConfig{
		Timeout:     5 * time.Second,
		MaxAttempts: 1,
		RetryDelay:  10 * time.Millisecond,
	})

	req := translator.TranslateRequest{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "uk",
	}

	result := o.Execute(context.Background(), translator.ServiceConfig{}, req)

	if result.Succeeded != 1 {
		t.Errorf("expected 1 succeeded, got %d", result.Succeeded)
	}
	if result.Failed != 1 {
		t.Errorf("expected 1 failed, got %d", result.Failed)
	}
	if result.Outcomes[0].Err == nil || result.Outcomes[0].OK() {
		t.Errorf("expected service1 to fail, got %+v", result.Outcomes[0])
	}
}

func TestOrchestrator_Execute_WithRetry(t *testing.T) {
	callCount := atomic.Int32{}
	svc := &mockService{
		nameVal: "retryable",
		translateFunc: func(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			count := callCount.Add(1)
			if count < 3 {
				return &translator.ServiceResult{ServiceName: "retryable", Error: "temporary failure"}, nil
			}
			return &translator.ServiceResult{ServiceName: "retryable", TranslatedText: "success on 3rd attempt"}, nil
		},
	}
	services := []translator.TranslationService{svc}

	o := New(services, OrchestratorConfig{
		Timeout:     5 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  10 * time.Millisecond,
	})

	req := translator.TranslateRequest{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "uk",
	}

	result := o.Execute(context.Background(), translator.ServiceConfig{}, req)

	if result.Succeeded != 1 {
		t.Errorf("expected 1 succeeded after retry, got %d", result.Succeeded)
	}
	if svc.callCount.Load() != 3 {
		t.Errorf("expected 3 calls (1 initial + 2 retries), got %d", svc.callCount.Load())
	}
}

func TestOrchestrator_Execute_Cancellation(t *testing.T) {
	svc := &mockService{
		nameVal: "slow",
		translateFunc: func(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			time.Sleep(1 * time.Second)
			return &translator.ServiceResult{ServiceName: "slow", TranslatedText: "done"}, nil
		},
	}
	services := []translator.TranslationService{svc}

	o := New(services, OrchestratorConfig{
		Timeout:     10 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  100 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	req := translator.TranslateRequest{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "uk",
	}

	result := o.Execute(ctx, translator.ServiceConfig{}, req)

	// The mock ignores ctx and succeeds; the point is that no retry runs and nothing panics.
	if svc.callCount.Load() != 1 {
		t.Errorf("expected 1 call, got %d", svc.callCount.Load())
	}
	_ = result
}

func TestOrchestrator_Execute_ValidationFailure(t *testing.T) {
	svc := &mockService{
		nameVal: "bad-translator",
		translateFunc: func(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			// Return text in wrong language
			return &translator.ServiceResult{ServiceName: "bad-translator", TranslatedText: "This should fail validation because it is clearly in English not Ukrainian"}, nil
		},
	}
	services := []translator.TranslationService{svc}

	o := New(services, OrchestratorConfig{
		Timeout:     5 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  10 * time.Millisecond,
	})

	req := translator.TranslateRequest{
		Text:       "Hello",
		SourceLang: "en",
		TargetLang: "uk", // Expecting Ukrainian but getting English
	}

	result := o.Execute(context.Background(), translator.ServiceConfig{}, req)

	// After retries exhausted, returns result anyway (with validation failure logged)
	if result.Succeeded != 1 {
		t.Errorf("expected 1 succeeded (validation failure on final attempt still returns result), got %d", result.Succeeded)
	}
}

func TestOrchestrator_Execute_NoRetryOnTextTooLarge(t *testing.T) {
	svc := &mockService{
		nameVal: "limited",
		translateFunc: func(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			return &translator.ServiceResult{ServiceName: "limited", Error: "too large"}, fmt.Errorf("limited: %w", translator.ErrTextTooLarge)
		},
	}

	o := New([]translator.TranslationService{svc}, OrchestratorConfig{
		Timeout:        5 * time.Second,
		MaxAttempts:    3,
		RetryDelay:     10 * time.Millisecond,
		SkipValidation: true,
	})

	result := o.Execute(context.Background(), translator.ServiceConfig{}, translator.TranslateRequest{Text: "x", TargetLang: "en"})

	if svc.callCount.Load() != 1 {
		t.Errorf("expected a single call for oversize input, got %d", svc.callCount.Load())
	}
	if result.Failed != 1 {
		t.Errorf("expected 1 failed, got %d", result.Failed)
	}
	if !errors.Is(result.Outcomes[0].Err, translator.ErrTextTooLarge) {
		t.Errorf("expected ErrTextTooLarge in outcome, got %v", result.Outcomes[0].Err)
	}
}

func TestOrchestrator_Execute_RetriesUpToMaxAttempts(t *testing.T) {
	svc := &mockService{
		nameVal: "down",
		translateFunc: func(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			return nil, errors.New("503 service unavailable")
		},
	}

	o := New([]translator.TranslationService{svc}, OrchestratorConfig{
		Timeout:        5 * time.Second,
		MaxAttempts:    4,
		RetryDelay:     time.Millisecond,
		SkipValidation: true,
	})

	result := o.Execute(context.Background(), translator.ServiceConfig{}, translator.TranslateRequest{Text: "x", TargetLang: "en"})

	if svc.callCount.Load() != 4 {
		t.Errorf("expected 4 calls, got %d", svc.callCount.Load())
	}
	if result.Outcomes[0].Attempts != 4 {
		t.Errorf("expected 4 attempts recorded, got %d", result.Outcomes[0].Attempts)
	}
}

func TestOrchestrator_Execute_OutcomesInServiceOrder(t *testing.T) {
	slow := &mockService{
		nameVal: "slow",
		translateFunc: func(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			time.Sleep(20 * time.Millisecond)
			return &translator.ServiceResult{ServiceName: "slow", TranslatedText: "slow result"}, nil
		},
	}
	failing := &mockService{
		nameVal: "failing",
		translateFunc: func(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			return nil, errors.New("boom")
		},
	}
	fast := &mockService{nameVal: "fast"}

	o := New([]translator.TranslationService{slow, failing, fast}, OrchestratorConfig{
		Timeout:        5 * time.Second,
		MaxAttempts:    1,
		SkipValidation: true,
	})

	result := o.Execute(context.Background(), translator.ServiceConfig{}, translator.TranslateRequest{Text: "x", TargetLang: "en"})

	var names []string
	for _, oc := range result.Outcomes {
		names = append(names, oc.Service)
	}
	if fmt.Sprint(names) != "[slow failing fast]" {
		t.Errorf("expected outcomes in service order, got %v", names)
	}
	if result.Outcomes[1].OK() {
		t.Error("expected failing outcome")
	}
	if got := o.Services(); fmt.Sprint(got) != "[slow failing fast]" {
		t.Errorf("unexpected Services(): %v", got)
	}
}

func TestOrchestrator_Execute_PerCallTimeout(t *testing.T) {
	svc := &mockService{
		nameVal: "hanging",
		translateFunc: func(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	o := New([]translator.TranslationService{svc}, OrchestratorConfig{
		Timeout:        20 * time.Millisecond,
		MaxAttempts:    2,
		RetryDelay:     time.Millisecond,
		SkipValidation: true,
	})

	result := o.Execute(context.Background(), translator.ServiceConfig{}, translator.TranslateRequest{Text: "x", TargetLang: "en"})

	if !errors.Is(result.Outcomes[0].Err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", result.Outcomes[0].Err)
	}
	if svc.callCount.Load() != 2 {
		t.Errorf("expected timed out call to be retried, got %d calls", svc.callCount.Load())
	}
}

func TestOrchestrator_Availability(t *testing.T) {
	up := &mockService{nameVal: "up"}
	down := &mockService{
		nameVal:       "down",
		availableFunc: func(ctx context.Context) error { return errors.New("connection refused") },
	}
	noList := &mockService{
		nameVal:       "nolist",
		languagesFunc: func(ctx context.Context) ([]string, error) { return nil, errors.New("not listed") },
	}

	o := New([]translator.TranslationService{up, down, noList}, OrchestratorConfig{SkipValidation: true})
	statuses := o.Availability(context.Background())

	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if !statuses[0].Available() || fmt.Sprint(statuses[0].Languages) != "[en uk]" {
		t.Errorf("unexpected status for up: %+v", statuses[0])
	}
	if statuses[1].Available() || statuses[1].Languages != nil {
		t.Errorf("expected down to be unavailable without languages: %+v", statuses[1])
	}
	if !statuses[2].Available() || statuses[2].LanguagesErr == nil {
		t.Errorf("expected nolist to be available with a language error: %+v", statuses[2])
	}
}

func TestOrchestrator_Preflight_DropsUnavailable(t *testing.T) {
	up := &mockService{nameVal: "up"}
	down := &mockService{
		nameVal:       "down",
		availableFunc: func(ctx context.Context) error { return errors.New("no API key") },
	}
	services := []translator.TranslationService{down, up}

	o := New(services, OrchestratorConfig{MaxAttempts: 1, SkipValidation: true})
	if err := o.Preflight(context.Background(), "fr"); err != nil {
		t.Fatalf("Preflight failed: %v", err)
	}
	if got := o.Services(); fmt.Sprint(got) != "[up]" {
		t.Errorf("expected only up to remain, got %v", got)
	}
	if services[0].Name() != "down" {
		t.Error("expected the caller's slice to be left untouched")
	}

	result := o.Execute(context.Background(), translator.ServiceConfig{}, translator.TranslateRequest{Text: "x", TargetLang: "fr"})
	if len(result.Outcomes) != 1 || down.callCount.Load() != 0 {
		t.Errorf("expected dropped service not to be called, outcomes=%d calls=%d", len(result.Outcomes), down.callCount.Load())
	}
}

func TestOrchestrator_Preflight_NoneAvailable(t *testing.T) {
	down := &mockService{
		nameVal:       "down",
		availableFunc: func(ctx context.Context) error { return errors.New("down") },
	}

	o := New([]translator.TranslationService{down}, OrchestratorConfig{SkipValidation: true})
	if err := o.Preflight(context.Background(), "en"); !errors.Is(err, ErrNoServices) {
		t.Errorf("expected ErrNoServices, got %v", err)
	}
}

func TestServiceStatus_Supports(t *testing.T) {
	st := ServiceStatus{Languages: []string{"en", "pt-BR", "uk"}}

	tests := []struct {
		lang string
		want bool
	}{
		{"en", true},
		{"en-GB", true},
		{"PT", true},
		{"de", false},
		{"auto", true},
	}
	for _, tt := range tests {
		if got := st.Supports(tt.lang); got != tt.want {
			t.Errorf("Supports(%q) = %v, want %v", tt.lang, got, tt.want)
		}
	}
	if !(ServiceStatus{}).Supports("de") {
		t.Error("expected an empty language list to support everything")
	}
}
