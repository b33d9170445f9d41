package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func TestTranslateAll_AllSucceed(t *testing.T) {
	translator := &fakeTranslator{}
	fanout := NewTranslationFanout(translator, zap.NewNop())

	results := fanout.TranslateAll(context.Background(), "hello", "en-US", []string{"lv-LV", "fr-FR"})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %v", len(results), results)
	}
	if results["lv-LV"] != "lv-LV:hello" {
		t.Errorf("unexpected lv-LV result: %q", results["lv-LV"])
	}
	if results["fr-FR"] != "fr-FR:hello" {
		t.Errorf("unexpected fr-FR result: %q", results["fr-FR"])
	}
}

func TestTranslateAll_FailureIsolation(t *testing.T) {
	translator := &fakeTranslator{
		failFor: map[string]error{"de-DE": errors.New("quota exceeded")},
	}
	fanout := NewTranslationFanout(translator, zap.NewNop())

	results := fanout.TranslateAll(context.Background(), "hello", "en-US", []string{"de-DE", "fr-FR"})

	if results["fr-FR"] != "fr-FR:hello" {
		t.Errorf("healthy language should succeed, got %q", results["fr-FR"])
	}
	if results["de-DE"] != "[Translation error: quota exceeded]" {
		t.Errorf("failed language should carry an inline marker, got %q", results["de-DE"])
	}
}

func TestTranslateAll_EmptyTranslationOmitted(t *testing.T) {
	translator := &fakeTranslator{empty: true}
	fanout := NewTranslationFanout(translator, zap.NewNop())

	results := fanout.TranslateAll(context.Background(), "hello", "en-US", []string{"fr-FR"})

	if len(results) != 0 {
		t.Errorf("empty translations should be omitted, got %v", results)
	}
}

func TestTranslateAll_NoTargets(t *testing.T) {
	translator := &fakeTranslator{}
	fanout := NewTranslationFanout(translator, zap.NewNop())

	results := fanout.TranslateAll(context.Background(), "hello", "en-US", nil)

	if len(results) != 0 {
		t.Errorf("expected empty result map, got %v", results)
	}
	if translator.callCount() != 0 {
		t.Errorf("no targets should mean no translator calls, got %d", translator.callCount())
	}
}

func TestTranslateEach_DeliversPerLanguage(t *testing.T) {
	translator := &fakeTranslator{
		failFor: map[string]error{"de-DE": errors.New("boom")},
	}
	fanout := NewTranslationFanout(translator, zap.NewNop())

	var mu sync.Mutex
	got := make(map[string]string)
	var failed []string

	fanout.TranslateEach(context.Background(), "hello", "en-US", []string{"fr-FR", "de-DE", "lv-LV"},
		func(target, translated string, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, target)
				return
			}
			got[target] = translated
		})

	if len(got) != 2 {
		t.Fatalf("expected 2 successful deliveries, got %v", got)
	}
	if got["fr-FR"] != "fr-FR:hello" || got["lv-LV"] != "lv-LV:hello" {
		t.Errorf("unexpected deliveries: %v", got)
	}
	if len(failed) != 1 || failed[0] != "de-DE" {
		t.Errorf("expected de-DE to fail, got %v", failed)
	}
}
