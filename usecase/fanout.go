package usecase

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/voxbridge/server/domain/repositories"
)

// TranslationFanout translates one text into many target languages
// concurrently. A failure in one language never fails the others and never
// fails the call as a whole.
type TranslationFanout struct {
	translator repositories.Translator
	logger     *zap.Logger
}

func NewTranslationFanout(translator repositories.Translator, logger *zap.Logger) *TranslationFanout {
	return &TranslationFanout{
		translator: translator,
		logger:     logger,
	}
}

// TranslateAll dispatches one translation per target language and joins them
// all. Failed languages appear in the result as an inline error marker; empty
// translations are omitted. Language tags are passed through untouched.
func (f *TranslationFanout) TranslateAll(ctx context.Context, text, sourceLanguage string, targetLanguages []string) map[string]string {
	results := make(map[string]string, len(targetLanguages))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, target := range targetLanguages {
		target := target
		g.Go(func() error {
			translated, err := f.translator.Translate(ctx, text, sourceLanguage, target)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				f.logger.Error("Translation failed",
					zap.String("targetLanguage", target),
					zap.Error(err))
				results[target] = fmt.Sprintf("[Translation error: %v]", err)
				return nil
			}
			if translated != "" {
				results[target] = translated
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// TranslateEach dispatches one translation per target language and calls
// deliver as each one completes, instead of waiting for all of them. deliver
// may be called from multiple goroutines.
func (f *TranslationFanout) TranslateEach(ctx context.Context, text, sourceLanguage string, targetLanguages []string, deliver func(targetLanguage, translated string, err error)) {
	var wg sync.WaitGroup
	for _, target := range targetLanguages {
		target := target
		wg.Add(1)
		go func() {
			defer wg.Done()
			translated, err := f.translator.Translate(ctx, text, sourceLanguage, target)
			deliver(target, translated, err)
		}()
	}
	wg.Wait()
}
