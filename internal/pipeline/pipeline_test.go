package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/almazgeobur/sales-analyzer/internal/model"
)

const feedScenarioA = `<sales_data date="2024-11-08">
	<products>
		<product>
			<id>1</id>
			<name>Product A</name>
			<quantity>100</quantity>
			<price>1500.00</price>
			<category>Electronics</category>
		</product>
	</products>
</sales_data>`

const feedScenarioB = `<sales_data date="2024-11-08">
	<products>
		<product>
			<id>1</id>
			<name>Product A</name>
			<quantity>100</quantity>
			<price>1500.00</price>
			<category>Electronics</category>
		</product>
		<product>
			<id>2</id>
			<name>Product B</name>
			<quantity>50</quantity>
			<price>500.00</price>
			<category>Electronics</category>
		</product>
	</products>
</sales_data>`

type stubFetcher struct {
	payload  []byte
	failures int // fail this many calls before succeeding
	calls    int
}

func (f *stubFetcher) Fetch(context.Context, string) ([]byte, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, fmt.Errorf("connection refused (call %d)", f.calls)
	}
	return f.payload, nil
}

type stubGenerator struct {
	text    string
	err     error
	prompts []string
	panics  bool
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if g.panics {
		panic("generator exploded")
	}
	g.prompts = append(g.prompts, prompt)
	return g.text, g.err
}

type stubStore struct {
	err   error
	date  string
	text  string
	items []model.LineItem
	calls int
}

func (s *stubStore) SaveAnalysis(_ context.Context, date, report string, items []model.LineItem) (*model.AnalysisReport, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	s.date, s.text, s.items = date, report, items
	return &model.AnalysisReport{ID: 42, Date: date, Report: report, CreatedAt: time.Now()}, nil
}

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestPipeline(f Fetcher, g ReportGenerator, s Store) *Pipeline {
	return New(f, g, s, 3, time.Millisecond, quietLog())
}

func TestRunScenarioA(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte(feedScenarioA)}
	generator := &stubGenerator{text: "Аналитический отчет"}
	store := &stubStore{}

	result := newTestPipeline(fetcher, generator, store).Run(context.Background(), "http://feed")
	require.True(t, result.OK)
	require.Equal(t, SuccessMessage, result.Message)
	require.Equal(t, int64(42), result.ReportID)
	require.Equal(t, 1, result.Attempts)

	require.Len(t, generator.prompts, 1)
	expected := "Проанализируй данные о продажах за 2024-11-08:\n" +
		"1. Общая выручка: 150000.00\n" +
		"2. Топ-3 товара по продажам: Product A 100 шт.\n" +
		"3. Распределение по категориям: Electronics\n\n" +
		"Составь краткий аналитический отчет с выводами и рекомендациями."
	require.Equal(t, expected, generator.prompts[0])

	require.Equal(t, "2024-11-08", store.date)
	require.Equal(t, "Аналитический отчет", store.text)
	require.Len(t, store.items, 1)
}

func TestRunScenarioB(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte(feedScenarioB)}
	generator := &stubGenerator{text: "отчет"}
	store := &stubStore{}

	result := newTestPipeline(fetcher, generator, store).Run(context.Background(), "http://feed")
	require.True(t, result.OK)

	require.Len(t, store.items, 2)
	require.Equal(t, "Product A", store.items[0].Name)
	require.Equal(t, "Product B", store.items[1].Name)

	// One distinct category despite two items.
	require.Contains(t, generator.prompts[0], "3. Распределение по категориям: Electronics\n")
	require.Contains(t, generator.prompts[0], "1. Общая выручка: 175000.00\n")
}

func TestRunRetriesNetworkFailure(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte(feedScenarioA), failures: 3}
	generator := &stubGenerator{text: "отчет"}
	store := &stubStore{}

	result := newTestPipeline(fetcher, generator, store).Run(context.Background(), "http://feed")
	require.True(t, result.OK)
	require.Equal(t, 4, result.Attempts)
	require.Equal(t, 4, fetcher.calls)
}

func TestRunExhaustsRetryBudget(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte(feedScenarioA), failures: 10}
	generator := &stubGenerator{text: "отчет"}
	store := &stubStore{}

	result := newTestPipeline(fetcher, generator, store).Run(context.Background(), "http://feed")
	require.False(t, result.OK)
	require.Equal(t, 4, result.Attempts)
	require.Contains(t, result.Message, "Произошла ошибка:")
	require.Equal(t, 0, store.calls)
}

func TestRunRetriesMalformedFeed(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte(`not xml at all`)}
	generator := &stubGenerator{text: "отчет"}
	store := &stubStore{}

	result := newTestPipeline(fetcher, generator, store).Run(context.Background(), "http://feed")
	require.False(t, result.OK)
	require.Equal(t, 4, fetcher.calls)
}

func TestRunDoesNotRetryLLMFailure(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte(feedScenarioA)}
	generator := &stubGenerator{err: errors.New("401 unauthorized")}
	store := &stubStore{}

	result := newTestPipeline(fetcher, generator, store).Run(context.Background(), "http://feed")
	require.False(t, result.OK)
	require.Equal(t, 1, result.Attempts)
	require.Equal(t, 1, fetcher.calls)
	require.Contains(t, result.Message, "401 unauthorized")
}

func TestRunDoesNotRetryPersistenceFailure(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte(feedScenarioA)}
	generator := &stubGenerator{text: "отчет"}
	store := &stubStore{err: errors.New("constraint violation")}

	result := newTestPipeline(fetcher, generator, store).Run(context.Background(), "http://feed")
	require.False(t, result.OK)
	require.Equal(t, 1, result.Attempts)
}

func TestRunRecoversPanic(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte(feedScenarioA)}
	generator := &stubGenerator{panics: true}
	store := &stubStore{}

	var result Result
	require.NotPanics(t, func() {
		result = newTestPipeline(fetcher, generator, store).Run(context.Background(), "http://feed")
	})
	require.False(t, result.OK)
	require.Equal(t, 1, result.Attempts)
	require.Contains(t, result.Message, "generator exploded")
}

func TestKindClassification(t *testing.T) {
	require.True(t, KindNetwork.Retryable())
	require.True(t, KindMalformedFeed.Retryable())
	require.False(t, KindLLM.Retryable())
	require.False(t, KindPersistence.Retryable())
	require.False(t, KindUnexpected.Retryable())

	err := wrapKind(KindLLM, errors.New("boom"))
	require.Equal(t, KindLLM, KindOf(err))
	require.Equal(t, KindUnexpected, KindOf(errors.New("plain")))
}
