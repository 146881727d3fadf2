package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navhunter/internal/entity"
)

func finalBatchResult(t *testing.T, events []entity.Event, eventType entity.EventType) entity.BatchResultPayload {
	t.Helper()
	var payload entity.BatchResultPayload
	var found bool
	for _, e := range events {
		if e.Type != eventType {
			continue
		}
		if p, ok := e.Data.(entity.BatchResultPayload); ok {
			payload = p
			found = true
		}
	}
	require.True(t, found, "expected a %s completion payload", eventType)
	return payload
}

func TestRunTickerTestProcessesEachFiling(t *testing.T) {
	docs := &fakeDocs{
		text: longContent(),
		filings: []entity.Filing{
			{Ticker: "MSTR", CompanyName: "MicroStrategy", FormType: "8-K", FiledAt: "2025-08-20T09:00:00-04:00"},
			{Ticker: "MSTR", CompanyName: "MicroStrategy", FormType: "S-3", FiledAt: "2025-08-10T09:00:00-04:00"},
		},
	}
	ai := &fakeAI{result: &entity.AnalysisResult{}}
	p, sub := newTestProcessor(t, testConfig(), docs, ai, &fakeSpeech{})

	p.RunTickerTest(context.Background(), "MSTR", testSession)

	assert.Equal(t, 2, ai.calls)
	result := finalBatchResult(t, collectEvents(sub), entity.EventTestTickerFinished)
	assert.True(t, result.Success)
	assert.Equal(t, "MSTR", result.Symbol)
	assert.Equal(t, 2, result.Processed)
}

func TestRunTickerTestQueryFailure(t *testing.T) {
	docs := &fakeDocs{queryErr: errors.New("query API unavailable")}
	ai := &fakeAI{}
	p, sub := newTestProcessor(t, testConfig(), docs, ai, &fakeSpeech{})

	p.RunTickerTest(context.Background(), "MSTR", testSession)

	assert.Equal(t, 0, ai.calls)
	result := finalBatchResult(t, collectEvents(sub), entity.EventTestTickerFinished)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "query API unavailable")
}

func TestRunTickerTestNoFilings(t *testing.T) {
	docs := &fakeDocs{}
	p, sub := newTestProcessor(t, testConfig(), docs, &fakeAI{}, &fakeSpeech{})

	p.RunTickerTest(context.Background(), "ZZZZ", testSession)

	result := finalBatchResult(t, collectEvents(sub), entity.EventTestTickerFinished)
	assert.True(t, result.Success)
	assert.Zero(t, result.Processed)
}

func TestReplayFiltersAndCounts(t *testing.T) {
	docs := &fakeDocs{text: longContent()}
	ai := &fakeAI{result: &entity.AnalysisResult{}}
	p, sub := newTestProcessor(t, testConfig(), docs, ai, &fakeSpeech{})

	lines := []string{
		`{"ticker":"MSTR","companyName":"MicroStrategy","formType":"8-K","filedAt":"2025-08-29T16:01:02-04:00"}`,
		`[{"ticker":"SBET","companyName":"SharpLink","formType":"S-1","filedAt":"2025-08-29T16:02:00-04:00"}]`,
		`not json at all`,
		`{"ticker":"MSTR","companyName":"MicroStrategy","formType":"8-K/A","filedAt":"2025-08-29T16:03:00-04:00"}`,
	}
	p.Replay(context.Background(), lines, testSession)

	// S-1 fails the prefix filter, the malformed line is skipped, 8-K and
	// 8-K/A both pass.
	assert.Equal(t, 2, ai.calls)
	result := finalBatchResult(t, collectEvents(sub), entity.EventReplayFinished)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Processed)
}

func TestReplayReportsAnalysisFailures(t *testing.T) {
	docs := &fakeDocs{text: longContent()}
	ai := &fakeAI{err: errors.New("connection refused")}
	p, sub := newTestProcessor(t, testConfig(), docs, ai, &fakeSpeech{})

	lines := []string{
		`{"ticker":"MSTR","companyName":"MicroStrategy","formType":"8-K","filedAt":"2025-08-29T16:01:02-04:00"}`,
	}
	p.Replay(context.Background(), lines, testSession)

	result := finalBatchResult(t, collectEvents(sub), entity.EventReplayFinished)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "MSTR")
}
