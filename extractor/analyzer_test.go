package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trademe-analyzer/dom"
	"trademe-analyzer/models"
	"trademe-analyzer/progress"
	"trademe-analyzer/utils"
)

// pagedHost serves one HTML body per page and paginates through them.
type pagedHost struct {
	pages     []string
	page      int
	snapshots int
	advances  int
	notReady  int
	err       error
	navErr    error
}

type loadingDoc struct{ dom.Document }

func (loadingDoc) Ready() bool { return false }

func (h *pagedHost) Snapshot(context.Context) (dom.Document, error) {
	h.snapshots++
	if h.err != nil {
		return nil, h.err
	}
	page := "<html><head><title>Search</title></head><body>" + h.pages[h.page] + "</body></html>"
	doc, err := dom.ParseString(page, fmt.Sprintf("%s?page=%d", testPageURL, h.page+1))
	if err != nil {
		return nil, err
	}
	if h.notReady > 0 {
		h.notReady--
		return loadingDoc{doc}, nil
	}
	return doc, nil
}

func (h *pagedHost) HasNextPage(context.Context) bool {
	return h.page+1 < len(h.pages)
}

func (h *pagedHost) NextPage(context.Context) error {
	if h.navErr != nil {
		return h.navErr
	}
	h.advances++
	h.page++
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recorder) Report(ev progress.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.Kind == progress.KindProgress {
			out = append(out, fmt.Sprintf("%d %s", ev.Percentage, ev.Message))
		}
	}
	return out
}

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) Report(ev progress.Event) error {
	return m.Called(ev).Error(0)
}

func ofKind(kind progress.Kind) any {
	return mock.MatchedBy(func(ev progress.Event) bool { return ev.Kind == kind })
}

func listing(id int, price string) string {
	return card(id, fmt.Sprintf("Listing number %d for sale", id), price)
}

func TestAnalyzerPaginatesAndSkipsDuplicates(t *testing.T) {
	host := &pagedHost{pages: []string{
		listing(1, "$100") + listing(2, "$300"),
		listing(2, "$300") + listing(3, "$50"),
	}}
	rec := &recorder{}
	a := NewAnalyzer(testConfig(), utils.Discard(), WithReporter(rec), WithClock(fixedClock))

	result, err := a.Run(context.Background(), host, host, Params{MaxItems: 10})
	require.NoError(t, err)

	require.Len(t, result.Items, 3)
	assert.Equal(t, "Listing number 2 for sale", result.Items[0].Title)
	assert.Equal(t, "Listing number 1 for sale", result.Items[1].Title)
	assert.Equal(t, "Listing number 3 for sale", result.Items[2].Title)
	assert.Equal(t, 4, result.Items[2].Rank, "ranks count every candidate across pages")
	assert.Equal(t, 1, host.advances)
	assert.Equal(t, 450.0, result.Summary.TotalRevenue)

	assert.Equal(t, []string{
		"10 Scanning page structure...",
		"30 Extracting items... (2/10)",
		"35 Extracting items... (3/10)",
		"80 Processing item data...",
		"100 Analysis complete!",
	}, rec.messages())

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, progress.KindComplete, last.Kind)
	assert.Same(t, result, last.Result)
	for _, ev := range rec.events {
		assert.Equal(t, rec.events[0].RunID, ev.RunID)
	}
	assert.NotEmpty(t, rec.events[0].RunID)
}

func TestAnalyzerStopsAtMaxItems(t *testing.T) {
	host := &pagedHost{pages: []string{
		listing(1, "$10") + listing(2, "$20") + listing(3, "$30"),
		listing(4, "$40"),
	}}
	a := NewAnalyzer(testConfig(), utils.Discard())

	result, err := a.Run(context.Background(), host, host, Params{MaxItems: 2})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Zero(t, host.advances)
}

func TestAnalyzerHonoursPageBudget(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPages = 1
	host := &pagedHost{pages: []string{listing(1, "$10"), listing(2, "$20")}}

	result, err := NewAnalyzer(cfg, utils.Discard()).Run(context.Background(), host, host, Params{MaxItems: 10})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	assert.Zero(t, host.advances)
}

func TestAnalyzerWithoutNavigator(t *testing.T) {
	host := &pagedHost{pages: []string{listing(1, "$10"), listing(2, "$20")}}

	result, err := NewAnalyzer(testConfig(), utils.Discard()).Run(context.Background(), host, nil, Params{})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
}

func TestAnalyzerNoListingsIsTerminal(t *testing.T) {
	host := &pagedHost{pages: []string{`<p>Nothing for sale here, come back later please.</p>`}}
	rec := &recorder{}

	result, err := NewAnalyzer(testConfig(), utils.Discard(), WithReporter(rec)).
		Run(context.Background(), host, host, Params{MaxItems: 10})
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNoListings))

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, progress.KindError, last.Kind)
	assert.Equal(t, "no_listings_found", last.Context["kind"])
	assert.Equal(t, testPageURL+"?page=1", last.Context["url"])
	assert.Contains(t, last.Message, "No listings found")
	for _, ev := range rec.events {
		assert.NotEqual(t, progress.KindComplete, ev.Kind)
	}
}

func TestAnalyzerStopsWhenLaterPageIsEmpty(t *testing.T) {
	host := &pagedHost{pages: []string{listing(1, "$10"), `<p>end of results</p>`, listing(3, "$30")}}

	result, err := NewAnalyzer(testConfig(), utils.Discard()).Run(context.Background(), host, host, Params{MaxItems: 10})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	assert.Equal(t, 1, host.advances)
}

func TestAnalyzerNavigationFailureKeepsItems(t *testing.T) {
	host := &pagedHost{pages: []string{listing(1, "$10"), listing(2, "$20")}, navErr: errors.New("button detached")}

	result, err := NewAnalyzer(testConfig(), utils.Discard()).Run(context.Background(), host, host, Params{MaxItems: 10})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
}

func TestAnalyzerWaitsForRender(t *testing.T) {
	host := &pagedHost{pages: []string{listing(1, "$10")}, notReady: 2}

	result, err := NewAnalyzer(testConfig(), utils.Discard()).Run(context.Background(), host, nil, Params{MaxItems: 10})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	assert.Equal(t, 3, host.snapshots)
}

func TestAnalyzerRenderWaitIsBounded(t *testing.T) {
	host := &pagedHost{pages: []string{listing(1, "$10")}, notReady: 10}
	var buf logBuffer

	result, err := NewAnalyzer(testConfig(), utils.NewLoggerTo(&buf, utils.LevelWarn)).
		Run(context.Background(), host, nil, Params{MaxItems: 10})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	assert.Equal(t, 3, host.snapshots)
	assert.Contains(t, buf.String(), "still rendering")
}

func TestAnalyzerHostFailure(t *testing.T) {
	host := &pagedHost{err: errors.New("target closed")}

	result, err := NewAnalyzer(testConfig(), utils.Discard()).Run(context.Background(), host, nil, Params{MaxItems: 10})
	assert.Nil(t, result)
	assert.True(t, IsKind(err, KindHostUnavailable))
	assert.ErrorContains(t, err, "target closed")
}

func TestAnalyzerProgressFailuresDoNotAbort(t *testing.T) {
	m := &mockReporter{}
	m.On("Report", ofKind(progress.KindProgress)).Return(progress.ErrDropped)
	m.On("Report", ofKind(progress.KindComplete)).Return(nil).Once()

	var buf logBuffer
	host := &pagedHost{pages: []string{listing(1, "$10")}}
	result, err := NewAnalyzer(testConfig(), utils.NewLoggerTo(&buf, utils.LevelWarn), WithReporter(m)).
		Run(context.Background(), host, nil, Params{MaxItems: 10})

	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	assert.Contains(t, buf.String(), "progress notification failed")
	m.AssertExpectations(t)
}

func TestAnalyzerReporterPanicDoesNotAbort(t *testing.T) {
	r := progress.Func(func(ev progress.Event) error {
		if ev.Kind == progress.KindProgress {
			panic("observer went away")
		}
		return nil
	})
	host := &pagedHost{pages: []string{listing(1, "$10")}}

	result, err := NewAnalyzer(testConfig(), utils.Discard(), WithReporter(r)).
		Run(context.Background(), host, nil, Params{MaxItems: 10})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
}

func TestAnalyzerResultReporterPanicIsLostResult(t *testing.T) {
	r := progress.Func(func(ev progress.Event) error {
		if ev.Kind == progress.KindComplete {
			panic("observer went away")
		}
		return nil
	})
	host := &pagedHost{pages: []string{listing(1, "$10")}}

	var result *models.AnalysisResult
	var err error
	require.NotPanics(t, func() {
		result, err = NewAnalyzer(testConfig(), utils.Discard(), WithReporter(r)).
			Run(context.Background(), host, nil, Params{MaxItems: 10})
	})
	assert.Nil(t, result)
	assert.True(t, IsKind(err, KindCommunication))
	assert.ErrorContains(t, err, "observer went away")
}

func TestAnalyzerLostResult(t *testing.T) {
	m := &mockReporter{}
	m.On("Report", ofKind(progress.KindProgress)).Return(nil)
	m.On("Report", ofKind(progress.KindComplete)).Return(progress.ErrClosed)

	host := &pagedHost{pages: []string{listing(1, "$10")}}
	result, err := NewAnalyzer(testConfig(), utils.Discard(), WithReporter(m)).
		Run(context.Background(), host, nil, Params{MaxItems: 10})

	assert.Nil(t, result)
	assert.True(t, IsKind(err, KindCommunication))
	assert.ErrorIs(t, err, progress.ErrClosed)
	m.AssertNotCalled(t, "Report", ofKind(progress.KindError))
}

func TestAnalyzerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	host := &pagedHost{pages: []string{listing(1, "$10"), listing(2, "$20")}}

	result, err := NewAnalyzer(testConfig(), utils.Discard()).Run(ctx, host, host, Params{MaxItems: 10})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzerEmptyAfterValidation(t *testing.T) {
	// Every candidate passes the locator but none yields a usable title.
	body := strings.Repeat(`<div class="o-card"><a href="/a/listing/1">$10</a> <b>$20 $30 $40 $50 $60 $70</b></div>`, 2)
	host := &pagedHost{pages: []string{body}}

	result, err := NewAnalyzer(testConfig(), utils.Discard()).Run(context.Background(), host, nil, Params{MaxItems: 10})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Zero(t, result.Summary.TotalItems)
}
