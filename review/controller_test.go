package review

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingpilot/header"
	"listingpilot/sheet"
	"listingpilot/transformer"
)

type fakeTransformer struct {
	mu           sync.Mutex
	optimize     func(transformer.OptimizeRequest) (*transformer.Optimization, error)
	smartEdit    func(header.Record, string) (header.Updates, error)
	instructions []string
	requests     []transformer.OptimizeRequest
}

func (f *fakeTransformer) Optimize(_ context.Context, req transformer.OptimizeRequest) (*transformer.Optimization, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.optimize(req)
}

func (f *fakeTransformer) SmartEdit(_ context.Context, record header.Record, instruction string) (header.Updates, error) {
	f.mu.Lock()
	f.instructions = append(f.instructions, instruction)
	f.mu.Unlock()
	return f.smartEdit(record, instruction)
}

type fakeJournal struct {
	reports []CommitReport
	modes   []string
	err     error
}

func (j *fakeJournal) RecordCommit(report CommitReport, mode string) error {
	j.reports = append(j.reports, report)
	j.modes = append(j.modes, mode)
	return j.err
}

func listingRows() [][]any {
	return [][]any{
		{"Listado"},
		{"SKU", "Título", "Descripción", "Color"},
		{"A-1", "antena", "antena 5ghz", ""},
		{"A-2", "", "", "Rojo"},
		{nil, nil, nil, nil},
		{"A-4", "router", "router ac", ""},
	}
}

func testOptions() Options {
	return Options{
		Window:             sheet.Window{Rows: 4, Columns: 6},
		HeaderMarkers:      testMarkers,
		TitleMarkers:       []string{"título", "title"},
		DescriptionMarkers: []string{"descripción", "description"},
		Category:           "Electrónica",
		AppliedColor:       "#E2EFDA",
		ChangedColor:       "#FFF2CC",
	}
}

func upperOptimizer(req transformer.OptimizeRequest) (*transformer.Optimization, error) {
	return &transformer.Optimization{NewTitle: "NEW " + req.CurrentTitle, Tips: "tip"}, nil
}

func TestController_BulkOptimizeReviewAndCommit(t *testing.T) {
	t.Parallel()

	host := sheet.NewMemoryHost(listingRows())
	fake := &fakeTransformer{optimize: upperOptimizer}
	journal := &fakeJournal{}
	c := NewController(host, fake, journal, testOptions(), nil)

	var progress []Progress
	c.SetProgressFunc(func(p Progress) { progress = append(progress, p) })

	summary, err := c.BulkOptimize(context.Background(), sheet.Selection{StartRow: 2, RowCount: 4})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Rows)
	assert.Equal(t, 2, summary.Proposals)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, StateReviewing, c.State())
	assert.Equal(t, ModeOptimize, c.Mode())

	require.Len(t, progress, 3)
	assert.Equal(t, Progress{Current: 3, Total: 3, Row: 5, Phase: "extracting"}, progress[2])

	require.Len(t, fake.requests, 2)
	assert.Equal(t, "Electrónica", fake.requests[0].Category)
	assert.Equal(t, "antena 5ghz", fake.requests[0].CurrentDescription)

	proposals := c.Proposals()
	require.Len(t, proposals, 2)
	assert.Equal(t, 0, proposals[0].ID)
	assert.Equal(t, 2, proposals[1].ID)
	assert.True(t, proposals[0].Approved)
	assert.Equal(t, "tip", proposals[0].Tips)
	desc, _ := proposals[0].Updates.Get("Descripción")
	assert.Equal(t, "antena 5ghz", desc, "missing description falls back to the current value")

	require.NoError(t, c.Toggle(2))
	report, err := c.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.RowsCommitted)
	assert.Equal(t, 2, report.Written)

	assert.Equal(t, "NEW antena", host.Value(2, 1))
	assert.Equal(t, "#FFF2CC", host.Highlight(2, 1))
	assert.Equal(t, "router", host.Value(5, 1))
	assert.Equal(t, StateIdle, c.State())
	assert.Empty(t, c.Proposals())
	require.Len(t, journal.modes, 1)
	assert.Equal(t, "optimize", journal.modes[0])
	assert.Contains(t, c.Status(), "1 row(s) committed")
}

func TestController_BulkOptimizeIsolatesRowFailures(t *testing.T) {
	t.Parallel()

	logger, hook := logtest.NewNullLogger()
	fake := &fakeTransformer{optimize: func(req transformer.OptimizeRequest) (*transformer.Optimization, error) {
		if req.CurrentTitle == "antena" {
			return nil, &transformer.APIError{StatusCode: 500, Message: "backend down"}
		}
		return upperOptimizer(req)
	}}
	c := NewController(sheet.NewMemoryHost(listingRows()), fake, nil, testOptions(), logger)

	summary, err := c.BulkOptimize(context.Background(), sheet.Selection{StartRow: 2, RowCount: 4})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Proposals)
	assert.Contains(t, c.Status(), "1 row(s) failed")

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, 3, entry.Data["row"])
	assert.Equal(t, 0, entry.Data["id"])
}

func TestController_BulkOptimizeRequiresTitleAndDescription(t *testing.T) {
	t.Parallel()

	host := sheet.NewMemoryHost([][]any{
		{"SKU", "Título", "Precio"},
		{"A-1", "antena", 10},
	})
	c := NewController(host, &fakeTransformer{optimize: upperOptimizer}, nil, testOptions(), nil)

	_, err := c.BulkOptimize(context.Background(), sheet.Selection{StartRow: 1, RowCount: 1})
	require.ErrorIs(t, err, header.ErrHeaderNotFound)
	assert.Equal(t, StateIdle, c.State())
	assert.Contains(t, c.Status(), "Error:")
}

func TestController_EmptySelectionStartsNoBatch(t *testing.T) {
	t.Parallel()

	c := NewController(sheet.NewMemoryHost(listingRows()), &fakeTransformer{optimize: upperOptimizer}, nil, testOptions(), nil)

	_, err := c.BulkOptimize(context.Background(), sheet.Selection{StartRow: 4, RowCount: 1})
	require.ErrorIs(t, err, ErrEmptySelection)
	assert.Equal(t, StateIdle, c.State())
	assert.ErrorIs(t, c.Toggle(0), ErrBusy)
}

func TestController_BulkSmartEdit(t *testing.T) {
	t.Parallel()

	host := sheet.NewMemoryHost(listingRows())
	fake := &fakeTransformer{smartEdit: func(record header.Record, _ string) (header.Updates, error) {
		if record["SKU"] == "A-2" {
			return header.Updates{}, nil
		}
		var updates header.Updates
		updates.Set("color", "Negro")
		updates.Set("Marca", "Ubiquiti")
		return updates, nil
	}}
	journal := &fakeJournal{}
	c := NewController(host, fake, journal, testOptions(), nil)

	_, err := c.BulkSmartEdit(context.Background(), sheet.Selection{StartRow: 2, RowCount: 4}, "   ")
	require.ErrorIs(t, err, ErrEmptyInstruction)
	assert.Equal(t, StateIdle, c.State())

	summary, err := c.BulkSmartEdit(context.Background(), sheet.Selection{StartRow: 2, RowCount: 4}, " completa el color ")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Proposals)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, []string{"completa el color", "completa el color", "completa el color"}, fake.instructions)

	report, err := c.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Written)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, "Negro", host.Value(2, 3))
	assert.Equal(t, "Negro", host.Value(5, 3))
	assert.Equal(t, []string{"smart-edit"}, journal.modes)
}

func TestController_StateRules(t *testing.T) {
	t.Parallel()

	c := NewController(sheet.NewMemoryHost(listingRows()), &fakeTransformer{optimize: upperOptimizer}, nil, testOptions(), nil)

	_, err := c.Commit(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, c.Discard(), ErrBusy)

	_, err = c.BulkOptimize(context.Background(), sheet.Selection{StartRow: 2, RowCount: 1})
	require.NoError(t, err)
	first := c.BatchID()

	// A new extraction replaces the batch under review.
	_, err = c.BulkOptimize(context.Background(), sheet.Selection{StartRow: 5, RowCount: 1})
	require.NoError(t, err)
	assert.Equal(t, StateReviewing, c.State())
	assert.NotEqual(t, first, c.BatchID())
	proposals := c.Proposals()
	require.Len(t, proposals, 1)
	assert.Equal(t, 5, proposals[0].Row)
	assert.True(t, proposals[0].Approved)

	_, err = c.OptimizeRow(context.Background(), 2)
	assert.ErrorIs(t, err, ErrBusy)

	require.NoError(t, c.SelectNone())
	_, err = c.Commit(context.Background())
	assert.ErrorIs(t, err, ErrNothingApproved)
	assert.Equal(t, StateReviewing, c.State())

	require.NoError(t, c.SelectAll())
	require.NoError(t, c.Discard())
	assert.Equal(t, StateIdle, c.State())
	assert.Empty(t, c.Proposals())
}

func TestController_OptimizeRow(t *testing.T) {
	t.Parallel()

	host := sheet.NewMemoryHost(listingRows())
	fake := &fakeTransformer{optimize: func(req transformer.OptimizeRequest) (*transformer.Optimization, error) {
		return &transformer.Optimization{NewTitle: "Antena 5GHz Ubiquiti", NewDescription: "Alcance 10km"}, nil
	}}
	journal := &fakeJournal{}
	c := NewController(host, fake, journal, testOptions(), nil)

	result, err := c.OptimizeRow(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Context.TitleColumn)
	assert.Equal(t, 2, result.Context.DescriptionColumn)
	assert.Equal(t, "Antena 5GHz Ubiquiti", host.Value(2, 1))
	assert.Equal(t, "Alcance 10km", host.Value(2, 2))
	assert.Equal(t, "#E2EFDA", host.Highlight(2, 1))
	assert.Equal(t, "#E2EFDA", host.Highlight(2, 2))
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, []string{"optimize-row"}, journal.modes)
}

func TestController_OptimizeRowAbortsOnTransformerFailure(t *testing.T) {
	t.Parallel()

	host := sheet.NewMemoryHost(listingRows())
	fake := &fakeTransformer{optimize: func(transformer.OptimizeRequest) (*transformer.Optimization, error) {
		return nil, &transformer.APIError{StatusCode: 422, Message: "título inválido"}
	}}
	c := NewController(host, fake, nil, testOptions(), nil)

	_, err := c.OptimizeRow(context.Background(), 2)
	var apiErr *transformer.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Error: título inválido", c.Status())
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, "antena", host.Value(2, 1))
	assert.Zero(t, host.Flushes())
}

func TestController_ConcurrentCallersSeeBusy(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	fake := &fakeTransformer{optimize: func(req transformer.OptimizeRequest) (*transformer.Optimization, error) {
		once.Do(func() { close(started) })
		<-release
		return upperOptimizer(req)
	}}
	c := NewController(sheet.NewMemoryHost(listingRows()), fake, nil, testOptions(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.BulkOptimize(context.Background(), sheet.Selection{StartRow: 2, RowCount: 1})
		done <- err
	}()

	<-started
	assert.Equal(t, StateExtracting, c.State())
	assert.Contains(t, c.Status(), "row 1 of 1")
	_, err := c.BulkSmartEdit(context.Background(), sheet.Selection{StartRow: 2, RowCount: 1}, "x")
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateReviewing, c.State())
}

func TestController_WarnsAboutDuplicateHeaders(t *testing.T) {
	t.Parallel()

	host := sheet.NewMemoryHost([][]any{
		{"SKU", "Título", "Descripción", "Color", "Color"},
		{"A-1", "antena", "antena 5ghz", "", "Rojo"},
	})
	logger, hook := logtest.NewNullLogger()
	fake := &fakeTransformer{optimize: upperOptimizer}
	c := NewController(host, fake, nil, testOptions(), logger)

	_, err := c.BulkOptimize(context.Background(), sheet.Selection{StartRow: 1, RowCount: 1})
	require.NoError(t, err)

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "Color", entry.Data["header"])
	assert.Equal(t, "E", entry.Data["column"])

	record, ok := c.Record(0)
	require.True(t, ok)
	assert.Equal(t, "Rojo", record["Color"], "the last duplicate column is the one read")
}

func TestController_FailedReextractionKeepsBatchUnderReview(t *testing.T) {
	t.Parallel()

	fake := &fakeTransformer{
		optimize: upperOptimizer,
		smartEdit: func(header.Record, string) (header.Updates, error) {
			var updates header.Updates
			updates.Set("Color", "Negro")
			return updates, nil
		},
	}
	c := NewController(sheet.NewMemoryHost(listingRows()), fake, nil, testOptions(), nil)

	_, err := c.BulkOptimize(context.Background(), sheet.Selection{StartRow: 2, RowCount: 1})
	require.NoError(t, err)
	require.NoError(t, c.Toggle(0))
	batchID := c.BatchID()

	_, err = c.BulkOptimize(context.Background(), sheet.Selection{StartRow: 4, RowCount: 1})
	require.ErrorIs(t, err, ErrEmptySelection)
	_, err = c.BulkSmartEdit(context.Background(), sheet.Selection{StartRow: 4, RowCount: 1}, "pintar de negro")
	require.ErrorIs(t, err, ErrEmptySelection)

	assert.Equal(t, StateReviewing, c.State())
	assert.Equal(t, batchID, c.BatchID())
	assert.Equal(t, ModeOptimize, c.Mode())
	assert.Contains(t, c.Status(), "select at least one row")
	proposals := c.Proposals()
	require.Len(t, proposals, 1)
	assert.Equal(t, 2, proposals[0].Row)
	assert.False(t, proposals[0].Approved, "approvals survive a failed extraction")
	assert.Len(t, fake.requests, 1)

	_, err = c.BulkSmartEdit(context.Background(), sheet.Selection{StartRow: 2, RowCount: 1}, "pintar de negro")
	require.NoError(t, err)
	assert.Equal(t, ModeSmartEdit, c.Mode())
	proposals = c.Proposals()
	require.Len(t, proposals, 1)
	assert.True(t, proposals[0].Approved)
	value, ok := proposals[0].Updates.Get("Color")
	require.True(t, ok)
	assert.Equal(t, "Negro", value)
}
