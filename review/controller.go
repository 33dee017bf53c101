package review

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"listingpilot/header"
	"listingpilot/sheet"
	"listingpilot/transformer"
)

type State string

const (
	StateIdle       State = "idle"
	StateExtracting State = "extracting"
	StateReviewing  State = "reviewing"
	StateCommitting State = "committing"
)

type Mode string

const (
	ModeOptimize    Mode = "optimize"
	ModeSmartEdit   Mode = "smart-edit"
	ModeOptimizeRow Mode = "optimize-row"
)

// Progress is reported before each row of a batch is sent to the transformer.
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Row     int    `json:"row"`
	Phase   string `json:"phase"`
}

type ProgressFunc func(Progress)

// ExtractSummary counts what happened to the rows of a bulk run.
type ExtractSummary struct {
	BatchID   uuid.UUID `json:"batchId"`
	Rows      int       `json:"rows"`
	Proposals int       `json:"proposals"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
}

// Journal records finished commits.
type Journal interface {
	RecordCommit(report CommitReport, mode string) error
}

type Options struct {
	Window             sheet.Window
	HeaderMarkers      []string
	TitleMarkers       []string
	DescriptionMarkers []string
	Category           string
	AppliedColor       string
	ChangedColor       string
}

// RowResult is the outcome of the single-row flow.
type RowResult struct {
	Context      RowContext               `json:"context"`
	Optimization transformer.Optimization `json:"optimization"`
	Title        string                   `json:"title"`
	Description  string                   `json:"description"`
	Report       CommitReport             `json:"report"`
}

// Controller drives one review session: extract, review, commit. Only one
// batch can be active at a time; operations called in the wrong state fail
// with ErrBusy.
type Controller struct {
	mu sync.Mutex

	host        sheet.Host
	transformer transformer.Transformer
	journal     Journal
	opts        Options
	logger      logrus.FieldLogger
	progress    ProgressFunc

	state  State
	status string
	mode   Mode
	batch  *Batch
	store  *Store
}

// NewController wires a controller. journal and logger may be nil.
func NewController(host sheet.Host, t transformer.Transformer, journal Journal, opts Options, logger logrus.FieldLogger) *Controller {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &Controller{
		host:        host,
		transformer: t,
		journal:     journal,
		opts:        opts,
		logger:      logger,
		state:       StateIdle,
		status:      "Ready.",
		store:       NewStore(),
	}
}

// SetProgressFunc replaces the progress callback. fn may be nil.
func (c *Controller) SetProgressFunc(fn ProgressFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress = fn
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status is the plain-text line describing the last transition or failure.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Mode returns the kind of the batch under review.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// BatchID returns the ID of the batch under review, or uuid.Nil.
func (c *Controller) BatchID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.batch == nil {
		return uuid.Nil
	}
	return c.batch.ID
}

// Headers returns the header map of the batch under review, or nil.
func (c *Controller) Headers() *header.Map {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.batch == nil {
		return nil
	}
	return c.batch.Headers
}

// Record returns the extracted values of a proposal's row.
func (c *Controller) Record(id int) (header.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.batch == nil {
		return nil, false
	}
	for _, row := range c.batch.Rows {
		if row.ID == id {
			return row.Record, true
		}
	}
	return nil, false
}

func (c *Controller) extractor() *Extractor {
	return &Extractor{Host: c.host, Window: c.opts.Window, Markers: c.opts.HeaderMarkers}
}

// BulkOptimize proposes a new title and description for every non-blank row
// of sel. Rows with an empty title and description are skipped. A batch under
// review is replaced once the new one is ready; it is kept when the new
// extraction fails.
func (c *Controller) BulkOptimize(ctx context.Context, sel sheet.Selection) (ExtractSummary, error) {
	prev, err := c.beginExtraction("Reading selection to optimize...")
	if err != nil {
		return ExtractSummary{}, err
	}

	batch, err := c.extractor().Extract(sel)
	if err != nil {
		return ExtractSummary{}, c.fail(prev, err)
	}
	c.warnDuplicates(batch.Headers)
	names, err := batch.Headers.Require(c.opts.TitleMarkers, c.opts.DescriptionMarkers)
	if err != nil {
		return ExtractSummary{}, c.fail(prev, err)
	}
	titleName, descName := names[0], names[1]

	summary, proposals := c.run(ctx, batch, func(ctx context.Context, row RowContext) (*Proposal, bool, error) {
		title := row.Record[titleName]
		description := row.Record[descName]
		if strings.TrimSpace(title) == "" && strings.TrimSpace(description) == "" {
			return nil, true, nil
		}

		out, err := c.transformer.Optimize(ctx, transformer.OptimizeRequest{
			CurrentTitle:       title,
			CurrentDescription: description,
			Category:           c.opts.Category,
		})
		if err != nil {
			return nil, false, err
		}

		proposal := &Proposal{ID: row.ID, Row: row.Row, Tips: out.Tips}
		proposal.Updates.Set(titleName, fallback(out.NewTitle, title))
		proposal.Updates.Set(descName, fallback(out.NewDescription, description))
		return proposal, false, nil
	})

	return c.review(ModeOptimize, batch, summary, proposals)
}

// BulkSmartEdit applies a free-form instruction to every non-blank row of
// sel. Only rows with a non-empty update set become proposals. A batch under
// review is replaced like in BulkOptimize.
func (c *Controller) BulkSmartEdit(ctx context.Context, sel sheet.Selection, instruction string) (ExtractSummary, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return ExtractSummary{}, ErrEmptyInstruction
	}
	prev, err := c.beginExtraction("Reading selection...")
	if err != nil {
		return ExtractSummary{}, err
	}

	batch, err := c.extractor().Extract(sel)
	if err != nil {
		return ExtractSummary{}, c.fail(prev, err)
	}
	c.warnDuplicates(batch.Headers)

	summary, proposals := c.run(ctx, batch, func(ctx context.Context, row RowContext) (*Proposal, bool, error) {
		updates, err := c.transformer.SmartEdit(ctx, row.Record, instruction)
		if err != nil {
			return nil, false, err
		}
		if len(updates) == 0 {
			return nil, true, nil
		}
		return &Proposal{ID: row.ID, Row: row.Row, Updates: updates}, false, nil
	})

	return c.review(ModeSmartEdit, batch, summary, proposals)
}

type rowFunc func(ctx context.Context, row RowContext) (proposal *Proposal, skipped bool, err error)

// run calls fn for each row in order, one at a time. A failing row is logged
// and left out; it never stops the loop.
func (c *Controller) run(ctx context.Context, batch *Batch, fn rowFunc) (ExtractSummary, []Proposal) {
	summary := ExtractSummary{BatchID: batch.ID, Rows: len(batch.Rows)}
	proposals := make([]Proposal, 0, len(batch.Rows))
	total := len(batch.Rows)

	for i, row := range batch.Rows {
		c.report(Progress{Current: i + 1, Total: total, Row: row.Row, Phase: string(StateExtracting)},
			fmt.Sprintf("Processing row %d of %d...", i+1, total))

		proposal, skipped, err := fn(ctx, row)
		switch {
		case err != nil:
			summary.Failed++
			c.logger.WithFields(logrus.Fields{
				"batch": batch.ID.String(),
				"id":    row.ID,
				"row":   row.Row + 1,
			}).WithError(err).Warn("transformer call failed, row left out")
		case skipped:
			summary.Skipped++
		default:
			proposals = append(proposals, *proposal)
		}
	}
	summary.Proposals = len(proposals)
	return summary, proposals
}

func (c *Controller) review(mode Mode, batch *Batch, summary ExtractSummary, proposals []Proposal) (ExtractSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.batch = batch
	c.mode = mode
	c.store.ReplaceAll(proposals)
	c.state = StateReviewing
	c.status = reviewStatus(summary)
	return summary, nil
}

func reviewStatus(summary ExtractSummary) string {
	text := fmt.Sprintf("Review %d proposal(s) from %d row(s).", summary.Proposals, summary.Rows)
	if summary.Failed > 0 {
		text += fmt.Sprintf(" %d row(s) failed.", summary.Failed)
	}
	if summary.Skipped > 0 {
		text += fmt.Sprintf(" %d row(s) had nothing to change.", summary.Skipped)
	}
	return text
}

func (c *Controller) Toggle(id int) error {
	return c.withStore(func(s *Store) { s.Toggle(id) })
}

func (c *Controller) SelectAll() error {
	return c.withStore(func(s *Store) { s.SelectAll() })
}

func (c *Controller) SelectNone() error {
	return c.withStore(func(s *Store) { s.SelectNone() })
}

// ProposalView is a proposal together with its approval flag.
type ProposalView struct {
	Proposal
	Approved bool `json:"approved"`
}

// Proposals lists the staged proposals in extraction order.
func (c *Controller) Proposals() []ProposalView {
	c.mu.Lock()
	defer c.mu.Unlock()

	proposals := c.store.Proposals()
	out := make([]ProposalView, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, ProposalView{Proposal: p, Approved: c.store.IsApproved(p.ID)})
	}
	return out
}

func (c *Controller) withStore(fn func(*Store)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReviewing {
		return fmt.Errorf("%w: state is %s", ErrBusy, c.state)
	}
	fn(c.store)
	return nil
}

// Commit writes the approved proposals, records the commit in the journal and
// returns to idle. With nothing approved it fails and stays in review.
func (c *Controller) Commit(ctx context.Context) (CommitReport, error) {
	c.mu.Lock()
	if c.state != StateReviewing {
		state := c.state
		c.mu.Unlock()
		return CommitReport{}, fmt.Errorf("%w: state is %s", ErrBusy, state)
	}
	approved := c.store.Approved()
	if len(approved) == 0 {
		c.status = StatusMessage(ErrNothingApproved)
		c.mu.Unlock()
		return CommitReport{}, ErrNothingApproved
	}
	batch, mode := c.batch, c.mode
	c.state = StateCommitting
	c.status = fmt.Sprintf("Writing %d proposal(s)...", len(approved))
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		c.mu.Lock()
		c.state = StateReviewing
		c.status = StatusMessage(err)
		c.mu.Unlock()
		return CommitReport{}, err
	}

	committer := &Committer{Host: c.host, ChangedColor: c.opts.ChangedColor}
	report := committer.Commit(batch.ID, approved, batch.Headers)
	c.record(report, mode)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Clear()
	c.batch = nil
	c.mode = ""
	c.state = StateIdle
	c.status = "Done. " + report.String() + "."
	return report, nil
}

// Discard drops the batch under review.
func (c *Controller) Discard() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReviewing {
		return fmt.Errorf("%w: state is %s", ErrBusy, c.state)
	}
	c.store.Clear()
	c.batch = nil
	c.mode = ""
	c.state = StateIdle
	c.status = "Proposals discarded."
	return nil
}

// OptimizeRow optimizes the title and description of one zero-based sheet
// row and writes the result immediately, marked with the applied color. A
// transformer failure aborts the flow.
func (c *Controller) OptimizeRow(ctx context.Context, row int) (*RowResult, error) {
	if row < 0 {
		return nil, fmt.Errorf("row must be >= 1, got %d", row+1)
	}
	if err := c.begin(StateIdle, StateExtracting, fmt.Sprintf("Optimizing row %d...", row+1)); err != nil {
		return nil, err
	}

	result, err := c.optimizeRow(ctx, row)
	if err != nil {
		return nil, c.fail(StateIdle, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
	c.status = fmt.Sprintf("Row %d optimized.", row+1)
	return result, nil
}

func (c *Controller) optimizeRow(ctx context.Context, row int) (*RowResult, error) {
	extractor := c.extractor()
	headers, err := extractor.Headers()
	if err != nil {
		return nil, err
	}
	c.warnDuplicates(headers)
	names, err := headers.Require(c.opts.TitleMarkers, c.opts.DescriptionMarkers)
	if err != nil {
		return nil, err
	}
	titleName, descName := names[0], names[1]
	titleCol, _ := headers.Index(titleName)
	descCol, _ := headers.Index(descName)

	raw, err := c.host.ReadRange(row, 0, 1, headers.MaxIndex()+1)
	if err != nil {
		return nil, fmt.Errorf("read row %d: %w", row+1, err)
	}
	var cells []any
	if len(raw) > 0 {
		cells = raw[0]
	}
	rowCtx := RowContext{
		Row:               row,
		Record:            header.Materialize(headers, cells),
		TitleColumn:       titleCol,
		DescriptionColumn: descCol,
	}

	c.report(Progress{Current: 1, Total: 1, Row: row, Phase: string(StateExtracting)}, fmt.Sprintf("Optimizing row %d...", row+1))
	out, err := c.transformer.Optimize(ctx, transformer.OptimizeRequest{
		CurrentTitle:       rowCtx.Record[titleName],
		CurrentDescription: rowCtx.Record[descName],
		Category:           c.opts.Category,
	})
	if err != nil {
		return nil, err
	}

	title := fallback(out.NewTitle, rowCtx.Record[titleName])
	description := fallback(out.NewDescription, rowCtx.Record[descName])
	proposal := Proposal{Row: row, Tips: out.Tips}
	proposal.Updates.Set(titleName, title)
	proposal.Updates.Set(descName, description)

	committer := &Committer{Host: c.host, ChangedColor: c.opts.AppliedColor}
	report := committer.Commit(uuid.New(), []Proposal{proposal}, headers)
	c.record(report, ModeOptimizeRow)
	if err := report.Err(); err != nil {
		return nil, fmt.Errorf("write row %d: %w", row+1, err)
	}

	return &RowResult{
		Context:      rowCtx,
		Optimization: *out,
		Title:        title,
		Description:  description,
		Report:       report,
	}, nil
}

// warnDuplicates logs header names used by more than one column; only the last
// of those columns is read and written.
func (c *Controller) warnDuplicates(headers *header.Map) {
	for _, name := range headers.Duplicates() {
		col, _ := headers.Index(name)
		c.logger.WithFields(logrus.Fields{
			"header": name,
			"column": sheet.ColumnName(col),
		}).Warn("duplicate header name, only the last column is used")
	}
}

func (c *Controller) begin(from, to State, status string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != from {
		return fmt.Errorf("%w: state is %s", ErrBusy, c.state)
	}
	c.state = to
	c.status = status
	return nil
}

// beginExtraction starts a bulk run from idle or from review. It returns the
// state to go back to if the run fails before proposals are ready.
func (c *Controller) beginExtraction(status string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle && c.state != StateReviewing {
		return c.state, fmt.Errorf("%w: state is %s", ErrBusy, c.state)
	}
	prev := c.state
	c.state = StateExtracting
	c.status = status
	return prev, nil
}

// fail returns to prev after an aborted extraction. The batch and proposals
// under review, if any, are left as they were.
func (c *Controller) fail(prev State, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = prev
	c.status = StatusMessage(err)
	return err
}

func (c *Controller) report(p Progress, status string) {
	c.mu.Lock()
	c.status = status
	fn := c.progress
	c.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

func (c *Controller) record(report CommitReport, mode Mode) {
	if c.journal == nil {
		return
	}
	if err := c.journal.RecordCommit(report, string(mode)); err != nil {
		c.logger.WithField("batch", report.BatchID.String()).WithError(err).Error("record commit in journal")
	}
}

func fallback(value, current string) string {
	if strings.TrimSpace(value) == "" {
		return current
	}
	return value
}
