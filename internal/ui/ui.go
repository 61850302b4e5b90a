package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytpod/internal/cache"
	"github.com/desertthunder/ytpod/internal/formatter"
	"github.com/desertthunder/ytpod/internal/forms"
	"github.com/desertthunder/ytpod/internal/gate"
	"github.com/desertthunder/ytpod/internal/models"
	"github.com/desertthunder/ytpod/internal/shared"
	"github.com/desertthunder/ytpod/internal/tasks"
)

const toastTTL = 5 * time.Second

// ViewState represents the current view in the TUI.
type ViewState int

const (
	JobsView ViewState = iota
	NewJobsView
	PodcastsView
	EpisodesView
)

// ModelOpts configures a [Model].
type ModelOpts struct {
	Queries  *tasks.Queries
	Session  tasks.SessionWriter
	Interval time.Duration
	MaxRows  int // rows of the new jobs form, [forms.MaxRows] when 0
	Logger   *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	queries   *tasks.Queries
	mutations *tasks.Mutations
	errors    *tasks.ErrorHandler
	interval  time.Duration
	logger    *log.Logger
	events    chan tea.Msg

	width  int
	height int

	usage *models.Usage
	gate  gate.Gate

	jobs       []models.Job
	jobsTable  table.Model
	jobsPoller *tasks.Poller[models.Job]
	jobsCancel context.CancelFunc

	podcasts    []models.Podcast
	podcastList list.Model
	selected    *models.Podcast
	items       []models.Item
	itemsTable  table.Model
	itemsCancel context.CancelFunc

	form    *forms.BatchForm
	inputs  []textinput.Model
	focus   int
	formErr string

	status   string
	toast    *toast
	toastSeq int

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model. Failed operations are reported as toasts.
func NewModel(ctx context.Context, opts ModelOpts) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	m := &Model{
		ctx:        ctx,
		view:       JobsView,
		queries:    opts.Queries,
		interval:   opts.Interval,
		logger:     logger,
		events:     make(chan tea.Msg, 64),
		jobsTable:  newTable(jobColumns(0)),
		itemsTable: newTable(itemColumns(0)),
		form:       forms.NewBatchForm(opts.MaxRows),
		help:       help.New(),
		keys:       newKeyMap(),
	}
	m.errors = tasks.NewErrorHandler(m.Notifier(), logger)
	m.mutations = tasks.NewMutations(opts.Queries.Service(), opts.Queries.Store(), m.errors, opts.Session)
	m.podcastList = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	m.podcastList.Title = "Podcasts"
	m.syncInputs()
	return m
}

// Notifier delivers notices to the model as toasts. It never blocks.
func (m *Model) Notifier() tasks.Notifier {
	return tasks.NotifierFunc(func(title, description string) {
		select {
		case m.events <- toastMsg(title, description):
		default:
			m.logger.Warn("toast dropped", "title", title)
		}
	})
}

// send delivers a poller snapshot, giving up when the program is shutting down.
func (m *Model) send(ctx context.Context, msg tea.Msg) {
	select {
	case m.events <- msg:
	case <-ctx.Done():
	}
}

// Init fetches usage and podcasts and starts watching jobs.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchUsage(), m.fetchPodcasts(), m.watchJobs(), m.waitForEvent())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, m.quit()
		}
		switch m.view {
		case JobsView:
			return m.handleJobsKeys(msg)
		case NewJobsView:
			return m.handleFormKeys(msg)
		case PodcastsView:
			return m.handlePodcastsKeys(msg)
		case EpisodesView:
			return m.handleEpisodesKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateComponents(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgUsageFetched:
		data := msg.data.(struct {
			usage *models.Usage
			err   error
		})
		if data.err == nil {
			m.usage = data.usage
			m.gate = gate.Evaluate(data.usage)
		}
		return m, nil

	case MsgPodcastsFetched:
		data := msg.data.(struct {
			podcasts []models.Podcast
			err      error
		})
		if data.err != nil {
			return m, nil
		}
		m.podcasts = data.podcasts
		items := make([]list.Item, len(data.podcasts))
		for i, p := range data.podcasts {
			items[i] = podcastItem{podcast: p}
		}
		return m, m.podcastList.SetItems(items)

	case MsgJobsUpdated:
		m.jobs = msg.data.([]models.Job)
		m.jobsTable.SetRows(jobRows(m.jobs))
		return m, m.waitForEvent()

	case MsgItemsUpdated:
		data := msg.data.(struct {
			podcastID string
			items     []models.Item
		})
		if m.selected != nil && m.selected.ID == data.podcastID {
			m.items = data.items
			m.itemsTable.SetRows(itemRows(m.items))
		}
		return m, m.waitForEvent()

	case MsgJobsCreated:
		data := msg.data.(struct {
			count int
			err   error
		})
		if data.err != nil {
			m.formErr = data.err.Error()
			return m, nil
		}
		if data.count == 0 {
			return m, nil
		}
		m.form.Reset()
		m.syncInputs()
		m.formErr = ""
		m.status = fmt.Sprintf("Created %d %s", data.count, plural(data.count, "job"))
		m.view = JobsView
		return m, m.fetchUsage()

	case MsgToast:
		t := msg.data.(toast)
		m.toastSeq++
		t.id = m.toastSeq
		m.toast = &t
		id := t.id
		expire := tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg(id) })
		return m, tea.Batch(expire, m.waitForEvent())

	case MsgToastExpired:
		if m.toast != nil && m.toast.id == msg.data.(int) {
			m.toast = nil
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case JobsView:
		body = m.renderJobs()
	case NewJobsView:
		body = m.renderForm()
	case PodcastsView:
		body = m.renderPodcasts()
	case EpisodesView:
		body = m.renderEpisodes()
	}

	parts := []string{m.renderHeader(), body}
	if m.toast != nil {
		parts = append(parts, styles.toast.Render(fmt.Sprintf("%s\n%s", m.toast.title, m.toast.description)))
	}
	return strings.Join(parts, "\n")
}

func (m *Model) quit() tea.Cmd {
	if m.jobsCancel != nil {
		m.jobsCancel()
		m.jobsCancel = nil
	}
	if m.itemsCancel != nil {
		m.itemsCancel()
		m.itemsCancel = nil
	}
	return tea.Quit
}

func (m *Model) handleJobsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.next):
		m.view = PodcastsView
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		m.queries.Store().Invalidate(cache.Jobs(), cache.Usage())
		return m, m.fetchUsage()
	case key.Matches(msg, m.keys.create):
		if d := m.gate.Decorate(gate.CreateJobs); d.Disabled {
			m.Notifier().Notify(d.Reason, d.Upgrade)
			return m, nil
		}
		m.status = ""
		m.view = NewJobsView
		return m, m.focusInput(m.focus)
	}

	var cmd tea.Cmd
	m.jobsTable, cmd = m.jobsTable.Update(msg)
	return m, cmd
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Paste && strings.ContainsAny(string(msg.Runes), " \t\n") {
		m.form.Paste(string(msg.Runes))
		m.syncInputs()
		return m, m.focusInput(m.form.Len() - 1)
	}

	switch {
	case key.Matches(msg, m.keys.back):
		m.view = JobsView
		return m, nil
	case key.Matches(msg, m.keys.submit):
		return m, m.submitJobs()
	case key.Matches(msg, m.keys.addRow):
		if m.form.AddRow() {
			m.syncInputs()
			return m, m.focusInput(m.form.Len() - 1)
		}
		return m, nil
	case key.Matches(msg, m.keys.removeRow):
		if m.form.RemoveRow(m.focus) {
			m.syncInputs()
			return m, m.focusInput(m.focus - 1)
		}
		return m, nil
	case msg.Type == tea.KeyUp || msg.Type == tea.KeyShiftTab:
		return m, m.focusInput(m.focus - 1)
	case msg.Type == tea.KeyDown || msg.Type == tea.KeyTab:
		return m, m.focusInput(m.focus + 1)
	case msg.Type == tea.KeyEnter:
		if m.focus == m.form.Len()-1 && m.form.AddRow() {
			m.syncInputs()
		}
		return m, m.focusInput(m.focus + 1)
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	if m.form.SetRow(m.focus, m.inputs[m.focus].Value()) {
		m.syncInputs()
	}
	return m, cmd
}

func (m *Model) handlePodcastsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.podcastList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, m.quit()
		case key.Matches(msg, m.keys.next):
			m.view = JobsView
			return m, nil
		case key.Matches(msg, m.keys.enter):
			if selected, ok := m.podcastList.SelectedItem().(podcastItem); ok {
				return m, m.openPodcast(selected.podcast)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.podcastList, cmd = m.podcastList.Update(msg)
	return m, cmd
}

func (m *Model) handleEpisodesKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.back):
		m.closePodcast()
		m.view = PodcastsView
		return m, nil
	case key.Matches(msg, m.keys.next):
		m.closePodcast()
		m.view = JobsView
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		if m.selected != nil {
			m.queries.Store().Invalidate(cache.Items(m.selected.ID))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.itemsTable, cmd = m.itemsTable.Update(msg)
	return m, cmd
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PodcastsView:
		m.podcastList, cmd = m.podcastList.Update(msg)
	case NewJobsView:
		if m.focus < len(m.inputs) {
			m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		}
	}
	return m, cmd
}

// openPodcast shows a podcast's episodes and watches them until the view is left.
func (m *Model) openPodcast(p models.Podcast) tea.Cmd {
	m.closePodcast()
	m.selected = &p
	m.items = nil
	m.itemsTable.SetRows(nil)
	m.view = EpisodesView

	ctx, cancel := context.WithCancel(m.ctx)
	m.itemsCancel = cancel
	id := p.ID
	poller := m.queries.WatchItems(id, m.watchOpts(), func(items []models.Item) {
		m.send(ctx, itemsUpdatedMsg(id, items))
	})
	return m.run(ctx, poller.Run)
}

func (m *Model) closePodcast() {
	if m.itemsCancel != nil {
		m.itemsCancel()
		m.itemsCancel = nil
	}
	m.selected = nil
}

func (m *Model) watchOpts() tasks.WatchOpts {
	return tasks.WatchOpts{Interval: m.interval, Errors: m.errors}
}

func (m *Model) watchJobs() tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.jobsCancel = cancel
	m.jobsPoller = m.queries.WatchJobs(m.watchOpts(), func(jobs []models.Job) {
		m.send(ctx, jobsUpdatedMsg(jobs))
	})
	return m.run(ctx, m.jobsPoller.Run)
}

// run starts a poller loop in the background. The returned command yields no message.
func (m *Model) run(ctx context.Context, loop func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		go func() {
			if err := loop(ctx); err != nil {
				m.logger.Error("poller stopped", "error", err)
			}
		}()
		return nil
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.events:
			return msg
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) fetchUsage() tea.Cmd {
	return func() tea.Msg {
		usage, err := m.queries.Usage(m.ctx)
		return usageFetchedMsg(usage, m.errors.Handle(err))
	}
}

func (m *Model) fetchPodcasts() tea.Cmd {
	return func() tea.Msg {
		podcasts, err := m.queries.Podcasts(m.ctx)
		return podcastsFetchedMsg(podcasts, m.errors.Handle(err))
	}
}

// submitJobs validates the form and submits a snapshot of its rows as one batch.
func (m *Model) submitJobs() tea.Cmd {
	if d := m.gate.Decorate(gate.CreateJobs); d.Disabled {
		m.formErr = fmt.Sprintf("%s Run %s to upgrade.", d.Reason, d.Upgrade)
		return nil
	}
	if !m.form.Valid() {
		m.formErr = "Fix the highlighted rows before submitting."
		return nil
	}
	m.formErr = ""

	snapshot := forms.NewBatchForm(m.form.Max())
	snapshot.SetRows(m.form.Rows())
	return func() tea.Msg {
		n, err := snapshot.Submit(m.ctx, "", func(ctx context.Context, _ string, urls []string) error {
			_, err := m.mutations.CreateJobs(ctx, urls)
			return err
		})
		return jobsCreatedMsg(n, err)
	}
}

// syncInputs rebuilds the text inputs from the form rows.
func (m *Model) syncInputs() {
	rows := m.form.Rows()
	inputs := make([]textinput.Model, len(rows))
	for i, v := range rows {
		if i < len(m.inputs) {
			inputs[i] = m.inputs[i]
		} else {
			inputs[i] = textinput.New()
			inputs[i].Placeholder = "https://www.youtube.com/watch?v=..."
			inputs[i].CharLimit = 200
		}
		inputs[i].Prompt = fmt.Sprintf("%2d │ ", i+1)
		inputs[i].SetValue(v)
	}
	m.inputs = inputs
	if m.focus >= len(m.inputs) {
		m.focus = len(m.inputs) - 1
	}
}

func (m *Model) focusInput(i int) tea.Cmd {
	if i < 0 {
		i = 0
	}
	if i >= len(m.inputs) {
		i = len(m.inputs) - 1
	}
	for j := range m.inputs {
		m.inputs[j].Blur()
	}
	m.focus = i
	return m.inputs[i].Focus()
}

func (m *Model) resize() {
	h := m.height - 8
	if h < 3 {
		h = 3
	}
	m.jobsTable.SetColumns(jobColumns(m.width))
	m.jobsTable.SetHeight(h)
	m.itemsTable.SetColumns(itemColumns(m.width))
	m.itemsTable.SetHeight(h)
	m.podcastList.SetSize(m.width-4, h)
}

func (m *Model) renderHeader() string {
	title := styles.title.Render("ytpod")
	if m.usage == nil {
		return title
	}

	limit := "unlimited"
	if m.usage.Limit > 0 {
		limit = formatter.FormatFileSize(int64(m.usage.Limit))
	}
	line := fmt.Sprintf("Usage %s of %s • Uploads %s",
		formatter.FormatFileSize(int64(m.usage.Usage)), limit, formatter.FormatUsage(m.usage.Uploads, m.gate.UploadCap))
	if tier := m.usage.TierKey(); tier != "" {
		line = fmt.Sprintf("%s • %s", line, tier)
	}
	if m.gate.UsageReached {
		line = styles.warn.Render(line + " • limit reached")
	}
	return fmt.Sprintf("%s\n%s\n", title, line)
}

func (m *Model) renderJobs() string {
	heading := "Jobs"
	if m.jobsPoller != nil && m.jobsPoller.State() == tasks.PollScheduled {
		heading = fmt.Sprintf("Jobs %s", styles.ok.Render("● live"))
	}

	var body string
	if len(m.jobs) == 0 {
		body = styles.help.Render("No jobs yet. Press n to convert YouTube videos.")
	} else {
		body = m.jobsTable.View()
	}

	create := m.keys.create
	if d := m.gate.Decorate(gate.CreateJobs); d.Disabled {
		body = fmt.Sprintf("%s\n\n%s", body, styles.warn.Render(fmt.Sprintf("%s Run %s to upgrade.", d.Reason, d.Upgrade)))
		create.SetEnabled(false)
	}
	if m.status != "" {
		body = fmt.Sprintf("%s\n\n%s", body, styles.ok.Render(m.status))
	}

	helpView := m.help.ShortHelpView([]key.Binding{create, m.keys.refresh, m.keys.next, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s\n\n%s", heading, body, helpView)
}

func (m *Model) renderForm() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", styles.title.Render(fmt.Sprintf("New Jobs (%d/%d rows)", m.form.Len(), m.form.Max())))

	rowErrs := map[int]error{}
	for _, err := range m.form.Errors() {
		var fe *forms.FieldError
		if errors.As(err, &fe) {
			rowErrs[fe.Row] = fe.Err
		}
	}
	for i, in := range m.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
		if err, ok := rowErrs[i]; ok {
			fmt.Fprintf(&b, "     %s\n", styles.err.Render(err.Error()))
		}
	}
	if m.formErr != "" {
		fmt.Fprintf(&b, "\n%s\n", styles.err.Render(m.formErr))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.submit, m.keys.addRow, m.keys.removeRow, m.keys.back})
	fmt.Fprintf(&b, "\n%s", helpView)
	return b.String()
}

func (m *Model) renderPodcasts() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.next, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.podcastList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderEpisodes() string {
	if m.selected == nil {
		return ""
	}
	title := styles.title.Render(fmt.Sprintf("Episodes in '%s'", m.selected.Title))

	var body string
	if len(m.items) == 0 {
		body = styles.help.Render("No episodes yet.")
	} else {
		body = m.itemsTable.View()
	}

	helpKeys := []key.Binding{m.keys.refresh, m.keys.back, m.keys.next, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n\n%s", title, body, m.help.ShortHelpView(helpKeys))
}

func newTable(cols []table.Column) table.Model {
	return table.New(table.WithColumns(cols), table.WithFocused(true), table.WithHeight(10))
}

// flex is the space left after the fixed columns, never below floor.
func flex(width, fixed, floor int) int {
	if w := width - fixed; w > floor {
		return w
	}
	return floor
}

func jobColumns(width int) []table.Column {
	return []table.Column{
		{Title: "Title", Width: flex(width, 70, 30)},
		{Title: "Status", Width: 12},
		{Title: "Batch", Width: 12},
		{Title: "Created", Width: 16},
		{Title: "Error", Width: 24},
	}
}

func jobRows(jobs []models.Job) []table.Row {
	rows := make([]table.Row, len(jobs))
	for i, j := range jobs {
		title := j.Title
		if title == "" {
			title = j.URL
		}
		rows[i] = table.Row{title, string(j.Status), j.BatchID, formatter.FormatAge(j.Created.Time), j.Error}
	}
	return rows
}

func itemColumns(width int) []table.Column {
	return []table.Column{
		{Title: "Title", Width: flex(width, 50, 30)},
		{Title: "Type", Width: 8},
		{Title: "Status", Width: 12},
		{Title: "Duration", Width: 10},
		{Title: "Size", Width: 12},
	}
}

func itemRows(items []models.Item) []table.Row {
	rows := make([]table.Row, len(items))
	for i, item := range items {
		size := "-"
		if _, n, ok := item.Audio(); ok {
			size = formatter.FormatFileSize(n)
		}
		rows[i] = table.Row{
			item.DisplayTitle(),
			string(item.Type()),
			string(item.Base().Status),
			formatter.FormatDuration(item.Duration()),
			size,
		}
	}
	return rows
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
