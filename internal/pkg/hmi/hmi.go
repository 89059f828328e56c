package hmi

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell"
	"github.com/google/uuid"
	"github.com/rivo/tview"
	"github.com/sirupsen/logrus"

	"github.com/ohowland/ecc_core/internal/pkg/ecc"
)

const logo = `
 __________________________________________
 _/\/\/\/\/\/\____/\/\/\/\/\____/\/\/\/\/\_
 _/\/\__________/\/\__________/\/\_________
 _/\/\/\/\/\____/\/\__________/\/\_________
 _/\/\__________/\/\__________/\/\_________
 _/\/\/\/\/\/\____/\/\/\/\/\____/\/\/\/\/\_
 __________________________________________
`

var headers = []string{"Name", "Kind", "State", "Detail"}

// API is the controller as seen by the hmi.
type API interface {
	Status(ctx context.Context) (ecc.Status, error)
	Toggle(ctx context.Context, pid uuid.UUID) (bool, error)
}

// HMI is a terminal dashboard of the whole tree. Selecting a row toggles
// its switch.
type HMI struct {
	app     *tview.Application
	pages   *tview.Pages
	table   *tview.Table
	footer  *tview.TextView
	api     API
	refresh time.Duration
	timeout time.Duration
	mux     *sync.Mutex
	rows    []Row
	stop    chan bool
	log     *logrus.Entry
}

// New builds the splash and overview pages.
func New(api API, refresh time.Duration, log *logrus.Entry) *HMI {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	h := &HMI{
		app:     tview.NewApplication(),
		pages:   tview.NewPages(),
		api:     api,
		refresh: refresh,
		timeout: refresh,
		mux:     &sync.Mutex{},
		stop:    make(chan bool),
		log:     log.WithField("component", "HMI"),
	}

	h.pages.AddPage("Splash", h.splash(), true, true)
	h.pages.AddPage("Overview", h.overview(), true, false)
	return h
}

// Run blocks until the application exits.
func (h *HMI) Run() error {
	go h.updateScheduler()
	defer close(h.stop)
	return h.app.SetRoot(h.pages, true).Run()
}

func (h *HMI) splash() tview.Primitive {
	lines := strings.Split(logo, "\n")
	logoWidth := 0
	for _, line := range lines {
		if len(line) > logoWidth {
			logoWidth = len(line)
		}
	}
	logoBox := tview.NewTextView().
		SetTextColor(tcell.ColorBlue).
		SetDoneFunc(func(key tcell.Key) {
			h.pages.SwitchToPage("Overview")
			h.app.SetFocus(h.table)
		})
	fmt.Fprint(logoBox, logo)

	frame := tview.NewFrame(tview.NewBox()).
		SetBorders(0, 0, 0, 0, 0, 0).
		AddText("Electrical Circuit Controller", true, tview.AlignCenter, tcell.ColorWhite).
		AddText("", true, tview.AlignCenter, tcell.ColorWhite).
		AddText("press enter", true, tview.AlignCenter, tcell.ColorDarkMagenta)

	return tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(tview.NewBox(), 0, 5, false).
		AddItem(tview.NewFlex().
			AddItem(tview.NewBox(), 0, 1, false).
			AddItem(logoBox, logoWidth, 1, true).
			AddItem(tview.NewBox(), 0, 1, false), len(lines), 1, true).
		AddItem(frame, 0, 10, false)
}

func (h *HMI) overview() tview.Primitive {
	h.table = tview.NewTable().
		SetFixed(1, 0).
		SetBorders(false).
		SetSelectable(true, false).
		SetSeparator(' ')
	h.table.SetBorder(true).SetTitle(" Networks ")
	h.table.SetSelectedFunc(func(row, column int) {
		go h.toggle(row)
	})

	h.footer = tview.NewTextView().
		SetTextColor(tcell.ColorDarkCyan).
		SetText("enter: toggle switch   ctrl-c: quit")

	return tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(h.table, 0, 1, true).
		AddItem(h.footer, 1, 0, false)
}

func (h *HMI) updateScheduler() {
	ticker := time.NewTicker(h.refresh)
	defer ticker.Stop()
	h.update()
	for {
		select {
		case <-ticker.C:
			h.update()
		case <-h.stop:
			return
		}
	}
}

func (h *HMI) update() {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	status, err := h.api.Status(ctx)
	if err != nil {
		h.log.WithError(err).Debug("status request failed")
		h.app.QueueUpdateDraw(func() { h.footer.SetText("controller unreachable: " + err.Error()) })
		return
	}

	rows := Rows(status)
	h.mux.Lock()
	h.rows = rows
	h.mux.Unlock()

	h.app.QueueUpdateDraw(func() {
		fill(h.table, rows)
		h.footer.SetText(fmt.Sprintf("updated %v   enter: toggle switch   ctrl-c: quit", time.Now().Format("15:04:05")))
	})
}

// toggle flips the switch shown at table row, skipping the header.
func (h *HMI) toggle(row int) {
	h.mux.Lock()
	if row < 1 || row > len(h.rows) {
		h.mux.Unlock()
		return
	}
	r := h.rows[row-1]
	h.mux.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	if _, err := h.api.Toggle(ctx, r.PID); err != nil {
		h.log.WithError(err).WithField("pid", r.PID).Warn("toggle failed")
		return
	}
	h.update()
}

func fill(table *tview.Table, rows []Row) {
	table.Clear()
	for column, header := range headers {
		table.SetCell(0, column, tview.NewTableCell(header).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}
	for i, r := range rows {
		for column, text := range []string{r.Label(), string(r.Kind), r.State(), r.Detail} {
			table.SetCell(i+1, column, tview.NewTableCell(text).
				SetTextColor(color(r, column)).
				SetAlign(tview.AlignLeft))
		}
	}
}

func color(r Row, column int) tcell.Color {
	if column == 0 {
		return tcell.ColorDarkCyan
	}
	if column != 2 {
		return tcell.ColorWhite
	}
	switch r.State() {
	case "operating":
		return tcell.ColorGreen
	case "off":
		return tcell.ColorGray
	}
	return tcell.ColorRed
}
