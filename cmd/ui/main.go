package main

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"sync"
	"time"

	"gioui.org/app"
	"gioui.org/font"
	"gioui.org/font/gofont"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	log "github.com/sirupsen/logrus"

	"task-tracker/pkg/client"
	"task-tracker/pkg/task"
)

var (
	apiBase = "/"
	theme   *material.Theme
)

const (
	pollInterval   = 5 * time.Second
	requestTimeout = 10 * time.Second
)

var (
	colorMuted     = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
	colorPending   = color.NRGBA{R: 0xFF, G: 0xA0, B: 0x00, A: 0xFF}
	colorCompleted = color.NRGBA{R: 0x00, G: 0xC0, B: 0x00, A: 0xFF}
	colorDanger    = color.NRGBA{R: 0xC0, G: 0x30, B: 0x30, A: 0xFF}
)

type UI struct {
	w       *app.Window
	session *client.Session

	// Add
	newTaskEditor widget.Editor
	addBtn        widget.Clickable
	draft         client.Draft

	// Filters
	filterBtns map[client.Filter]*widget.Clickable
	refreshBtn widget.Clickable

	// List
	taskList widget.List
	rows     map[int64]*rowWidgets

	// Error banner
	mu         sync.Mutex
	lastErr    string
	dismissBtn widget.Clickable
}

// rowWidgets holds the widget state of one task row.
type rowWidgets struct {
	done    widget.Bool
	edit    widget.Clickable
	save    widget.Clickable
	del     widget.Clickable
	confirm client.Confirm
	editor  widget.Editor
	editing bool
}

func main() {
	if base := os.Getenv("API_BASE"); base != "" {
		apiBase = base
	}

	theme = material.NewTheme()
	theme.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()))
	theme.Palette.Bg = color.NRGBA{R: 0x12, G: 0x12, B: 0x12, A: 0xFF}
	theme.Palette.Fg = color.NRGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF}
	theme.Palette.ContrastBg = color.NRGBA{R: 0x30, G: 0x60, B: 0xA0, A: 0xFF}
	theme.Palette.ContrastFg = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

	ui := &UI{
		session:    client.NewSession(client.New(apiBase, nil), nil),
		filterBtns: make(map[client.Filter]*widget.Clickable),
		rows:       make(map[int64]*rowWidgets),
	}
	for _, f := range client.Filters {
		ui.filterBtns[f] = new(widget.Clickable)
	}
	ui.taskList.Axis = layout.Vertical
	ui.newTaskEditor.SingleLine = true
	ui.newTaskEditor.Submit = true

	go func() {
		ui.w = new(app.Window)
		ui.w.Option(app.Title("Task Tracker"))
		ui.w.Option(app.Size(unit.Dp(720), unit.Dp(800)))
		go ui.pollData()
		if err := ui.run(ui.w); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}

func (ui *UI) run(w *app.Window) error {
	var ops op.Ops
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			ui.handleInput(gtx)
			ui.layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}

func (ui *UI) handleInput(gtx layout.Context) {
	submitted := false
	for {
		ev, ok := ui.newTaskEditor.Update(gtx)
		if !ok {
			break
		}
		if _, ok := ev.(widget.SubmitEvent); ok {
			submitted = true
		}
	}
	if ui.addBtn.Clicked(gtx) || submitted {
		title := ui.newTaskEditor.Text()
		ui.async("add task", func(ctx context.Context) error {
			if _, err := ui.session.Add(ctx, title); err != nil {
				return err
			}
			ui.draft.Succeeded(title)
			return nil
		})
	}
	if ui.draft.Clear(ui.newTaskEditor.Text()) {
		ui.newTaskEditor.SetText("")
	}
	for f, btn := range ui.filterBtns {
		if btn.Clicked(gtx) {
			ui.session.State().SetFilter(f)
		}
	}
	if ui.refreshBtn.Clicked(gtx) {
		ui.async("refresh", ui.session.Refresh)
	}
	if ui.dismissBtn.Clicked(gtx) {
		ui.setError("")
	}

	client.Prune(ui.rows, ui.session.State().Tasks())
	for _, t := range ui.session.State().Visible() {
		r := ui.row(t.ID)
		id := t.ID
		if r.done.Update(gtx) {
			ui.async("toggle task", func(ctx context.Context) error {
				_, err := ui.session.Toggle(ctx, id)
				return err
			})
		}
		if r.edit.Clicked(gtx) {
			r.editing = true
			r.confirm.Reset()
			r.editor.SetText(t.Title)
		}
		if r.save.Clicked(gtx) {
			r.editing = false
			title := r.editor.Text()
			ui.async("rename task", func(ctx context.Context) error {
				_, err := ui.session.Rename(ctx, id, title)
				return err
			})
		}
		if r.del.Clicked(gtx) && r.confirm.Click() {
			ui.async("delete task", func(ctx context.Context) error {
				return ui.session.Delete(ctx, id)
			})
		}
	}
}

func (ui *UI) row(id int64) *rowWidgets {
	r, ok := ui.rows[id]
	if !ok {
		r = &rowWidgets{}
		r.editor.SingleLine = true
		ui.rows[id] = r
	}
	return r
}

func (ui *UI) layout(gtx layout.Context) layout.Dimensions {
	return layout.Inset{Top: unit.Dp(16), Right: unit.Dp(16), Bottom: unit.Dp(16), Left: unit.Dp(16)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return material.H5(theme, "Task Tracker").Layout(gtx)
			}),
			layout.Rigid(ui.layoutError),
			layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
			layout.Rigid(ui.layoutAdd),
			layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
			layout.Rigid(ui.layoutFilters),
			layout.Rigid(layout.Spacer{Height: unit.Dp(4)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				s := ui.session.State().Summary()
				label := material.Caption(theme, fmt.Sprintf("Total: %d  Completed: %d  Pending: %d", s.Total, s.Completed, s.Pending))
				label.Color = colorMuted
				return label.Layout(gtx)
			}),
			layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
			layout.Flexed(1, ui.layoutTasks),
		)
	})
}

func (ui *UI) layoutError(gtx layout.Context) layout.Dimensions {
	msg := ui.errorText()
	if msg == "" {
		return layout.Dimensions{}
	}
	return layout.Inset{Top: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
			layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
				label := material.Body2(theme, msg)
				label.Color = colorDanger
				return label.Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return material.Button(theme, &ui.dismissBtn, "Dismiss").Layout(gtx)
			}),
		)
	})
}

func (ui *UI) layoutAdd(gtx layout.Context) layout.Dimensions {
	return layout.Flex{}.Layout(gtx,
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return material.Editor(theme, &ui.newTaskEditor, "What needs to be done?").Layout(gtx)
		}),
		layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return material.Button(theme, &ui.addBtn, "Add").Layout(gtx)
		}),
	)
}

func (ui *UI) layoutFilters(gtx layout.Context) layout.Dimensions {
	active := ui.session.State().Filter()
	children := make([]layout.FlexChild, 0, len(client.Filters)+1)
	for _, f := range client.Filters {
		children = append(children, layout.Rigid(filterBtn(theme, ui.filterBtns[f], string(f), f == active)))
	}
	children = append(children, layout.Rigid(func(gtx layout.Context) layout.Dimensions {
		return filterBtn(theme, &ui.refreshBtn, "Refresh", false)(gtx)
	}))
	return layout.Flex{}.Layout(gtx, children...)
}

func filterBtn(th *material.Theme, btn *widget.Clickable, label string, active bool) layout.Widget {
	return func(gtx layout.Context) layout.Dimensions {
		return layout.Inset{Right: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			b := material.Button(th, btn, label)
			if active {
				b.Background = th.Palette.ContrastBg
			} else {
				b.Background = color.NRGBA{A: 0}
			}
			b.Color = th.Palette.Fg
			return b.Layout(gtx)
		})
	}
}

func (ui *UI) layoutTasks(gtx layout.Context) layout.Dimensions {
	tasks := ui.session.State().Visible()
	if len(tasks) == 0 {
		label := material.Body2(theme, "No tasks")
		label.Color = colorMuted
		return label.Layout(gtx)
	}
	return material.List(theme, &ui.taskList).Layout(gtx, len(tasks), func(gtx layout.Context, i int) layout.Dimensions {
		t := tasks[i]
		r := ui.row(t.ID)
		r.done.Value = t.Status == task.StatusCompleted
		return layout.Inset{Bottom: unit.Dp(4)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
				layout.Rigid(material.CheckBox(theme, &r.done, "").Layout),
				layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
					if r.editing {
						return material.Editor(theme, &r.editor, "Title").Layout(gtx)
					}
					return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
						layout.Rigid(func(gtx layout.Context) layout.Dimensions {
							label := material.Body1(theme, t.Title)
							label.Font.Weight = font.Bold
							if t.Status == task.StatusCompleted {
								label.Color = colorMuted
							}
							return label.Layout(gtx)
						}),
						layout.Rigid(func(gtx layout.Context) layout.Dimensions {
							label := material.Caption(theme, fmt.Sprintf("[%s] %s", t.Status, t.CreatedAt.Local().Format("2006-01-02 15:04")))
							label.Color = colorPending
							if t.Status == task.StatusCompleted {
								label.Color = colorCompleted
							}
							return label.Layout(gtx)
						}),
					)
				}),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					if r.editing {
						return material.Button(theme, &r.save, "Save").Layout(gtx)
					}
					return material.Button(theme, &r.edit, "Edit").Layout(gtx)
				}),
				layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					label := "Delete"
					if r.confirm.Armed() {
						label = "Delete?"
					}
					btn := material.Button(theme, &r.del, label)
					btn.Background = colorDanger
					return btn.Layout(gtx)
				}),
			)
		})
	})
}

// Data fetching

func (ui *UI) pollData() {
	ui.async("refresh", ui.session.Refresh)
	ticker := time.NewTicker(pollInterval)
	for range ticker.C {
		ui.async("refresh", ui.session.Refresh)
	}
}

// async runs fn off the UI goroutine, shows any failure in the banner
// and asks for a redraw.
func (ui *UI) async(what string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			ui.setError(fmt.Sprintf("Failed to %s: %v", what, err))
		}
		if ui.w != nil {
			ui.w.Invalidate()
		}
	}()
}

func (ui *UI) setError(msg string) {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	ui.lastErr = msg
}

func (ui *UI) errorText() string {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	return ui.lastErr
}
