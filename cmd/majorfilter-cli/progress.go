package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v2"

	"yashubustudio/majorfilter/internal/app"
)

const progressInterval = 200 * time.Millisecond

// progressWatcher renders a RunContext on a terminal: a bar per file when the
// row count is known, plain progress lines otherwise, and the run's log
// messages in between.
type progressWatcher struct {
	rc   *app.RunContext
	w    io.Writer
	bar  *progressbar.ProgressBar
	file string

	done chan struct{}
	wg   sync.WaitGroup
}

func startProgress(rc *app.RunContext, w io.Writer) *progressWatcher {
	pw := &progressWatcher{rc: rc, w: w, done: make(chan struct{})}
	pw.wg.Add(1)
	go pw.loop()
	return pw
}

// Stop drains pending events and waits for the render loop to exit.
func (pw *progressWatcher) Stop() {
	close(pw.done)
	pw.wg.Wait()
}

func (pw *progressWatcher) loop() {
	defer pw.wg.Done()
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-pw.done:
			pw.drain()
			pw.finishBar()
			return
		case ev := <-pw.rc.Events():
			pw.handle(ev)
		case <-ticker.C:
			pw.render(pw.rc.Snapshot())
		}
	}
}

func (pw *progressWatcher) drain() {
	for {
		select {
		case ev := <-pw.rc.Events():
			pw.handle(ev)
		default:
			pw.render(pw.rc.Snapshot())
			return
		}
	}
}

func (pw *progressWatcher) handle(ev app.Event) {
	switch ev.Kind {
	case app.EventLog:
		pw.println(ev.Message)
	case app.EventProgress:
		pw.render(ev.Progress)
		if ev.Progress.Total <= 0 {
			pw.println(app.ProgressText(ev.Progress))
		}
	case app.EventState:
		if ev.State == app.StateCancelled {
			pw.println("已取消")
		}
	}
}

func (pw *progressWatcher) render(p app.Progress) {
	if p.File == "" {
		return
	}
	if p.File != pw.file {
		pw.finishBar()
		pw.file = p.File
		if p.Total > 0 {
			pw.bar = progressbar.NewOptions(int(p.Total),
				progressbar.OptionSetWriter(pw.w),
				progressbar.OptionSetWidth(30),
				progressbar.OptionSetDescription(p.File),
				progressbar.OptionSetRenderBlankState(true),
			)
		}
	}
	if pw.bar != nil {
		_ = pw.bar.Set(int(min(p.Processed, p.Total)))
	}
}

func (pw *progressWatcher) finishBar() {
	if pw.bar == nil {
		return
	}
	_ = pw.bar.Finish()
	fmt.Fprintln(pw.w)
	pw.bar = nil
}

func (pw *progressWatcher) println(msg string) {
	if pw.bar != nil {
		fmt.Fprint(pw.w, "\r")
	}
	fmt.Fprintln(pw.w, msg)
}
