package downloader

import (
	"io"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// progressBar renders chapter progress. A nil output or an empty run disables it.
type progressBar struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

func newProgressBar(out io.Writer, title string, total int) *progressBar {
	if out == nil || total == 0 {
		return &progressBar{}
	}

	p := mpb.New(
		mpb.WithWidth(52),
		mpb.WithOutput(out),
		mpb.WithRefreshRate(120*time.Millisecond),
	)
	bar := p.New(
		int64(total),
		mpb.BarStyle().Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(title+"  "),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncWidth),
			decor.CountersNoUnit(" | %d/%d chapters", decor.WCSyncWidth),
			decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncWidth),
		),
	)
	return &progressBar{p: p, bar: bar}
}

func (b *progressBar) Increment() {
	if b.bar != nil {
		b.bar.Increment()
	}
}

// Abort stops the bar where it is and waits for the last render
func (b *progressBar) Abort() {
	if b.bar == nil {
		return
	}
	b.bar.Abort(false)
	b.p.Wait()
}

func (b *progressBar) Wait() {
	if b.p != nil {
		b.p.Wait()
	}
}
