package scope

import (
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/itohio/streamgauge/pkg/trend"
)

var (
	gridColor     = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor    = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	distanceColor = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	rateColor     = color.RGBA{R: 100, G: 200, B: 255, A: 255}
	riseColor     = color.RGBA{R: 0, G: 100, B: 200, A: 255}
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	grid    *canvas.Rectangle
	objects []fyne.CanvasObject

	lastSize fyne.Size
}

// plot is the drawing area inside the axis margins.
type plot struct {
	x, y, w, h float32
	sc         Scale
}

func (p plot) xAt(t time.Time) float32 {
	span := p.sc.XMax.Sub(p.sc.XMin).Seconds()
	if span <= 0 {
		return p.x
	}
	return p.x + float32(t.Sub(p.sc.XMin).Seconds()/span)*p.w
}

func (p plot) yAt(v, lo, hi float64) float32 {
	return p.y + p.h - float32((v-lo)/(hi-lo))*p.h
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)
	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh rebuilds the canvas objects from the current data.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	points := r.scope.displayPoints
	rates := r.scope.displayRates
	all := r.scope.points
	rises := r.scope.rises
	sc := r.scope.scale
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.grid}

	const marginLeft, marginRight, marginTop, marginBottom = 70, 70, 20, 40
	p := plot{
		x:  marginLeft,
		y:  marginTop,
		w:  size.Width - marginLeft - marginRight,
		h:  size.Height - marginTop - marginBottom,
		sc: sc,
	}

	r.drawGrid(p)
	r.drawDistance(p, points)
	r.drawRates(p, rates, points)
	r.drawRises(p, rises, all)
}

func (r *scopeRenderer) line(c color.Color, width float32, from, to fyne.Position) {
	l := canvas.NewLine(c)
	l.Position1 = from
	l.Position2 = to
	l.StrokeWidth = width
	r.objects = append(r.objects, l)
}

func (r *scopeRenderer) text(s string, c color.Color, size float32, align fyne.TextAlign, pos fyne.Position) {
	t := canvas.NewText(s, c)
	t.TextSize = size
	t.Alignment = align
	t.Move(pos)
	r.objects = append(r.objects, t)
}

// drawGrid draws the grid with distance labels on the left, rate labels on
// the right and elapsed time below.
func (r *scopeRenderer) drawGrid(p plot) {
	const hLines, vLines = 8, 10
	for i := range hLines + 1 {
		y := p.y + float32(i)*p.h/hLines
		r.line(gridColor, 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y))

		d := p.sc.DMax - float64(i)*(p.sc.DMax-p.sc.DMin)/hLines
		r.text(FormatDistance(d), distanceColor, 10, fyne.TextAlignTrailing, fyne.NewPos(p.x-5, y-6))
		rate := p.sc.RMax - float64(i)*(p.sc.RMax-p.sc.RMin)/hLines
		r.text(FormatRate(rate), rateColor, 10, fyne.TextAlignLeading, fyne.NewPos(p.x+p.w+5, y-6))
	}

	span := p.sc.XMax.Sub(p.sc.XMin)
	for i := range vLines + 1 {
		x := p.x + float32(i)*p.w/vLines
		r.line(gridColor, 1, fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.h))

		offset := time.Duration(float64(i) * float64(span) / vLines)
		r.text(FormatElapsed(offset), labelColor, 10, fyne.TextAlignCenter, fyne.NewPos(x-20, p.y+p.h+5))
	}
}

func (r *scopeRenderer) drawDistance(p plot, points []trend.Point) {
	for i := 1; i < len(points); i++ {
		r.line(distanceColor, 1.5,
			fyne.NewPos(p.xAt(points[i-1].At), p.yAt(points[i-1].Distance, p.sc.DMin, p.sc.DMax)),
			fyne.NewPos(p.xAt(points[i].At), p.yAt(points[i].Distance, p.sc.DMin, p.sc.DMax)))
	}
}

// drawRates plots each rate at the midpoint of its point pair.
func (r *scopeRenderer) drawRates(p plot, rates []float64, points []trend.Point) {
	var prev fyne.Position
	for i, rate := range rates {
		if i+1 >= len(points) {
			break
		}
		mid := points[i].At.Add(points[i+1].At.Sub(points[i].At) / 2)
		pos := fyne.NewPos(p.xAt(mid), p.yAt(rate, p.sc.RMin, p.sc.RMax))
		if i > 0 {
			r.line(rateColor, 2.5, prev, pos)
		}
		prev = pos
	}
}

// drawRises marks each rise with start and end lines and its peak rate.
func (r *scopeRenderer) drawRises(p plot, rises []trend.Rise, points []trend.Point) {
	for _, rise := range rises {
		if rise.StartIndex < 0 || rise.EndIndex >= len(points) {
			continue
		}
		xs, xe := p.xAt(rise.StartTime), p.xAt(rise.EndTime)
		r.line(riseColor, 1, fyne.NewPos(xs, p.y), fyne.NewPos(xs, p.y+p.h))
		r.line(riseColor, 1, fyne.NewPos(xe, p.y), fyne.NewPos(xe, p.y+p.h))
		r.text(FormatRate(rise.Peak), distanceColor, 12, fyne.TextAlignCenter, fyne.NewPos((xs+xe)/2-30, p.y+5))
	}
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

// FormatDistance renders a distance axis label.
func FormatDistance(mm float64) string {
	return fmt.Sprintf("%.0fmm", mm)
}

// FormatRate renders a rate axis label.
func FormatRate(mmPerHour float64) string {
	return fmt.Sprintf("%+.0fmm/h", mmPerHour)
}

// FormatElapsed renders a time axis label.
func FormatElapsed(d time.Duration) string {
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	case d >= time.Minute:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	return fmt.Sprintf("%.0fs", d.Seconds())
}
