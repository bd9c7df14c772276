package plotting

import (
	"image"
	_ "image/png" // PNG decoder for Compose
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	_ "gonum.org/v1/plot/vg/vgsvg" // registers the svg output format

	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

var tilePad = vg.Points(12)

// drawGrid lays plots out row-major on c. Nil cells are left empty.
func drawGrid(c draw.Canvas, grid [][]*plot.Plot) {
	rows := len(grid)
	cols := 0
	for _, row := range grid {
		cols = max(cols, len(row))
	}
	tiles := draw.Tiles{
		Rows: rows, Cols: cols,
		PadTop: tilePad, PadBottom: tilePad, PadLeft: tilePad, PadRight: tilePad,
		PadX: tilePad, PadY: tilePad,
	}
	for y, row := range grid {
		for x, p := range row {
			if p != nil {
				p.Draw(tiles.At(c, x, y))
			}
		}
	}
}

// drawAligned is drawGrid for complete grids, with aligned data areas.
func drawAligned(c draw.Canvas, grid [][]*plot.Plot) {
	tiles := draw.Tiles{
		Rows: len(grid), Cols: len(grid[0]),
		PadTop: tilePad, PadBottom: tilePad, PadLeft: tilePad, PadRight: tilePad,
		PadX: tilePad, PadY: tilePad,
	}
	canvases := plot.Align(grid, tiles, c)
	for y, row := range grid {
		for x, p := range row {
			p.Draw(canvases[y][x])
		}
	}
}

// Rows splits plots into rows of perRow cells.
func Rows(plots []*plot.Plot, perRow int) [][]*plot.Plot {
	var grid [][]*plot.Plot
	for i := 0; i < len(plots); i += perRow {
		row := make([]*plot.Plot, perRow)
		copy(row, plots[i:min(i+perRow, len(plots))])
		grid = append(grid, row)
	}
	return grid
}

func writePNG(path string, w, h vg.Length, paint func(draw.Canvas)) error {
	return errors.SafeExecute("render "+filepath.Base(path), func() error {
		img := vgimg.New(w, h)
		paint(draw.New(img))
		return writeTo(path, vgimg.PngCanvas{Canvas: img})
	})
}

func writeTo(path string, wt io.WriterTo) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = wt.WriteTo(f)
	return err
}

// SavePNG renders a single plot to a PNG file.
func SavePNG(path string, w, h vg.Length, p *plot.Plot) error {
	return writePNG(path, w, h, func(c draw.Canvas) { p.Draw(c) })
}

// SaveGridPNG renders a grid of plots to a PNG file. Complete grids get
// aligned data areas.
func SaveGridPNG(path string, w, h vg.Length, grid [][]*plot.Plot) error {
	complete := len(grid) > 0
	for _, row := range grid {
		for _, p := range row {
			if p == nil {
				complete = false
			}
		}
	}
	return writePNG(path, w, h, func(c draw.Canvas) {
		if complete {
			drawAligned(c, grid)
		} else {
			drawGrid(c, grid)
		}
	})
}

// Panel is a titled image file placed in a composite figure.
type Panel struct {
	Title string
	Path  string
}

func imagePlot(panel Panel) (*plot.Plot, error) {
	f, err := os.Open(panel.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", panel.Path)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", panel.Path)
	}
	b := img.Bounds()
	p := plot.New()
	p.Title.Text = panel.Title
	p.HideAxes()
	p.Add(plotter.NewImage(img, 0, 0, float64(b.Dx()), float64(b.Dy())))
	return p, nil
}

// Compose re-reads image files and stacks them vertically into one figure.
// The output format follows the file extension (png, jpg, svg, pdf, ...).
func Compose(path string, w, h vg.Length, panels []Panel) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		return errors.NewValidationError("output", "composite figure needs a file extension", path)
	}
	grid := make([][]*plot.Plot, len(panels))
	for i, panel := range panels {
		p, err := imagePlot(panel)
		if err != nil {
			return err
		}
		grid[i] = []*plot.Plot{p}
	}
	return errors.SafeExecute("compose "+filepath.Base(path), func() error {
		c, err := draw.NewFormattedCanvas(w, h, format)
		if err != nil {
			return errors.NewValidationError("output", err.Error(), path)
		}
		drawGrid(draw.New(c), grid)
		return writeTo(path, c)
	})
}

// Document is a multi-page PDF with one page per Add call.
type Document struct {
	canvas *vgpdf.Canvas
	pages  int
}

// NewDocument creates an empty PDF document with pages of the given size.
func NewDocument(w, h vg.Length) *Document {
	return &Document{canvas: vgpdf.New(w, h)}
}

// Pages returns the number of pages added so far.
func (d *Document) Pages() int { return d.pages }

// AddGrid draws grid on a fresh page.
func (d *Document) AddGrid(name string, grid [][]*plot.Plot) error {
	return errors.SafeExecute("page "+name, func() error {
		if d.pages > 0 {
			d.canvas.NextPage()
		}
		drawGrid(draw.New(d.canvas), grid)
		d.pages++
		return nil
	})
}

// Add draws a single plot on a fresh page.
func (d *Document) Add(name string, p *plot.Plot) error {
	return d.AddGrid(name, [][]*plot.Plot{{p}})
}

// Save writes the document to path.
func (d *Document) Save(path string) error {
	if d.pages == 0 {
		return errors.NewValueError("Document.Save", "document has no pages")
	}
	return writeTo(path, d.canvas)
}
