package curator

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"
)

const halfBlock = "▀"

var panelStyle = lipgloss.NewStyle().
	Background(lipgloss.Color("#f0f0f0")).
	Foreground(lipgloss.Color("#000000")).
	Bold(true).
	Padding(0, 1)

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
)

// Fit returns the cell grid an image of bounds b occupies when drawn rows
// terminal rows high, narrowed to maxCols when that is positive. Each cell
// holds two vertically stacked pixels.
func Fit(b image.Rectangle, rows, maxCols int) (cols, height int) {
	if b.Dx() <= 0 || b.Dy() <= 0 || rows <= 0 {
		return 0, 0
	}
	height = rows
	cols = max(b.Dx()*rows*2/b.Dy(), 1)
	if maxCols > 0 && cols > maxCols {
		height = max(rows*maxCols/cols, 1)
		cols = maxCols
	}
	return cols, height
}

// RenderImage draws img as half-block cells, rows terminal rows high.
func RenderImage(img image.Image, rows, maxCols int) (string, error) {
	if img == nil {
		return "", fmt.Errorf("no image to render")
	}
	cols, height := Fit(img.Bounds(), rows, maxCols)
	if cols == 0 {
		return "", fmt.Errorf("image has empty bounds %v", img.Bounds())
	}

	dst := image.NewRGBA(image.Rect(0, 0, cols, height*2))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var b strings.Builder
	for y := 0; y < height; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < cols; x++ {
			b.WriteString(lipgloss.NewStyle().
				Foreground(hex(dst.At(x, 2*y))).
				Background(hex(dst.At(x, 2*y+1))).
				Render(halfBlock))
		}
	}
	return b.String(), nil
}

func hex(c color.Color) lipgloss.Color {
	r, g, b, _ := c.RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
}

// RenderPanel draws the info lines on a light panel at least width cells wide.
func RenderPanel(lines []string, width int) string {
	style := panelStyle
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(strings.Join(lines, "\n"))
}
