package display

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// OLED is an SSD1306 panel.
type OLED struct {
	dev *ssd1306.Dev
}

var _ Display = (*OLED)(nil)

// NewOLED opens a 128x64 SSD1306 at addr.
func NewOLED(bus i2c.Bus, addr uint16) (*OLED, error) {
	opts := ssd1306.DefaultOpts
	opts.Addr = addr
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open display: %w", err)
	}
	return &OLED{dev: dev}, nil
}

// Show renders the lines and pushes the frame.
func (o *OLED) Show(lines []string) error {
	img := Render(lines, o.dev.Bounds())
	return o.dev.Draw(img.Bounds(), img, image.Point{})
}

// Halt blanks the panel.
func (o *OLED) Halt() error {
	return o.dev.Halt()
}

// Render draws lines top to bottom into a monochrome frame.
func Render(lines []string, bounds image.Rectangle) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(bounds)
	face := basicfont.Face7x13
	d := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: image1bit.On},
		Face: face,
	}
	for i, l := range lines {
		d.Dot = fixed.P(0, (i+1)*face.Height)
		d.DrawString(l)
	}
	return img
}
