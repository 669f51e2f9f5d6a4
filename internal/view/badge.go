package view

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	badgeWidth      = 240
	badgeHeight     = 96
	badgeBandHeight = 24
	badgePadding    = 8
)

var (
	badgeBackground = color.RGBA{R: 0xfa, G: 0xfa, B: 0xf7, A: 0xff}
	badgeInk        = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
	badgeBandInk    = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	badgeFallback   = color.RGBA{R: 0x6b, G: 0x72, B: 0x80, A: 0xff}

	categoryColors = map[string]color.RGBA{
		"streak":      {R: 0xea, G: 0x58, B: 0x0c, A: 0xff},
		"learning":    {R: 0x25, G: 0x63, B: 0xeb, A: 0xff},
		"social":      {R: 0x16, G: 0xa3, B: 0x4a, A: 0xff},
		"exploration": {R: 0x93, G: 0x33, B: 0xea, A: 0xff},
	}
)

// CategoryColor 返回成就分类对应的主色，未知分类为灰色。
func CategoryColor(category string) color.RGBA {
	if c, ok := categoryColors[strings.ToLower(strings.TrimSpace(category))]; ok {
		return c
	}
	return badgeFallback
}

// RenderBadge 绘制一枚成就徽章 PNG：顶部为分类色带，正文为成就标题。
func RenderBadge(title, category string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, badgeWidth, badgeHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(badgeBackground), image.Point{}, draw.Src)

	band := image.Rect(0, 0, badgeWidth, badgeBandHeight)
	draw.Draw(img, band, image.NewUniform(CategoryColor(category)), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	drawText(img, face, badgeBandInk, strings.ToUpper(strings.TrimSpace(category)), badgePadding, 17)

	lines := wrapText(strings.TrimSpace(title), maxBadgeColumns(face), 3)
	for i, line := range lines {
		drawText(img, face, badgeInk, line, badgePadding, badgeBandHeight+22+i*16)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode badge: %w", err)
	}
	return buf.Bytes(), nil
}

func maxBadgeColumns(face *basicfont.Face) int {
	return (badgeWidth - 2*badgePadding) / face.Advance
}

func drawText(dst draw.Image, face font.Face, ink color.Color, text string, x, y int) {
	if text == "" {
		return
	}
	drawer := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(ink),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}

// wrapText 按单词折行，超过 maxLines 的部分以 "..." 截断
func wrapText(text string, columns, maxLines int) []string {
	if text == "" || columns <= 0 || maxLines <= 0 {
		return nil
	}

	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		for len([]rune(word)) > columns {
			if current != "" {
				lines = append(lines, current)
				current = ""
			}
			runes := []rune(word)
			lines = append(lines, string(runes[:columns]))
			word = string(runes[columns:])
		}
		switch {
		case current == "":
			current = word
		case len([]rune(current))+1+len([]rune(word)) <= columns:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}

	if len(lines) > maxLines {
		lines = lines[:maxLines]
		last := []rune(lines[maxLines-1])
		if len(last) > columns-3 {
			last = last[:columns-3]
		}
		lines[maxLines-1] = string(last) + "..."
	}
	return lines
}
