// Package graphics renders a still image of a solved scene: one outlined
// box per drawn data structure or panel, labelled with its identifier.
// It lets a layout be checked without the downstream animation renderer.
package graphics

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"sort"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/zurustar/valgo/pkg/layout"
	"github.com/zurustar/valgo/pkg/opcode"
)

// DefaultScale はシーン座標 1 単位あたりのピクセル数
const DefaultScale = 80

var (
	backgroundColor = color.RGBA{0x1E, 0x1E, 0x1E, 0xFF}
	panelColor      = color.RGBA{0x88, 0x88, 0x88, 0xFF}
	labelColor      = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
)

// Box は画像に描く 1 つの矩形
type Box struct {
	UID      string
	Position layout.Position
	Border   color.Color
}

// BoxesFromOpCodes は命令ログから境界を持つ命令を集め、UID ごとに 1 つの
// Box を返す。枠の色は構造を描く命令の borderColor 引数から取る。
// 結果は UID の順に並ぶ。
func BoxesFromOpCodes(ops []opcode.OpCode) []Box {
	byUID := make(map[string]*Box)
	for _, op := range ops {
		if op.UID == "" || op.Boundary == nil {
			continue
		}
		b, ok := byUID[op.UID]
		if !ok {
			b = &Box{UID: op.UID, Border: panelColor}
			byUID[op.UID] = b
		}
		b.Position = op.Boundary.Position
		if c, ok := borderArg(op); ok {
			b.Border = ParseColor(c, panelColor)
		}
	}

	uids := make([]string, 0, len(byUID))
	for uid := range byUID {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	out := make([]Box, len(uids))
	for i, uid := range uids {
		out[i] = *byUID[uid]
	}
	return out
}

// borderArg は構造を描く命令の borderColor 引数を返す
func borderArg(op opcode.OpCode) (string, bool) {
	idx := -1
	switch op.Cmd {
	case opcode.InitStack:
		idx = 2
	case opcode.InitArray, opcode.Init2DArray:
		idx = 3
	case opcode.InitTree:
		idx = 4
	}
	if idx < 0 || idx >= len(op.Args) {
		return "", false
	}
	s, ok := op.Args[idx].(string)
	return s, ok
}

// Render はシーン全体を scale ピクセル/単位で描画する
func Render(boxes []Box, scale int) *image.RGBA {
	if scale <= 0 {
		scale = DefaultScale
	}
	scene := layout.FullScene()
	width := int(scene.Width * float64(scale))
	height := int(scene.Height * float64(scale))

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)

	for _, b := range boxes {
		r := toPixels(b.Position, scene, scale)
		strokeRect(img, r, b.Border)
		drawLabel(img, b.UID, r.Min.X+4, r.Min.Y+13+2)
	}
	return img
}

// toPixels はシーン座標 (左下原点・上向き y) を画像座標に変換する
func toPixels(p layout.Position, scene *layout.Shape, scale int) image.Rectangle {
	s := float64(scale)
	x0 := int((p.X - scene.X) * s)
	x1 := int((p.X + p.Width - scene.X) * s)
	y0 := int((scene.Y + scene.Height - (p.Y + p.Height)) * s)
	y1 := int((scene.Y + scene.Height - p.Y) * s)
	return image.Rect(x0, y0, x1, y1)
}

func strokeRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	const w = 2
	u := &image.Uniform{c}
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w),
		image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y),
		image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(img.Bounds()), u, image.Point{}, draw.Src)
	}
}

// drawLabel は basicfont (7x13) でラベルを描画する。y はベースライン。
func drawLabel(img *image.RGBA, label string, x, y int) {
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	drawer.DrawString(label)
}

// WritePNG は命令ログの境界を PNG として w に書き出す
func WritePNG(w io.Writer, ops []opcode.OpCode, scale int) error {
	img := Render(BoxesFromOpCodes(ops), scale)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

// SavePNG は WritePNG の結果を path に保存する
func SavePNG(path string, ops []opcode.OpCode, scale int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := WritePNG(f, ops, scale); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
