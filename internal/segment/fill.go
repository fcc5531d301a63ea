package segment

import "image"

// FillHoles returns a copy of mask in which background regions fully enclosed
// by foreground are set to Foreground.
//
// Background is flood filled from every border pixel with 4-connectivity,
// the dual of the 8-connected foreground used for region extraction; whatever
// background the fill does not reach is a hole.
func FillHoles(mask *image.Gray) *image.Gray {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	out := cloneGray(mask)
	if w == 0 || h == 0 {
		return out
	}

	reached := make([]bool, w*h)
	stack := make([]image.Point, 0, 2*(w+h))
	push := func(x, y int) {
		if x < 0 || x >= w || y < 0 || y >= h {
			return
		}
		i := y*w + x
		if reached[i] || mask.Pix[y*mask.Stride+x] != 0 {
			return
		}
		reached[i] = true
		stack = append(stack, image.Point{X: x, Y: y})
	}

	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		push(p.X+1, p.Y)
		push(p.X-1, p.Y)
		push(p.X, p.Y+1)
		push(p.X, p.Y-1)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !reached[y*w+x] {
				out.Pix[y*out.Stride+x] = Foreground
			}
		}
	}
	return out
}
