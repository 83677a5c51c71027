package canvas

import (
	"github.com/MeKo-Tech/stroke/internal/paint"
	"github.com/MeKo-Tech/stroke/internal/protocol"
)

// DrawDabsClassic strokes a run of GIMP-style soft-brush dabs onto layer. A
// color with nonzero alpha means indirect mode: the dabs land on the user's
// per-stroke sublayer (created on first use) under the message's opacity and
// blend mode, composited onto the real layer only on pen-up; a color with
// zero alpha draws straight onto the layer under the message's blend mode.
func DrawDabsClassic(layer *paint.Layer, user paint.UserID, dabs *protocol.DrawDabsClassicMessage, cache *paint.ClassicBrushCache) paint.AoE {
	mode := paint.BlendmodeFromByte(dabs.Mode)
	color := paint.ColorFromARGB32(dabs.Color)

	if color.A > 0 {
		sublayer := layer.GetOrCreateSublayer(paint.LayerID(user))
		sublayer.Opacity = color.A
		sublayer.Blendmode = mode
		color.A = 1.0
		return drawDabsClassicOnto(sublayer, user, color, paint.BlendNormal, dabs, cache)
	}
	color.A = 1.0
	return drawDabsClassicOnto(layer, user, color, mode, dabs, cache)
}

func drawDabsClassicOnto(layer *paint.Layer, user paint.UserID, color paint.Color, mode paint.Blendmode, dabs *protocol.DrawDabsClassicMessage, cache *paint.ClassicBrushCache) paint.AoE {
	aoe := paint.NothingAoE
	lastX, lastY := dabs.X, dabs.Y
	for _, dab := range dabs.Dabs {
		x := lastX + int32(dab.X)
		y := lastY + int32(dab.Y)

		mx, my, mask := paint.NewGimpStyleMask(
			float32(x)/4.0,
			float32(y)/4.0,
			float32(dab.Size)/256.0,
			float32(dab.Hardness)/255.0,
			float32(dab.Opacity)/255.0,
			cache,
		)
		aoe = aoe.Union(paint.DrawBrushDab(layer, user, mx, my, mask, color, mode))

		lastX, lastY = x, y
	}
	return aoe
}

// DrawDabsPixel strokes a run of hard-edged round dabs. Unlike classic dabs
// there is no indirect-sublayer mode: pixel dabs always draw straight onto
// layer under the message's blend mode.
func DrawDabsPixel(layer *paint.Layer, user paint.UserID, dabs *protocol.DrawDabsPixelMessage) paint.AoE {
	return drawDabsPixelOnto(layer, user, dabs.X, dabs.Y, dabs.Color, dabs.Mode, dabs.Dabs, paint.NewRoundPixelMask)
}

// DrawDabsPixelSquare strokes a run of hard-edged square dabs. Same dispatch
// as DrawDabsPixel; only the mask shape differs.
func DrawDabsPixelSquare(layer *paint.Layer, user paint.UserID, dabs *protocol.DrawDabsPixelSquareMessage) paint.AoE {
	return drawDabsPixelOnto(layer, user, dabs.X, dabs.Y, dabs.Color, dabs.Mode, dabs.Dabs, paint.NewSquarePixelMask)
}

func drawDabsPixelOnto(layer *paint.Layer, user paint.UserID, startX, startY int32, colorARGB uint32, modeByte uint8, dabs []protocol.PixelDab, newMask func(diameter uint32, opacity float32) paint.BrushMask) paint.AoE {
	mode := paint.BlendmodeFromByte(modeByte)
	color := paint.ColorFromARGB32(colorARGB)
	color.A = 1.0

	aoe := paint.NothingAoE
	lastX, lastY := startX, startY
	for _, dab := range dabs {
		x := lastX + int32(dab.X)
		y := lastY + int32(dab.Y)

		opacity := float32(dab.Opacity) / 255.0
		diameter := uint32(dab.Size)
		mask := newMask(diameter, opacity)
		radius := int32(diameter / 2)
		aoe = aoe.Union(paint.DrawBrushDab(layer, user, x-radius, y-radius, mask, color, mode))

		lastX, lastY = x, y
	}
	return aoe
}
