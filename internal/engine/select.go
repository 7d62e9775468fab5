package engine

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/inamate/pixelkit/internal/fill"
	"github.com/inamate/pixelkit/internal/region"
	"github.com/inamate/pixelkit/internal/smartselect"
)

// SetSelection replaces the selection.
func (e *Engine) SetSelection(sel region.Selection) error {
	doc, err := e.idle()
	if err != nil {
		return err
	}
	e.wand = nil
	doc.SetSelection(sel)
	return nil
}

// ClearSelection deselects everything.
func (e *Engine) ClearSelection() error {
	return e.SetSelection(region.Selection{})
}

// Selection returns the current selection.
func (e *Engine) Selection() (region.Selection, error) {
	if e.doc == nil {
		return region.Selection{}, ErrNoDocument
	}
	return e.doc.Selection(), nil
}

func (e *Engine) smartOptions(o smartselect.Options) smartselect.Options {
	if o.Mode == "" {
		o.Mode = smartselect.ModeNormal
	}
	return o
}

// existingMask is the current selection as a pixel set, clipped to the canvas.
func (e *Engine) existingMask() region.PixelSet {
	sel := e.doc.Selection()
	if sel.Empty() {
		return nil
	}
	w, h := e.doc.Size()
	return sel.PixelSet(image.Rect(0, 0, w, h))
}

func (e *Engine) applyMask(mask region.PixelSet) region.Selection {
	sel := region.Selection{}
	if len(mask) > 0 {
		sel = region.FromMask(mask)
	}
	e.doc.SetSelection(sel)
	return sel
}

// SmartSelect selects the region of the active layer similar in color to the seed
// pixel and folds it into the selection according to the mode.
func (e *Engine) SmartSelect(seed image.Point, opts smartselect.Options) (region.Selection, error) {
	buf, err := e.activeBuffer()
	if err != nil {
		return region.Selection{}, err
	}
	e.wand = nil
	mask := smartselect.Select(buf, seed, e.existingMask(), e.smartOptions(opts))
	return e.applyMask(mask), nil
}

// BeginSmartSelect starts a smart-select drag at seed.
func (e *Engine) BeginSmartSelect(seed image.Point, opts smartselect.Options) (region.Selection, error) {
	buf, err := e.activeBuffer()
	if err != nil {
		return region.Selection{}, err
	}
	e.wand = smartselect.Begin(buf, seed, e.existingMask(), e.smartOptions(opts), e.opts.DragSampleLimit)
	return e.applyMask(e.wand.Mask()), nil
}

// MoveSmartSelect extends the smart-select drag to p.
func (e *Engine) MoveSmartSelect(p image.Point) (region.Selection, error) {
	buf, err := e.activeBuffer()
	if err != nil {
		return region.Selection{}, err
	}
	if e.wand == nil {
		return region.Selection{}, fmt.Errorf("smart select: %w: no drag in progress", ErrRejected)
	}
	return e.applyMask(e.wand.Move(buf, p)), nil
}

// EndSmartSelect finishes the smart-select drag.
func (e *Engine) EndSmartSelect() {
	e.wand = nil
}

// ContentAwareFill fills the selected pixels of the active layer from their
// surroundings and returns how many pixels were filled.
func (e *Engine) ContentAwareFill(opts *fill.Options) (int, error) {
	buf, err := e.activeBuffer()
	if err != nil {
		return 0, err
	}
	sel := e.doc.Selection()
	if sel.Empty() {
		return 0, ErrNoSelection
	}
	o := e.opts.Fill
	if opts != nil {
		o = *opts
	}

	n := fill.Selection(buf, sel, o)
	slog.Debug("content-aware fill", "filled", n)
	if n > 0 {
		e.doc.Touch()
		e.doc.SaveSnapshot("Content-Aware Fill")
	}
	return n, nil
}
