//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/inamate/pixelkit/internal/document"
	"github.com/inamate/pixelkit/internal/engine"
	"github.com/inamate/pixelkit/internal/geom"
	"github.com/inamate/pixelkit/internal/pixel"
	"github.com/inamate/pixelkit/internal/raster"
)

var eng *engine.Engine

func main() {
	eng = engine.NewEngine(engine.DefaultOptions())

	pixelkitEngine := js.Global().Get("Object").New()

	// --- Generic command surface ---
	pixelkitEngine.Set("apply", js.FuncOf(apply))

	// --- Document ---
	pixelkitEngine.Set("loadDocument", js.FuncOf(loadDocument))
	pixelkitEngine.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	pixelkitEngine.Set("getDocument", js.FuncOf(getDocument))
	pixelkitEngine.Set("onSnapshot", js.FuncOf(onSnapshot))

	// --- Pointer hot path (no JSON round trip) ---
	pixelkitEngine.Set("pointerDown", js.FuncOf(pointerDown))
	pixelkitEngine.Set("pointerMove", js.FuncOf(pointerMove))
	pixelkitEngine.Set("pointerUp", js.FuncOf(pointerUp))

	// --- Frame loop ---
	pixelkitEngine.Set("tick", js.FuncOf(tick))
	pixelkitEngine.Set("render", js.FuncOf(render))
	pixelkitEngine.Set("overlay", js.FuncOf(overlay))
	pixelkitEngine.Set("getPixelsVersion", js.FuncOf(getPixelsVersion))

	js.Global().Set("pixelkitEngine", pixelkitEngine)

	// Signal that WASM is ready
	js.Global().Set("pixelkitWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func result(err error) interface{} {
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func errorValue(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": msg})
}

// apply takes a command JSON string and returns the response JSON string.
func apply(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		return js.ValueOf(`{"ok":false,"error":"missing command JSON"}`)
	}
	return js.ValueOf(string(eng.ApplyJSON([]byte(args[0].String()))))
}

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorValue("missing document JSON")
	}
	return result(eng.LoadDocument([]byte(args[0].String())))
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	projectID := "proj_sample"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		projectID = args[0].String()
	}

	eng.LoadSampleDocument(projectID)
	return result(nil)
}

func getDocument(this js.Value, args []js.Value) interface{} {
	data, err := eng.DocumentJSON()
	if err != nil {
		return js.Null()
	}
	return js.ValueOf(string(data))
}

// onSnapshot registers a callback receiving each snapshot's id and label.
func onSnapshot(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		eng.OnSnapshot(nil)
		return nil
	}
	cb := args[0]
	eng.OnSnapshot(func(s document.Snapshot) {
		cb.Invoke(s.ID, s.Label)
	})
	return nil
}

func modifiers(args []js.Value, from int) engine.Modifiers {
	var m engine.Modifiers
	if len(args) > from {
		m.Shift = args[from].Truthy()
	}
	if len(args) > from+1 {
		m.Alt = args[from+1].Truthy()
	}
	return m
}

// pointerDown(x, y, zoom, shift, alt) returns {target, id} as JSON.
func pointerDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorValue("pointerDown needs x, y and zoom")
	}
	hit, err := eng.PointerDown(geom.Pt(args[0].Float(), args[1].Float()), args[2].Float(), modifiers(args, 3))
	if err != nil {
		return errorValue(err.Error())
	}
	data, _ := json.Marshal(hit)
	return js.ValueOf(string(data))
}

// pointerMove(x, y, shift, alt) reports whether the preview changed.
func pointerMove(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	moved, err := eng.PointerMove(geom.Pt(args[0].Float(), args[1].Float()), modifiers(args, 2))
	return js.ValueOf(err == nil && moved)
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	return result(eng.PointerUp())
}

func tick(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Tick())
}

// render returns the frame at the playhead as RGBA bytes for ImageData.
func render(this js.Value, args []js.Value) interface{} {
	buf, err := eng.Render()
	if err != nil {
		return js.Null()
	}
	return rgba(buf)
}

func rgba(buf *pixel.Buffer) js.Value {
	img := raster.ToImage(buf)
	out := js.Global().Get("Uint8ClampedArray").New(len(img.Pix))
	js.CopyBytesToJS(out, img.Pix)
	return out
}

func overlay(this js.Value, args []js.Value) interface{} {
	zoom := 1.0
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		zoom = args[0].Float()
	}
	data, err := json.Marshal(eng.Overlay(zoom))
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(string(data))
}

func getPixelsVersion(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.PixelsVersion())
}
