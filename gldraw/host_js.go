//go:build js && wasm

package gldraw

import (
	"syscall/js"
	"time"
)

// rafHost paces frames with window.requestAnimationFrame.
type rafHost struct {
	canvas  js.Value
	frames  chan float64
	closed  chan struct{}
	epoch   time.Time
	start   float64
	now     float64
	onFrame js.Func
	onClose js.Func
	onMove  js.Func
	onDown  js.Func
	onUp    js.Func
	x, y    float32
	pressed bool
}

func newRAFHost(canvas js.Value) *rafHost {
	h := &rafHost{
		canvas: canvas,
		frames: make(chan float64, 1),
		closed: make(chan struct{}),
		epoch:  time.Now(),
	}
	h.start = js.Global().Get("performance").Call("now").Float()
	h.now = h.start
	h.onFrame = js.FuncOf(func(this js.Value, args []js.Value) any {
		select {
		case h.frames <- args[0].Float():
		default:
		}
		return nil
	})
	h.onClose = js.FuncOf(func(this js.Value, args []js.Value) any {
		select {
		case <-h.closed:
		default:
			close(h.closed)
		}
		return nil
	})
	h.onMove = js.FuncOf(func(this js.Value, args []js.Value) any {
		ev := args[0]
		rect := canvas.Call("getBoundingClientRect")
		sx := canvas.Get("width").Float() / rect.Get("width").Float()
		sy := canvas.Get("height").Float() / rect.Get("height").Float()
		h.x = float32((ev.Get("clientX").Float() - rect.Get("left").Float()) * sx)
		h.y = float32((ev.Get("clientY").Float() - rect.Get("top").Float()) * sy)
		return nil
	})
	h.onDown = js.FuncOf(func(this js.Value, args []js.Value) any {
		h.pressed = true
		return nil
	})
	h.onUp = js.FuncOf(func(this js.Value, args []js.Value) any {
		h.pressed = false
		return nil
	})
	js.Global().Call("addEventListener", "pagehide", h.onClose)
	canvas.Call("addEventListener", "mousemove", h.onMove)
	canvas.Call("addEventListener", "mousedown", h.onDown)
	js.Global().Call("addEventListener", "mouseup", h.onUp)
	return h
}

// WaitFrame requests an animation frame and blocks until the browser runs it.
func (h *rafHost) WaitFrame() bool {
	js.Global().Call("requestAnimationFrame", h.onFrame)
	select {
	case ts := <-h.frames:
		h.now = ts
		return true
	case <-h.closed:
		return false
	}
}

func (h *rafHost) Now() time.Time {
	return h.epoch.Add(time.Duration((h.now - h.start) * float64(time.Millisecond)))
}

func (h *rafHost) Size() (width, height int) {
	return h.canvas.Get("width").Int(), h.canvas.Get("height").Int()
}

func (h *rafHost) Pointer() (x, y float32, pressed bool) {
	return h.x, h.y, h.pressed
}

func (h *rafHost) release() {
	js.Global().Call("removeEventListener", "pagehide", h.onClose)
	h.canvas.Call("removeEventListener", "mousemove", h.onMove)
	h.canvas.Call("removeEventListener", "mousedown", h.onDown)
	js.Global().Call("removeEventListener", "mouseup", h.onUp)
	h.onFrame.Release()
	h.onClose.Release()
	h.onMove.Release()
	h.onDown.Release()
	h.onUp.Release()
}
