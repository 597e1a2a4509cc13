//go:build js && wasm

// inkblot WASM - client-side CAPTCHA generation.
// Compiled with: GOOS=js GOARCH=wasm go build -o inkblot.wasm ./clients/wasm/
//
// Fonts and captchas live in Go memory behind integer handles. JavaScript
// must free every handle it creates with goFontFree / goCaptchaFree.
package main

import (
	"encoding/base64"
	"fmt"
	"image/color"
	"sync"
	"syscall/js"

	"github.com/pkg/errors"

	"github.com/xob0t/inkblot/pkg/captcha"
	"github.com/xob0t/inkblot/pkg/glyph"
)

// handles maps integer handles to Go values held on behalf of JavaScript.
type handles[T any] struct {
	mu   sync.RWMutex
	next int
	m    map[int]T
}

func newHandles[T any]() *handles[T] {
	return &handles[T]{next: 1, m: make(map[int]T)}
}

func (h *handles[T]) put(v T) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.m[id] = v
	return id
}

func (h *handles[T]) get(id int) (T, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.m[id]
	return v, ok
}

func (h *handles[T]) free(id int) {
	h.mu.Lock()
	delete(h.m, id)
	h.mu.Unlock()
}

var (
	fonts    = newHandles[*glyph.Font]()
	captchas = newHandles[*captcha.Result]()
)

func main() {
	fmt.Println("inkblot WASM loaded")

	// Register JS-callable functions.
	js.Global().Set("goFontNew", js.FuncOf(fontNew))
	js.Global().Set("goFontFree", js.FuncOf(fontFree))
	js.Global().Set("goCaptchaNew", js.FuncOf(captchaNew))
	js.Global().Set("goCaptchaBuffer", js.FuncOf(captchaBuffer))
	js.Global().Set("goCaptchaSolution", js.FuncOf(captchaSolution))
	js.Global().Set("goCaptchaSize", js.FuncOf(captchaSize))
	js.Global().Set("goCaptchaPNG", js.FuncOf(captchaPNG))
	js.Global().Set("goCaptchaFree", js.FuncOf(captchaFree))
	js.Global().Set("goReady", js.ValueOf(true))

	// Block forever (WASM must not exit).
	select {}
}

// jsSource draws randomness from the host's Math.random.
type jsSource struct {
	random js.Value
}

func newJSSource() *jsSource {
	m := js.Global().Get("Math")
	return &jsSource{random: m.Get("random").Call("bind", m)}
}

func (s *jsSource) Range(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	n := lo + int(s.random.Invoke().Float()*float64(hi-lo+1))
	return min(n, hi)
}

func (s *jsSource) Color(lo, hi uint8) color.NRGBA {
	return color.NRGBA{
		R: uint8(s.Range(int(lo), int(hi))),
		G: uint8(s.Range(int(lo), int(hi))),
		B: uint8(s.Range(int(lo), int(hi))),
		A: 0xff,
	}
}

func errValue(err error) js.Value {
	return js.ValueOf("error: " + err.Error())
}

func bytesToJS(b []byte) js.Value {
	arr := js.Global().Get("Uint8Array").New(len(b))
	js.CopyBytesToJS(arr, b)
	return arr
}

// goFontNew(base64Data, scale) - parse a TTF/OTF font, returns a handle.
// An empty string loads the embedded Go Regular.
func fontNew(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf("error: need base64Data[, scale]")
	}
	scale := 0.0
	if len(args) > 1 && args[1].Type() == js.TypeNumber {
		scale = args[1].Float()
	}

	var (
		f   *glyph.Font
		err error
	)
	if b64 := args[0].String(); b64 == "" {
		f, err = glyph.LoadFont("", scale)
	} else {
		data, derr := base64.StdEncoding.DecodeString(b64)
		if derr != nil {
			return js.ValueOf("error: invalid base64: " + derr.Error())
		}
		f, err = glyph.NewFont(data, scale)
	}
	if err != nil {
		return errValue(err)
	}
	return js.ValueOf(fonts.put(f))
}

// goFontFree(handle)
func fontFree(this js.Value, args []js.Value) any {
	if len(args) > 0 {
		fonts.free(args[0].Int())
	}
	return js.Undefined()
}

// goCaptchaNew(font, width, height, chars) - chars is either the challenge
// text or a length for random text (default 6). Returns a handle.
func captchaNew(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return js.ValueOf("error: need font, width, height[, chars]")
	}
	f, ok := fonts.get(args[0].Int())
	if !ok {
		return js.ValueOf("error: unknown font handle")
	}
	w, h := args[1].Int(), args[2].Int()

	src := captcha.WithSource(newJSSource())
	var (
		res *captcha.Result
		err error
	)
	switch {
	case len(args) > 3 && args[3].Type() == js.TypeString:
		res, err = captcha.Generate(f, w, h, args[3].String(), src)
	case len(args) > 3 && args[3].Type() == js.TypeNumber:
		res, err = captcha.New(f, w, h, args[3].Int(), src)
	default:
		res, err = captcha.New(f, w, h, captcha.DefaultLength, src)
	}
	if err != nil {
		return errValue(err)
	}
	return js.ValueOf(captchas.put(res))
}

func lookupCaptcha(args []js.Value) (*captcha.Result, error) {
	if len(args) < 1 {
		return nil, errors.New("need handle")
	}
	res, ok := captchas.get(args[0].Int())
	if !ok {
		return nil, errors.New("unknown captcha handle")
	}
	return res, nil
}

// goCaptchaBuffer(handle) - raw RGBA pixels as a Uint8Array.
func captchaBuffer(this js.Value, args []js.Value) any {
	res, err := lookupCaptcha(args)
	if err != nil {
		return errValue(err)
	}
	return bytesToJS(res.Buffer())
}

// goCaptchaSolution(handle)
func captchaSolution(this js.Value, args []js.Value) any {
	res, err := lookupCaptcha(args)
	if err != nil {
		return errValue(err)
	}
	return js.ValueOf(res.Solution())
}

// goCaptchaSize(handle) - [width, height].
func captchaSize(this js.Value, args []js.Value) any {
	res, err := lookupCaptcha(args)
	if err != nil {
		return errValue(err)
	}
	return js.ValueOf([]any{res.Width(), res.Height()})
}

// goCaptchaPNG(handle, compression) - PNG bytes as a Uint8Array, or
// "error: header" / "error: data" when encoding fails at that stage.
func captchaPNG(this js.Value, args []js.Value) any {
	res, err := lookupCaptcha(args)
	if err != nil {
		return errValue(err)
	}
	c := captcha.CompressionDefault
	if len(args) > 1 && args[1].Type() == js.TypeNumber {
		c = captcha.Compression(args[1].Int())
	}
	data, err := res.PNG(c)
	switch {
	case errors.Is(err, captcha.ErrHeader):
		return js.ValueOf("error: header")
	case err != nil:
		return js.ValueOf("error: data")
	}
	return bytesToJS(data)
}

// goCaptchaFree(handle)
func captchaFree(this js.Value, args []js.Value) any {
	if len(args) > 0 {
		captchas.free(args[0].Int())
	}
	return js.Undefined()
}
