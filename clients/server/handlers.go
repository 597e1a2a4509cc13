package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/xob0t/inkblot/pkg/captcha"
	"github.com/xob0t/inkblot/pkg/generator"
	"github.com/xob0t/inkblot/pkg/glyph"
	"github.com/xob0t/inkblot/pkg/preset"
)

// Request limits.
const (
	maxDimension  = 2000
	maxLength     = 64
	maxStrokes    = 16
	maxStrokeW    = 20
	maxBodySize   = 1 << 20
	maxUploadSize = 10 << 20
)

var errBadRequest = errors.New("bad request")

// ── Captcha ──

// captchaRequest is the optional JSON body of POST /api/captcha. Query
// parameters with the same meaning take precedence.
type captchaRequest struct {
	Preset json.RawMessage `json:"preset"`
	Font   string          `json:"font"`
	Text   string          `json:"text"`
	Seed   *uint64         `json:"seed"`
	Format string          `json:"format"`
}

func (s *srv) handleCaptcha(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCaptchaRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var over preset.Preset
	if len(req.Preset) > 0 && string(req.Preset) != "null" {
		if err := json.Unmarshal(req.Preset, &over); err != nil {
			http.Error(w, "parse preset: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if err := applyQuery(&over, &req, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Text != "" {
		over.Challenge.Text = req.Text
	}
	p := preset.Merge(s.cfg.Preset, &over)
	if err := checkLimits(p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	font := s.cfg.Font
	if req.Font != "" {
		uf, ok := s.fonts.get(req.Font)
		if !ok {
			http.Error(w, "unknown font "+req.Font, http.StatusNotFound)
			return
		}
		font = uf.font
	}

	comp, err := p.Compression()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ext := ".png"
	if strings.EqualFold(req.Format, "bmp") {
		ext = ".bmp"
	}

	opts := p.Options()
	if req.Seed != nil {
		opts = append(opts, captcha.WithSource(captcha.NewSource(*req.Seed)))
	}
	var res *captcha.Result
	if p.Challenge.Text != "" {
		res, err = captcha.Generate(font, p.Canvas.Width, p.Canvas.Height, p.Challenge.Text, opts...)
	} else {
		res, err = captcha.New(font, p.Canvas.Width, p.Canvas.Height, p.Challenge.Length, opts...)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := generator.GenerateToWriter(&buf, ext, res, generator.Config{Compression: comp, Scale: p.Output.Scale}); err != nil {
		s.log.Error("encode captcha", "err", err)
		http.Error(w, "encode: "+err.Error(), http.StatusInternalServerError)
		return
	}

	c := challenge{solution: res.Solution(), image: buf.Bytes(), contentType: generator.ContentType(ext)}
	id := s.captchas.add(c)
	s.log.Debug("captcha issued", "id", id, "width", res.Width(), "height", res.Height())

	w.Header().Set("X-Captcha-Id", id)
	writeImage(w, c)
}

func decodeCaptchaRequest(r *http.Request) (captchaRequest, error) {
	var req captchaRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return req, errors.Wrap(err, "read body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, errors.Wrap(err, "decode request")
	}
	return req, nil
}

// applyQuery copies recognised query parameters onto the override preset
// and request.
func applyQuery(over *preset.Preset, req *captchaRequest, q url.Values) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"w", &over.Canvas.Width},
		{"h", &over.Canvas.Height},
		{"n", &over.Challenge.Length},
		{"scale", &over.Output.Scale},
	}
	for _, p := range ints {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return errors.Wrapf(errBadRequest, "%s must be a positive integer", p.key)
		}
		*p.dst = n
	}
	if v := q.Get("preset"); v != "" {
		over.Canvas.Preset = v
	}
	if v := q.Get("compression"); v != "" {
		over.Output.Compression = v
	}
	if v := q.Get("charset"); v != "" {
		over.Challenge.Charset = v
	}
	if v := q.Get("text"); v != "" {
		req.Text = v
	}
	if v := q.Get("font"); v != "" {
		req.Font = v
	}
	if v := q.Get("format"); v != "" {
		req.Format = v
	}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return errors.Wrap(errBadRequest, "seed must be an unsigned integer")
		}
		req.Seed = &seed
	}
	return nil
}

func checkLimits(p *preset.Preset) error {
	if p.Canvas.Width > maxDimension || p.Canvas.Height > maxDimension {
		return errors.Wrapf(errBadRequest, "canvas is limited to %dx%d", maxDimension, maxDimension)
	}
	if p.Challenge.Length > maxLength || len([]rune(p.Challenge.Text)) > maxLength {
		return errors.Wrapf(errBadRequest, "challenge is limited to %d characters", maxLength)
	}
	if p.Output.Scale > preset.MaxScale {
		return errors.Wrapf(errBadRequest, "scale is limited to %d", preset.MaxScale)
	}
	for _, r := range []*captcha.Range{p.Strokes.Lines, p.Strokes.Curves} {
		if r != nil && max(r.Min, r.Max) > maxStrokes {
			return errors.Wrapf(errBadRequest, "strokes are limited to %d lines and %d curves", maxStrokes, maxStrokes)
		}
	}
	if p.Strokes.Width > maxStrokeW {
		return errors.Wrapf(errBadRequest, "stroke width is limited to %d", maxStrokeW)
	}
	return nil
}

func (s *srv) handleGetCaptcha(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	id := strings.TrimSuffix(file, filepath.Ext(file))
	c, ok := s.captchas.get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeImage(w, c)
}

func writeImage(w http.ResponseWriter, c challenge) {
	w.Header().Set("Content-Type", c.contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(c.image)
}

// ── Verify ──

type verifyRequest struct {
	ID     string `json:"id"`
	Answer string `json:"answer"`
}

// handleVerify checks an answer. A captcha can be checked once: it is
// consumed whether or not the answer matches.
func (s *srv) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		http.Error(w, "decode request: "+err.Error(), http.StatusBadRequest)
		return
	}
	c, found := s.captchas.take(req.ID)
	ok := found && s.matches(c.solution, req.Answer)
	s.log.Debug("captcha verified", "id", req.ID, "found", found, "ok", ok)
	writeJSON(w, map[string]bool{"ok": ok})
}

func (s *srv) matches(solution, answer string) bool {
	answer = strings.TrimSpace(answer)
	if s.cfg.IgnoreCase {
		return strings.EqualFold(solution, answer)
	}
	return solution == answer
}

// ── Fonts ──

type fontInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int    `json:"size"`
}

func (s *srv) handleUploadFont(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "parse upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "no file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "read upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	scale, _ := strconv.ParseFloat(r.FormValue("scale"), 64)
	f, err := glyph.NewFont(data, scale)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := s.fonts.add(uploadedFont{name: header.Filename, size: len(data), font: f})
	s.log.Info("font uploaded", "id", id, "name", header.Filename, "size", len(data))
	writeJSON(w, fontInfo{ID: id, Name: header.Filename, Size: len(data)})
}

func (s *srv) handleListFonts(w http.ResponseWriter, r *http.Request) {
	list := make([]fontInfo, 0, s.fonts.len())
	s.fonts.each(func(id string, f uploadedFont) {
		list = append(list, fontInfo{ID: id, Name: f.name, Size: f.size})
	})
	slices.SortFunc(list, func(a, b fontInfo) int { return strings.Compare(a.Name, b.Name) })
	writeJSON(w, list)
}

func (s *srv) handleDeleteFont(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.fonts.remove(id) {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]string{"status": "deleted", "id": id})
}

// ── Helpers ──

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func fileExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
