package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gomono"
)

func newTestServer(t *testing.T, cfg Config) (*srv, *httptest.Server) {
	t.Helper()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := newServer(cfg)
	require.NoError(t, err)
	h, err := s.routes()
	require.NoError(t, err)
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return s, ts
}

func post(t *testing.T, url, contentType string, body io.Reader) *http.Response {
	t.Helper()
	res, err := http.Post(url, contentType, body)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func verify(t *testing.T, base, id, answer string) bool {
	t.Helper()
	body, _ := json.Marshal(verifyRequest{ID: id, Answer: answer})
	res := post(t, base+"/api/verify", "application/json", bytes.NewReader(body))
	require.Equal(t, http.StatusOK, res.StatusCode)
	var out struct{ OK bool }
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out.OK
}

func TestCaptchaRoundTrip(t *testing.T) {
	s, ts := newTestServer(t, Config{})

	res := post(t, ts.URL+"/api/captcha?w=120&h=40&text=Ab3", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))
	id := res.Header.Get("X-Captcha-Id")
	require.NotEmpty(t, id)

	img, err := png.Decode(res.Body)
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())

	again, err := http.Get(ts.URL + "/api/captcha/" + id + ".png")
	require.NoError(t, err)
	defer again.Body.Close()
	assert.Equal(t, http.StatusOK, again.StatusCode)

	assert.False(t, verify(t, ts.URL, id, "ab3"), "case-sensitive by default")
	assert.False(t, verify(t, ts.URL, id, "Ab3"), "one attempt per captcha")
	assert.Zero(t, s.captchas.len())
}

func TestVerifyCorrectAnswer(t *testing.T) {
	_, ts := newTestServer(t, Config{IgnoreCase: true})
	body := `{"text": "XyZ", "seed": 7, "preset": {"noise": {"mean": 0, "stddev": 0}}}`
	res := post(t, ts.URL+"/api/captcha", "application/json", strings.NewReader(body))
	require.Equal(t, http.StatusOK, res.StatusCode)
	id := res.Header.Get("X-Captcha-Id")

	assert.True(t, verify(t, ts.URL, id, " xyz "))
	assert.False(t, verify(t, ts.URL, "missing", "xyz"))
}

func TestCaptchaBMPAndScale(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	res := post(t, ts.URL+"/api/captcha?format=bmp&scale=2&preset=small", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/bmp", res.Header.Get("Content-Type"))
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "BM", string(raw[:2]))
}

func TestCaptchaBadRequests(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	for _, q := range []string{
		"w=abc",
		"w=5000",
		"scale=50",
		"seed=-1",
		"compression=ultra",
		"font=nope",
		"w=3&text=abcdef",
	} {
		res := post(t, ts.URL+"/api/captcha?"+q, "", nil)
		assert.GreaterOrEqual(t, res.StatusCode, 400, q)
	}
	res := post(t, ts.URL+"/api/captcha", "application/json", strings.NewReader("{"))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestCaptchaStrokeLimits(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	for _, body := range []string{
		`{"text": "ab", "preset": {"strokes": {"lines": {"min": 1, "max": 2147483647}}}}`,
		`{"text": "ab", "preset": {"strokes": {"curves": {"min": 200, "max": 200}}}}`,
		`{"text": "ab", "preset": {"strokes": {"width": 5000}}}`,
	} {
		res := post(t, ts.URL+"/api/captcha", "application/json", strings.NewReader(body))
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, body)
	}

	body := `{"text": "ab", "preset": {"strokes": {"lines": {"min": 16, "max": 16}, "curves": {"min": 16, "max": 16}}}}`
	res := post(t, ts.URL+"/api/captcha", "application/json", strings.NewReader(body))
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestGetCaptchaExpired(t *testing.T) {
	s, ts := newTestServer(t, Config{TTL: time.Minute})
	var skew atomic.Int64
	s.captchas.now = func() time.Time { return time.Now().Add(time.Duration(skew.Load())) }

	res := post(t, ts.URL+"/api/captcha", "", nil)
	id := res.Header.Get("X-Captcha-Id")

	skew.Store(int64(2 * time.Minute))
	got, err := http.Get(ts.URL + "/api/captcha/" + id + ".png")
	require.NoError(t, err)
	defer got.Body.Close()
	assert.Equal(t, http.StatusNotFound, got.StatusCode)
	assert.False(t, verify(t, ts.URL, id, "anything"))
}

func TestHandlerSweepsExpired(t *testing.T) {
	s, err := newServer(Config{TTL: 200 * time.Millisecond, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	h, err := s.start(t.Context())
	require.NoError(t, err)
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	post(t, ts.URL+"/api/captcha?text=ab", "", nil)
	require.Equal(t, 1, s.captchas.len())
	assert.Eventually(t, func() bool { return s.captchas.len() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestHandler(t *testing.T) {
	h, err := Handler(t.Context(), Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/captcha?text=ok", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Captcha-Id"))
}

func uploadFont(t *testing.T, base string, data []byte) fontInfo {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "mono.ttf")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("scale", "32"))
	require.NoError(t, mw.Close())

	res := post(t, base+"/api/upload/font", mw.FormDataContentType(), &body)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var info fontInfo
	require.NoError(t, json.NewDecoder(res.Body).Decode(&info))
	return info
}

func TestFontLifecycle(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	info := uploadFont(t, ts.URL, gomono.TTF)
	assert.Equal(t, "mono.ttf", info.Name)
	assert.Equal(t, len(gomono.TTF), info.Size)

	res, err := http.Get(ts.URL + "/api/fonts")
	require.NoError(t, err)
	var list []fontInfo
	require.NoError(t, json.NewDecoder(res.Body).Decode(&list))
	res.Body.Close()
	require.Len(t, list, 1)
	assert.Equal(t, info.ID, list[0].ID)

	gen := post(t, ts.URL+"/api/captcha?font="+info.ID, "", nil)
	assert.Equal(t, http.StatusOK, gen.StatusCode)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/fonts/"+info.ID, nil)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	del.Body.Close()
	assert.Equal(t, http.StatusOK, del.StatusCode)

	del, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	del.Body.Close()
	assert.Equal(t, http.StatusNotFound, del.StatusCode)
}

func TestUploadRejectsGarbage(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "bad.ttf")
	fw.Write([]byte("not a font"))
	mw.Close()
	res := post(t, ts.URL+"/api/upload/font", mw.FormDataContentType(), &body)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestIndexServed(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	res, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	b, _ := io.ReadAll(res.Body)
	assert.Contains(t, string(b), "/api/verify")
}

func TestStoreSweep(t *testing.T) {
	st := newStore[int](time.Second)
	now := time.Now()
	st.now = func() time.Time { return now }
	a := st.add(1)
	st.add(2)

	v, ok := st.get(a)
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Second)
	_, ok = st.get(a)
	assert.False(t, ok)
	assert.Equal(t, 2, st.sweep())
	assert.Zero(t, st.len())

	forever := newStore[string](0)
	id := forever.add("x")
	forever.now = func() time.Time { return now.Add(24 * time.Hour) }
	_, ok = forever.get(id)
	assert.True(t, ok)
}
