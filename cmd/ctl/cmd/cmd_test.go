package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	stdpng "image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jpfielding/pixdec.go/pkg/imgerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 2))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 10)
	}
	var buf bytes.Buffer
	require.NoError(t, stdpng.Encode(&buf, img))
	path := filepath.Join(dir, "gray.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRoot(context.Background(), "abc123")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestDecodeCmd(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir)
	dump := filepath.Join(dir, "samples.raw")

	out, err := run(t, "decode", "--uri", path, "--dump", dump, "--inflater", "klauspost")
	require.NoError(t, err)

	var report decodeReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "png", report.Format)
	assert.Equal(t, 4, report.Width)
	assert.Equal(t, 2, report.Height)
	assert.Equal(t, 8, report.Depth)
	require.Len(t, report.Channels, 1)
	assert.Equal(t, uint16(0), report.Channels[0].Min)
	assert.Equal(t, uint16(70), report.Channels[0].Max)
	assert.Len(t, report.ContentUUID, 36)

	samples, err := os.ReadFile(dump)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 10, 20, 30, 40, 50, 60, 70}, samples)

	out, err = run(t, "decode", path, "--to-rgba", "-f", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "layout:   rgba/8")
}

func TestDecodeCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir)

	_, err := run(t, "decode", path, "--max-pixels", "4")
	require.ErrorIs(t, err, imgerr.ErrLimitExceeded)

	_, err = run(t, "decode", path, "--inflater", "zopfli")
	require.Error(t, err)

	_, err = run(t, "decode")
	require.Error(t, err)
}

func TestDecodeCmd_HTTPS(t *testing.T) {
	path := writePNG(t, t.TempDir())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	// self-signed certificate
	_, err = run(t, "decode", srv.URL+"/gray.png")
	require.Error(t, err)

	out, err := run(t, "decode", srv.URL+"/gray.png", "--insecure")
	require.NoError(t, err)
	var report decodeReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 4, report.Width)
}

func TestAnalyzeCmd(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir)

	out, err := run(t, "analyze", path, "--format", "json")
	require.NoError(t, err)
	var a analysis
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Equal(t, "png", a.Format)
	assert.True(t, a.Valid)
	require.NotEmpty(t, a.Chunks)
	assert.Equal(t, "IHDR", a.Chunks[0].Type)
	assert.Equal(t, "IEND", a.Chunks[len(a.Chunks)-1].Type)

	// break the IHDR CRC
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[29] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0644))

	out, err = run(t, "analyze", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "BAD CRC")
	assert.Contains(t, out, "Decode: failed")

	ppm := filepath.Join(dir, "x.ppm")
	require.NoError(t, os.WriteFile(ppm, []byte("P3 1 1 255 1 2 3"), 0644))
	out, err = run(t, "analyze", ppm)
	require.NoError(t, err)
	assert.Contains(t, out, "Format: ppm")
	assert.Contains(t, out, "Decode: ok")
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "abc123\n", out)
}

func TestDecodeReport_RGBAStats(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 4})
	var buf bytes.Buffer
	require.NoError(t, stdpng.Encode(&buf, img))
	path := filepath.Join(t.TempDir(), "rgba.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	out, err := run(t, "decode", path)
	require.NoError(t, err)
	var report decodeReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Channels, 4)
	assert.Equal(t, uint16(4), report.Channels[3].Max)
}
