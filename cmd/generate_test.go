package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illustraitor/cli/pkg/illustraitor"
	"github.com/illustraitor/cli/pkg/util"
)

type FakeGenerator struct {
	LoadStylesFunc func(ctx context.Context) (illustraitor.Catalog, error)
	GenerateFunc   func(ctx context.Context, req illustraitor.GenerationRequest) (*illustraitor.GenerationResult, error)
}

func (f *FakeGenerator) LoadStyles(ctx context.Context) (illustraitor.Catalog, error) {
	if f.LoadStylesFunc != nil {
		return f.LoadStylesFunc(ctx)
	}
	return illustraitor.FallbackCatalog(), nil
}

func (f *FakeGenerator) Generate(ctx context.Context, req illustraitor.GenerationRequest) (*illustraitor.GenerationResult, error) {
	if f.GenerateFunc != nil {
		return f.GenerateFunc(ctx, req)
	}
	return &illustraitor.GenerationResult{ImageURL: "https://images.example/demo.jpg", Mode: illustraitor.ModeDemo}, nil
}

type FakeDownloader struct {
	DownloadFunc func(ctx context.Context, imageURL string, w io.Writer) (int64, error)
}

func (f *FakeDownloader) Download(ctx context.Context, imageURL string, w io.Writer) (int64, error) {
	if f.DownloadFunc != nil {
		return f.DownloadFunc(ctx, imageURL, w)
	}
	n, err := io.WriteString(w, "png-bytes")
	return int64(n), err
}

func fixedNow() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

func newTestGenerateCmd(gen *FakeGenerator) GenerateCmd {
	return GenerateCmd{
		generator:  gen,
		downloader: &FakeDownloader{},
		openURL:    func(string) error { return nil },
		now:        fixedNow,
	}
}

func TestGenerate_DemoResult(t *testing.T) {
	setupStdoutCapture(t)

	var got illustraitor.GenerationRequest
	gen := &FakeGenerator{
		GenerateFunc: func(ctx context.Context, req illustraitor.GenerationRequest) (*illustraitor.GenerationResult, error) {
			got = req
			return &illustraitor.GenerationResult{
				ImageURL:  "https://images.unsplash.com/photo-1",
				StyleName: "Creative",
				Mode:      illustraitor.ModeDemo,
				Message:   "Demo mode",
			}, nil
		},
	}

	err := newTestGenerateCmd(gen).Run(context.Background(), GenerateInput{Prompt: "a red fox", Style: "creative"})
	require.NoError(t, err)

	assert.Equal(t, "a red fox", got.Text)
	assert.Equal(t, "creative", got.Style)
	out := outBuf.String()
	assert.Contains(t, out, "https://images.unsplash.com/photo-1")
	assert.Contains(t, out, "demo (stock imagery)")
	assert.Contains(t, out, "Demo mode")
	assert.NotContains(t, out, "Credits used")
}

func TestGenerate_AIResult(t *testing.T) {
	setupStdoutCapture(t)

	used := 2
	gen := &FakeGenerator{
		GenerateFunc: func(ctx context.Context, req illustraitor.GenerationRequest) (*illustraitor.GenerationResult, error) {
			return &illustraitor.GenerationResult{
				ImageURL:       "https://cdn.example/img.png",
				StyleName:      "Anime",
				Mode:           illustraitor.ModeOpenAI,
				CreditsUsed:    &used,
				UsesUserKey:    true,
				Model:          "dall-e-3",
				GenerationTime: 12.5,
			}, nil
		},
	}

	err := newTestGenerateCmd(gen).Run(context.Background(), GenerateInput{Prompt: "castle", Style: "anime"})
	require.NoError(t, err)

	out := outBuf.String()
	assert.Contains(t, out, "AI generation")
	assert.Contains(t, out, "your key")
	assert.Contains(t, out, "Credits used")
	assert.Contains(t, out, "dall-e-3")
	assert.NotContains(t, out, "Demo mode:")
}

func TestGenerate_BlankPromptMakesNoCall(t *testing.T) {
	setupStdoutCapture(t)

	called := false
	gen := &FakeGenerator{
		GenerateFunc: func(ctx context.Context, req illustraitor.GenerationRequest) (*illustraitor.GenerationResult, error) {
			called = true
			return nil, nil
		},
	}

	err := newTestGenerateCmd(gen).Run(context.Background(), GenerateInput{Prompt: "   "})
	require.Error(t, err)
	assert.False(t, called)
	assert.ErrorIs(t, err, illustraitor.ErrValidation)
}

func TestGenerate_ErrorCarriesHint(t *testing.T) {
	setupStdoutCapture(t)

	gen := &FakeGenerator{
		GenerateFunc: func(ctx context.Context, req illustraitor.GenerationRequest) (*illustraitor.GenerationResult, error) {
			return nil, &illustraitor.Error{Kind: illustraitor.KindServer, StatusCode: 402, Message: "Insufficient credits"}
		},
	}

	err := newTestGenerateCmd(gen).Run(context.Background(), GenerateInput{Prompt: "castle"})
	require.Error(t, err)

	var cleaned util.CleanedUpAPIError
	require.True(t, errors.As(err, &cleaned))
	assert.Contains(t, err.Error(), "Insufficient credits")
	assert.Contains(t, cleaned.Hint, "credits check")
}

func TestGenerate_StylesUnavailableWarns(t *testing.T) {
	setupStdoutCapture(t)

	gen := &FakeGenerator{
		LoadStylesFunc: func(ctx context.Context) (illustraitor.Catalog, error) {
			return illustraitor.FallbackCatalog(), &illustraitor.Error{Kind: illustraitor.KindNetwork, Message: "connection refused"}
		},
	}

	err := newTestGenerateCmd(gen).Run(context.Background(), GenerateInput{Prompt: "castle"})
	require.NoError(t, err)
	assert.Contains(t, outBuf.String(), "Style list unavailable")
}

func TestGenerate_JSONOutput(t *testing.T) {
	setupStdoutCapture(t)
	read := captureStdout(t)

	err := newTestGenerateCmd(&FakeGenerator{}).Run(context.Background(), GenerateInput{Prompt: "castle", Output: "json"})
	require.NoError(t, err)

	out := read()
	assert.Contains(t, out, `"image_url": "https://images.example/demo.jpg"`)
	assert.Contains(t, out, `"mode": "demo"`)
	assert.Empty(t, outBuf.String())
}

func TestGenerate_RejectsUnknownOutput(t *testing.T) {
	setupStdoutCapture(t)

	err := newTestGenerateCmd(&FakeGenerator{}).Run(context.Background(), GenerateInput{Prompt: "castle", Output: "yaml"})
	assert.Error(t, err)
}

func TestGenerate_DownloadToDirectory(t *testing.T) {
	setupStdoutCapture(t)
	dir := t.TempDir()

	var fetched string
	g := newTestGenerateCmd(&FakeGenerator{})
	g.downloader = &FakeDownloader{
		DownloadFunc: func(ctx context.Context, imageURL string, w io.Writer) (int64, error) {
			fetched = imageURL
			n, err := io.WriteString(w, "image")
			return int64(n), err
		},
	}

	err := g.Run(context.Background(), GenerateInput{Prompt: "castle", Download: dir + string(os.PathSeparator)})
	require.NoError(t, err)

	assert.Equal(t, "https://images.example/demo.jpg", fetched)
	path := filepath.Join(dir, illustraitor.DefaultImageName(fixedNow()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image", string(data))
	assert.Contains(t, outBuf.String(), "Saved")
}

func TestGenerate_FailedDownloadLeavesNoFile(t *testing.T) {
	setupStdoutCapture(t)
	path := filepath.Join(t.TempDir(), "out.png")

	g := newTestGenerateCmd(&FakeGenerator{})
	g.downloader = &FakeDownloader{
		DownloadFunc: func(ctx context.Context, imageURL string, w io.Writer) (int64, error) {
			_, _ = io.WriteString(w, "partial")
			return 0, &illustraitor.Error{Kind: illustraitor.KindNetwork, Message: "connection reset"}
		},
	}

	err := g.Run(context.Background(), GenerateInput{Prompt: "castle", Download: path})
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerate_OpenFailureIsAWarning(t *testing.T) {
	setupStdoutCapture(t)

	var opened string
	g := newTestGenerateCmd(&FakeGenerator{})
	g.openURL = func(u string) error {
		opened = u
		return errors.New("no browser")
	}

	err := g.Run(context.Background(), GenerateInput{Prompt: "castle", Open: true})
	require.NoError(t, err)
	assert.Equal(t, "https://images.example/demo.jpg", opened)
	assert.Contains(t, outBuf.String(), "no browser")
}

func TestResolveDownloadPath(t *testing.T) {
	dir := t.TempDir()
	name := illustraitor.DefaultImageName(fixedNow())

	got, err := resolveDownloadPath(dir, fixedNow())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, name), got)

	file := filepath.Join(dir, "fox.png")
	got, err = resolveDownloadPath(file, fixedNow())
	require.NoError(t, err)
	assert.Equal(t, file, got)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	got, err = resolveDownloadPath("~/fox.png", fixedNow())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, home))
}
