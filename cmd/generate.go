package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/browser"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/illustraitor/cli/pkg/illustraitor"
	"github.com/illustraitor/cli/pkg/table"
	"github.com/illustraitor/cli/pkg/util"
)

// Generator is the part of the adapter the generate command drives.
type Generator interface {
	LoadStyles(ctx context.Context) (illustraitor.Catalog, error)
	Generate(ctx context.Context, req illustraitor.GenerationRequest) (*illustraitor.GenerationResult, error)
}

// ImageDownloader fetches a generated image.
type ImageDownloader interface {
	Download(ctx context.Context, imageURL string, w io.Writer) (int64, error)
}

// GenerateCmd handles image generation.
type GenerateCmd struct {
	generator  Generator
	downloader ImageDownloader
	openURL    func(url string) error
	styled     bool
	now        func() time.Time
}

// GenerateInput holds input for a generation.
type GenerateInput struct {
	Prompt      string
	Style       string
	APIKey      string
	NoKey       bool
	Size        string
	Quality     string
	UnsplashKey string
	// Download is a file or directory to save the image to.
	Download string
	Open     bool
	Output   string
}

// Run generates one image and reports the result.
func (g GenerateCmd) Run(ctx context.Context, in GenerateInput) error {
	if in.Output != "" && in.Output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}
	if strings.TrimSpace(in.Prompt) == "" {
		return apiError(&illustraitor.Error{Kind: illustraitor.KindValidation, Message: "prompt is empty"})
	}

	// Validate the style against the service's catalog. A failed fetch
	// leaves only the default style available.
	if _, err := g.generator.LoadStyles(ctx); err != nil && in.Output != "json" {
		pterm.Warning.Printfln("Style list unavailable (%s); only %q can be used.",
			illustraitor.UserMessage(err), illustraitor.DefaultStyleID)
	}

	res, err := g.generator.Generate(ctx, illustraitor.GenerationRequest{
		Text:        in.Prompt,
		Style:       in.Style,
		APIKey:      in.APIKey,
		NoKey:       in.NoKey,
		Size:        in.Size,
		Quality:     in.Quality,
		UnsplashKey: in.UnsplashKey,
	})
	if err != nil {
		return apiError(err)
	}

	if in.Output == "json" {
		if err := util.PrintPrettyJSON(res); err != nil {
			return err
		}
	} else {
		g.print(res)
	}

	if in.Download != "" {
		if err := g.save(ctx, res.ImageURL, in.Download, in.Output == "json"); err != nil {
			return err
		}
	}
	if in.Open {
		if err := g.openURL(res.ImageURL); err != nil {
			pterm.Warning.Printfln("Could not open a browser: %v", err)
		}
	}
	return nil
}

func (g GenerateCmd) print(res *illustraitor.GenerationResult) {
	rows := table.PropertyRows()
	rows = append(rows, []string{"Image", res.ImageURL})
	rows = append(rows, []string{"Style", util.FirstOrDash(res.StyleName, res.Style)})
	rows = append(rows, []string{"Mode", modeBadge(res, g.styled)})
	if src := res.KeySource(); src != "" {
		rows = append(rows, []string{"Key", src})
	}
	if res.CreditsUsed != nil {
		rows = append(rows, []string{"Credits used", fmt.Sprintf("%d", *res.CreditsUsed)})
	}
	if res.Model != "" {
		rows = append(rows, []string{"Model", res.Model})
	}
	if res.GenerationTime > 0 {
		rows = append(rows, []string{"Time", util.FormatSeconds(res.GenerationTime)})
	}
	if res.Message != "" {
		rows = append(rows, []string{"Message", res.Message})
	}
	table.PrintTableNoPad(rows, true)

	if !res.IsAI() {
		pterm.Info.Println("Demo mode: this is stock imagery, not an AI generation. Save a key with `illustraitor key set` for AI images.")
	}
}

// save downloads the image to dest. A dest ending in a path separator or
// naming an existing directory gets the default file name.
func (g GenerateCmd) save(ctx context.Context, imageURL, dest string, quiet bool) error {
	path, err := resolveDownloadPath(dest, g.now())
	if err != nil {
		return err
	}

	var n int64
	err = util.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		var derr error
		n, derr = g.downloader.Download(ctx, imageURL, w)
		return derr
	})
	if err != nil {
		return apiError(err)
	}
	if !quiet {
		pterm.Success.Printfln("Saved %s (%s)", path, util.FormatBytes(n))
	}
	return nil
}

func resolveDownloadPath(dest string, now time.Time) (string, error) {
	path, err := util.ExpandHome(dest)
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(dest, "/") || strings.HasSuffix(dest, string(os.PathSeparator)) {
		return filepath.Join(path, illustraitor.DefaultImageName(now)), nil
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, illustraitor.DefaultImageName(now)), nil
	}
	return path, nil
}

// --- Cobra wiring ---

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate an image from a text prompt",
	Long: `Generate an image from a text prompt in one of the service's styles.

With a saved API key the service generates an AI image and charges credits.
Without one it answers in demo mode with stock imagery.`,
	Example: `  illustraitor generate "a red fox in snow"
  illustraitor generate "a red fox in snow" --style anime --download ~/Pictures/
  illustraitor generate "lighthouse at dusk" --no-key -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringP("style", "s", "", "Style `id` (list them with: illustraitor styles); defaults to the saved default style")
	f.String("key", "", "Use this API key instead of the saved one")
	f.Bool("no-key", false, "Send no API key even if one is saved")
	f.String("size", "", "Image size: 1024x1024, 1792x1024 or 1024x1792")
	f.String("quality", "", "Image quality: standard or hd")
	f.String("unsplash-key", "", "Unsplash access key for demo-mode imagery")
	f.StringP("download", "d", "", "Save the image to this file or directory")
	f.Bool("open", false, "Open the image in a browser")
	f.StringP("output", "o", "", "Output format (json)")
	generateCmd.MarkFlagsMutuallyExclusive("key", "no-key")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	app := getApp(cmd)

	style, _ := cmd.Flags().GetString("style")
	key, _ := cmd.Flags().GetString("key")
	noKey, _ := cmd.Flags().GetBool("no-key")
	size, _ := cmd.Flags().GetString("size")
	quality, _ := cmd.Flags().GetString("quality")
	unsplashKey, _ := cmd.Flags().GetString("unsplash-key")
	download, _ := cmd.Flags().GetString("download")
	open, _ := cmd.Flags().GetBool("open")
	output, _ := cmd.Flags().GetString("output")

	g := GenerateCmd{
		generator:  app.Adapter,
		downloader: app.Client,
		openURL:    browser.OpenURL,
		styled:     app.Renderer.Styled(),
		now:        time.Now,
	}
	return g.Run(cmd.Context(), GenerateInput{
		Prompt:      strings.Join(args, " "),
		Style:       style,
		APIKey:      key,
		NoKey:       noKey,
		Size:        size,
		Quality:     quality,
		UnsplashKey: unsplashKey,
		Download:    download,
		Open:        open,
		Output:      output,
	})
}
