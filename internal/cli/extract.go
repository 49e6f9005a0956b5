package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wudi/linkpreview/internal/config"
	"github.com/wudi/linkpreview/internal/fetch"
	"github.com/wudi/linkpreview/internal/preview"
)

func NewExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "extract <url> [url...]",
		Short:   "Extract and print page previews, bypassing the cache",
		Example: "linkpreview extract https://music.apple.com/us/album/hey-jude/1435546686",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			legacy, err := cmd.Flags().GetBool("legacy")
			if err != nil {
				return err
			}
			concurrency, err := cmd.Flags().GetInt("concurrency")
			if err != nil {
				return err
			}

			previews, err := extractAll(cmd.Context(), newExtractor(cfg), args, concurrency)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range previews {
				switch {
				case asJSON && legacy:
					err = writeIndented(out, p.ToLegacy())
				case asJSON:
					err = writeIndented(out, preview.NewResponse(p))
				default:
					err = renderPreview(out, p)
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "Print the API response body instead of a table")
	cmd.Flags().Bool("legacy", false, "With --json, print the legacy response shape")
	cmd.Flags().Int("concurrency", 4, "Maximum number of pages fetched at once")
	return cmd
}

// extractAll extracts every url, at most limit at a time, and returns the
// previews in argument order. The first failure cancels the rest.
func extractAll(ctx context.Context, ex *preview.Extractor, urls []string, limit int) ([]preview.LinkPreview, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	previews := make([]preview.LinkPreview, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, u := range urls {
		g.Go(func() error {
			p, err := ex.Extract(gctx, u)
			if err != nil {
				return fmt.Errorf("%s: %w", u, err)
			}
			previews[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return previews, nil
}

func newExtractor(cfg *config.Config) *preview.Extractor {
	var parser preview.Parser = preview.PatternParser{}
	if cfg.Preview.Parser == config.ParserHTML {
		parser = preview.HTMLParser{}
	}
	client := fetch.New(fetch.Options{
		UserAgent: cfg.Preview.UserAgent,
		Timeout:   cfg.Preview.Timeout,
		MaxBytes:  cfg.Preview.MaxDocumentSize,
	})
	return preview.NewExtractor(client, parser, preview.NewCollator(cfg.Preview.BaseURL))
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderPreview(w io.Writer, p preview.LinkPreview) error {
	pr := NewColorPrinter()

	t := tablewriter.NewTable(w)
	t.Header([]string{"Field", "Value"})

	rows := []struct {
		name  string
		value *string
	}{
		{"title", &p.Title},
		{"type", p.Type},
		{"url", &p.URL},
		{"image", p.Image},
		{"audio", p.Audio},
		{"description", p.Description},
		{"site_name", p.SiteName},
		{"video", p.Video},
	}
	for _, r := range rows {
		value := pr.Warning("-")
		if r.value != nil && *r.value != "" {
			value = *r.value
		}
		if err := t.Append([]string{r.name, value}); err != nil {
			return err
		}
	}
	if err := t.Render(); err != nil {
		return err
	}

	if p.Valid() {
		fmt.Fprintln(w, pr.Success("preview is complete"))
	} else {
		fmt.Fprintln(w, pr.Error(preview.LegacyErrorMessage))
	}
	return nil
}
