package cmd

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"time"

	"github.com/jpfielding/pixdec.go/pkg/imgdec"
	"github.com/jpfielding/pixdec.go/pkg/imgerr"
	"github.com/jpfielding/pixdec.go/pkg/pixel"
	"github.com/jpfielding/pixdec.go/pkg/util"
	"github.com/spf13/cobra"
)

// decodeReport is what `pixctl decode` prints.
type decodeReport struct {
	Source      string               `json:"source"`
	Format      string               `json:"format"`
	Width       int                  `json:"width"`
	Height      int                  `json:"height"`
	Layout      pixel.Layout         `json:"layout"`
	Depth       int                  `json:"depth"`
	Channels    []pixel.ChannelStats `json:"channels"`
	ContentUUID string               `json:"content_uuid"`
	FileMD5     string               `json:"file_md5"`
	Elapsed     time.Duration        `json:"elapsed_ns"`
}

func (r *decodeReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "source:   %s\n", r.Source)
	fmt.Fprintf(&sb, "format:   %s\n", r.Format)
	fmt.Fprintf(&sb, "size:     %dx%d\n", r.Width, r.Height)
	fmt.Fprintf(&sb, "layout:   %s/%d\n", r.Layout, r.Depth)
	for i, c := range r.Channels {
		fmt.Fprintf(&sb, "channel %d: min=%d max=%d mean=%.2f\n", i, c.Min, c.Max, c.Mean)
	}
	fmt.Fprintf(&sb, "content:  %s\n", r.ContentUUID)
	fmt.Fprintf(&sb, "file md5: %s\n", r.FileMD5)
	fmt.Fprintf(&sb, "elapsed:  %s", r.Elapsed)
	return sb.String()
}

// NewDecodeCmd decodes one image and prints its geometry and sample statistics
func NewDecodeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "decode a PNG, PAM or PPM image",
		Long:  "decode a PNG, PAM or PPM image from a file, stdin (-) or an http(s) URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, _ := cmd.Flags().GetString("uri")
			if uri == "" && len(args) > 0 {
				uri = args[0]
			}
			if uri == "" {
				return fmt.Errorf("uri is required. Use --uri flag or provide as argument")
			}
			verbose, _ := cmd.Flags().GetBool("verbose")
			insecure, _ := cmd.Flags().GetBool("insecure")
			data, err := readURI(ctx, uri, verbose, insecure)
			if err != nil {
				return err
			}
			opts, err := decodeOptions(cmd)
			if err != nil {
				return err
			}

			start := time.Now()
			buf, format, err := imgdec.Decode(data, opts)
			if err != nil {
				slog.ErrorContext(ctx, "decode failed", slog.String("uri", uri), slog.String("format", format),
					slog.Any("kind", imgerr.KindOf(err)), slog.Any("error", err))
				return err
			}
			report := &decodeReport{
				Source:      uri,
				Format:      format,
				Width:       buf.Width,
				Height:      buf.Height,
				Layout:      buf.Layout,
				Depth:       buf.Depth,
				Channels:    buf.Stats(),
				ContentUUID: util.ContentUUID(buf),
				FileMD5:     util.Md5ThenHex(data),
				Elapsed:     time.Since(start),
			}

			if dump, _ := cmd.Flags().GetString("dump"); dump != "" {
				slog.InfoContext(ctx, "dumping samples", slog.String("path", dump), slog.Int("bytes", len(buf.Samples)))
				if err := os.WriteFile(dump, buf.Samples, 0644); err != nil {
					return fmt.Errorf("failed to write samples: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			switch outFmt, _ := cmd.Flags().GetString("format"); outFmt {
			case "text":
				fmt.Fprintln(out, report)
			default:
				j, err := json.Marshal(report)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(j))
			}
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("uri", "u", "", "image path, - for stdin, or http(s) URL")
	pf.StringP("format", "f", "json", "output format (text|json)")
	pf.String("dump", "", "write the raw decoded samples to this path")
	pf.BoolP("verbose", "v", false, "dump http request and response headers")
	pf.Bool("insecure", false, "skip TLS certificate verification for https URLs")
	return cmd
}

// readURI loads a whole file from disk, stdin or http(s).
func readURI(ctx context.Context, uri string, verbose, insecure bool) ([]byte, error) {
	uri = strings.TrimPrefix(uri, "file://")
	switch {
	case uri == "-":
		return io.ReadAll(os.Stdin)
	case strings.HasPrefix(uri, "http"):
		cl := &http.Client{
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure}},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := cl.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to download: %w", err)
		}
		defer resp.Body.Close()
		if verbose {
			reqDump, _ := httputil.DumpRequest(req, true)
			os.Stderr.Write(reqDump)
			resDump, _ := httputil.DumpResponse(resp, false)
			os.Stderr.Write(resDump)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failed to download: %s", resp.Status)
		}
		return io.ReadAll(resp.Body)
	default:
		data, err := os.ReadFile(uri)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		return data, nil
	}
}
