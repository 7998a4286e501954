package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jpfielding/pixdec.go/pkg/imgdec"
	"github.com/jpfielding/pixdec.go/pkg/imgerr"
	"github.com/jpfielding/pixdec.go/pkg/netpbm"
	"github.com/jpfielding/pixdec.go/pkg/png"
	"github.com/spf13/cobra"
)

// analysis is the structural report for one file.
type analysis struct {
	File   string          `json:"file"`
	Format string          `json:"format"`
	Header any             `json:"header,omitempty"`
	Chunks []png.ChunkInfo `json:"chunks,omitempty"`
	Valid  bool            `json:"valid"`
	Kind   string          `json:"error_kind,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// NewAnalyzeCmd creates the analyze cobra command
func NewAnalyzeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze image file structure",
		Long:  "Lists the header and, for PNG, every chunk with its offset, length and CRC status, then attempts a full decode.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath, _ := cmd.Flags().GetString("file")
			format, _ := cmd.Flags().GetString("format")

			if filePath == "" && len(args) > 0 {
				filePath = args[0]
			}

			if filePath == "" {
				return fmt.Errorf("file path is required. Use --file flag or provide as argument")
			}
			opts, err := decodeOptions(cmd)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			a := runAnalyze(filePath, data, opts)
			return a.write(cmd.OutOrStdout(), format)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "image file path to analyze")
	pf.String("format", "text", "output format (text|json)")

	return cmd
}

// runAnalyze collects the header and chunk table, then tries a full decode
// to report the first error.
func runAnalyze(filePath string, data []byte, opts *imgdec.Options) *analysis {
	a := &analysis{File: filePath}
	c := imgdec.Sniff(data)
	if c == nil {
		a.Format = "unknown"
	} else {
		a.Format = c.Name()
	}

	var err error
	switch a.Format {
	case "png":
		a.Chunks, err = png.Chunks(data)
		if err == nil {
			var h *png.Header
			if h, err = png.DecodeHeader(data); err == nil {
				a.Header = h
			}
		}
	case "pam":
		var h *netpbm.PAMHeader
		if h, err = netpbm.DecodePAMHeader(data); err == nil {
			a.Header = h
		}
	case "ppm":
		var h *netpbm.PPMHeader
		if h, err = netpbm.DecodePPMHeader(data); err == nil {
			a.Header = h
		}
	}
	if err == nil {
		_, _, err = imgdec.Decode(data, opts)
	}
	if err != nil {
		a.Error = err.Error()
		if kind := imgerr.KindOf(err); kind != nil {
			a.Kind = kind.Error()
		}
		return a
	}
	a.Valid = true
	return a
}

func (a *analysis) write(w io.Writer, format string) error {
	if format == "json" {
		j, err := json.MarshalIndent(a, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(j))
		return err
	}

	fmt.Fprintf(w, "File: %s\n", a.File)
	fmt.Fprintf(w, "Format: %s\n", a.Format)
	if a.Header != nil {
		fmt.Fprintf(w, "Header: %+v\n", a.Header)
	}
	if len(a.Chunks) > 0 {
		fmt.Fprintln(w, "\n=== Chunks ===")
		fmt.Fprintf(w, "%-6s %10s %10s %10s %s\n", "type", "offset", "length", "crc", "status")
		for _, c := range a.Chunks {
			status := "ok"
			if !c.CRCValid {
				status = "BAD CRC"
			}
			fmt.Fprintf(w, "%-6s %10d %10d   %08x %s\n", c.Type, c.Offset, c.Length, c.CRC, status)
		}
	}
	fmt.Fprintln(w)
	if a.Valid {
		fmt.Fprintln(w, "Decode: ok")
	} else {
		fmt.Fprintf(w, "Decode: failed (%s)\n", a.Error)
	}
	return nil
}
