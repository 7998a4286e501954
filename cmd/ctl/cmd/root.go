package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jpfielding/pixdec.go/pkg/compress/inflate"
	"github.com/jpfielding/pixdec.go/pkg/imgdec"
	"github.com/jpfielding/pixdec.go/pkg/logging"
	"github.com/jpfielding/pixdec.go/pkg/pixel"
	"github.com/spf13/cobra"
)

func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	var logFile io.Closer
	cmd := &cobra.Command{
		Use:          "pixctl",
		Short:        "decode and inspect PNG, PAM and PPM files",
		Long:         "pixctl decodes PNG, PAM and PPM files into raw samples and reports on their structure.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logLevel, _ := cmd.Flags().GetString("log-level")
			logPath, _ := cmd.Flags().GetString("log-file")
			logJSON, _ := cmd.Flags().GetBool("log-json")

			level, levelErr := logging.ParseLevel(logLevel)
			if levelErr != nil {
				level = slog.LevelInfo
			}
			var w io.Writer = os.Stderr
			if logPath != "" {
				fw := logging.FileWriter(logPath, 10, 3, 28)
				logFile = fw
				w = io.MultiWriter(os.Stderr, fw)
			}
			slog.SetDefault(logging.Logger(w, logJSON, level))

			if levelErr != nil {
				slog.WarnContext(ctx, "Invalid log level, defaulting to INFO", "level", logLevel, "error", levelErr)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logFile != nil {
				logFile.Close()
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd, 0)
		},
	}
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewDecodeCmd(ctx),
		NewAnalyzeCmd(ctx),
	)
	pf := cmd.PersistentFlags()
	pf.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.String("log-file", "", "Also write logs to this file, rotated at 10MB")
	pf.Bool("log-json", false, "Log as JSON instead of text")
	pf.Int64("max-pixels", pixel.DefaultLimits().MaxPixels, "Refuse images with more pixels than this")
	pf.Bool("to-rgba", false, "Normalize decoded images to RGBA")
	pf.Bool("strict-crc", false, "Fail on ancillary PNG chunks with a bad CRC")
	pf.String("inflater", "native", "zlib implementation for PNG (native|klauspost)")
	return cmd
}

func printCommandTree(cmd *cobra.Command, indent int) {
	fmt.Println(strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(subCmd, indent+1)
	}
}

func NewVersionCmd(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Long:  "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), gitsha)
		},
	}
	return cmd
}

// decodeOptions collects the decoder settings from the root persistent flags.
func decodeOptions(cmd *cobra.Command) (*imgdec.Options, error) {
	maxPixels, _ := cmd.Flags().GetInt64("max-pixels")
	toRGBA, _ := cmd.Flags().GetBool("to-rgba")
	strict, _ := cmd.Flags().GetBool("strict-crc")
	name, _ := cmd.Flags().GetString("inflater")

	inf, err := inflate.ByName(name)
	if err != nil {
		return nil, err
	}
	o := imgdec.DefaultOptions()
	o.Limits.MaxPixels = maxPixels
	o.ToRGBA = toRGBA
	o.StrictCRC = strict
	o.Inflater = inf
	return o, nil
}
