package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newRunCmd(conf *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Evaluate a scene script and print the painted meshes",
		Long: `
Evaluates a scene script ("-" reads standard input). By default a short
summary of every mesh and projection is printed; --json prints the full
scene including per-corner colors.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd, conf, args[0])
		},
	}
	cmd.Flags().Bool("json", false, "Print the scene as JSON.")
	cmd.Flags().Bool("strict", false, "Exit non-zero when the script produced warnings.")
	if err := conf.BindPFlags(cmd.Flags()); err != nil {
		panic(err)
	}
	return cmd
}

func runScript(cmd *cobra.Command, conf *viper.Viper, path string) error {
	logger, err := newLogger(conf)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	source, err := readScript(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}
	logger.Debug("evaluating script",
		zap.String("path", path),
		zap.String("size", humanize.Bytes(uint64(len(source)))))

	result := NewApp(logger).Evaluate(cmd.Context(), string(source))

	out := cmd.OutOrStdout()
	if conf.GetBool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return errors.Wrap(err, "encoding scene")
		}
	} else {
		printSummary(out, result)
	}

	if len(result.Errors) > 0 {
		return errors.Errorf("%s: %d error(s)", path, len(result.Errors))
	}
	if conf.GetBool("strict") && len(result.Warnings) > 0 {
		return errors.Errorf("%s: %d warning(s)", path, len(result.Warnings))
	}
	return nil
}

func readScript(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		return b, errors.Wrap(err, "reading standard input")
	}
	b, err := os.ReadFile(path)
	return b, errors.Wrapf(err, "reading %s", path)
}

func printSummary(w io.Writer, r EvalResult) {
	for _, e := range r.Errors {
		if e.Line > 0 {
			fmt.Fprintf(w, "error: line %d: %s\n", e.Line, e.Message)
		} else {
			fmt.Fprintf(w, "error: %s\n", e.Message)
		}
	}
	for _, m := range r.Meshes {
		fmt.Fprintf(w, "mesh %s: %s vertices, %s faces\n", m.Name,
			humanize.Comma(int64(len(m.Vertices)/3)),
			humanize.Comma(int64(len(m.Indices)/3)))
	}
	for _, c := range r.Colorbars {
		if c.Empty {
			fmt.Fprintf(w, "%s on %s: nothing painted\n", c.Mode, c.Mesh)
			continue
		}
		fmt.Fprintf(w, "%s on %s: %s [%s, %s], %s slots painted\n", c.Mode, c.Mesh, c.Palette,
			humanize.FormatFloat("#,###.###", c.Clim[0]),
			humanize.FormatFloat("#,###.###", c.Clim[1]),
			humanize.Comma(int64(c.Nonzero)))
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn.Message)
	}
}
