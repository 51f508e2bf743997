package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/heapmeter/pkg/dot"
	herrors "github.com/matzehuels/heapmeter/pkg/errors"
	"github.com/matzehuels/heapmeter/pkg/meter"
	"github.com/matzehuels/heapmeter/pkg/sizer"
)

// measureCommand creates the measure command.
func (c *CLI) measureCommand() *cobra.Command {
	var (
		configPath  string
		modeName    string
		fullBuffer  bool
		top         int
		jsonOut     bool
		dotPath     string
		debugDepth  int
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "measure <file.json>",
		Short: "Deep-measure a JSON document and report per-type statistics",
		Long: `Measure decodes a JSON document into live Go values and walks the
resulting object graph, reporting the total retained footprint and a
per-type breakdown of blocks and bytes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			applyFlag(cmd, "mode", func() { cfg.Mode = modeName })
			applyFlag(cmd, "full-buffer", func() { cfg.FullBuffer = fullBuffer })
			applyFlag(cmd, "top", func() { cfg.Top = top })

			root, err := loadRoot(args[0])
			if err != nil {
				return err
			}

			m, err := buildMeter(cfg)
			if err != nil {
				return err
			}

			rec := meter.NewStatsRecorder()
			listeners := []meter.Listener{rec}
			var graph *dot.Recorder
			if dotPath != "" {
				graph = dot.NewRecorder()
				listeners = append(listeners, graph)
			}
			m = withListeners(m, debugDepth, os.Stderr, listeners)

			prog := newProgress(logger)
			showSpinner := !jsonOut && debugDepth == 0
			spin := newMeasureSpinner(cmd.Context(), args[0])
			if showSpinner {
				spin.Start()
			}
			total, err := m.MeasureDeep(root)
			if showSpinner {
				spin.Stop()
			}
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Measured %d blocks", rec.Nodes()))

			if graph != nil {
				if err := writeGraph(graph, dotPath); err != nil {
					return err
				}
			}

			if jsonOut {
				return printJSONReport(args[0], cfg.Mode, total, rec)
			}

			printSuccess("%s retains %s", filepath.Base(args[0]), StyleHighlight.Render(meter.HumanBytes(total)))
			printStats(rec.Nodes(), uint64(len(rec.Rows())), cfg.Mode)
			fmt.Println(statsTable(rec.Rows(), cfg.Top))
			if graph != nil {
				printFile(dotPath)
			}

			if interactive {
				return browseStats(rec.Rows(), total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "explicit config file path")
	cmd.Flags().StringVar(&modeName, "mode", defaultConfig().Mode,
		"sizing mode: "+strings.Join(sizer.ModeNames(), ", "))
	cmd.Flags().BoolVar(&fullBuffer, "full-buffer", true, "charge buffers by backing capacity")
	cmd.Flags().IntVar(&top, "top", defaultConfig().Top, "number of per-type rows to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the report as JSON")
	cmd.Flags().StringVar(&dotPath, "dot", "", "write the object graph to a .dot or .svg file")
	cmd.Flags().IntVar(&debugDepth, "debug", 0, "print the traversal tree up to this depth")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "browse per-type statistics interactively")

	return cmd
}

// applyFlag runs apply when the named flag was set explicitly, letting
// command-line values override config file values.
func applyFlag(cmd *cobra.Command, name string, apply func()) {
	if cmd.Flags().Changed(name) {
		apply()
	}
}

// buildMeter derives a Meter from the effective configuration.
func buildMeter(cfg Config) (meter.Meter, error) {
	mode, err := sizer.ParseMode(cfg.Mode)
	if err != nil {
		return meter.Meter{}, err
	}
	return meter.New().WithMode(mode).WithFullBufferSize(cfg.FullBuffer), nil
}

// withListeners wires the given listeners into m, stacking a debug tree
// printer underneath when a depth is requested.
func withListeners(m meter.Meter, debugDepth int, debugW io.Writer, ls []meter.Listener) meter.Meter {
	return m.WithListenerFactory(func() meter.Listener {
		all := ls
		if debugDepth > 0 {
			all = append([]meter.Listener{meter.NewTreePrinterFactory(debugW, debugDepth)()}, ls...)
		}
		return meter.Combine(all...)
	})
}

// loadRoot decodes a JSON document into live Go values.
func loadRoot(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, herrors.New(herrors.ErrCodeFileNotFound, "file %s does not exist", path)
		}
		return nil, err
	}

	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, herrors.Wrap(herrors.ErrCodeInvalidInput, err, "parse %s", path)
	}
	if root == nil {
		return nil, herrors.New(herrors.ErrCodeInvalidInput, "%s decodes to null", path)
	}
	return root, nil
}

// statsTable renders the per-type rows as a bordered table, largest first.
func statsTable(rows []meter.TypeStat, top int) string {
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Type", "Blocks", "Bytes").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return StyleValue
			}
			return StyleNumber
		})

	for _, r := range rows {
		t.Row(r.Type, fmt.Sprintf("%d", r.Count), meter.HumanBytes(r.Bytes))
	}
	return t.Render()
}

// writeGraph saves the captured object graph, rendering SVG when the target
// extension asks for it.
func writeGraph(rec *dot.Recorder, path string) error {
	src := rec.ToDOT(dot.Options{Detailed: true})

	if strings.EqualFold(filepath.Ext(path), ".svg") {
		svg, err := dot.RenderSVG(src)
		if err != nil {
			return err
		}
		return os.WriteFile(path, svg, 0o644)
	}
	return os.WriteFile(path, []byte(src), 0o644)
}

// printJSONReport writes the measurement as JSON to stdout.
func printJSONReport(source, mode string, total uint64, rec *meter.StatsRecorder) error {
	report := struct {
		Source string           `json:"source"`
		Mode   string           `json:"mode"`
		Total  uint64           `json:"total_bytes"`
		Human  string           `json:"total"`
		Blocks uint64           `json:"blocks"`
		Rows   []meter.TypeStat `json:"rows"`
	}{
		Source: source,
		Mode:   mode,
		Total:  total,
		Human:  meter.HumanBytes(total),
		Blocks: rec.Nodes(),
		Rows:   rec.Rows(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
