package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/heapmeter/pkg/meter"
)

// countCommand creates the count command.
func (c *CLI) countCommand() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "count <file.json>",
		Short: "Count the distinct heap blocks a JSON document decodes into",
		Long: `Count walks the same object graph measure would, but tallies reachable
blocks instead of bytes. It needs no sizing capability, so it works under
every sizing mode.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			root, err := loadRoot(args[0])
			if err != nil {
				return err
			}

			prog := newProgress(logger)
			total, err := meter.New().CountReachable(root)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Counted %d blocks", total))

			if quiet {
				fmt.Println(total)
				return nil
			}
			printSuccess("%s decodes into %s blocks",
				filepath.Base(args[0]), StyleNumber.Render(fmt.Sprintf("%d", total)))
			printNextStep("Measure the retained bytes", "heapmeter measure "+args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the block count")
	return cmd
}
