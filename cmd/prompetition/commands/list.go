package commands

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"prompetition/pkg/matcher"
	"prompetition/pkg/reporter"
	"prompetition/pkg/task"
	"prompetition/pkg/transform"
)

func newListCommand() *cobra.Command {
	var (
		dataRoot string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks and registered components",
		RunE: func(cmd *cobra.Command, args []string) error {
			rootResolved := resolveString(dataRoot, appConfig.DataRoot)
			if rootResolved == "" {
				rootResolved = "data"
			}
			manager := task.NewManager(rootResolved)

			tasks, err := manager.Tasks()
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header([]string{"Task", "Title", "Open", "Hidden", "Exposed"})
			for _, t := range tasks {
				if !all && !t.Info.Exposed {
					continue
				}
				table.Append([]string{
					t.ID(),
					t.Title(),
					fmt.Sprintf("%d", len(t.OpenSnippets())),
					fmt.Sprintf("%d", len(t.HiddenSnippets())),
					fmt.Sprintf("%t", t.Info.Exposed),
				})
			}
			table.Render()

			writeList("Matchers", matcher.Names())
			writeList("Transforms", []string{
				transform.StepLastChunk,
				transform.StepFromJSON,
				transform.StepLineSplit,
				transform.StepToAnswer,
			})
			writeList("Providers", []string{"mock", "openai", "anthropic"})
			writeList("Formats", reporter.Formats())
			return nil
		},
	}

	cmd.Flags().StringVar(&dataRoot, "data-root", "", "task data root directory")
	cmd.Flags().BoolVar(&all, "all", false, "include unexposed tasks")

	return cmd
}

func writeList(title string, items []string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{title})
	for _, item := range items {
		table.Append([]string{item})
	}
	table.Render()
}
