package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"prompetition/pkg/leaderboard"
)

func newLeaderboardCommand() *cobra.Command {
	var (
		taskID string
		top    int
		userID string
	)

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the leaderboard for a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID == "" {
				return errors.New("task id is required")
			}

			store, err := leaderboard.Open(appConfig.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			if top > 0 {
				return showTopPrompts(store, taskID, userID, top)
			}
			return showBoard(store, taskID)
		},
	}

	cmd.Flags().StringVar(&taskID, "task", "", "task id")
	cmd.Flags().IntVar(&top, "top", 0, "show the top K prompts instead of the board")
	cmd.Flags().StringVar(&userID, "user-id", "", "restrict top prompts to one user")

	return cmd
}

func showBoard(store *leaderboard.Store, taskID string) error {
	board, err := store.Board(taskID)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"#", "User", "Hidden", "Open", "Prompt length"})
	for i, row := range board {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			row.UserName,
			fmt.Sprintf("%.2f%%", row.HiddenValue*100),
			fmt.Sprintf("%.2f%%", row.OpenValue*100),
			fmt.Sprintf("%d", len(row.Prompt)),
		})
	}
	table.Render()
	return nil
}

func showTopPrompts(store *leaderboard.Store, taskID, userID string, k int) error {
	var (
		stats []leaderboard.PromptStats
		err   error
	)
	if userID != "" {
		stats, err = store.TopUserPrompts(userID, taskID, k)
	} else {
		stats, err = store.TopPrompts(taskID, k)
	}
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Prompt", "Hidden", "Open"})
	for _, st := range stats {
		hidden := 0.0
		if st.HiddenRuns > 0 {
			hidden = st.HiddenScore / float64(st.HiddenRuns)
		}
		open := 0.0
		if st.OpenRuns > 0 {
			open = st.OpenScore / float64(st.OpenRuns)
		}
		table.Append([]string{
			st.Prompt,
			fmt.Sprintf("%.2f%%", hidden*100),
			fmt.Sprintf("%.2f%%", open*100),
		})
	}
	table.Render()
	return nil
}
