package cli

import (
	"encoding/json"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	errs "github.com/matzehuels/tapesched/pkg/errors"
	"github.com/matzehuels/tapesched/pkg/pipeline"
)

// inspectCommand creates the inspect command for browsing a saved result.
func (c *CLI) inspectCommand() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "inspect [result.json]",
		Short: "Browse the visit order of a saved result",
		Long: `Inspect opens a result written by "schedule -o" and lists each visit with
its seek cost. Use --plain to print the list without the interactive view.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := readResult(args[0])
			if err != nil {
				return err
			}
			model := NewStepListModel(res)

			if plain {
				writeSequence(os.Stdout, res.Schedule.IDs)
				fmt.Println(stepTable(res.Steps, model.cumulative, -1))
				return nil
			}
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print the visit list instead of opening the interactive view")
	return cmd
}

// readResult loads a pipeline result saved as JSON.
func readResult(path string) (*pipeline.Result, error) {
	if err := errs.ValidatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "result %s", path)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidPath, err, "read %s", path)
	}

	var res pipeline.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode result %s", path)
	}
	if len(res.Steps) == 0 && len(res.Schedule.IDs) > 0 {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "result %s has no visit steps", path)
	}
	return &res, nil
}
