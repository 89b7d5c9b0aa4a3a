package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewStatusCmd создаёт команду проверки запущенного воркера.
func NewStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show health and readiness of a running worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := clientFn().Status()

			outputFn().Print(
				[]string{"URL", "ALIVE", "READY", "BROKER"},
				[][]string{{s.URL, strconv.FormatBool(s.Alive), strconv.FormatBool(s.Ready), strconv.FormatBool(s.BrokerConnected)}},
				s,
			)

			if !s.Alive {
				return fmt.Errorf("worker at %s is not reachable", s.URL)
			}
			return nil
		},
	}
}
