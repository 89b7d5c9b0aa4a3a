package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/storesync/internal/callback"
)

// ResolvedCallback — результат callback resolve.
type ResolvedCallback struct {
	URL   string `json:"url,omitempty"`
	Found bool   `json:"found"`
}

// NewCallbackCmd создаёт группу команд для поиска callback URL.
func NewCallbackCmd(resolverFn func() callback.Resolver, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "callback",
		Short: "Inspect webhook delivery URL discovery",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "resolve",
		Short: "Resolve the public webhook delivery URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, ok := resolverFn().Resolve(cmd.Context())
			res := ResolvedCallback{URL: u, Found: ok}

			out := outputFn()
			if !ok {
				out.Success("No public URL found, backend default will be used")
			}

			display := u
			if !ok {
				display = "-"
			}
			out.Print([]string{"URL", "FOUND"}, [][]string{{display, boolString(ok)}}, res)
			return nil
		},
	})

	return cmd
}

func boolString(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
