package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaiso/storesync/internal/mq"
)

// TopologyView — топология, которую объявляет воркер.
type TopologyView struct {
	Exchange     string `json:"exchange"`
	ExchangeType string `json:"exchange_type"`
	Queue        string `json:"queue"`
	RoutingKey   string `json:"routing_key"`
	RetryHeader  string `json:"retry_header"`
}

// NewTopologyCmd создаёт команду вывода топологии.
func NewTopologyCmd(queueFn func() string, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "topology",
		Short: "Show the broker topology declared by the worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue := queueFn()
			out := outputFn()

			if !out.jsonMode {
				fmt.Fprint(out.w, mq.TopologyInfo(queue))
				return nil
			}

			out.JSON(TopologyView{
				Exchange:     string(mq.ExchangeEvents),
				ExchangeType: "topic",
				Queue:        queue,
				RoutingKey:   string(mq.RoutingKeyStoreConnected),
				RetryHeader:  mq.HeaderRetryCount,
			})
			return nil
		},
	}
}
