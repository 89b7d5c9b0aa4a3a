package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/storesync/internal/backend"
	"github.com/shaiso/storesync/internal/domain"
	"github.com/shaiso/storesync/internal/workflow"
)

// CallResult — результат прямого вызова бэкенда.
type CallResult struct {
	StoreID   int64  `json:"store_id"`
	Operation string `json:"operation"`
	Status    int    `json:"status"`
	Class     string `json:"class"`
	Detail    string `json:"detail,omitempty"`
}

// NewStoreCmd создаёт группу команд для прямых вызовов бэкенда.
// defaultTopics — темы для register-webhooks без --topic.
func NewStoreCmd(backendFn func() (workflow.Backend, error), defaultTopics []string, outputFn func() *Output) *cobra.Command {
	if len(defaultTopics) == 0 {
		defaultTopics = workflow.DefaultTopics
	}

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Call backend onboarding operations for a store",
	}

	cmd.AddCommand(
		newStoreSyncCmd(backendFn, outputFn),
		newStoreRegisterWebhooksCmd(backendFn, defaultTopics, outputFn),
	)

	return cmd
}

func newStoreSyncCmd(backendFn func() (workflow.Backend, error), outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <store-id>",
		Short: "Synchronize product categories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storeID, err := parseStoreID(args[0])
			if err != nil {
				return err
			}

			be, err := backendFn()
			if err != nil {
				return err
			}

			res := be.SyncCategories(cmd.Context(), storeID)
			return printCall(outputFn(), storeID, domain.StepSyncCategories, res)
		},
	}
}

func newStoreRegisterWebhooksCmd(backendFn func() (workflow.Backend, error), defaultTopics []string, outputFn func() *Output) *cobra.Command {
	var (
		deliveryURL string
		topics      []string
	)

	cmd := &cobra.Command{
		Use:   "register-webhooks <store-id>",
		Short: "Register webhook subscriptions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storeID, err := parseStoreID(args[0])
			if err != nil {
				return err
			}

			be, err := backendFn()
			if err != nil {
				return err
			}

			res := be.RegisterWebhooks(cmd.Context(), storeID, backend.WebhookRegistration{
				DeliveryURL: deliveryURL,
				Topics:      topics,
			})
			return printCall(outputFn(), storeID, domain.StepRegisterWebhooks, res)
		},
	}

	cmd.Flags().StringVar(&deliveryURL, "delivery-url", "", "Webhook delivery URL (backend default if empty)")
	cmd.Flags().StringSliceVar(&topics, "topic", defaultTopics, "Webhook topic (repeatable)")

	return cmd
}

func parseStoreID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid store id %q", s)
	}
	return id, nil
}

// printCall выводит результат; неуспешный класс — ошибка команды.
func printCall(out *Output, storeID int64, op domain.Step, res backend.Result) error {
	call := CallResult{
		StoreID:   storeID,
		Operation: string(op),
		Status:    res.Status,
		Class:     string(res.Class),
	}
	if res.Class != domain.ClassSuccess {
		call.Detail = res.Detail()
	}

	out.Print(
		[]string{"STORE_ID", "OPERATION", "STATUS", "CLASS"},
		[][]string{{strconv.FormatInt(storeID, 10), call.Operation, strconv.Itoa(call.Status), call.Class}},
		call,
	)

	if res.Class != domain.ClassSuccess {
		return fmt.Errorf("%s failed: %s (%s)", op, res.Class, res.Detail())
	}
	out.Success(fmt.Sprintf("%s succeeded for store %d", op, storeID))
	return nil
}
