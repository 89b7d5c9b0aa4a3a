// StoreSync CLI — инструмент оператора воркера онбординга магазинов.
//
// Использование:
//
//	storesync [--rabbitmq-url URL] [--backend-url URL] [--json] <command> [flags]
//
// Команды:
//
//	event      Публикация тестовых событий
//	store      Прямые вызовы бэкенда
//	callback   Поиск URL доставки webhook'ов
//	topology   Топология брокера
//	status     Состояние запущенного воркера
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/storesync/internal/backend"
	"github.com/shaiso/storesync/internal/callback"
	"github.com/shaiso/storesync/internal/cli"
	"github.com/shaiso/storesync/internal/mq"
	"github.com/shaiso/storesync/internal/telemetry"
	"github.com/shaiso/storesync/internal/workflow"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	defaults, err := cli.LoadEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	var (
		rabbitURL    string
		queue        string
		backendURL   string
		serviceToken string
		callbackURL  string
		tunnelURL    string
		workerURL    string
		jsonOutput   bool
		verbose      bool
	)

	rootCmd := &cobra.Command{
		Use:           "storesync",
		Short:         "StoreSync CLI — store onboarding worker tooling",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rabbitURL, "rabbitmq-url", defaults.RabbitMQURL, "RabbitMQ URL")
	flags.StringVar(&queue, "queue", defaults.Queue, "Worker queue name")
	flags.StringVar(&backendURL, "backend-url", defaults.BackendURL, "Backend base URL")
	flags.StringVar(&serviceToken, "service-token", defaults.ServiceToken, "Backend service token")
	flags.StringVar(&callbackURL, "callback-url", defaults.CallbackURL, "Static webhook delivery URL")
	flags.StringVar(&tunnelURL, "tunnel-api-url", defaults.TunnelAPIURL, "Tunnel API URL")
	flags.StringVar(&workerURL, "worker-url", defaults.WorkerURL, "Worker ops server URL")
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	logLevel := func() string {
		if verbose {
			return "debug"
		}
		return "error"
	}

	publisherFn := func() (cli.EventPublisher, func() error, error) {
		log := telemetry.NewLogger(os.Stderr, logLevel(), "text")
		conn, err := mq.Dial(rabbitURL, "storesync-cli", log)
		if err != nil {
			return nil, nil, err
		}
		if err := mq.SetupTopology(conn.Channel(), queue); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("setup topology: %w", err)
		}
		return mq.NewPublisher(conn.Channel(), log), conn.Close, nil
	}

	backendFn := func() (workflow.Backend, error) {
		if serviceToken == "" {
			return nil, fmt.Errorf("service token is required (--service-token or SERVICE_TOKEN)")
		}
		return backend.New(backend.Config{
			BaseURL:      backendURL,
			ServiceToken: serviceToken,
			Timeout:      time.Duration(defaults.HTTPTimeout) * time.Second,
			Logger:       telemetry.NewLogger(os.Stderr, logLevel(), "text"),
		}), nil
	}

	resolverFn := func() callback.Resolver {
		if callbackURL != "" {
			return callback.Static(callbackURL)
		}
		return callback.NewTunnelResolver(callback.TunnelConfig{
			APIURL: tunnelURL,
			Logger: telemetry.NewLogger(os.Stderr, logLevel(), "text"),
		})
	}

	rootCmd.AddCommand(
		cli.NewEventCmd(publisherFn, outputFn),
		cli.NewStoreCmd(backendFn, defaults.WebhookTopics, outputFn),
		cli.NewCallbackCmd(resolverFn, outputFn),
		cli.NewTopologyCmd(func() string { return queue }, outputFn),
		cli.NewStatusCmd(func() *cli.Client { return cli.NewClient(workerURL) }, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
