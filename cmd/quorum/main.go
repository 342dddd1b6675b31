// Command quorum runs parallel structured-output calls from the shell.
//
//	quorum ask --model gpt-4o --schema schema.json "What is the capital of France?"
//	quorum config --file quorum.yaml
//	quorum serve --port 9090
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quorumllm/quorum"
	"github.com/quorumllm/quorum/internal/observability"
	"github.com/quorumllm/quorum/internal/provider"
	"github.com/quorumllm/quorum/pkg/config"
	pubobs "github.com/quorumllm/quorum/pkg/observability"
)

var (
	configFile string
	providerID string
)

func main() {
	root := &cobra.Command{
		Use:           "quorum",
		Short:         "Parallel structured-output LLM calls with a decision maker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&providerID, "provider", "openai", "provider to use (openai, openai-sdk, gemini)")

	root.AddCommand(askCmd(), configCmd(), serveCmd())

	if err := root.Execute(); err != nil {
		log.Fatalf("[Quorum] %v", err)
	}
}

func loadConfig() (config.Config, error) {
	if configFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.Config{}, err
	}
	return *cfg, nil
}

func askCmd() *cobra.Command {
	var (
		model      string
		schemaPath string
		system     string
		processors int
		strategy   string
		reasoning  bool
	)

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Run one parallel parse call and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			schemaRaw, err := os.ReadFile(schemaPath)
			if err != nil {
				return fmt.Errorf("reading schema: %w", err)
			}

			if err := observability.InitFromEnv(); err != nil {
				return err
			}
			defer observability.Shutdown(context.Background())

			client, err := quorum.New(providerID, nil, cfg)
			if err != nil {
				return err
			}

			messages := []quorum.Message{}
			if system != "" {
				messages = append(messages, quorum.Message{Role: "system", Content: system})
			}
			messages = append(messages, quorum.Message{Role: "user", Content: args[0]})

			var opts []quorum.CallOption
			if processors > 0 {
				opts = append(opts, quorum.WithProcessors(processors))
			}
			if strategy != "" {
				opts = append(opts, quorum.WithDecisionStrategy(strategy))
			}

			outcome, err := client.ParseWithOutcome(cmd.Context(), quorum.Request{
				Model:         model,
				Messages:      messages,
				Schema:        schemaRaw,
				PassReasoning: reasoning,
			}, opts...)
			if err != nil {
				return err
			}

			var pretty json.RawMessage = outcome.Value
			out, err := json.MarshalIndent(pretty, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))

			fmt.Fprintf(os.Stderr, "state=%s successes=%d failures=%d fallback=%t\n",
				outcome.State, outcome.Successes, outcome.Failures, outcome.FallbackUsed)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "gpt-4o", "model for dispatch attempts")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the JSON Schema for the result")
	cmd.Flags().StringVar(&system, "system", "", "optional system prompt")
	cmd.Flags().IntVar(&processors, "processors", 0, "override the number of concurrent attempts")
	cmd.Flags().StringVar(&strategy, "strategy", "", "override the decision strategy")
	cmd.Flags().BoolVar(&reasoning, "reasoning", false, "ask attempts for reasoning alongside the payload")
	cmd.MarkFlagRequired("schema")
	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			manager, err := config.NewManager(cfg)
			if err != nil {
				return err
			}

			summary := manager.Summary()
			keys := make([]string, 0, len(summary))
			for k := range summary {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%-22s %v\n", k, summary[k])
			}
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health and Prometheus metrics endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Reachability check: the factory fails when the provider is
			// unknown or its API key is missing.
			pubobs.GetHealthChecker().RegisterCheck(pubobs.ProviderCheck(providerID, func(ctx context.Context) error {
				_, err := provider.New(providerID, nil)
				return err
			}))

			srv := pubobs.NewServer(port)
			if err := srv.Start(); err != nil {
				return err
			}
			log.Printf("[Quorum] observability server listening on %s", srv.Addr())

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-srv.Err():
				return err
			case <-sig:
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 9090, "port for /health and /metrics")
	return cmd
}
