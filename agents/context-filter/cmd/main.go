package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	_ "time/tzdata"

	contextfilter "context-stack/agents/context-filter"
	"context-stack/internal/models"
	"context-stack/shared/ai"
	"context-stack/shared/config"
	"context-stack/shared/monitoring"
	"context-stack/shared/scheduler"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	cfg      *config.Config
	chatUser string
)

var rootCmd = &cobra.Command{
	Use:   "context-filter",
	Short: "Inject time, user and weather context into chat conversations",
	Long: `context-filter runs the inlet/outlet hooks of a chat pipeline: requests get the
user name and current time prepended to their first message, and responses to
conversations mentioning the weather get an OpenWeatherMap forecast appended.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the filter hooks over HTTP and probe the weather API on a schedule",
	RunE:  runServe,
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Run the forecast probe once",
	RunE: func(cmd *cobra.Command, args []string) error {
		probe := contextfilter.NewForecastProbe(&cfg.Context)
		if err := probe.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize probe: %w", err)
		}
		monitor := monitoring.NewMonitor()
		if err := scheduler.New(cfg.Schedule, monitor, probe).RunOnce(cmd.Context()); err != nil {
			return err
		}
		fmt.Println(monitor.GetStatusSummary())
		return nil
	},
}

var timeCmd = &cobra.Command{
	Use:   "time",
	Short: "Print the current time context",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		current, err := contextfilter.NewContextProvider(&cfg.Context).CurrentTime()
		if err != nil {
			return err
		}
		fmt.Println(current)
		return nil
	},
}

var forecastCmd = &cobra.Command{
	Use:   "forecast [city]",
	Short: "Print the forecast for a city, or for the default location",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := contextfilter.NewContextProvider(&cfg.Context)
		fmt.Println(provider.Forecast(cmd.Context(), strings.Join(args, " ")))
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send a message through inlet, Gemini and outlet",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChat,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("context-filter version %s\n", Version)
		fmt.Printf("  Git commit: %s\n", GitCommit)
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "", "User name to inject into the conversation")

	rootCmd.AddCommand(serveCmd, probeCmd, timeCmd, forecastCmd, chatCmd, versionCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	provider := contextfilter.NewContextProvider(&cfg.Context)
	monitor := monitoring.NewMonitor()
	probe := contextfilter.NewForecastProbe(&cfg.Context)
	s := scheduler.New(cfg.Schedule, monitor, probe)

	schedErr := make(chan error, 1)
	go func() {
		defer close(schedErr)
		if err := s.Start(ctx); err != nil && ctx.Err() == nil {
			schedErr <- err
			cancel()
		}
	}()

	err := contextfilter.NewServer(provider, monitor, cfg.Server.Port).Run(ctx)
	cancel()

	if sErr, ok := <-schedErr; ok {
		return fmt.Errorf("scheduler failed: %w", sErr)
	}
	return err
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := cfg.ValidateChat(); err != nil {
		return err
	}

	provider := contextfilter.NewContextProvider(&cfg.Context)
	completer, err := ai.NewCompleter(ctx, &cfg.AI)
	if err != nil {
		return err
	}

	var user *models.UserInfo
	if chatUser != "" {
		user = &models.UserInfo{Name: chatUser}
	}

	body := &models.ConversationBody{
		Messages: []models.Message{{Role: "user", Content: strings.Join(args, " ")}},
	}

	// The outlet scans the user text as typed, before context injection
	sent := append([]models.Message(nil), body.Messages...)

	body, err = provider.OnRequest(ctx, body, user)
	if err != nil {
		return err
	}
	log.Printf("Prompt: %s", body.Messages[0].Content)

	reply, err := completer.Complete(ctx, body.Messages)
	if err != nil {
		return err
	}

	response := &models.ConversationBody{
		Messages: append(sent, models.Message{Role: "assistant", Content: reply}),
		Choices:  []models.Choice{models.ChoiceText(reply)},
	}
	response = provider.OnResponse(ctx, response, user)

	fmt.Println(*response.Choices[0].Text)
	return nil
}
