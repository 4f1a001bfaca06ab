package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robobook/bookchat/internal/chat"
	"github.com/robobook/bookchat/internal/config"
	"github.com/robobook/bookchat/internal/db"
	"github.com/robobook/bookchat/internal/logging"
	"github.com/robobook/bookchat/internal/store"
	"github.com/robobook/bookchat/internal/transport"
	"github.com/robobook/bookchat/internal/tui"
)

// clientName identifies this client in query and session metadata.
const clientName = "bookchat"

var (
	configPath string
	backendURL string
	verbose    bool
	debugMode  bool
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bookchat",
		Short: "Chat with the robotics handbook from your terminal",
		Long: `bookchat is a TUI chat client for the robotics handbook. It shows the
local documentation in a reader pane and answers questions through the
book's question-answering backend, using any text you select as context.`,
		RunE:          runTUI,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to the config file")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "Backend base URL (overrides the config file)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Print sessions and exit instead of launching the TUI")

	rootCmd.AddCommand(NewAskCommand())
	rootCmd.AddCommand(NewSessionsCommand())
	rootCmd.AddCommand(NewHealthCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles everything a command needs after setup.
type app struct {
	cfg      config.Config
	sessions *store.Store
	client   *transport.Client
}

// setup loads configuration and opens the state database. A state database
// that cannot be opened degrades to in-memory sessions rather than failing
// the command.
func setup() (*app, error) {
	logging.SetVerbose(verbose)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if backendURL != "" {
		cfg.BackendURL = backendURL
	}

	database, err := db.Open(cfg.StatePath)
	if err != nil {
		logging.Warnf("state database unavailable, sessions will not persist: %v", err)
		database = nil
	}

	return &app{
		cfg:      cfg,
		sessions: store.New(database),
		client:   transport.NewClient(cfg.BackendURL, cfg.Timeout()),
	}, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}

	if debugMode {
		return printSessions(a.sessions)
	}

	controller := chat.NewController(a.sessions, a.client, clientName, "")
	if err := tui.Run(controller, a.cfg.DocsDir); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
