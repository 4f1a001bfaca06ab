package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/robobook/bookchat/internal/chat"
	"github.com/robobook/bookchat/pkg/models"
)

var contextFile string

// NewAskCommand creates the ask command
func NewAskCommand() *cobra.Command {
	askCmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question without the TUI",
		Long: `Ask sends one question through the same pipeline as the TUI and prints
the answer with its sources. The conversation is recorded in the session
store, so a later TUI run continues where ask left off.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}

	askCmd.Flags().StringVar(&contextFile, "context-file", "", "File whose contents are sent as selection context")

	return askCmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}

	question := strings.Join(args, " ")

	var sel *models.SelectionContext
	if contextFile != "" {
		data, err := os.ReadFile(contextFile)
		if err != nil {
			return fmt.Errorf("failed to read context file: %w", err)
		}
		sel = &models.SelectionContext{
			Text:      strings.TrimSpace(string(data)),
			Timestamp: time.Now(),
		}
	}

	controller := chat.NewController(a.sessions, a.client, clientName, "")
	result, err := controller.Send(context.Background(), question, sel)
	if err != nil {
		return errors.New(chat.UserMessage(err))
	}

	fmt.Println(result.Assistant.Content)

	if len(result.Assistant.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for i, source := range result.Assistant.Sources {
			if source.URL != "" {
				fmt.Printf("  %d. %s (%s)\n", i+1, source.Title, source.URL)
			} else {
				fmt.Printf("  %d. %s\n", i+1, source.Title)
			}
		}
	}

	return nil
}
