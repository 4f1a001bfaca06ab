package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robobook/bookchat/internal/store"
)

var clearSessions bool

// NewSessionsCommand creates the sessions command
func NewSessionsCommand() *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List or clear persisted chat sessions",
		RunE:  runSessions,
	}

	sessionsCmd.Flags().BoolVar(&clearSessions, "clear", false, "Erase all persisted sessions")

	return sessionsCmd
}

func runSessions(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}

	if clearSessions {
		a.sessions.Clear()
		fmt.Println("All sessions cleared")
		return nil
	}

	return printSessions(a.sessions)
}

func printSessions(sessions *store.Store) error {
	list := sessions.List()
	if len(list) == 0 {
		fmt.Println("No sessions found")
		return nil
	}

	fmt.Println("Sessions:")
	fmt.Println("=========")
	for i, session := range list {
		truncatedID := session.ID
		if len(truncatedID) > 12 {
			truncatedID = truncatedID[:12] + "..."
		}
		fmt.Printf("%d. %s\n", i+1, truncatedID)
		fmt.Printf("   Started: %s\n", session.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Printf("   Last Activity: %s\n", session.LastActivityAt.Format("2006-01-02 15:04"))
		fmt.Printf("   Messages: %d\n", len(session.Messages))
		if pageURL, ok := session.Metadata["page_url"]; ok && pageURL != "" {
			fmt.Printf("   Page: %s\n", pageURL)
		}
		fmt.Println()
	}

	return nil
}
