package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/robobook/bookchat/internal/transport"
)

// NewHealthCommand creates the health command
func NewHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check backend service health",
		RunE:  runHealth,
	}
}

func runHealth(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}

	status, err := a.client.Health(context.Background())
	if err != nil {
		var terr *transport.Error
		if errors.As(err, &terr) {
			return errors.New(terr.UserMessage())
		}
		return err
	}

	fmt.Printf("Backend: %s\n", a.cfg.BackendURL)
	fmt.Printf("Status: %s\n", status.Status)

	if len(status.Services) > 0 {
		fmt.Println("Services:")
		names := make([]string, 0, len(status.Services))
		for name := range status.Services {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-12s %s\n", name, status.Services[name])
		}
	}

	return nil
}
