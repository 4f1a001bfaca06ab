package commands

import "testing"

// TestNewRootCommand tests that the command tree is wired
func TestNewRootCommand(t *testing.T) {
	rootCmd := NewRootCommand()

	if rootCmd.Use != "bookchat" {
		t.Errorf("Unexpected root command name: %q", rootCmd.Use)
	}

	want := map[string]bool{"ask": false, "sessions": false, "health": false}
	for _, sub := range rootCmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Subcommand %q is not registered", name)
		}
	}

	for _, flag := range []string{"config", "backend", "verbose"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("Persistent flag %q is not registered", flag)
		}
	}
	if rootCmd.Flags().Lookup("debug") == nil {
		t.Error("Flag \"debug\" is not registered")
	}
}
