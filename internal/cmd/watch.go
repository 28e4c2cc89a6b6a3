package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"emailbuilder/internal/app"
	"emailbuilder/internal/storage"
)

func watchCmd() *cobra.Command {
	var interval time.Duration

	cmd := cobra.Command{
		Use:   "watch",
		Short: "Follow approval requests and template changes made by an MCP session.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive")
			}
			return withApp(func(a *app.App) error {
				return a.Watch(cmd.Context(), interval, &printEmitter{w: cmd.OutOrStdout()})
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Second, "How often to poll the database.")

	return &cmd
}

// printEmitter writes watch events as one line each.
type printEmitter struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printEmitter) Emit(_ context.Context, event string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch v := data.(type) {
	case storage.Approval:
		fmt.Fprintf(p.w, "%s  approval %s: %s (%s) - run `approvals approve %s` or `approvals reject %s`\n",
			time.Now().Format(time.TimeOnly), v.ID, v.Description, v.Tool, v.ID, v.ID)
	default:
		fmt.Fprintf(p.w, "%s  %s %v\n", time.Now().Format(time.TimeOnly), event, data)
	}
}
