package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"emailbuilder/internal/config"
	"emailbuilder/internal/editor"
	mcpserver "emailbuilder/internal/mcp"
	"emailbuilder/internal/service"
)

// ServeMCP runs the builder as an MCP server on stdin/stdout until the
// client disconnects or the process is interrupted. Approvals go through
// the database so another process (the approvals command) can resolve them.
func (a *App) ServeMCP(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := a.Config()
	emitter := service.LogEmitter{Logger: a.logger.Named("events")}

	queue := mcpserver.NewApprovalQueue(ctx, emitter, a.logger.Named("approval"))
	queue.SetStore(a.approvals)
	queue.SetTimeout(time.Duration(cfg.MCP.ApprovalTimeoutSec) * time.Second)

	templates := a.Templates(
		service.WithEmitter(emitter),
		service.WithEditorOptions(editor.WithConfirm(queue.Confirm)),
	)

	pickers, err := a.Pickers(ctx)
	if err != nil {
		// Templates can still be edited without a catalog.
		a.logger.Warn("catalog unavailable", zap.Error(err))
	}

	retention := a.Retention(emitter)
	if err := retention.Start(ctx, cfg.Revisions.Schedule); err != nil {
		return err
	}
	defer retention.Stop()

	a.loader.OnChange(func(c *config.Config) {
		queue.SetTimeout(time.Duration(c.MCP.ApprovalTimeoutSec) * time.Second)
		retention.SetKeep(c.Revisions.Keep)
		if err := retention.Start(ctx, c.Revisions.Schedule); err != nil {
			a.logger.Error("reschedule pruning", zap.Error(err))
		}
	})
	if err := a.loader.Watch(); err != nil {
		a.logger.Warn("config watch disabled", zap.Error(err))
	}

	srv := mcpserver.New(ctx, mcpserver.Deps{
		Emitter:   emitter,
		Logger:    a.logger.Named("mcp"),
		Templates: templates,
		Revisions: a.revisions,
		Pickers:   pickers,
		Approval:  queue,
	})

	err = srv.ServeStdio()

	waitCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	templates.WaitSaves(waitCtx)
	return err
}
