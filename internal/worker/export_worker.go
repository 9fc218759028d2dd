// Package worker mirrors fill events into the external spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cardfill/internal/amqp"
	"cardfill/internal/core"
	"cardfill/internal/ports"
)

// EventSource delivers fill events until ctx is done.
type EventSource interface {
	ConsumeFillEvents(ctx context.Context, handler func(context.Context, *amqp.FillEvent) error) error
}

// ExportWorker appends a sheet row for every fill event. The sheet is an
// append-only log: a recategorized fill gets a second row with its new
// category.
type ExportWorker struct {
	fills      ports.FillRepository
	categories ports.CategoryRepository
	users      ports.UserRepository
	exporter   ports.FillExporter
}

func NewExportWorker(fills ports.FillRepository, categories ports.CategoryRepository, users ports.UserRepository, exporter ports.FillExporter) *ExportWorker {
	return &ExportWorker{fills: fills, categories: categories, users: users, exporter: exporter}
}

// Run consumes events from src until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, src EventSource) error {
	err := src.ConsumeFillEvents(ctx, w.HandleFillEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleFillEvent exports the fill referenced by msg. Events for fills that
// no longer exist are dropped; any other failure is returned so the message
// is redelivered.
func (w *ExportWorker) HandleFillEvent(ctx context.Context, msg *amqp.FillEvent) error {
	slog.InfoContext(ctx, "Processing fill event",
		"component", "worker",
		"message_id", msg.MessageID,
		"type", msg.Type,
		"fill_id", msg.FillID)

	f, err := w.fills.GetFill(ctx, msg.FillID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Fill not found, dropping event",
			"component", "worker", "fill_id", msg.FillID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get fill from storage: %w", err)
	}

	cat, err := w.categories.GetCategory(ctx, f.CategoryCode)
	switch {
	case errors.Is(err, core.ErrNotFound):
		cat = core.Category{Code: f.CategoryCode, Name: f.CategoryCode}
	case err != nil:
		return fmt.Errorf("get category %s: %w", f.CategoryCode, err)
	}

	user, err := w.users.GetUser(ctx, f.UserID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		user = core.User{ID: f.UserID}
	case err != nil:
		return fmt.Errorf("get user %d: %w", f.UserID, err)
	}

	ref, err := w.exporter.AppendFill(ctx, core.StoredFill{Fill: f, Category: cat}, user)
	if err != nil {
		return fmt.Errorf("export fill %d: %w", f.ID, err)
	}

	slog.InfoContext(ctx, "Fill exported",
		"component", "worker", "fill_id", f.ID, "ref", ref)
	return nil
}
