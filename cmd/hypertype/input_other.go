//go:build !linux

package main

import (
	"context"
	"errors"
	"log/slog"
)

func runKeyboardInput(ctx context.Context, paths []string, events chan<- Event, logger *slog.Logger) error {
	return errors.New("keyboard input devices are only supported on linux")
}
