//go:build unix

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// evacuationSignal entrega os SIGUSR1 enviados ao processo (alarme de incêndio).
func evacuationSignal() chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	return ch
}
