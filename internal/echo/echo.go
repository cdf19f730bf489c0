// Package echo implements a UDP echo App: every received payload is sent
// straight back to its sender, and in repeat mode a second identical reply
// follows 50ms later.
package echo

import (
	"fmt"
	"time"

	"github.com/jibi/hydrogen-peroxide/internal/netstack"
)

// App echoes every received payload back to its sender.
type App struct {
	handle netstack.Handle
	repeat bool
}

// New builds an App bound to handle. When repeat is set, every payload is
// echoed twice: once immediately, once again after a 50ms delay.
func New(handle netstack.Handle, repeat bool) *App {
	return &App{handle: handle, repeat: repeat}
}

// RxPayload implements netstack.App.
func (a *App) RxPayload(h netstack.Handle, socket netstack.Socket, payload []byte) error {
	if err := sendEchoResponse(h, socket, payload); err != nil {
		return fmt.Errorf("echo: sending response: %w", err)
	}

	if a.repeat {
		scheduleEchoResponse(a.handle, socket, payload)
	}

	return nil
}

func sendEchoResponse(h netstack.Handle, socket netstack.Socket, payload []byte) error {
	txPayload, err := h.NewTxPayloadBuf()
	if err != nil {
		return err
	}

	buf, err := txPayload.Buf().GetBytes(len(payload))
	if err != nil {
		return err
	}
	copy(buf, payload)

	return h.SendPayload(socket, txPayload)
}

// scheduleEchoResponse sends a second, delayed copy of payload on its own
// goroutine — a repeat-mode convenience useful for exercising reordering
// and retransmission behavior in clients talking to this endpoint.
func scheduleEchoResponse(h netstack.Handle, socket netstack.Socket, payload []byte) {
	payloadCopy := make([]byte, len(payload))
	copy(payloadCopy, payload)

	go func() {
		time.Sleep(50 * time.Millisecond)
		if err := sendEchoResponse(h, socket, payloadCopy); err != nil {
			fmt.Printf("echo: delayed response failed: %v\n", err)
		}
	}()
}
