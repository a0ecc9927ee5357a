// Package stream consumes a finite server-pushed event stream for one job.
// Streams end exactly once, via a terminal payload or a transport error;
// there is deliberately no reconnect, since a partially replayed stream
// would double-apply progress.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"batchup/internal/logger"
)

// Handler receives one decoded payload. It is invoked sequentially from a
// single reader goroutine, in server send order.
type Handler func(data []byte)

type Stream struct {
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Open subscribes to url and pumps data payloads into handler. Non-JSON
// lines (keep-alive comments, blanks) are dropped silently. onErr fires at
// most once on a transport failure; onClose fires when the server ends the
// stream cleanly. Both terminate the channel. client may be nil; the
// default client carries no timeout because streams are long-lived.
func Open(ctx context.Context, client *http.Client, url string, handler Handler, onErr func(error), onClose func()) (*Stream, error) {
	if client == nil {
		client = &http.Client{}
	}

	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("stream rejected: %s", resp.Status)
	}

	s := &Stream{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go s.pump(ctx, resp, handler, onErr, onClose)

	return s, nil
}

func (s *Stream) pump(ctx context.Context, resp *http.Response, handler Handler, onErr func(error), onClose func()) {
	defer close(s.done)
	defer func() {
		_ = resp.Body.Close()
	}()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || !json.Valid([]byte(payload)) {
			logger.Log.Debug("dropping non-data frame",
				zap.Int("len", len(payload)))
			continue
		}

		handler([]byte(payload))
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			// Local teardown, not a transport failure.
			return
		}

		logger.Log.Warn("stream transport error",
			zap.Error(err))

		if onErr != nil {
			onErr(err)
		}
		return
	}

	if onClose != nil {
		onClose()
	}
}

// Close tears the channel down. It does not wait for the pump, because a
// terminal event handler closes its own stream from inside the pump
// goroutine; late frames are fenced off by the caller's job-id guard.
func (s *Stream) Close() {
	s.closeOnce.Do(s.cancel)
}

// Done is closed once the pump has drained and released the connection.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}
