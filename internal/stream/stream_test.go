package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func sseHandler(frames []string, hang bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		f := w.(http.Flusher)

		for _, frame := range frames {
			fmt.Fprint(w, frame)
			f.Flush()
		}

		if hang {
			<-r.Context().Done()
		}
	}
}

func TestOpenDeliversFramesInOrder(t *testing.T) {
	frames := []string{
		": keep-alive\n\n",
		"data: {\"seq\":1}\n\n",
		"data: not json\n\n",
		"data: {\"seq\":2}\n\n",
	}
	srv := httptest.NewServer(sseHandler(frames, false))
	defer srv.Close()

	var got []string
	closed := make(chan struct{})

	s, err := Open(context.Background(), nil, srv.URL, func(data []byte) {
		got = append(got, string(data))
	}, func(err error) {
		t.Errorf("unexpected transport error: %v", err)
	}, func() {
		close(closed)
	})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer s.Close()

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for stream close")
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 payloads, got %d: %v", len(got), got)
	}
	if got[0] != `{"seq":1}` || got[1] != `{"seq":2}` {
		t.Fatalf("unexpected payloads: %v", got)
	}
}

func TestOpenRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := Open(context.Background(), nil, srv.URL, func([]byte) {}, nil, nil); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestTransportErrorFiresOnce(t *testing.T) {
	srv := httptest.NewServer(sseHandler([]string{"data: {\"seq\":1}\n\n"}, true))
	defer srv.Close()

	delivered := make(chan struct{}, 1)
	var errCount atomic.Int32
	errCh := make(chan struct{})

	s, err := Open(context.Background(), nil, srv.URL, func([]byte) {
		select {
		case delivered <- struct{}{}:
		default:
		}
	}, func(err error) {
		if errCount.Add(1) == 1 {
			close(errCh)
		}
	}, func() {
		t.Error("onClose must not fire on transport error")
	})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer s.Close()

	select {
	case <-delivered:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first frame")
	}

	// Kill the connection under the reader.
	srv.CloseClientConnections()

	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for error callback")
	}

	time.Sleep(50 * time.Millisecond)
	if got := errCount.Load(); got != 1 {
		t.Fatalf("error callback fired %d times", got)
	}
}

func TestCloseTearsDownWithoutError(t *testing.T) {
	srv := httptest.NewServer(sseHandler([]string{"data: {\"seq\":1}\n\n"}, true))
	defer srv.Close()

	s, err := Open(context.Background(), nil, srv.URL, func([]byte) {}, func(err error) {
		t.Errorf("local teardown must not surface a transport error: %v", err)
	}, nil)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	s.Close()
	s.Close() // safe to repeat

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pump to drain")
	}
}
