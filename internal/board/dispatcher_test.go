package board

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"boardroom/internal/gateway"
)

// batchStubGateway pairs the plain stub with a canned batch dispatch.
// batchErr fails every attempt, or only the first failTimes attempts
// when that is set.
type batchStubGateway struct {
	*stubGateway
	slots     []gateway.BatchResponse
	batchErr  error
	failTimes int
	attempts  int
	batched   bool
}

func (b *batchStubGateway) Dispatch(ctx context.Context, promptFile string, models []gateway.ModelID) ([]gateway.BatchResponse, error) {
	b.attempts++
	b.batched = true
	if b.batchErr != nil && (b.failTimes == 0 || b.attempts <= b.failTimes) {
		return nil, b.batchErr
	}
	return b.slots, nil
}

func testRequest(t *testing.T, models ...string) DecisionRequest {
	t.Helper()
	ids := make([]gateway.ModelID, len(models))
	for i, m := range models {
		ids[i] = mustModel(t, m)
	}
	return DecisionRequest{
		Prompt:  "should we ship?",
		Models:  ids,
		Arbiter: mustModel(t, "anthropic:claude-3-opus"),
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	t.Parallel()

	t.Run("one entry per model in request order", func(t *testing.T) {
		gw := newStubGateway(func(prompt string, m gateway.ModelID) (string, error) {
			return "answer from " + m.String(), nil
		})
		d := NewDispatcher(gw, t.TempDir(), time.Second, 0, time.Millisecond, nil)
		req := testRequest(t, "openai:gpt-4o", "anthropic:claude-3-opus", "google:gemini-pro")

		entries := d.Dispatch(context.Background(), req)
		if len(entries) != 3 {
			t.Fatalf("got %d entries, want 3", len(entries))
		}
		for i, want := range req.Models {
			if entries[i].Model != want {
				t.Errorf("entry %d model = %v, want %v", i, entries[i].Model, want)
			}
			if entries[i].Err != nil {
				t.Errorf("entry %d error: %v", i, entries[i].Err)
				continue
			}
			data, err := os.ReadFile(entries[i].ResponseFile)
			if err != nil {
				t.Fatalf("entry %d response file unreadable: %v", i, err)
			}
			if got := string(data); got != "answer from "+want.String() {
				t.Errorf("entry %d content = %q", i, got)
			}
		}
	})

	t.Run("one failure does not abort the rest", func(t *testing.T) {
		gw := newStubGateway(func(prompt string, m gateway.ModelID) (string, error) {
			if m.Provider == "flaky" {
				return "", errors.New("provider down")
			}
			return "fine", nil
		})
		d := NewDispatcher(gw, t.TempDir(), time.Second, 0, time.Millisecond, nil)
		req := testRequest(t, "openai:gpt-4o", "flaky:model", "google:gemini-pro")

		entries := d.Dispatch(context.Background(), req)
		if len(entries) != 3 {
			t.Fatalf("got %d entries, want 3", len(entries))
		}
		if entries[1].Err == nil {
			t.Error("flaky entry has no error")
		}
		for _, i := range []int{0, 2} {
			if entries[i].Err != nil {
				t.Errorf("healthy entry %d failed: %v", i, entries[i].Err)
			}
			if entries[i].ResponseFile == "" {
				t.Errorf("healthy entry %d has no response file", i)
			}
		}
	})

	t.Run("concurrent workers each write their own slot", func(t *testing.T) {
		gw := newStubGateway(func(prompt string, m gateway.ModelID) (string, error) {
			time.Sleep(time.Millisecond)
			return m.String(), nil
		})
		d := NewDispatcher(gw, t.TempDir(), time.Second, 0, time.Millisecond, nil)

		names := make([]string, 8)
		for i := range names {
			names[i] = fmt.Sprintf("provider%d:model%d", i, i)
		}
		req := testRequest(t, names...)

		entries := d.Dispatch(context.Background(), req)
		if len(entries) != len(names) {
			t.Fatalf("got %d entries, want %d", len(entries), len(names))
		}
		for i, name := range names {
			if entries[i].Model.String() != name {
				t.Errorf("entry %d = %v, want %s", i, entries[i].Model, name)
			}
		}
	})

	t.Run("unwritable spool dir settles as entry error", func(t *testing.T) {
		gw := newStubGateway(func(prompt string, m gateway.ModelID) (string, error) {
			return "text", nil
		})
		d := NewDispatcher(gw, "/nonexistent/spool/dir", time.Second, 0, time.Millisecond, nil)
		req := testRequest(t, "openai:gpt-4o")

		entries := d.Dispatch(context.Background(), req)
		if len(entries) != 1 || entries[0].Err == nil {
			t.Fatalf("entries = %+v, want one errored entry", entries)
		}
		if !strings.Contains(entries[0].Err.Error(), "spool") {
			t.Errorf("error = %v, want spool failure", entries[0].Err)
		}
	})
}

func TestDispatcher_BatchPath(t *testing.T) {
	t.Parallel()

	t.Run("batch gateway used when prompt file set", func(t *testing.T) {
		dir := t.TempDir()
		respFile := dir + "/r1.md"
		if err := os.WriteFile(respFile, []byte("batch answer"), 0644); err != nil {
			t.Fatal(err)
		}
		gw := &batchStubGateway{
			stubGateway: newStubGateway(func(string, gateway.ModelID) (string, error) { return "", errors.New("unused") }),
			slots: []gateway.BatchResponse{
				{Model: mustModel(t, "openai:gpt-4o"), ResponseFile: respFile},
			},
		}
		d := NewDispatcher(gw, dir, time.Second, 0, time.Millisecond, nil)
		req := testRequest(t, "openai:gpt-4o", "google:gemini-pro")
		req.PromptFile = dir + "/prompt.md"

		entries := d.Dispatch(context.Background(), req)
		if !gw.batched {
			t.Fatal("batch path not taken")
		}
		// A batch gateway decides its own slot count; divergence is
		// reconciled downstream.
		if len(entries) != 1 {
			t.Fatalf("got %d entries, want the gateway's 1 slot", len(entries))
		}
		if entries[0].ResponseFile != respFile {
			t.Errorf("entry file = %q, want %q", entries[0].ResponseFile, respFile)
		}
	})

	t.Run("batch gateway skipped without prompt file", func(t *testing.T) {
		gw := &batchStubGateway{
			stubGateway: newStubGateway(func(string, gateway.ModelID) (string, error) { return "inline", nil }),
		}
		d := NewDispatcher(gw, t.TempDir(), time.Second, 0, time.Millisecond, nil)
		req := testRequest(t, "openai:gpt-4o")

		entries := d.Dispatch(context.Background(), req)
		if gw.batched {
			t.Error("batch path taken without a prompt file")
		}
		if len(entries) != 1 || entries[0].Err != nil {
			t.Fatalf("entries = %+v, want one clean entry", entries)
		}
	})

	t.Run("transient whole-batch failure retried to success", func(t *testing.T) {
		dir := t.TempDir()
		respFile := dir + "/r1.md"
		if err := os.WriteFile(respFile, []byte("recovered answer"), 0644); err != nil {
			t.Fatal(err)
		}
		gw := &batchStubGateway{
			stubGateway: newStubGateway(func(string, gateway.ModelID) (string, error) { return "", errors.New("unused") }),
			slots: []gateway.BatchResponse{
				{Model: mustModel(t, "openai:gpt-4o"), ResponseFile: respFile},
			},
			batchErr:  &gateway.RateLimitError{Provider: "promptd", RetryAfter: time.Millisecond},
			failTimes: 2,
		}
		d := NewDispatcher(gw, dir, time.Second, 3, time.Millisecond, nil)
		req := testRequest(t, "openai:gpt-4o")
		req.PromptFile = dir + "/prompt.md"

		entries := d.Dispatch(context.Background(), req)
		if gw.attempts != 3 {
			t.Errorf("batch attempts = %d, want 3 (two rate limits, then success)", gw.attempts)
		}
		if len(entries) != 1 || entries[0].Err != nil {
			t.Fatalf("entries = %+v, want one clean entry after retries", entries)
		}
		if entries[0].ResponseFile != respFile {
			t.Errorf("entry file = %q, want %q", entries[0].ResponseFile, respFile)
		}
	})

	t.Run("whole-batch failure after exhausted retries keeps one entry per model", func(t *testing.T) {
		gw := &batchStubGateway{
			stubGateway: newStubGateway(func(string, gateway.ModelID) (string, error) { return "", nil }),
			batchErr:    errors.New("gateway offline"),
		}
		d := NewDispatcher(gw, t.TempDir(), time.Second, 1, time.Millisecond, nil)
		req := testRequest(t, "openai:gpt-4o", "google:gemini-pro")
		req.PromptFile = "prompt.md"

		entries := d.Dispatch(context.Background(), req)
		if gw.attempts != 2 {
			t.Errorf("batch attempts = %d, want 2 before degrading", gw.attempts)
		}
		if len(entries) != 2 {
			t.Fatalf("got %d entries, want 2", len(entries))
		}
		for i, e := range entries {
			if e.Err == nil {
				t.Errorf("entry %d has no error after exhausted retries", i)
			}
			if !strings.Contains(e.Err.Error(), "retries exhausted") {
				t.Errorf("entry %d error = %v, want exhaustion wrapper", i, e.Err)
			}
			if e.Model != req.Models[i] {
				t.Errorf("entry %d model = %v, want %v", i, e.Model, req.Models[i])
			}
		}
	})
}
