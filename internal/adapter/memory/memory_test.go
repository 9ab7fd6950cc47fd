package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/user/registry-crawler/internal/entity"
)

func TestTaskDeduper_ConcurrentInsertIfAbsent(t *testing.T) {
	d := NewTaskDeduper()
	ctx := context.Background()

	const goroutines = 50
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		novel int
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := d.MarkIfAbsent(ctx, "same-identity")
			if err != nil {
				t.Error(err)
				return
			}
			if ok {
				mu.Lock()
				novel++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if novel != 1 {
		t.Errorf("novel = %d, want exactly 1", novel)
	}
	if d.Len() != 1 {
		t.Errorf("Len = %d, want 1", d.Len())
	}
}

func TestTaskQueue_FIFO(t *testing.T) {
	q := NewTaskQueue()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := q.Push(ctx, entity.FetchTask{URL: fmt.Sprintf("https://example.test/%d", i)}); err != nil {
			t.Fatal(err)
		}
	}
	if n, _ := q.Size(ctx); n != 3 {
		t.Fatalf("Size = %d, want 3", n)
	}
	for i := 0; i < 3; i++ {
		task, ok, err := q.Pop(ctx)
		if err != nil || !ok {
			t.Fatalf("Pop %d: ok=%v err=%v", i, ok, err)
		}
		if want := fmt.Sprintf("https://example.test/%d", i); task.URL != want {
			t.Errorf("Pop %d = %s, want %s", i, task.URL, want)
		}
	}
	if _, ok, _ := q.Pop(ctx); ok {
		t.Error("Pop on empty queue reported a task")
	}
}

func TestFailedTaskRepo_SaveOrUpdate(t *testing.T) {
	r := NewFailedTaskRepo()
	ctx := context.Background()
	now := time.Now()

	first := &entity.FailedTask{Identity: "a", URL: "https://example.test/a", FailureReason: "timeout", Attempts: 3, LastAttemptTimestamp: now}
	if err := r.SaveOrUpdate(ctx, first); err != nil {
		t.Fatal(err)
	}
	again := &entity.FailedTask{Identity: "a", URL: "https://example.test/a", FailureReason: "status 503", HTTPStatusCode: 503, Attempts: 3, LastAttemptTimestamp: now.Add(time.Minute)}
	if err := r.SaveOrUpdate(ctx, again); err != nil {
		t.Fatal(err)
	}
	other := &entity.FailedTask{Identity: "b", URL: "https://example.test/b", Attempts: 1, LastAttemptTimestamp: now.Add(-time.Minute)}
	if err := r.SaveOrUpdate(ctx, other); err != nil {
		t.Fatal(err)
	}

	list, err := r.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("List = %d entries, want 2", len(list))
	}
	if list[0].Identity != "a" || list[0].Attempts != 6 || list[0].HTTPStatusCode != 503 {
		t.Errorf("newest entry = %+v", list[0])
	}
	if limited, _ := r.List(ctx, 1); len(limited) != 1 {
		t.Errorf("List(limit 1) = %d entries", len(limited))
	}
}

func TestRecordSink_Append(t *testing.T) {
	s := NewRecordSink()
	d := entity.NewBusinessDetail("https://example.test/ViewDetails/1")
	if err := s.Append(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	if got := len(s.Records()); got != 2 {
		t.Errorf("Records = %d, want 2 (no dedup at the sink)", got)
	}
}
