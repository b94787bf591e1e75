package ephemeral

import (
	"bytes"
	"context"
	"testing"
	"time"

	"genq/internal/objstore"
)

func put(t *testing.T, objects *objstore.MemoryStore, key string) {
	t.Helper()
	if err := objects.Put(context.Background(), key, bytes.NewReader([]byte("photo")), "image/jpeg"); err != nil {
		t.Fatal(err)
	}
}

func exists(t *testing.T, objects *objstore.MemoryStore, key string) bool {
	t.Helper()
	ok, err := objects.Exists(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	return ok
}

func TestScheduledDeletionFires(t *testing.T) {
	objects := objstore.NewMemoryStore()
	s := NewScheduler(objects)

	put(t, objects, "uploads/a")
	s.ScheduleDeletion("uploads/a", 60*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	if !exists(t, objects, "uploads/a") {
		t.Fatal("object deleted before its grace period")
	}

	time.Sleep(80 * time.Millisecond)
	if exists(t, objects, "uploads/a") {
		t.Fatal("object still present after its grace period")
	}
}

func TestDeleteNowCancelsTimer(t *testing.T) {
	objects := objstore.NewMemoryStore()
	s := NewScheduler(objects)

	put(t, objects, "uploads/b")
	s.ScheduleDeletion("uploads/b", 50*time.Millisecond)

	if err := s.DeleteNow(context.Background(), "uploads/b"); err != nil {
		t.Fatal(err)
	}
	if exists(t, objects, "uploads/b") {
		t.Fatal("object present after DeleteNow")
	}

	// Let the original deadline pass; the cancelled timer must not fire
	// and the double delete must not error anything.
	time.Sleep(80 * time.Millisecond)
	if exists(t, objects, "uploads/b") {
		t.Fatal("object reappeared")
	}
}

func TestDeleteNowOnAbsentObject(t *testing.T) {
	s := NewScheduler(objstore.NewMemoryStore())
	if err := s.DeleteNow(context.Background(), "never-uploaded"); err != nil {
		t.Fatalf("delete of absent object must be silent, got %v", err)
	}
}

func TestRescheduleResetsTimer(t *testing.T) {
	objects := objstore.NewMemoryStore()
	s := NewScheduler(objects)

	put(t, objects, "uploads/c")
	s.ScheduleDeletion("uploads/c", 30*time.Millisecond)
	s.ScheduleDeletion("uploads/c", 120*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	if !exists(t, objects, "uploads/c") {
		t.Fatal("first timer fired despite reschedule")
	}
	time.Sleep(100 * time.Millisecond)
	if exists(t, objects, "uploads/c") {
		t.Fatal("rescheduled deletion never fired")
	}
}

func TestStopFlushesPending(t *testing.T) {
	objects := objstore.NewMemoryStore()
	s := NewScheduler(objects)

	put(t, objects, "uploads/d")
	s.ScheduleDeletion("uploads/d", time.Hour)
	s.Stop()

	if exists(t, objects, "uploads/d") {
		t.Fatal("pending deletion not flushed on Stop")
	}
}
