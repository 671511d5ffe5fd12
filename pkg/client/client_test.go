package client

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/muaviaUsmani/bullmq-core-go/internal/job"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)

	c, err := NewClient("redis://"+s.Addr(), "bull", "jobs")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c, s
}

func TestNewClient(t *testing.T) {
	c, s := newTestClient(t)
	defer s.Close()
	defer c.Close()

	if c == nil {
		t.Fatal("expected client to be created, got nil")
	}
	if c.queue == nil {
		t.Error("expected queue to be initialized")
	}
}

func TestNewClient_ConnectionFailure(t *testing.T) {
	c, err := NewClient("redis://invalid-host:9999", "bull", "jobs")

	if err == nil {
		t.Fatal("expected error for invalid Redis URL, got nil")
	}
	if c != nil {
		t.Error("expected nil client on connection failure")
	}
}

func TestSubmitJob_CreatesJobCorrectly(t *testing.T) {
	c, s := newTestClient(t)
	defer s.Close()
	defer c.Close()

	payload := map[string]string{"key": "value"}
	jobID, err := c.SubmitJob("test_job", payload, job.Options{Priority: 5})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if jobID == "" {
		t.Error("expected non-empty job ID")
	}
}

func TestSubmitJob_CustomID(t *testing.T) {
	c, s := newTestClient(t)
	defer s.Close()
	defer c.Close()

	jobID, err := c.SubmitJob("test_job", map[string]string{}, job.Options{JobID: "fixed-id"})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if jobID != "fixed-id" {
		t.Errorf("expected job ID 'fixed-id', got %s", jobID)
	}
}

func TestSubmitJob_MarshalsPayloadCorrectly(t *testing.T) {
	c, s := newTestClient(t)
	defer s.Close()
	defer c.Close()

	type TestPayload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	payload := TestPayload{Name: "test", Count: 42}

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	var unmarshaled TestPayload
	if err := json.Unmarshal(raw, &unmarshaled); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if unmarshaled.Name != "test" {
		t.Errorf("expected name 'test', got '%s'", unmarshaled.Name)
	}
	if unmarshaled.Count != 42 {
		t.Errorf("expected count 42, got %d", unmarshaled.Count)
	}

	jobID, err := c.SubmitJob("test_job", payload, job.Options{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if jobID == "" {
		t.Error("expected non-empty job ID")
	}
}

func TestSubmitJobScheduled(t *testing.T) {
	c, s := newTestClient(t)
	defer s.Close()
	defer c.Close()

	scheduledTime := time.Now().Add(5 * time.Second)
	payload := map[string]string{"task": "future_task"}

	jobID, err := c.SubmitJobScheduled("scheduled_job", payload, job.Options{}, scheduledTime)

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if jobID == "" {
		t.Error("expected non-empty job ID")
	}

	counts, err := c.GetCounts("delayed")
	if err != nil {
		t.Fatalf("failed to get counts: %v", err)
	}
	if counts["delayed"] != 1 {
		t.Errorf("expected 1 delayed job, got %d", counts["delayed"])
	}
}

func TestPauseResume(t *testing.T) {
	c, s := newTestClient(t)
	defer s.Close()
	defer c.Close()

	if err := c.Pause(); err != nil {
		t.Fatalf("failed to pause: %v", err)
	}
	if err := c.Resume(); err != nil {
		t.Fatalf("failed to resume: %v", err)
	}
}

func TestGetResult_NotYetAvailable(t *testing.T) {
	c, s := newTestClient(t)
	defer s.Close()
	defer c.Close()

	res, err := c.GetResult(context.Background(), "non-existent-id")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res != nil {
		t.Error("expected nil result for non-existent job")
	}
}

func TestSubmitJob_ThreadSafety(t *testing.T) {
	c, s := newTestClient(t)
	defer s.Close()
	defer c.Close()

	var wg sync.WaitGroup
	jobCount := 50
	errs := make(chan error, jobCount)

	for i := 0; i < jobCount; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			payload := map[string]int{"index": index}
			_, err := c.SubmitJob("concurrent_job", payload, job.Options{})
			if err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("error submitting job: %v", err)
	}

	counts, err := c.GetCounts("wait")
	if err != nil {
		t.Fatalf("failed to get counts: %v", err)
	}
	if counts["wait"] != int64(jobCount) {
		t.Errorf("expected %d waiting jobs, got %d", jobCount, counts["wait"])
	}
}
