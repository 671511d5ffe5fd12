// Package main provides a small command-line producer for submitting
// jobs to a queue without running a worker process.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/muaviaUsmani/bullmq-core-go/internal/config"
	"github.com/muaviaUsmani/bullmq-core-go/internal/job"
	"github.com/muaviaUsmani/bullmq-core-go/pkg/client"
)

func main() {
	name := flag.String("name", "", "job name (required)")
	data := flag.String("data", "{}", "JSON payload for the job")
	priority := flag.Int64("priority", 0, "job priority, higher runs first")
	delay := flag.Duration("delay", 0, "delay before the job becomes eligible")
	jobID := flag.String("id", "", "custom job id, used for deduplication")
	attempts := flag.Int("attempts", 0, "max attempts, 0 uses the worker default")
	wait := flag.Duration("wait", 0, "if set, block for this long waiting for a result")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "producer: -name is required")
		flag.Usage()
		os.Exit(1)
	}

	var payload interface{}
	if err := json.Unmarshal([]byte(*data), &payload); err != nil {
		fmt.Fprintf(os.Stderr, "producer: invalid -data JSON: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "producer: failed to load config: %v\n", err)
		os.Exit(1)
	}

	c, err := client.NewClient(cfg.RedisURL, cfg.Prefix, cfg.QueueName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "producer: failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	opts := job.Options{
		JobID:    *jobID,
		Priority: *priority,
		Delay:    *delay,
		Attempts: *attempts,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if *wait > 0 {
		result, err := c.SubmitAndWait(ctx, *name, payload, opts, *wait)
		if err != nil {
			fmt.Fprintf(os.Stderr, "producer: job did not complete: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("job finished with status %s\n", result.Status)
		if len(result.Result) > 0 {
			fmt.Printf("result: %s\n", string(result.Result))
		}
		if result.Error != "" {
			fmt.Printf("error: %s\n", result.Error)
		}
		return
	}

	id, err := c.SubmitJob(*name, payload, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "producer: failed to submit job: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("submitted job %s (%s)\n", id, *name)
}
