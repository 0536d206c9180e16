//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package history

import (
	"context"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"
	"trpc.group/trpc-go/whisky-agent-go/log"
)

// mirrorJob is one pending mirror write.
type mirrorJob struct {
	ctx       context.Context // Detached context preserving values but not cancel.
	userID    string
	sessionID string
	state     map[string]any
}

// writer runs mirror writes off the request path. Jobs of one user always go
// to the same worker so they are applied in submission order.
type writer struct {
	mirror  Mirror
	chans   []chan *mirrorJob
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	baseCtx context.Context
	cancel  context.CancelFunc
}

func newWriter(m Mirror, workers, queueSize int) *writer {
	baseCtx, cancel := context.WithCancel(context.Background())
	w := &writer{
		mirror:  m,
		chans:   make([]chan *mirrorJob, workers),
		baseCtx: baseCtx,
		cancel:  cancel,
	}
	for i := range w.chans {
		w.chans[i] = make(chan *mirrorJob, queueSize)
	}
	for _, ch := range w.chans {
		w.wg.Add(1)
		go func(ch chan *mirrorJob) {
			defer w.wg.Done()
			for job := range ch {
				w.process(job)
			}
		}(ch)
	}
	return w
}

// submit queues the write, or runs it synchronously when the queue of the
// user is full or the writer is closed.
func (w *writer) submit(ctx context.Context, userID, sessionID string, state map[string]any) {
	job := &mirrorJob{
		ctx:       context.WithoutCancel(ctx),
		userID:    userID,
		sessionID: sessionID,
		state:     state,
	}
	if w.tryEnqueue(job) {
		return
	}
	w.mirror.Save(ctx, userID, sessionID, state)
}

func (w *writer) tryEnqueue(job *mirrorJob) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		log.Debugf("history: mirror writer closed, writing state of %s synchronously", job.userID)
		return false
	}
	index := int(murmur3.Sum32([]byte(job.userID)) % uint32(len(w.chans)))
	select {
	case w.chans[index] <- job:
		return true
	default:
		log.Warnf("history: mirror queue is full, writing state of %s synchronously", job.userID)
		return false
	}
}

func (w *writer) process(job *mirrorJob) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("history: panic in mirror writer: %v", r)
		}
	}()
	if w.baseCtx.Err() != nil {
		log.Warnf("history: dropping mirror write of %s after shutdown grace", job.userID)
		return
	}
	ctx, cancel := context.WithCancel(job.ctx)
	defer cancel()
	stop := context.AfterFunc(w.baseCtx, cancel)
	defer stop()
	w.mirror.Save(ctx, job.userID, job.sessionID, job.state)
}

// close stops accepting jobs and waits for the queued ones for at most grace.
// Writes still pending after that are cancelled and close returns without
// waiting for them.
func (w *writer) close(ctx context.Context, grace time.Duration) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, ch := range w.chans {
		close(ch)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
		w.cancel()
		return nil
	case <-timer.C:
		log.Warnf("history: pending mirror writes not finished within %s, cancelling", grace)
		w.cancel()
		return nil
	case <-ctx.Done():
		w.cancel()
		return ctx.Err()
	}
}
