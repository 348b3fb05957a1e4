// Package notify drains the tracker-task queue and delivers (info_hash,
// action) notifications to the external tracker service over HTTP.
// Delivery is at-least-once: a task is marked done only after the service
// acknowledged it, and every failed attempt is recorded and retried on a
// later pass.
package notify

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/kyan-si/kyan/internal/config"
	"github.com/kyan-si/kyan/internal/dbx"
	"github.com/kyan-si/kyan/internal/logging"
	"github.com/kyan-si/kyan/internal/models"
	"github.com/kyan-si/kyan/internal/repositories/repomanager"
)

// notification is the request body the tracker service consumes.
type notification struct {
	InfoHash string `json:"info_hash"`
	Action   string `json:"action"`
}

type Worker struct {
	cfg    *config.Config
	log    logging.Logger
	db     *sql.DB
	repos  repomanager.RepositoryManager
	client *http.Client

	// maxSendRetries bounds the in-pass exponential backoff; after that
	// the task stays queued for the next pass.
	maxSendRetries uint64
}

func NewWorker(cfg *config.Config, log logging.Logger, db *sql.DB, repos repomanager.RepositoryManager) *Worker {
	return &Worker{
		cfg:            cfg,
		log:            log,
		db:             db,
		repos:          repos,
		client:         &http.Client{Timeout: 10 * time.Second},
		maxSendRetries: 3,
	}
}

// Run drains the queue every NotifyInterval until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.NotifyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ProcessBatch(ctx); err != nil {
				w.log.Error(ctx, "tracker notification pass failed", "error", err)
			}
		}
	}
}

// ProcessBatch picks one batch of pending tasks under row locks and tries
// to deliver each. Tasks that fail stay pending with their attempt counter
// bumped; the row locks keep concurrent workers off the same batch.
func (w *Worker) ProcessBatch(ctx context.Context) error {
	return dbx.WithTx(ctx, w.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := w.repos.TrackerTasks(tx)

		tasks, err := repo.PickPending(ctx, w.cfg.NotifyBatch)
		if err != nil {
			return err
		}

		for _, task := range tasks {
			if err := w.send(ctx, task); err != nil {
				w.log.Warn(ctx, "tracker notification failed",
					"task_id", task.ID,
					"action", task.Action,
					"attempts", task.Attempts+1,
					"error", err)
				if err := repo.RecordAttempt(ctx, task.ID); err != nil {
					return err
				}
				continue
			}
			if err := repo.MarkDone(ctx, task.ID); err != nil {
				return err
			}
			w.log.Debug(ctx, "tracker notified",
				"task_id", task.ID, "action", task.Action)
		}
		return nil
	})
}

// send posts one notification, retrying transient failures with capped
// exponential backoff before giving the task back to the queue.
func (w *Worker) send(ctx context.Context, task *models.TrackerTask) error {
	body, err := json.Marshal(notification{
		InfoHash: hex.EncodeToString(task.InfoHash),
		Action:   task.Action,
	})
	if err != nil {
		return err
	}

	backoff := retry.WithMaxRetries(w.maxSendRetries,
		retry.WithJitter(100*time.Millisecond,
			retry.NewExponential(500*time.Millisecond)))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.TrackerAPIURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if w.cfg.TrackerAPIAuth != "" {
			req.Header.Set("Authorization", w.cfg.TrackerAPIAuth)
		}

		resp, err := w.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("tracker API returned %s", resp.Status))
		default:
			return fmt.Errorf("tracker API returned %s", resp.Status)
		}
	})
}
