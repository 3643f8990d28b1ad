package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fknsrs.biz/p/sorm"

	"fknsrs.biz/p/ytingest/internal/ctxdb"
	"fknsrs.biz/p/ytingest/internal/jobqueue"
)

type jobUpdate struct {
	ID       int    `json:"id"`
	Progress *int   `json:"progress"`
	Status   string `json:"status"`
}

func jobStatus(job jobqueue.Job) string {
	switch {
	case job.FinishedAt != nil:
		return "finished"
	case job.ReservedAt != nil:
		return "running"
	default:
		return "pending"
	}
}

// JobsUpdates streams job progress changes as server-sent events. The jobs
// page uses it to update progress bars in place.
func JobsUpdates(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")

	ctx := r.Context()

	lastProgress := make(map[int]*int)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var jobs []jobqueue.Job
			if err := sorm.FindWhere(ctx, ctxdb.GetDB(ctx), &jobs, "where finished_at is null order by id desc limit 100"); err != nil {
				continue
			}

			for _, job := range jobs {
				last, seen := lastProgress[job.ID]
				if seen && progressEqual(job.Progress, last) {
					continue
				}

				data, err := json.Marshal(jobUpdate{
					ID:       job.ID,
					Progress: job.Progress,
					Status:   jobStatus(job),
				})
				if err != nil {
					continue
				}

				fmt.Fprintf(rw, "data: %s\n\n", data)
				if f, ok := rw.(http.Flusher); ok {
					f.Flush()
				}

				lastProgress[job.ID] = job.Progress
			}
		}
	}
}

func progressEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}
