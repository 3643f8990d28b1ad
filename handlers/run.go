package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"github.com/monoculum/formam"

	"fknsrs.biz/p/ytingest/internal/ctxdb"
	"fknsrs.biz/p/ytingest/internal/ctxjobqueue"
	"fknsrs.biz/p/ytingest/internal/ctxtemplate"
	"fknsrs.biz/p/ytingest/internal/httputil"
	"fknsrs.biz/p/ytingest/internal/jobqueue"
	"fknsrs.biz/p/ytingest/internal/queuenames"
	"fknsrs.biz/p/ytingest/internal/ytutil"
)

func Run(rw http.ResponseWriter, r *http.Request) {
	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_run", map[string]interface{}{}); err != nil {
		panic(err)
	}
}

func RunAction(rw http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		panic(err)
	}

	var input struct {
		URLsOrIDs string `formam:"urls_or_ids"`
	}

	if err := formam.Decode(r.PostForm, &input); err != nil {
		panic(err)
	}

	ids, err := ytutil.ExtractAndIdentifyIDs(input.URLsOrIDs, false)
	if err != nil {
		httputil.RedirectWithError(rw, r, "/run", "Could not extract IDs from input: "+err.Error())
		return
	}

	if len(ids) == 0 {
		httputil.RedirectWithError(rw, r, "/run", "No IDs found in input")
		return
	}

	// videos and playlists are resolved back to the channel that owns them;
	// the pipeline always operates on whole channels
	var channelIDs, unresolved []string
	seen := make(map[string]bool)
	for _, id := range ids {
		channelID := id.Value
		if id.Type != ytutil.ChannelID {
			resolved, err := ytutil.FindChannelID(r.Context(), id.Value)
			if err != nil {
				unresolved = append(unresolved, id.Value)
				continue
			}
			channelID = resolved
		}

		if !seen[channelID] {
			seen[channelID] = true
			channelIDs = append(channelIDs, channelID)
		}
	}

	if len(channelIDs) == 0 {
		httputil.RedirectWithError(rw, r, "/run", "None of the inputs could be resolved to a channel")
		return
	}

	if err := ctxdb.UsingTx(r.Context(), nil, func(ctx context.Context, tx *sql.Tx) error {
		for _, channelID := range channelIDs {
			// later stages retry until the earlier stage's data is in place
			for _, queueName := range queuenames.Priority {
				if err := ctxjobqueue.Add(ctx, tx, &jobqueue.Job{
					QueueName: queueName,
					Payload:   channelID,
				}); err != nil {
					return err
				}
			}
		}

		return nil
	}); err != nil {
		panic(err)
	}

	if len(unresolved) > 0 {
		httputil.RedirectWithInformation(rw, r, "/run", fmt.Sprintf("%d channel(s) queued for ingestion; could not resolve: %s", len(channelIDs), strings.Join(unresolved, ", ")))
		return
	}

	httputil.RedirectWithSuccess(rw, r, "/run", fmt.Sprintf("%d channel(s) queued for ingestion.", len(channelIDs)))
}
