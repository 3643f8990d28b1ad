package handlers

import (
	"net/http"

	"fknsrs.biz/p/sorm/qsorm"
	sb "fknsrs.biz/p/sqlbuilder"

	"fknsrs.biz/p/ytingest/internal/ctxdb"
	"fknsrs.biz/p/ytingest/internal/ctxtemplate"
	"fknsrs.biz/p/ytingest/models"
)

type tableCounts struct {
	Channels    int
	Videos      int
	Comments    int
	PendingJobs int
}

func getTableCounts(r *http.Request) (tableCounts, error) {
	db := ctxdb.GetDB(r.Context())

	var counts tableCounts

	for _, e := range []struct {
		query string
		value *int
	}{
		{"select count(*) from channels", &counts.Channels},
		{"select count(*) from videos", &counts.Videos},
		{"select count(*) from comments", &counts.Comments},
		{"select count(*) from jobs where finished_at is null", &counts.PendingJobs},
	} {
		if err := db.QueryRowContext(r.Context(), e.query).Scan(e.value); err != nil {
			return counts, err
		}
	}

	return counts, nil
}

func Index(rw http.ResponseWriter, r *http.Request) {
	counts, err := getTableCounts(r)
	if err != nil {
		panic(err)
	}

	var channels []models.Channel
	if err := qsorm.FindWhere(
		r.Context(),
		ctxdb.GetDB(r.Context()),
		&channels,
		nil,
		[]sb.AsOrderingTerm{sb.OrderDesc(models.ChannelTable.C("SubscriptionCount"))},
		sb.OffsetLimit(nil, sb.Literal("50")),
	); err != nil {
		panic(err)
	}

	var videos []models.Video
	if err := qsorm.FindWhere(
		r.Context(),
		ctxdb.GetDB(r.Context()),
		&videos,
		nil,
		[]sb.AsOrderingTerm{sb.OrderDesc(models.VideoTable.C("PublishedAt"))},
		sb.OffsetLimit(nil, sb.Literal("50")),
	); err != nil {
		panic(err)
	}

	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_index", map[string]interface{}{
		"Counts":   counts,
		"Channels": channels,
		"Videos":   videos,
	}); err != nil {
		panic(err)
	}
}
