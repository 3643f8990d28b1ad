package handlers

import (
	"database/sql"
	"net/http"
	"strings"

	"fknsrs.biz/p/sorm"
	"fknsrs.biz/p/sorm/qsorm"
	sb "fknsrs.biz/p/sqlbuilder"
	"github.com/gorilla/mux"

	"fknsrs.biz/p/ytingest/internal/ctxdb"
	"fknsrs.biz/p/ytingest/internal/ctxtemplate"
	"fknsrs.biz/p/ytingest/internal/httputil"
	"fknsrs.biz/p/ytingest/models"
)

func Channels(rw http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	var condition sb.AsExpr
	order := []sb.AsOrderingTerm{sb.OrderAsc(models.ChannelTable.C("ChannelName"))}

	if q != "" {
		condition = sb.Ne(
			sb.Func("instr", sb.Func("lower", models.ChannelTable.C("ChannelName")), sb.Bind(strings.ToLower(q))),
			sb.Literal("0"),
		)
	}

	var channels []models.Channel
	if err := qsorm.FindWhere(
		r.Context(),
		ctxdb.GetDB(r.Context()),
		&channels,
		condition,
		order,
		sb.OffsetLimit(nil, sb.Literal("1000")),
	); err != nil {
		panic(err)
	}

	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_channels", map[string]interface{}{
		"Q":        q,
		"Channels": channels,
	}); err != nil {
		panic(err)
	}
}

func Channel(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var channel models.Channel
	if err := sorm.FindFirstWhere(r.Context(), ctxdb.GetDB(r.Context()), &channel, "where channel_id = ?", vars["id"]); err != nil {
		if err == sql.ErrNoRows {
			httputil.NotFound(rw, r)
			return
		}

		panic(err)
	}

	var videos []models.Video
	if err := sorm.FindWhere(r.Context(), ctxdb.GetDB(r.Context()), &videos, "where playlist_id = ? order by published_at desc", channel.PlaylistID); err != nil {
		panic(err)
	}

	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_channel", map[string]interface{}{
		"Channel": channel,
		"Videos":  videos,
	}); err != nil {
		panic(err)
	}
}
