package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"fknsrs.biz/p/sorm"
	"fknsrs.biz/p/sorm/qsorm"
	sb "fknsrs.biz/p/sqlbuilder"
	"github.com/gorilla/mux"
	"github.com/gost/godata"

	"fknsrs.biz/p/ytingest/internal/ctxdb"
	"fknsrs.biz/p/ytingest/internal/ctxtemplate"
	"fknsrs.biz/p/ytingest/internal/godatautil"
	"fknsrs.biz/p/ytingest/internal/httputil"
	"fknsrs.biz/p/ytingest/internal/sentiment"
	"fknsrs.biz/p/ytingest/models"
)

// parseListQuery reads the odata-style $filter/$orderby/$top/$skip
// parameters from the request.
func parseListQuery(r *http.Request) (*godata.GoDataQuery, error) {
	var q godata.GoDataQuery

	if s := r.URL.Query().Get("$filter"); s != "" {
		filter, err := godata.ParseFilterString(s)
		if err != nil {
			return nil, err
		}
		q.Filter = filter
	}

	if s := r.URL.Query().Get("$orderby"); s != "" {
		orderBy, err := godata.ParseOrderByString(s)
		if err != nil {
			return nil, err
		}
		q.OrderBy = orderBy
	}

	if s := r.URL.Query().Get("$top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, err
		}
		top := godata.GoDataTopQuery(n)
		q.Top = &top
	}

	if s := r.URL.Query().Get("$skip"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, err
		}
		skip := godata.GoDataSkipQuery(n)
		q.Skip = &skip
	}

	return &q, nil
}

func Videos(rw http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		httputil.RedirectWithError(rw, r, "/videos", "Could not parse query: "+err.Error())
		return
	}

	condition, err := godatautil.MakeCondition(q, models.VideoTable)
	if err != nil {
		httputil.RedirectWithError(rw, r, "/videos", "Could not parse query: "+err.Error())
		return
	}

	order, err := godatautil.MakeOrders(q, models.VideoTable, sb.OrderDesc(models.VideoTable.C("PublishedAt")))
	if err != nil {
		httputil.RedirectWithError(rw, r, "/videos", "Could not parse query: "+err.Error())
		return
	}

	var videos []models.Video
	if err := qsorm.FindWhere(
		r.Context(),
		ctxdb.GetDB(r.Context()),
		&videos,
		condition,
		order,
		godatautil.MakeOffsetLimit(q, 0, 1000),
	); err != nil {
		panic(err)
	}

	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_videos", map[string]interface{}{
		"Filter":  r.URL.Query().Get("$filter"),
		"OrderBy": r.URL.Query().Get("$orderby"),
		"Videos":  videos,
	}); err != nil {
		panic(err)
	}
}

var commentClassifier sentiment.Classifier = sentiment.NewLexiconClassifier()

type commentWithSentiment struct {
	models.Comment
	Sentiment sentiment.Result
}

func Video(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var video models.Video
	if err := sorm.FindFirstWhere(r.Context(), ctxdb.GetDB(r.Context()), &video, "where video_id = ?", vars["id"]); err != nil {
		if err == sql.ErrNoRows {
			httputil.NotFound(rw, r)
			return
		}

		panic(err)
	}

	var channel models.Channel
	if err := sorm.FindFirstWhere(r.Context(), ctxdb.GetDB(r.Context()), &channel, "where playlist_id = ?", video.PlaylistID); err != nil {
		if err != sql.ErrNoRows {
			panic(err)
		}
	}

	var comments []models.Comment
	if err := sorm.FindWhere(r.Context(), ctxdb.GetDB(r.Context()), &comments, "where video_id = ? order by comment_published_date desc", video.VideoID); err != nil {
		panic(err)
	}

	annotated := make([]commentWithSentiment, 0, len(comments))
	for _, comment := range comments {
		result, err := commentClassifier.Classify(r.Context(), comment.CommentText)
		if err != nil {
			panic(err)
		}

		annotated = append(annotated, commentWithSentiment{Comment: comment, Sentiment: result})
	}

	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_video", map[string]interface{}{
		"Video":    video,
		"Channel":  channel,
		"Comments": annotated,
	}); err != nil {
		panic(err)
	}
}
