package handlers

import (
	"net/http"

	"fknsrs.biz/p/ytingest/internal/adhoc"
	"fknsrs.biz/p/ytingest/internal/ctxdb"
	"fknsrs.biz/p/ytingest/internal/ctxtemplate"
)

// Query renders the ad-hoc SQL page. Query failures show up on the page
// rather than as a server error; people are expected to get SQL wrong here.
func Query(rw http.ResponseWriter, r *http.Request) {
	sqlText := r.URL.Query().Get("sql")

	data := map[string]interface{}{
		"SQL": sqlText,
	}

	if sqlText != "" {
		result, err := adhoc.Run(r.Context(), ctxdb.GetDB(r.Context()), sqlText)
		if err != nil {
			data["Error"] = err.Error()
		} else {
			data["Result"] = result
		}
	}

	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_query", data); err != nil {
		panic(err)
	}
}
