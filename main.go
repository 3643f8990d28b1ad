package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"fknsrs.biz/p/sorm"
	"github.com/gorilla/mux"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/tdewolff/minify"
	"github.com/tdewolff/minify/css"
	"github.com/tdewolff/minify/html"
	"github.com/tdewolff/minify/js"
	"github.com/urfave/negroni/v2"
	"go.etcd.io/bbolt"

	"fknsrs.biz/p/ytingest/handlers"
	"fknsrs.biz/p/ytingest/internal/config"
	"fknsrs.biz/p/ytingest/internal/configreader"
	"fknsrs.biz/p/ytingest/internal/ctxclock"
	"fknsrs.biz/p/ytingest/internal/ctxconfig"
	"fknsrs.biz/p/ytingest/internal/ctxdb"
	"fknsrs.biz/p/ytingest/internal/ctxhttpclient"
	"fknsrs.biz/p/ytingest/internal/ctxjobqueue"
	"fknsrs.biz/p/ytingest/internal/ctxlanding"
	"fknsrs.biz/p/ytingest/internal/ctxlogger"
	"fknsrs.biz/p/ytingest/internal/ctxtemplate"
	"fknsrs.biz/p/ytingest/internal/ctxtimer"
	"fknsrs.biz/p/ytingest/internal/ctxytapi"
	"fknsrs.biz/p/ytingest/internal/httpcache"
	"fknsrs.biz/p/ytingest/internal/jobqueue"
	"fknsrs.biz/p/ytingest/internal/landing"
	"fknsrs.biz/p/ytingest/internal/logrusstackhook"
	"fknsrs.biz/p/ytingest/internal/pipeline"
	"fknsrs.biz/p/ytingest/internal/queuenames"
	"fknsrs.biz/p/ytingest/internal/relational"
	"fknsrs.biz/p/ytingest/internal/sqlitelogger"
	"fknsrs.biz/p/ytingest/internal/stringutil"
	"fknsrs.biz/p/ytingest/internal/templatecollection"
	"fknsrs.biz/p/ytingest/internal/timeutil"
	"fknsrs.biz/p/ytingest/internal/ytapi"
)

func init() {
	sorm.SetParameterPrefix("?")
}

var cfg = config.Config{
	LogLevel:             logrus.InfoLevel,
	LogDebugLevels:       config.LevelList{logrus.DebugLevel, logrus.TraceLevel},
	LogQueries:           config.LogQueries{Enabled: true, SlowerThan: time.Millisecond * 100},
	LogSORM:              false,
	ApplicationAddr:      ":8080",
	ApplicationDatabase:  "database.db",
	LandingDatabase:      "landing.db",
	ApplicationCachePath: "cache.db",
	ApplicationMinify:    true,
	BackgroundWorkers:    1,
}

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

func init() {
	for _, configPath := range []string{"config.toml", "config.yaml", "config.yml"} {
		if st, err := os.Stat(configPath); err == nil && st != nil && !st.IsDir() {
			cfg.Config = configPath
		}
	}
}

type simpleQueryLogger struct {
	logger *logrus.Logger
}

func (s *simpleQueryLogger) LogQuery(query string, args []interface{}) {
	fields := logrus.Fields{
		"db.query":      query,
		"db.args.count": len(args),
	}

	for i, e := range args {
		fields[fmt.Sprintf("db.args.%d", i)] = e
	}

	s.logger.WithFields(fields).Info("sorm query start")
}

func (s *simpleQueryLogger) LogQueryAfter(query string, args []interface{}, duration time.Duration, err error) {
	fields := logrus.Fields{
		"db.query":      query,
		"db.duration":   duration,
		"db.error":      err,
		"db.args.count": len(args),
	}

	for i, e := range args {
		fields[fmt.Sprintf("db.args.%d", i)] = e
	}

	s.logger.WithFields(fields).Info("sorm query finish")
}

func main() {
	ctx := context.Background()

	if err := configreader.Read(os.Args[0], os.Args[1:], os.Environ(), &cfg); err != nil {
		panic(err)
	}

	ctx = ctxconfig.WithConfig(ctx, cfg)

	ctx = ctxclock.WithClock(ctx, ctxclock.NewRealClock())

	logger := logrus.New()

	logger.SetLevel(cfg.LogLevel)
	if len(cfg.LogDebugLevels) > 0 {
		logger.AddHook(logrusstackhook.NewStackHook(nil, cfg.LogDebugLevels, nil))
	}

	logger.WithFields(logrus.Fields{
		"config.config":                 cfg.Config,
		"config.log_level":              cfg.LogLevel,
		"config.log_debug_levels":       cfg.LogDebugLevels,
		"config.log_queries":            cfg.LogQueries,
		"config.log_sorm":               cfg.LogSORM,
		"config.application_addr":       cfg.ApplicationAddr,
		"config.application_cache_path": cfg.ApplicationCachePath,
		"config.application_database":   cfg.ApplicationDatabase,
		"config.landing_database":       cfg.LandingDatabase,
		"config.application_minify":     cfg.ApplicationMinify,
		"config.api_base_url":           cfg.APIBaseURL,
		"config.api_key_set":            cfg.APIKey != "",
		"config.background_workers":     cfg.BackgroundWorkers,
	}).Info("program starting")

	if cfg.LogSORM {
		sorm.SetQueryLogger(&simpleQueryLogger{logger})
	}

	ctx = ctxlogger.WithLogger(ctx, logger)

	dbDriver := "sqlite3"

	if !cfg.LogQueries.IsZero() {
		dbDriver = "sqlite3:logged"

		sql.Register(dbDriver, sqlitelogger.New(
			dbDriver,
			&sqlite3.SQLiteDriver{},
			&sqlitelogger.BasicFilter{
				LogSlowerThan: cfg.LogQueries.SlowerThan,
				IgnorePackageStackFrames: []string{
					// standard library
					"database/sql",
					"net/http",
					"runtime",
					// libraries
					"github.com/gorilla/mux",
					"github.com/shogo82148/go-sql-proxy",
					"github.com/urfave/negroni/v2",
					// middleware
					"fknsrs.biz/p/ytingest/internal/ctxclock",
					"fknsrs.biz/p/ytingest/internal/ctxdb",
					"fknsrs.biz/p/ytingest/internal/ctxjobqueue",
					"fknsrs.biz/p/ytingest/internal/ctxlogger",
					"fknsrs.biz/p/ytingest/internal/ctxtemplate",
					"fknsrs.biz/p/ytingest/internal/ctxtimer",
					"fknsrs.biz/p/ytingest/internal/sqlitelogger",
					// main
					"main",
				},
				IgnoreFunctionQueries: []string{
					"fknsrs.biz/p/ytingest/internal/jobqueue.(*Worker).Run",
				},
			},
		))
	}

	db, err := sql.Open(dbDriver, cfg.ApplicationDatabase)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	ctx = ctxdb.WithDB(ctx, db)

	if err := relational.EnsureSchema(ctx, db); err != nil {
		panic(err)
	}
	if err := jobqueue.EnsureSchema(ctx, db); err != nil {
		panic(err)
	}

	landingDB, err := bbolt.Open(cfg.LandingDatabase, 0600, nil)
	if err != nil {
		panic(err)
	}
	defer landingDB.Close()

	ctx = ctxlanding.WithStore(ctx, landing.New(landingDB))

	cacheDB, err := bbolt.Open(cfg.ApplicationCachePath, 0600, nil)
	if err != nil {
		panic(err)
	}
	defer cacheDB.Close()

	ctx = ctxhttpclient.WithHTTPClient(ctx, &http.Client{
		Transport: httpcache.NewTransport(nil, httpcache.NewBBoltStorage(cacheDB), 0),
	})

	ctx = ctxytapi.WithClient(ctx, ytapi.NewClient(cfg.APIBaseURL, cfg.APIKey))

	ctx = ctxjobqueue.WithWorker(ctx, jobqueue.NewWorker(nil))

	if err := registerJobQueueWorkerFunctions(ctx); err != nil {
		panic(err)
	}

	workers := []worker{
		{
			name: "application",
			run: func(ctx context.Context) error {
				return runApplicationWorker(ctx, cfg.ApplicationAddr)
			},
		},
	}

	for i := 0; i < cfg.BackgroundWorkers; i++ {
		workers = append(workers, worker{
			name: fmt.Sprintf("job_queue.%d", i),
			run: func(ctx context.Context) error {
				return runJobQueueWorker(ctx)
			},
		})
	}

	if err := runAllWorkers(ctx, workers); err != nil {
		panic(err)
	}
}

type worker struct {
	name string
	run  func(ctx context.Context) error
}

func runAllWorkers(ctx context.Context, workers []worker) error {
	done := make(chan error, len(workers))
	cancellers := make([]context.CancelCauseFunc, len(workers))

	var rw sync.RWMutex

	for id, w := range workers {
		go func(id int, w worker) {
			for {
				l := ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
					"worker.id":   id + 1,
					"worker.name": w.name,
				})

				ctx, cancel := context.WithCancelCause(ctxlogger.WithLogger(ctx, l))

				rw.Lock()
				cancellers[id] = cancel
				rw.Unlock()

				if err := w.run(ctx); err != nil {
					l.WithError(err).Error("worker failed")

					rw.RLock()
					for _, fn := range cancellers {
						if fn == nil {
							continue
						}

						fn(fmt.Errorf("worker %d (%s) failed: %w", id+1, w.name, err))
					}
					rw.RUnlock()
				} else {
					l.Info("worker restarted")
				}

				time.Sleep(time.Second)
			}
		}(id, w)
	}

	var errs []error
	for err := range done {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func directoryExists(name string) bool {
	st, err := os.Stat(name)
	if err != nil {
		return false
	}
	return st.IsDir()
}

type FieldNameValuePair struct {
	Name  string
	Value interface{}
}

func runApplicationWorker(ctx context.Context, addr string) error {
	l := ctxlogger.GetLogger(ctx)

	l.WithFields(logrus.Fields{
		"args.addr": addr,
	}).Info("running application worker")

	templateFuncs := template.FuncMap{
		"slice_length": func(v interface{}) int {
			val := reflect.ValueOf(v)
			if val.Kind() != reflect.Slice {
				panic(fmt.Errorf("expected input to be a slice"))
			}
			return val.Len()
		},
		"field_names": func(v interface{}) []string {
			typ := reflect.TypeOf(v)
			if typ.Kind() == reflect.Ptr {
				typ = typ.Elem()
			}
			if typ.Kind() == reflect.Slice {
				typ = typ.Elem()
			}

			var a []string
			for i := 0; i < typ.NumField(); i++ {
				a = append(a, typ.Field(i).Name)
			}

			return a
		},
		"field_name_value_pairs": func(v interface{}) []FieldNameValuePair {
			val := reflect.ValueOf(v)
			if val.Kind() == reflect.Ptr {
				val = reflect.Indirect(val)
			}
			if val.Kind() != reflect.Struct {
				panic(fmt.Errorf("expected input value to be a struct"))
			}

			typ := val.Type()

			var a []FieldNameValuePair
			for i := 0; i < typ.NumField(); i++ {
				a = append(a, FieldNameValuePair{typ.Field(i).Name, val.Field(i).Interface()})
			}

			return a
		},
		"first_of": func(a ...interface{}) string {
			for _, e := range a {
				if s := fmt.Sprintf("%v", e); s != "" {
					return s
				}
			}

			return ""
		},
		"format_time": func(t time.Time) string {
			return t.Format(time.RFC3339)
		},
		"format_time_null": func(t *time.Time) string {
			if t == nil {
				return ""
			}

			return t.Format(time.RFC3339)
		},
		"format_date": func(t time.Time) string {
			return t.Format("2006-01-02")
		},
		"format_time_relative": func(t time.Time) string {
			return time.Now().Sub(t).String()
		},
		"format_seconds": func(seconds int64) string {
			return (time.Duration(seconds) * time.Second).String()
		},
		"flat_date": func(s string) string {
			t, err := timeutil.ParseFlatTimestamp(s)
			if err != nil {
				return s
			}

			return t.Format("2006-01-02")
		},
		"pascal_to_snake": stringutil.PascalToSnake,
		"pascal_to_title": stringutil.PascalToTitle,
		"make_map": func(args ...interface{}) map[string]interface{} {
			m := make(map[string]interface{})

			for i := 0; i < len(args)/2; i++ {
				kv := args[i*2]
				vv := args[i*2+1]

				k, ok := kv.(string)
				if !ok {
					panic(fmt.Errorf("key value should be string; was instead %T", kv))
				}

				m[k] = vv
			}

			return m
		},
		"make_string_list": func(items ...string) []string {
			return items
		},
	}

	var templates templatecollection.Collection

	if directoryExists("templates") {
		l.Info("using live filesystem for templates")
		c, err := templatecollection.NewLive(os.DirFS("templates"), templateFuncs)
		if err != nil {
			return fmt.Errorf("runApplicationWorker: %w", err)
		}
		templates = c
	} else {
		l.Info("using embedded filesystem for templates")
		c, err := templatecollection.NewCached(templateFS, templateFuncs)
		if err != nil {
			return fmt.Errorf("runApplicationWorker: %w", err)
		}
		templates = c
	}

	m := mux.NewRouter()

	m.Methods(http.MethodGet).Path("/").HandlerFunc(handlers.Index)
	m.Methods(http.MethodGet).Path("/run").HandlerFunc(handlers.Run)
	m.Methods(http.MethodPost).Path("/run").HandlerFunc(handlers.RunAction)
	m.Methods(http.MethodGet).Path("/channels").HandlerFunc(handlers.Channels)
	m.Methods(http.MethodGet).Path("/channels/{id}").HandlerFunc(handlers.Channel)
	m.Methods(http.MethodGet).Path("/videos").HandlerFunc(handlers.Videos)
	m.Methods(http.MethodGet).Path("/videos/{id}").HandlerFunc(handlers.Video)
	m.Methods(http.MethodGet).Path("/query").HandlerFunc(handlers.Query)
	m.Methods(http.MethodGet).Path("/jobs").HandlerFunc(handlers.Jobs)
	m.Methods(http.MethodGet).Path("/jobs/updates").HandlerFunc(handlers.JobsUpdates)

	if directoryExists("static") {
		l.Info("using live filesystem for static files")
		m.Methods(http.MethodGet).PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	} else {
		l.Info("using embedded filesystem for static files")
		m.Methods(http.MethodGet).PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	}

	min := minify.New()
	min.Add("text/html", html.DefaultMinifier)
	min.Add("text/css", css.DefaultMinifier)
	min.Add("application/javascript", js.DefaultMinifier)

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.UseFunc(ctxlogger.Register(l))
	n.UseFunc(ctxtimer.Register(nil))
	n.UseFunc(ctxclock.Register(ctxclock.GetClock(ctx)))
	n.UseFunc(ctxtemplate.Register(templates))
	n.UseFunc(ctxdb.Register(ctxdb.GetDB(ctx)))
	n.UseFunc(ctxlanding.Register(ctxlanding.GetStore(ctx)))
	n.UseFunc(ctxhttpclient.Register(ctxhttpclient.GetHTTPClient(ctx)))
	n.UseFunc(ctxytapi.Register(ctxytapi.GetClient(ctx)))
	n.UseFunc(ctxjobqueue.Register(ctxjobqueue.GetWorker(ctx)))
	n.UseFunc(ctxtimer.AddLoggerHooks())
	n.UseFunc(ctxclock.AddLoggerHooks())
	n.UseFunc(ctxlogger.Log())

	n.UseFunc(func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(ctxtemplate.WithData(r.Context(), map[string]interface{}{
			"Messages": struct{ Error, Success, Information string }{
				r.URL.Query().Get("error"),
				r.URL.Query().Get("success"),
				r.URL.Query().Get("information"),
			},
		})))
	})

	if cfg.ApplicationMinify {
		n.UseFunc(func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
			if strings.ToLower(r.Header.Get("connection")) != "upgrade" {
				mw := min.ResponseWriter(rw, r)
				defer mw.Close()
				rw = mw
			}

			next(rw, r)
		})
	}

	n.UseHandler(m)

	s := &http.Server{
		Addr:        addr,
		Handler:     n,
		BaseContext: func(l net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() {
		l.Info("starting server")
		errs <- s.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		return s.Shutdown(ctx)
	}
}

func stageOutputMessage(report *pipeline.Report) string {
	return fmt.Sprintf(
		"fetched %d, skipped %d, landed %d, promoted %d",
		report.Fetched,
		report.Skipped,
		report.Landed,
		report.Promoted,
	)
}

func stageProgressFunc(ctx context.Context, w *jobqueue.Worker, j *jobqueue.Job) pipeline.ProgressFunc {
	return func(done, total int) {
		if total == 0 {
			return
		}

		if err := w.UpdateProgress(ctx, j, done*100/total); err != nil {
			ctxlogger.GetLogger(ctx).WithError(err).Warn("could not update job progress")
		}
	}
}

func registerJobQueueWorkerFunctions(ctx context.Context) error {
	l := ctxlogger.GetLogger(ctx)

	l.WithFields(logrus.Fields{}).Info("registering job queue worker functions")

	w := ctxjobqueue.GetWorker(ctx)
	if w == nil {
		return fmt.Errorf("job queue worker not available in context")
	}

	return w.RegisterAll(map[string]jobqueue.WorkerFunction{
		queuenames.PipelineChannel: func(ctx context.Context, w *jobqueue.Worker, j *jobqueue.Job) (string, error) {
			channelID, _, err := jobqueue.ParsePayload(j.Payload)
			if err != nil {
				return "", err
			}

			report, err := pipeline.RunChannelStage(ctx, channelID)
			if err != nil {
				return "", err
			}

			return stageOutputMessage(report), nil
		},
		queuenames.PipelineVideos: func(ctx context.Context, w *jobqueue.Worker, j *jobqueue.Job) (string, error) {
			channelID, _, err := jobqueue.ParsePayload(j.Payload)
			if err != nil {
				return "", err
			}

			report, err := pipeline.RunVideosStageWithProgress(ctx, channelID, stageProgressFunc(ctx, w, j))
			if err != nil {
				return "", err
			}

			return stageOutputMessage(report), nil
		},
		queuenames.PipelineComments: func(ctx context.Context, w *jobqueue.Worker, j *jobqueue.Job) (string, error) {
			channelID, _, err := jobqueue.ParsePayload(j.Payload)
			if err != nil {
				return "", err
			}

			report, err := pipeline.RunCommentsStageWithProgress(ctx, channelID, stageProgressFunc(ctx, w, j))
			if err != nil {
				return "", err
			}

			return stageOutputMessage(report), nil
		},
	})
}

func runJobQueueWorker(ctx context.Context) error {
	l := ctxlogger.GetLogger(ctx)

	l.WithFields(logrus.Fields{}).Info("running job queue worker")

	w := ctxjobqueue.GetWorker(ctx)
	if w == nil {
		return fmt.Errorf("job queue worker not available in context")
	}

	return w.Run(ctx)
}
