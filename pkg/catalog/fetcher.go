package catalog

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/prereqgraph/prereqgraph/pkg/whttp"
)

const (
	DefaultBaseURL = "https://ohiostate.collegescheduler.com"
	DefaultTerm    = "Autumn 2023 Semester"
	DefaultDelay   = 500 * time.Millisecond
)

var (
	// ErrUnauthorized is returned when the session cookie is missing or expired.
	ErrUnauthorized = errors.New("collegescheduler rejected the session cookie")
	errClosed       = errors.New("fetcher is closed")
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Config holds everything the fetcher needs to talk to collegescheduler.
type Config struct {
	BaseURL string
	Term    string
	Cookie  string
	// Delay is the minimum spacing between two requests; <= 0 disables it.
	Delay  time.Duration
	Client *retryablehttp.Client // nil = whttp.NewClient("")
	Log    Logger                // nil = no logging
}

type rateLimitedResult struct {
	res *whttp.WHTTPRes
	err error
}

type rateLimitedRequest struct {
	ctx        context.Context
	req        *whttp.WHTTPReq
	resultChan chan rateLimitedResult
}

// Fetcher downloads course listings and descriptions. All requests of one
// Fetcher go through a single worker that spaces them by Config.Delay.
type Fetcher struct {
	cfg      Config
	client   *retryablehttp.Client
	log      Logger
	requests chan rateLimitedRequest
	done     chan struct{}
	once     sync.Once
}

// NewFetcher starts the request worker. Call Close to stop it.
func NewFetcher(cfg Config) (*Fetcher, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Term == "" {
		cfg.Term = DefaultTerm
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	client := cfg.Client
	if client == nil {
		var err error
		if client, err = whttp.NewClient(""); err != nil {
			return nil, err
		}
	}
	var log Logger = nopLogger{}
	if cfg.Log != nil {
		log = cfg.Log
	}

	f := &Fetcher{
		cfg:      cfg,
		client:   client,
		log:      log,
		requests: make(chan rateLimitedRequest),
		done:     make(chan struct{}),
	}
	go f.rateLimitedRequestWorker()
	return f, nil
}

// Close stops the request worker. Pending and later calls fail.
func (f *Fetcher) Close() {
	f.once.Do(func() { close(f.done) })
}

func (f *Fetcher) rateLimitedRequestWorker() {
	var tick <-chan time.Time
	if f.cfg.Delay > 0 {
		ticker := time.NewTicker(f.cfg.Delay)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-f.done:
			return
		case r := <-f.requests:
			if tick != nil {
				select {
				case <-tick:
				case <-f.done:
					r.resultChan <- rateLimitedResult{err: errClosed}
					return
				}
			}
			res, err := whttp.SendHTTPRequest(r.ctx, r.req, f.client)
			r.resultChan <- rateLimitedResult{res: res, err: err}
		}
	}
}

func (f *Fetcher) send(ctx context.Context, req *whttp.WHTTPReq) (*whttp.WHTTPRes, error) {
	r := rateLimitedRequest{ctx: ctx, req: req, resultChan: make(chan rateLimitedResult, 1)}

	select {
	case f.requests <- r:
	case <-f.done:
		return nil, errClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case result := <-r.resultChan:
		return result.res, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// get fetches a JSON document and validates the status code.
func (f *Fetcher) get(ctx context.Context, rawURL string) (gjson.Result, error) {
	f.log.Debugf("GET %s", rawURL)

	var headers []whttp.WHTTPHeader
	if f.cfg.Cookie != "" {
		headers = append(headers, whttp.WHTTPHeader{Name: "Cookie", Value: f.cfg.Cookie})
	}

	res, err := f.send(ctx, &whttp.WHTTPReq{Method: http.MethodGet, URL: rawURL, Headers: headers})
	if err != nil {
		return gjson.Result{}, err
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return gjson.Result{}, ErrUnauthorized
	case res.StatusCode != http.StatusOK:
		return gjson.Result{}, fmt.Errorf("GET %s: unexpected status %d", rawURL, res.StatusCode)
	case !gjson.Valid(res.BodyString):
		// An expired session is answered with the HTML login page.
		if strings.Contains(strings.ToLower(res.BodyString), "<html") {
			return gjson.Result{}, ErrUnauthorized
		}
		return gjson.Result{}, fmt.Errorf("GET %s: response is not JSON", rawURL)
	}

	return gjson.Parse(res.BodyString), nil
}

func (f *Fetcher) subjectURL(subjectID string) string {
	return fmt.Sprintf("%s/api/terms/%s/subjects/%s/courses",
		f.cfg.BaseURL, url.PathEscape(f.cfg.Term), url.PathEscape(subjectID))
}

// EncodeNumber returns the path form of a call number. Numbers with a section
// are sent base64 encoded with a "b64-" prefix.
func EncodeNumber(number string) string {
	if strings.Contains(number, ".") {
		return "b64-" + base64.StdEncoding.EncodeToString([]byte(number))
	}
	return number
}

// FetchDescription returns the cleaned description of one course.
func (f *Fetcher) FetchDescription(ctx context.Context, subjectID, number string) (string, error) {
	u := f.subjectURL(subjectID) + "/" + url.PathEscape(EncodeNumber(number))
	doc, err := f.get(ctx, u)
	if err != nil {
		return "", err
	}
	return CleanDescription(doc.Get("description").String()), nil
}

// ListSubjectCourses returns the course listings of one subject.
func (f *Fetcher) ListSubjectCourses(ctx context.Context, subjectID string) ([]RawCourse, error) {
	doc, err := f.get(ctx, f.subjectURL(subjectID))
	if err != nil {
		return nil, fmt.Errorf("listing %s courses: %w", subjectID, err)
	}

	list := doc
	if !doc.IsArray() {
		list = doc.Get("courses")
	}

	var out []RawCourse
	list.ForEach(func(_, item gjson.Result) bool {
		rc := RawCourse{
			SubjectID:   firstString(item, "subjectId", "subject"),
			SubjectLong: firstString(item, "subjectLong", "subjectDescription"),
			Number:      firstString(item, "number", "courseNumber"),
			Title:       CleanTitle(item.Get("title").String()),
		}
		if rc.SubjectID == "" {
			rc.SubjectID = subjectID
		}
		if rc.Number != "" {
			out = append(out, rc)
		}
		return true
	})
	return out, nil
}

func firstString(item gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := item.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// FetchError records a course whose description could not be fetched.
type FetchError struct {
	Course RawCourse
	Err    error
}

func (e FetchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Course.SubjectID, e.Course.Number, e.Err)
}

// FetchResult is the outcome of FetchAll. Courses keeps the input order.
type FetchResult struct {
	Courses []Course
	Skipped int
	Failed  []FetchError
}

// FetchOptions tunes FetchAll.
type FetchOptions struct {
	// Concurrency bounds in-flight requests; defaults to 4 if <= 0. Requests
	// are still spaced by Config.Delay.
	Concurrency int
	// Skip reports courses that need no fetching (already cached).
	Skip func(RawCourse) bool
	// OnCourse is called once per fetched course, never concurrently.
	OnCourse func(Course) error
}

// FetchAll fetches the descriptions of raws. A failure on one course is
// recorded in the result and the run continues, except for ErrUnauthorized,
// context cancellation and OnCourse errors, which abort it.
func (f *Fetcher) FetchAll(ctx context.Context, raws []RawCourse, opts FetchOptions) (*FetchResult, error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	fetched := make([]*Course, len(raws))
	failed := make([]error, len(raws))
	result := &FetchResult{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, rc := range raws {
		if opts.Skip != nil && opts.Skip(rc) {
			result.Skipped++
			continue
		}
		if ctx.Err() != nil {
			break
		}

		i, rc := i, rc
		g.Go(func() error {
			description, err := f.FetchDescription(ctx, rc.SubjectID, rc.Number)
			if err != nil {
				if errors.Is(err, ErrUnauthorized) || ctx.Err() != nil {
					return err
				}
				f.log.Warnf("Failed to fetch %s %s: %v", rc.SubjectID, rc.Number, err)
				failed[i] = err
				return nil
			}

			c := Course{
				SubjectID:   rc.SubjectID,
				SubjectLong: rc.SubjectLong,
				CallNumber:  rc.Number,
				Title:       rc.Title,
				Description: description,
			}
			fetched[i] = &c

			if opts.OnCourse != nil {
				mu.Lock()
				defer mu.Unlock()
				if err := opts.OnCourse(c); err != nil {
					return fmt.Errorf("storing %s: %w", c.ID(), err)
				}
			}
			return nil
		})
	}

	err := g.Wait()

	for i := range raws {
		if fetched[i] != nil {
			result.Courses = append(result.Courses, *fetched[i])
		}
		if failed[i] != nil {
			result.Failed = append(result.Failed, FetchError{Course: raws[i], Err: failed[i]})
		}
	}

	if err != nil {
		return result, err
	}
	return result, nil
}
