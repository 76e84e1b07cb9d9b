// client.go provides the Client, the capture surface of the library.

package raven

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"runtime/debug"
	"time"
)

// BeforeSendFunc inspects or modifies an event before it is sent. Returning
// nil withholds the event.
type BeforeSendFunc func(b *EventBuilder) *EventBuilder

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	baseURL          string
	tags             map[string]string
	appPrefix        *string
	serverName       string
	logger           *slog.Logger
	transport        Transport
	deliverer        Deliverer
	crashDir         string
	store            *CrashStore
	chain            *HandlerChain
	beforeSend       BeforeSendFunc
	scrubber         *Scrubber
	metrics          *Metrics
	autoChecksum     bool
	buildInfoModules bool
	notInApp         []string
	now              func() time.Time
}

// WithBaseURL sends events to an alternate collector root instead of the
// DSN's scheme://host.
func WithBaseURL(baseURL string) Option {
	return func(c *clientConfig) {
		c.baseURL = baseURL
	}
}

// WithTags sets tags attached to every captured event.
func WithTags(tags map[string]string) Option {
	return func(c *clientConfig) {
		c.tags = maps.Clone(tags)
	}
}

// WithAppPrefix sets the package path prefix of application code, used to
// pick the culprit frame. Defaults to the main module path.
func WithAppPrefix(prefix string) Option {
	return func(c *clientConfig) {
		c.appPrefix = &prefix
	}
}

// WithServerName sets server_name on every event.
func WithServerName(name string) Option {
	return func(c *clientConfig) {
		c.serverName = name
	}
}

// WithLogger sets the structured logger for diagnostics. The default logger
// discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithTransport sets the transport. It takes precedence over WithDeliverer.
func WithTransport(t Transport) Option {
	return func(c *clientConfig) {
		c.transport = t
	}
}

// WithDeliverer sets the deliverer wrapped by the default goroutine-per-send
// transport (default: NewHTTPDeliverer()).
func WithDeliverer(d Deliverer) Option {
	return func(c *clientConfig) {
		c.deliverer = d
	}
}

// WithCrashDir sets the crash directory (default: DefaultCrashDir()).
func WithCrashDir(dir string) Option {
	return func(c *clientConfig) {
		c.crashDir = dir
	}
}

// WithCrashStore sets the crash store. It takes precedence over WithCrashDir.
func WithCrashStore(store *CrashStore) Option {
	return func(c *clientConfig) {
		c.store = store
	}
}

// WithHandlerChain installs the crash interceptor into chain instead of
// DefaultHandlerChain().
func WithHandlerChain(chain *HandlerChain) Option {
	return func(c *clientConfig) {
		c.chain = chain
	}
}

// WithBeforeSend registers a hook run on every event before it is sent.
func WithBeforeSend(fn BeforeSendFunc) Option {
	return func(c *clientConfig) {
		c.beforeSend = fn
	}
}

// WithScrubber redacts events with a custom scrubber configuration.
func WithScrubber(cfg ScrubberConfig) Option {
	return func(c *clientConfig) {
		c.scrubber = NewScrubber(cfg)
	}
}

// WithDefaultScrubbing redacts events with production-safe defaults.
func WithDefaultScrubbing() Option {
	return func(c *clientConfig) {
		c.scrubber = NewScrubber(DefaultScrubberConfig())
	}
}

// WithMetrics records client activity.
func WithMetrics(m *Metrics) Option {
	return func(c *clientConfig) {
		c.metrics = m
	}
}

// WithAutoChecksum derives a checksum from the normalized culprit of error
// events that have none, so identical crashes group together.
func WithAutoChecksum() Option {
	return func(c *clientConfig) {
		c.autoChecksum = true
	}
}

// WithBuildInfoModules records the binary's dependency versions in modules.
func WithBuildInfoModules() Option {
	return func(c *clientConfig) {
		c.buildInfoModules = true
	}
}

// WithNotInAppPrefixes adds package prefixes whose frames are not
// application frames, on top of DefaultNotInAppPrefixes.
func WithNotInAppPrefixes(prefixes ...string) Option {
	return func(c *clientConfig) {
		c.notInApp = append(c.notInApp, prefixes...)
	}
}

// WithClock replaces the clock used for auth header timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *clientConfig) {
		c.now = now
	}
}

// Client captures events and delivers them to one collector project. It is
// safe for concurrent use.
type Client struct {
	dsn         DSN
	storeURL    string
	tags        map[string]string
	appPrefix   string
	serverName  string
	logger      *slog.Logger
	transport   Transport
	store       *CrashStore
	chain       *HandlerChain
	interceptor *CrashInterceptor
	beforeSend  BeforeSendFunc
	scrubber    *Scrubber
	metrics     *Metrics
	autoSum     bool
	buildInfo   bool
	notInApp    []string
	now         func() time.Time
}

// New parses dsn, replays crashes persisted by a previous process and
// installs the crash interceptor. A malformed dsn is reported here, wrapping
// ErrMalformedDSN.
//
// Replayed crashes are sent asynchronously; New does not wait for them.
func New(dsn string, opts ...Option) (*Client, error) {
	parsed, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	cfg := &clientConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = discardLogger()
	}
	logger = logger.With("component", "raven")

	transport := cfg.transport
	if transport == nil {
		deliverer := cfg.deliverer
		if deliverer == nil {
			deliverer = NewHTTPDeliverer()
		}
		transport = NewGoTransport(deliverer)
	}

	store := cfg.store
	if store == nil {
		dir := cfg.crashDir
		if dir == "" {
			dir = DefaultCrashDir()
		}
		store = NewCrashStore(dir, WithStoreLogger(cfg.logger), WithStoreMetrics(cfg.metrics))
	}

	chain := cfg.chain
	if chain == nil {
		chain = DefaultHandlerChain()
	}
	chain.SetLogger(cfg.logger)

	appPrefix := mainModulePath()
	if cfg.appPrefix != nil {
		appPrefix = *cfg.appPrefix
	}

	now := cfg.now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		dsn:        parsed,
		storeURL:   parsed.StoreURL(cfg.baseURL),
		tags:       cfg.tags,
		appPrefix:  appPrefix,
		serverName: cfg.serverName,
		logger:     logger,
		transport:  transport,
		store:      store,
		chain:      chain,
		beforeSend: cfg.beforeSend,
		scrubber:   cfg.scrubber,
		metrics:    cfg.metrics,
		autoSum:    cfg.autoChecksum,
		buildInfo:  cfg.buildInfoModules,
		notInApp:   append(append([]string(nil), DefaultNotInAppPrefixes...), cfg.notInApp...),
		now:        now,
	}

	c.Replay(context.Background())

	c.interceptor = NewCrashInterceptor(store, cfg.logger)
	if !chain.Install(c.interceptor) {
		c.logger.Debug("Crash interceptor already installed, skipping")
	}

	c.logger.Info("Client initialized", "dsn", parsed.String(), "store_url", c.storeURL, "crash_dir", store.Dir())
	return c, nil
}

// DSN returns the parsed descriptor.
func (c *Client) DSN() DSN { return c.dsn }

// CrashStore returns the store backing the crash path.
func (c *Client) CrashStore() *CrashStore { return c.store }

// Replay drains the crash store, capturing each persisted crash as a fatal
// event. Every crash file is deleted afterwards whether or not its delivery
// succeeds. It returns the number of crashes submitted.
func (c *Client) Replay(ctx context.Context) int {
	return c.store.Drain(func(f *Failure) {
		c.CaptureFailure(ctx, f, LevelFatal)
	})
}

// NewEventBuilder returns a builder preconfigured with the client's server
// name, module versions and frame classification.
func (c *Client) NewEventBuilder() *EventBuilder {
	b := NewEventBuilder().SetNotInAppPrefixes(c.notInApp)
	if c.serverName != "" {
		b.SetServerName(c.serverName)
	}
	if c.buildInfo {
		b.SetModulesFromBuildInfo()
	}
	return b
}

// CaptureMessage sends message at info level and returns the event id.
func (c *Client) CaptureMessage(ctx context.Context, message string) string {
	return c.CaptureMessageLevel(ctx, message, LevelInfo)
}

// CaptureMessageLevel sends message at level and returns the event id.
func (c *Client) CaptureMessageLevel(ctx context.Context, message string, level Level) string {
	b := c.NewEventBuilder().
		SetMessage(message).
		SetLevel(level).
		SetTags(c.tags)
	return c.CaptureEvent(ctx, b)
}

// CaptureError sends err at error level and returns the event id. If err
// carries no stack (see WithStack), the caller's stack is used.
func (c *Client) CaptureError(ctx context.Context, err error) string {
	return c.captureError(ctx, err, LevelError)
}

// CaptureErrorLevel sends err at level and returns the event id.
func (c *Client) CaptureErrorLevel(ctx context.Context, err error, level Level) string {
	return c.captureError(ctx, err, level)
}

func (c *Client) captureError(ctx context.Context, err error, level Level) string {
	if err == nil {
		return ""
	}
	f := FailureFromError(err)
	if len(f.Frames) == 0 {
		// Skip runtime.Callers, callers, captureError and the exported
		// Capture method.
		f.Frames = framesFromPCs(callers(4))
	}
	return c.CaptureFailure(ctx, f, level)
}

// CaptureFailure sends an already converted failure chain at level.
func (c *Client) CaptureFailure(ctx context.Context, f *Failure, level Level) string {
	if f == nil {
		return ""
	}
	b := c.NewEventBuilder().
		SetMessage(f.Message).
		SetCulprit(FindCulprit(f, c.appPrefix)).
		SetLevel(level).
		SetException(f).
		SetTags(c.tags)
	return c.CaptureEvent(ctx, b)
}

// CaptureEvent finalizes b and hands it to the transport. It returns the
// event id, or "" if the event was withheld by the before-send hook or could
// not be serialized. Delivery outcomes are only logged.
func (c *Client) CaptureEvent(ctx context.Context, b *EventBuilder) string {
	if b == nil {
		return ""
	}
	if extra := ExtraFromContext(ctx); len(extra) > 0 {
		dst := b.Extra()
		for k, v := range extra {
			if _, ok := dst[k]; !ok {
				dst[k] = v
			}
		}
	}
	c.metrics.eventCaptured(b.Level())

	if c.beforeSend != nil {
		eventID := b.EventID()
		if b = c.beforeSend(b); b == nil {
			c.logger.Debug("Event withheld by before-send hook", "event_id", eventID)
			c.metrics.send(OutcomeWithheld)
			return ""
		}
	}

	if c.autoSum && b.Checksum() == "" && b.Failure() != nil {
		b.SetChecksum(NormalizeCulprit(b.Culprit()))
	}

	event := b.Build()
	if c.scrubber != nil {
		event = c.scrubber.ScrubEvent(event)
	}

	body, err := json.Marshal(event)
	if err != nil {
		c.logger.Error("Failed to encode event", "event_id", event.EventID, "error", err)
		c.metrics.send(OutcomeFailure)
		return ""
	}
	c.logger.Debug("Sending event", "event_id", event.EventID, "level", event.Level, "url", c.storeURL)

	c.transport.Send(ctx, c.newRequest(event.EventID, body), c.responseHandler(event.EventID))
	return event.EventID
}

func (c *Client) newRequest(eventID string, body []byte) *Request {
	header := make(http.Header)
	header.Set(AuthHeaderName, c.dsn.AuthHeader(c.now()))
	header.Set("Content-Type", ContentType)
	return &Request{
		URL:     c.storeURL,
		Header:  header,
		Body:    body,
		EventID: eventID,
	}
}

func (c *Client) responseHandler(eventID string) ResponseHandler {
	return ResponseHandler{
		OnSuccess: func(resp Response) {
			c.metrics.send(OutcomeSuccess)
			c.logger.Debug("Event delivered", "event_id", eventID, "status", resp.StatusCode, "body", string(resp.Body))
		},
		OnFailure: func(resp Response, err error) {
			c.metrics.send(OutcomeFailure)
			c.logger.Warn("Event delivery failed", "event_id", eventID, "status", resp.StatusCode, "body", string(resp.Body), "error", err)
		},
	}
}

// Flush waits for in-flight deliveries.
func (c *Client) Flush(ctx context.Context) error {
	return c.transport.Flush(ctx)
}

// Close closes the transport. The crash interceptor stays installed.
func (c *Client) Close() error {
	return c.transport.Close()
}

func mainModulePath() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.Main.Path
	}
	return ""
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
