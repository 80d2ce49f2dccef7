package asset

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/sirupsen/logrus"

	"AssetKeeper/internal/logger"
	"AssetKeeper/internal/model"
	"AssetKeeper/internal/tabular"
)

// Provider fetches historical prices for a ticker as a table.
type Provider interface {
	FetchTable(ctx context.Context, req model.HistoryRequest) (*dataframe.DataFrame, error)
}

// FileParser reads a tabular file in the given format.
type FileParser interface {
	Parse(path string, format tabular.Format, opts tabular.Options) (*dataframe.DataFrame, error)
}

// Request describes one Retrieve call.
type Request struct {
	Backend Backend

	// FilePath is required for LocalFile.
	FilePath string
	// Options are forwarded verbatim to the file parser.
	Options tabular.Options

	// Start and End bound a RemoteAPI query, both inclusive. Zero means open.
	Start    time.Time
	End      time.Time
	Interval model.Interval
}

// Asset is a named instrument with a lazily loaded price table.
type Asset struct {
	name   string
	ticker string

	provider Provider
	parser   FileParser
	log      logrus.FieldLogger

	mu   sync.RWMutex
	data *dataframe.DataFrame
}

// Option configures an Asset.
type Option func(*Asset)

// WithTicker sets the symbol used by the RemoteAPI backend.
func WithTicker(ticker string) Option {
	return func(a *Asset) { a.ticker = strings.TrimSpace(ticker) }
}

// WithProvider injects the remote market-data provider.
func WithProvider(p Provider) Option {
	return func(a *Asset) { a.provider = p }
}

// WithParser replaces the default file parser.
func WithParser(p FileParser) Option {
	return func(a *Asset) { a.parser = p }
}

// WithLogger sets where diagnostics go.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Asset) { a.log = l }
}

// New creates an asset with no data loaded.
func New(name string, opts ...Option) *Asset {
	a := &Asset{name: name, parser: tabular.NewReader()}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.WithComponent("asset")
	}
	a.log = a.log.WithField("asset", name)
	return a
}

func (a *Asset) Name() string   { return a.name }
func (a *Asset) Ticker() string { return a.ticker }

// HasData reports whether a table is loaded, without logging.
func (a *Asset) HasData() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.data != nil
}

// Data returns the loaded table, or nil if nothing has been loaded yet.
func (a *Asset) Data() *dataframe.DataFrame {
	a.mu.RLock()
	df := a.data
	a.mu.RUnlock()
	if df == nil {
		a.log.Warnf("no data loaded for %s: use Retrieve first or assign a table with SetData", a.name)
	}
	return df
}

// SetData replaces the loaded table. Anything that is not a well-formed
// table is rejected and the current table is kept.
func (a *Asset) SetData(df *dataframe.DataFrame) error {
	if err := validate(df); err != nil {
		e := newError(ValidationError, a.name, "rejected data assignment", err)
		a.report(e)
		return e
	}
	a.mu.Lock()
	a.data = df
	a.mu.Unlock()
	return nil
}

func validate(df *dataframe.DataFrame) error {
	switch {
	case df == nil:
		return errors.New("table is nil")
	case df.Err != nil:
		return df.Err
	case df.Ncol() == 0:
		return errors.New("table has no columns")
	}
	return nil
}

// Retrieve loads data from the requested backend and stores it on success.
// On failure the loaded table is left as it was and the returned error is
// an *Error describing why.
func (a *Asset) Retrieve(ctx context.Context, req Request) (*dataframe.DataFrame, error) {
	var (
		df  *dataframe.DataFrame
		err *Error
	)
	switch req.Backend {
	case RemoteAPI:
		df, err = a.fromProvider(ctx, req)
	case LocalFile:
		df, err = a.fromFile(req)
	default:
		err = newError(ConfigurationError, a.name, "incorrect method "+req.Backend.String()+": select API or File with a file path", nil)
	}
	if err != nil {
		a.report(err)
		return nil, err
	}

	if err := a.SetData(df); err != nil {
		return nil, err
	}
	return df, nil
}

func (a *Asset) fromProvider(ctx context.Context, req Request) (*dataframe.DataFrame, *Error) {
	if a.ticker == "" {
		return nil, newError(ConfigurationError, a.name, "ticker is not set: pass a ticker to use the API method", nil)
	}
	if a.provider == nil {
		return nil, newError(ConfigurationError, a.name, "no market-data provider configured", nil)
	}
	df, err := a.provider.FetchTable(ctx, model.HistoryRequest{
		Symbol:   a.ticker,
		Start:    req.Start,
		End:      req.End,
		Interval: req.Interval,
	})
	if err != nil {
		return nil, newError(ProviderError, a.name, "download of "+a.ticker+" failed", err)
	}
	return df, nil
}

func (a *Asset) fromFile(req Request) (*dataframe.DataFrame, *Error) {
	if strings.TrimSpace(req.FilePath) == "" {
		return nil, newError(ConfigurationError, a.name, "file path is required for the File method", nil)
	}
	path, err := resolvePath(req.FilePath)
	if err != nil {
		return nil, newError(ConfigurationError, a.name, req.FilePath+" is not a valid file path", err)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newError(NotFoundError, a.name, path+" does not exist", nil)
		}
		return nil, newError(ParseError, a.name, "cannot read "+path, err)
	}

	df, err := a.parser.Parse(path, tabular.DetectFormat(path), req.Options)
	if err != nil {
		return nil, newError(ParseError, a.name, "unsuccessful read of "+filepath.Base(path), err)
	}
	return df, nil
}

func resolvePath(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Abs(p)
}

func (a *Asset) report(e *Error) {
	entry := a.log.WithField("kind", e.Kind)
	if e.Err != nil {
		entry = entry.WithError(e.Err)
	}
	entry.Warn(e.Message)
}
