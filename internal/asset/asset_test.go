package asset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetKeeper/internal/model"
	"AssetKeeper/internal/tabular"
)

type stubProvider struct {
	df    *dataframe.DataFrame
	err   error
	calls []model.HistoryRequest
}

func (p *stubProvider) FetchTable(_ context.Context, req model.HistoryRequest) (*dataframe.DataFrame, error) {
	p.calls = append(p.calls, req)
	return p.df, p.err
}

type recordingParser struct {
	formats []tabular.Format
	opts    []tabular.Options
	df      *dataframe.DataFrame
	err     error
}

func (p *recordingParser) Parse(_ string, format tabular.Format, opts tabular.Options) (*dataframe.DataFrame, error) {
	p.formats = append(p.formats, format)
	p.opts = append(p.opts, opts)
	return p.df, p.err
}

func newTestAsset(name string, opts ...Option) (*Asset, *test.Hook) {
	l, hook := test.NewNullLogger()
	return New(name, append(opts, WithLogger(l))...), hook
}

func sampleTable(rows int) *dataframe.DataFrame {
	closes := make([]float64, rows)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	df := dataframe.New(series.New(closes, series.Float, model.ColClose))
	return &df
}

func touch(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("x\n1\n"), 0o644))
	return path
}

func TestDataBeforeRetrieve(t *testing.T) {
	a, hook := newTestAsset("Microsoft", WithTicker("MSFT"))

	assert.Nil(t, a.Data())
	assert.False(t, a.HasData())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "no data loaded for Microsoft")
}

func TestDataIsIdempotent(t *testing.T) {
	a, _ := newTestAsset("Microsoft")
	require.NoError(t, a.SetData(sampleTable(3)))

	first := a.Data()
	second := a.Data()
	assert.Same(t, first, second)
}

func TestSetDataGate(t *testing.T) {
	a, hook := newTestAsset("Microsoft")
	good := sampleTable(2)
	require.NoError(t, a.SetData(good))

	broken := dataframe.DataFrame{Err: errors.New("corrupt")}
	empty := dataframe.DataFrame{}
	for name, df := range map[string]*dataframe.DataFrame{
		"nil":        nil,
		"errored":    &broken,
		"no columns": &empty,
	} {
		t.Run(name, func(t *testing.T) {
			hook.Reset()
			err := a.SetData(df)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, ValidationError, KindOf(err))
			assert.Same(t, good, a.Data())
			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, ValidationError, hook.LastEntry().Data["kind"])
		})
	}

	replacement := sampleTable(5)
	require.NoError(t, a.SetData(replacement))
	assert.Same(t, replacement, a.Data())
}

func TestRetrieveRemoteWithoutTicker(t *testing.T) {
	provider := &stubProvider{df: sampleTable(1)}
	a, _ := newTestAsset("Apple", WithProvider(provider))
	prior := sampleTable(4)
	require.NoError(t, a.SetData(prior))

	day := time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC)
	ranges := [][2]time.Time{
		{},
		{day, {}},
		{{}, day},
		{day, day.AddDate(0, 0, 19)},
		{day.AddDate(0, 0, 19), day},
	}
	for _, r := range ranges {
		df, err := a.Retrieve(context.Background(), Request{Backend: RemoteAPI, Start: r[0], End: r[1]})
		assert.Nil(t, df)
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.Same(t, prior, a.Data())
	}
	assert.Empty(t, provider.calls)
}

func TestRetrieveRemoteWithoutProvider(t *testing.T) {
	a, _ := newTestAsset("Apple", WithTicker("aapl"))

	df, err := a.Retrieve(context.Background(), Request{Backend: RemoteAPI})
	assert.Nil(t, df)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.False(t, a.HasData())
}

func TestRetrieveRemoteProviderFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("connection reset")}
	a, hook := newTestAsset("Apple", WithTicker("aapl"), WithProvider(provider))

	df, err := a.Retrieve(context.Background(), Request{Backend: RemoteAPI})
	assert.Nil(t, df)
	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorContains(t, err, "connection reset")
	assert.False(t, a.HasData())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, ProviderError, hook.LastEntry().Data["kind"])
}

func TestRetrieveRemoteForwardsRequest(t *testing.T) {
	provider := &stubProvider{df: sampleTable(13)}
	a, _ := newTestAsset("Apple", WithTicker("aapl"), WithProvider(provider))
	start := time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 9, 20, 0, 0, 0, 0, time.UTC)

	df, err := a.Retrieve(context.Background(), Request{Backend: RemoteAPI, Start: start, End: end, Interval: model.Weekly})
	require.NoError(t, err)
	assert.Same(t, provider.df, df)
	require.Len(t, provider.calls, 1)
	assert.Equal(t, model.HistoryRequest{Symbol: "aapl", Start: start, End: end, Interval: model.Weekly}, provider.calls[0])
}

func TestRetrieveRemoteRejectsBrokenTable(t *testing.T) {
	broken := dataframe.DataFrame{Err: errors.New("mismatched lengths")}
	a, _ := newTestAsset("Apple", WithTicker("aapl"), WithProvider(&stubProvider{df: &broken}))
	prior := sampleTable(1)
	require.NoError(t, a.SetData(prior))

	df, err := a.Retrieve(context.Background(), Request{Backend: RemoteAPI})
	assert.Nil(t, df)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Same(t, prior, a.Data())
}

func TestRetrieveFileMissingPath(t *testing.T) {
	parser := &recordingParser{df: sampleTable(1)}
	a, _ := newTestAsset("Microsoft", WithParser(parser))

	for _, p := range []string{"", "   "} {
		df, err := a.Retrieve(context.Background(), Request{Backend: LocalFile, FilePath: p})
		assert.Nil(t, df)
		assert.ErrorIs(t, err, ErrConfiguration)
	}
	assert.Empty(t, parser.formats)
}

func TestRetrieveFileNotFound(t *testing.T) {
	parser := &recordingParser{df: sampleTable(1)}
	a, hook := newTestAsset("Microsoft", WithParser(parser))
	prior := sampleTable(2)
	require.NoError(t, a.SetData(prior))

	missing := filepath.Join(t.TempDir(), "nope", "msft.txt")
	df, err := a.Retrieve(context.Background(), Request{Backend: LocalFile, FilePath: missing})
	assert.Nil(t, df)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Same(t, prior, a.Data())
	assert.Empty(t, parser.formats)
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "does not exist")
}

func TestRetrieveFileFormatSelection(t *testing.T) {
	tests := []struct {
		file string
		want tabular.Format
	}{
		{"prices.xlsx", tabular.Spreadsheet},
		{"prices.xls", tabular.Spreadsheet},
		{"prices.txt", tabular.Delimited},
		{"prices.csv", tabular.Delimited},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			parser := &recordingParser{df: sampleTable(1)}
			a, _ := newTestAsset("Microsoft", WithParser(parser))
			opts := tabular.Options{Separator: ';', SkipRows: 2, Sheet: "Prices"}

			_, err := a.Retrieve(context.Background(), Request{Backend: LocalFile, FilePath: touch(t, tt.file), Options: opts})
			require.NoError(t, err)
			assert.Equal(t, []tabular.Format{tt.want}, parser.formats)
			assert.Equal(t, []tabular.Options{opts}, parser.opts)
		})
	}
}

func TestRetrieveFileParseFailure(t *testing.T) {
	parser := &recordingParser{err: errors.New("bad row 3")}
	a, _ := newTestAsset("Microsoft", WithParser(parser))

	df, err := a.Retrieve(context.Background(), Request{Backend: LocalFile, FilePath: touch(t, "msft.csv")})
	assert.Nil(t, df)
	assert.ErrorIs(t, err, ErrParse)
	assert.False(t, a.HasData())
}

func TestRetrieveFileHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msft.txt")
	require.NoError(t, os.WriteFile(path, []byte("Date\tOpen\tHigh\tLow\tClose\tVolume\n"), 0o644))
	a, _ := newTestAsset("Microsoft", WithTicker("MSFT"))

	df, err := a.Retrieve(context.Background(), Request{
		Backend:  LocalFile,
		FilePath: path,
		Options:  tabular.Options{Separator: '\t'},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, df.Nrow())
	assert.Equal(t, model.PriceColumns, df.Names())
	assert.Same(t, df, a.Data())
}

func TestRetrieveUnknownBackend(t *testing.T) {
	a, _ := newTestAsset("Microsoft", WithTicker("MSFT"), WithProvider(&stubProvider{df: sampleTable(1)}))

	for _, b := range []Backend{0, Backend(42)} {
		df, err := a.Retrieve(context.Background(), Request{Backend: b, FilePath: "msft.txt"})
		assert.Nil(t, df)
		assert.ErrorIs(t, err, ErrConfiguration)
	}
	assert.False(t, a.HasData())
}

func TestRetrieveReplacesPreviousData(t *testing.T) {
	provider := &stubProvider{df: sampleTable(3)}
	a, _ := newTestAsset("Apple", WithTicker("aapl"), WithProvider(provider))

	first, err := a.Retrieve(context.Background(), Request{Backend: RemoteAPI})
	require.NoError(t, err)

	provider.df = sampleTable(7)
	second, err := a.Retrieve(context.Background(), Request{Backend: RemoteAPI})
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Same(t, second, a.Data())
	assert.Equal(t, 7, a.Data().Nrow())
}

func TestParseBackend(t *testing.T) {
	for in, want := range map[string]Backend{
		"API": RemoteAPI, "api": RemoteAPI, " remote ": RemoteAPI,
		"File": LocalFile, "FILE": LocalFile, "local": LocalFile,
	} {
		got, err := ParseBackend(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseBackend("ftp")
	assert.Error(t, err)
	assert.Equal(t, "API", RemoteAPI.String())
	assert.Equal(t, "File", LocalFile.String())
}

func TestErrorKinds(t *testing.T) {
	err := newError(NotFoundError, "Microsoft", "x does not exist", nil)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrParse))
	assert.Equal(t, "[NOT_FOUND] Microsoft: x does not exist", err.Error())

	cause := errors.New("boom")
	wrapped := newError(ProviderError, "Apple", "download failed", cause)
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, Kind(""), KindOf(cause))
}
