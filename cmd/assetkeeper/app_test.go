package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetKeeper/internal/asset"
	"AssetKeeper/internal/collector"
	"AssetKeeper/internal/config"
	"AssetKeeper/internal/tabular"
)

func TestBuildJobs(t *testing.T) {
	cfg := &config.Config{Assets: []config.AssetSpec{
		{Name: "Microsoft", Backend: "File", File: "msft.txt", Sep: "tab"},
		{Name: "Apple", Ticker: "aapl", Backend: "API", Start: "2020-09-01", End: "2020-09-20"},
	}}
	provider := collector.NewCollector(&collector.MockFetcher{Price: 100})

	jobs, err := buildJobs(cfg, provider, "mock")
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, "Microsoft", jobs[0].Asset.Name())
	assert.Equal(t, asset.LocalFile, jobs[0].Request.Backend)
	assert.Equal(t, "msft.txt", jobs[0].Source)
	assert.Equal(t, "aapl", jobs[1].Asset.Ticker())
	assert.Equal(t, "mock", jobs[1].Source)

	_, err = buildJobs(&config.Config{Assets: []config.AssetSpec{{Name: "X", Backend: "ftp"}}}, nil, "")
	assert.Error(t, err)
}

func TestRetrieveAndPrint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msft.txt")
	require.NoError(t, os.WriteFile(path, []byte("Date\tClose\n2020-09-01\t227.27\n2020-09-02\t231.65\n"), 0o644))

	var out bytes.Buffer
	a := asset.New("Microsoft")
	retrieveAndPrint(context.Background(), &out, a, asset.Request{
		Backend:  asset.LocalFile,
		FilePath: path,
		Options:  tabular.Options{Separator: '\t'},
	})
	assert.Contains(t, out.String(), "== Microsoft ==")
	assert.Contains(t, out.String(), "Last close: 231.65")

	out.Reset()
	retrieveAndPrint(context.Background(), &out, asset.New("Ghost"), asset.Request{
		Backend:  asset.LocalFile,
		FilePath: filepath.Join(t.TempDir(), "absent.txt"),
	})
	assert.Contains(t, out.String(), "Ghost: no data")
	assert.Contains(t, out.String(), "does not exist")
}

func TestDemoJobs(t *testing.T) {
	jobs := demoJobs("msft.txt", nil)
	require.Len(t, jobs, 2)

	assert.Equal(t, "Microsoft", jobs[0].Asset.Name())
	assert.Equal(t, "MSFT", jobs[0].Asset.Ticker())
	assert.Equal(t, asset.LocalFile, jobs[0].Request.Backend)
	assert.Equal(t, '\t', jobs[0].Request.Options.Separator)

	assert.Equal(t, "Apple", jobs[1].Asset.Name())
	assert.Equal(t, "aapl", jobs[1].Asset.Ticker())
	assert.Equal(t, asset.RemoteAPI, jobs[1].Request.Backend)
	assert.Equal(t, 20, jobs[1].Request.End.Day())
}
