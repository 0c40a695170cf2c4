// Package collect drives a running benchmark server: it calls an endpoint a
// number of times, pools the raw samples and reduces them to medians.
package collect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"crud-benchmark/internal/results"
)

// Endpoints are the server paths collected by default.
var Endpoints = []string{"insert", "delete", "update", "query/simple", "query/join", "query/all"}

type Collector struct {
	baseURL string
	prefix  string
	client  *http.Client
	logger  logrus.FieldLogger
}

func New(baseURL, prefix string, client *http.Client, logger logrus.FieldLogger) *Collector {
	if client == nil {
		client = http.DefaultClient
	}
	return &Collector{
		baseURL: strings.TrimRight(baseURL, "/"),
		prefix:  prefix,
		client:  client,
		logger:  logger,
	}
}

// Fetch performs one benchmark run on the server.
func (c *Collector) Fetch(ctx context.Context, endpoint string) ([]results.Sample, error) {
	url := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("GET %s: %s: %s", url, resp.Status, strings.TrimSpace(string(body)))
	}

	samples, err := decodeSamples(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: decode: %w", url, err)
	}
	return samples, nil
}

// decodeSamples reads a sample array, or a JSON string holding one as the
// FastAPI servers answered.
func decodeSamples(r io.Reader) ([]results.Sample, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, err
		}
		raw = json.RawMessage(inner)
	}
	var samples []results.Sample
	if err := json.Unmarshal(raw, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// Collect calls endpoint runs times in sequence and reduces every sample it
// got. Failed calls are logged and skipped; it fails only when no call
// succeeded.
func (c *Collector) Collect(ctx context.Context, endpoint string, runs int) ([]results.MedianRecord, error) {
	logger := c.logger.WithField("endpoint", endpoint)

	var pooled []results.Sample
	succeeded := 0
	for i := 1; i <= runs; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		samples, err := c.Fetch(ctx, endpoint)
		if err != nil {
			logger.WithError(err).WithField("run", i).Warn("run failed, skipping")
			continue
		}
		logger.WithField("run", i).Debug("run collected")
		pooled = append(pooled, samples...)
		succeeded++
	}
	if succeeded == 0 {
		return nil, fmt.Errorf("%s: all %d runs failed", endpoint, runs)
	}
	logger.WithFields(logrus.Fields{"runs": succeeded, "samples": len(pooled)}).Info("collected")
	return results.Reduce(pooled), nil
}

// CollectToFile runs Collect and writes the medians to dir. It returns the
// file path.
func (c *Collector) CollectToFile(ctx context.Context, endpoint string, runs int, dir string) (string, error) {
	medians, err := c.Collect(ctx, endpoint, runs)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, c.FileName(endpoint))
	if err := results.WriteJSON(path, medians); err != nil {
		return "", err
	}
	return path, nil
}

// fileStems keeps the file names plotting scripts already read.
var fileStems = map[string]string{
	"insert":       "create",
	"query/simple": "simple_query",
	"query/join":   "join_query",
	"query/all":    "all_query",
}

// FileName is the median file name of endpoint. Known endpoints keep their
// established names (insert -> maria_create_med.json, query/join ->
// maria_join_query_med.json); any other path has its slashes replaced, as in
// maria_query_slow_med.json.
func (c *Collector) FileName(endpoint string) string {
	name := strings.Trim(endpoint, "/")
	if stem, ok := fileStems[name]; ok {
		name = stem
	} else {
		name = strings.ReplaceAll(name, "/", "_")
	}
	if c.prefix != "" {
		name = c.prefix + "_" + name
	}
	return name + "_med.json"
}
