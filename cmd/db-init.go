/*
Copyright © 2025 Ambor <saltbo@foxmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moyogo/clld/internal/app"
	"github.com/moyogo/clld/internal/infrastructure/database"
	"github.com/moyogo/clld/internal/usecase/load"
)

// dbInitCmd migrates the database schema, then seeds it from a dataset
var dbInitCmd = &cobra.Command{
	Use:   "db-init",
	Short: "Initialize the database schema and optionally load a dataset",
	Long: `Runs database migrations, then loads a JSON dataset when --dataset is
given. The dataset may be a local file or an http(s) URL; downloaded
datasets are cached. Note: go-sqlite3 needs CGO_ENABLED=1 builds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataset, _ := cmd.Flags().GetString("dataset")
		cacheDir, _ := cmd.Flags().GetString("cache-dir")
		noCache, _ := cmd.Flags().GetBool("no-cache")

		c, cleanup, err := app.Initialize()
		if err != nil {
			return fmt.Errorf("initialize application: %w", err)
		}
		defer cleanup()

		if err := database.Migrate(c.DB, nil); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		c.Logger.Info("database schema is up to date")

		if dataset == "" {
			return nil
		}

		path, err := resolveDataset(cmd.Context(), dataset, cacheDir, noCache, c.Logger.Infof)
		if err != nil {
			return err
		}
		ds, err := readDataset(path)
		if err != nil {
			return err
		}
		stats, err := c.Loader.Load(cmd.Context(), ds)
		if err != nil {
			return fmt.Errorf("load dataset: %w", err)
		}
		cmd.Printf("dataset loaded: %d languages, %d parameters, %d values\n",
			stats.Languages, stats.Parameters, stats.Values)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbInitCmd)
	dbInitCmd.Flags().String("dataset", "", "JSON dataset to load, local path or http(s) URL")
	dbInitCmd.Flags().String("cache-dir", "", "download cache directory (default: user cache dir/clld)")
	dbInitCmd.Flags().Bool("no-cache", false, "ignore the local cache and download again")
}

// resolveDataset turns the dataset argument into a local path,
// downloading URLs into the cache directory.
func resolveDataset(ctx context.Context, dataset, cacheDirFlag string, noCache bool, infof func(string, ...any)) (string, error) {
	if !strings.HasPrefix(dataset, "http://") && !strings.HasPrefix(dataset, "https://") {
		return dataset, nil
	}

	base := cacheDirFlag
	if base == "" {
		userCache, err := os.UserCacheDir()
		if err != nil {
			return "", fmt.Errorf("resolve user cache dir: %w", err)
		}
		base = filepath.Join(userCache, "clld")
	}

	// stable filename from URL hash
	ext := ".json"
	if strings.HasSuffix(strings.ToLower(dataset), ".gz") {
		ext = ".json.gz"
	}
	path := filepath.Join(base, fmt.Sprintf("dataset-%08x%s", crc32.ChecksumIEEE([]byte(dataset)), ext))

	if !noCache {
		if st, err := os.Stat(path); err == nil && st.Size() > 0 {
			infof("using cached dataset: %s", path)
			return path, nil
		}
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	infof("downloading dataset to cache: %s", path)
	if err := downloadFile(ctx, dataset, path); err != nil {
		return "", err
	}
	return path, nil
}

func downloadFile(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return err
	}
	return nil
}

func readDataset(path string) (*load.Dataset, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		defer gzr.Close()
		reader = gzr
	}

	var ds load.Dataset
	if err := json.NewDecoder(reader).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return &ds, nil
}
