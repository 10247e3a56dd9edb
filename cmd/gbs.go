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
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moyogo/clld/internal/app"
)

const (
	gbsCacheDirKey = "gbs.cache_dir"
	gbsAPIKeyKey   = "gbs.api_key"
)

var gbsCmd = &cobra.Command{
	Use:   "gbs",
	Short: "Enrich sources with Google Book Search data",
	Long: `Works through all sources in three phases: download caches raw
volumes API responses, update assigns volume ids from cached hits,
and verify reviews doubtful matches interactively.`,
}

var gbsDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Query the volumes API and cache the responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := app.Initialize()
		if err != nil {
			return fmt.Errorf("initialize application: %w", err)
		}
		defer cleanup()

		queried, err := c.GBS.Download(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("queried google books for %d sources\n", queried)
		return nil
	},
}

var gbsUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Assign volume ids to sources from cached hits",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := app.Initialize()
		if err != nil {
			return fmt.Errorf("initialize application: %w", err)
		}
		defer cleanup()

		assigned, err := c.GBS.Update(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("assigned volume ids for %d sources\n", assigned)
		return nil
	},
}

var gbsVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Review cached volumes that differ from the source record",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := app.Initialize()
		if err != nil {
			return fmt.Errorf("initialize application: %w", err)
		}
		defer cleanup()

		reader := bufio.NewReader(cmd.InOrStdin())
		confirm := func(prompt string) bool {
			fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", prompt)
			line, err := reader.ReadString('\n')
			if err != nil {
				return false
			}
			answer := strings.ToLower(strings.TrimSpace(line))
			return answer == "y" || answer == "yes"
		}

		rejected, err := c.GBS.Verify(cmd.Context(), confirm)
		if err != nil {
			return err
		}
		cmd.Printf("rejected %d cached volumes\n", rejected)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gbsCmd)
	gbsCmd.AddCommand(gbsDownloadCmd, gbsUpdateCmd, gbsVerifyCmd)

	gbsCmd.PersistentFlags().String("cache-dir", "", "volume cache directory")
	gbsCmd.PersistentFlags().String("api-key", "", "Google Books API key")

	bindFlagToViper(gbsCacheDirKey, gbsCmd.PersistentFlags().Lookup("cache-dir"))
	bindFlagToViper(gbsAPIKeyKey, gbsCmd.PersistentFlags().Lookup("api-key"))
}
