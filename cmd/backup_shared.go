package cmd

import (
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// tablesFromConfig reads a table list from configuration and
// normalizes it.
func tablesFromConfig(key string) []string {
	return normalizeTables(viper.GetStringSlice(key))
}

// normalizeTables trims and lowercases table names, dropping empty
// entries. A nil result means no table filter.
func normalizeTables(values []string) []string {
	result := lo.FilterMap(values, func(value string, _ int) (string, bool) {
		name := strings.ToLower(strings.TrimSpace(value))
		return name, name != ""
	})
	if len(result) == 0 {
		return nil
	}
	return result
}

func bindFlagToViper(key string, flag *pflag.Flag) {
	if flag == nil {
		return
	}
	cobra.CheckErr(viper.BindPFlag(key, flag))
}
