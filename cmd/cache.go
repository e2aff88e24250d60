package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/ambientctx/internal/cache"
	"github.com/sells-group/ambientctx/internal/config"
	"github.com/sells-group/ambientctx/internal/model"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or reset the session cache",
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the cached location for the configured session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cfg, "show"); err != nil {
			return err
		}
		st, _, err := openCache(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec, err := st.Get(cmd.Context(), cache.LocationKey)
		if err != nil {
			return err
		}
		return printRecord(cmd.OutOrStdout(), rec)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "End the configured session by clearing its cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cfg, "clear"); err != nil {
			return err
		}
		st, session, err := openCache(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared session %s\n", session)
		return nil
	},
}

var cacheMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the session cache schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		// cache.Open migrates durable backends.
		st, _, err := openCache(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		fmt.Fprintf(cmd.OutOrStdout(), "session cache ready (driver %s)\n", cfg.Cache.Driver)
		return nil
	},
}

// requireSession rejects cache operations that cannot reach an existing
// session: the memory driver dies with its process, and without a session ID
// a fresh one would be generated.
func requireSession(c *config.Config, op string) error {
	if c.Cache.Driver == "" || c.Cache.Driver == cache.DriverMemory {
		return eris.Errorf("cache %s: the memory driver does not outlive its process; use sqlite, postgres or redis", op)
	}
	if c.Cache.SessionID == "" {
		return eris.Errorf("cache %s: set cache.session_id to select a session", op)
	}
	return nil
}

// printRecord writes rec as indented JSON, or a notice on a miss.
func printRecord(w io.Writer, rec *model.CachedLocationRecord) error {
	if rec == nil {
		_, err := fmt.Fprintln(w, "no cached location for this session")
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(rec), "cache show: encode")
}

func init() {
	cacheCmd.AddCommand(cacheShowCmd, cacheClearCmd, cacheMigrateCmd)
	rootCmd.AddCommand(cacheCmd)
}
