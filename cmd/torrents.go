package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/s0up4200/trctl/filter"
	"github.com/s0up4200/trctl/transmission"
)

var (
	filterExpr string
	preset     string
	jsonOutput bool
	location   string
	deleteData bool
	noConfirm  bool
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List torrents, optionally filtered",
	Long: `List all torrents on the daemon. A filter expression can narrow the result:

  trctl list --filter 'percentDone < 1 and rateDownload == 0'
  trctl list --filter 'daysSince(addedDate) > 30 and totalSize > bytes("4 GB")'`,
	Args:    cobra.NoArgs,
	PreRunE: initializeApp,
	RunE:    runList,
}

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:     "get ID...",
	Short:   "Show one or more torrents",
	Long:    `Show torrents by numeric id or hash string.`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: initializeApp,
	RunE:    runGet,
}

// moveCmd represents the move command
var moveCmd = &cobra.Command{
	Use:     "move --location DIR ID...",
	Short:   "Move torrent data to a new location",
	Args:    cobra.MinimumNArgs(1),
	PreRunE: initializeApp,
	RunE:    runMove,
}

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:     "add FILE|URL",
	Short:   "Add a torrent from a .torrent path, URL or magnet link",
	Args:    cobra.ExactArgs(1),
	PreRunE: initializeApp,
	RunE:    runAdd,
}

// removeCmd represents the remove command
var removeCmd = &cobra.Command{
	Use:     "remove ID",
	Aliases: []string{"rm"},
	Short:   "Remove a torrent, optionally deleting its data",
	Args:    cobra.ExactArgs(1),
	PreRunE: initializeApp,
	RunE:    runRemove,
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:     "test",
	Short:   "Test connection to Transmission",
	Long:    `Test the connection to your Transmission daemon and display basic information.`,
	Args:    cobra.NoArgs,
	PreRunE: initializeApp,
	RunE:    runTest,
}

func init() {
	listCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
	listCmd.Flags().StringVarP(&preset, "preset", "p", "", "use a preset filter from config")
	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "print torrents as JSON")

	getCmd.Flags().BoolVar(&jsonOutput, "json", false, "print torrents as JSON")

	moveCmd.Flags().StringVarP(&location, "location", "l", "", "destination directory on the daemon host")
	_ = moveCmd.MarkFlagRequired("location")

	removeCmd.Flags().BoolVar(&deleteData, "delete-data", false, "also delete downloaded data")
	removeCmd.Flags().BoolVar(&noConfirm, "no-confirm", false, "skip confirmation prompt")

	rootCmd.AddCommand(listCmd, getCmd, moveCmd, addCmd, removeCmd, testCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	expr, err := getFilterExpression()
	if err != nil {
		return err
	}

	var f *filter.ExprFilter
	if expr != "" {
		f, err = filter.CompileExprFilter(expr)
		if err != nil {
			return fmt.Errorf("invalid filter expression: %w", err)
		}
		logger.Debug().Str("filter", expr).Msg("Filtering torrents")
	}

	torrents, err := client.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to list torrents: %w", err)
	}

	if f != nil {
		torrents, err = f.Apply(torrents)
		if err != nil {
			return err
		}
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), torrents)
	}

	if len(torrents) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No torrents found.")
		return nil
	}

	printTorrentTable(cmd.OutOrStdout(), torrents)
	return nil
}

// getFilterExpression determines the filter expression to use
func getFilterExpression() (string, error) {
	// Priority: command line filter > preset > none
	if filterExpr != "" {
		return filterExpr, nil
	}

	if preset != "" {
		if expr, ok := cfg.Filter.Presets[preset]; ok {
			return expr, nil
		}
		return "", fmt.Errorf("preset '%s' not found in config", preset)
	}

	return "", nil
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var torrents []transmission.Torrent
	if len(args) == 1 {
		torrent, err := client.Find(ctx, transmission.ParseID(args[0]))
		if err != nil {
			return fmt.Errorf("failed to get torrent: %w", err)
		}
		if torrent == nil {
			return fmt.Errorf("%s: %w", args[0], transmission.ErrTorrentNotFound)
		}
		torrents = append(torrents, torrent)
	} else {
		ids := make([]any, 0, len(args))
		for _, arg := range args {
			ids = append(ids, transmission.ParseID(arg))
		}

		found, err := client.FindAll(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to get torrents: %w", err)
		}
		if len(found) < len(args) {
			logger.Warn().Int("requested", len(args)).Int("found", len(found)).Msg("Some torrents were not found")
		}
		torrents = found
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), torrents)
	}
	return printYAML(cmd.OutOrStdout(), torrents)
}

func runMove(cmd *cobra.Command, args []string) error {
	ids := make([]any, 0, len(args))
	for _, arg := range args {
		ids = append(ids, transmission.ParseID(arg))
	}

	if _, err := client.Move(cmd.Context(), ids, location); err != nil {
		return fmt.Errorf("failed to move torrents: %w", err)
	}

	logger.Info().Strs("ids", args).Str("location", location).Msg("Moved torrents")
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Moving %d torrent(s) to %s\n", len(ids), location)
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	torrent, err := client.Add(cmd.Context(), args[0])
	if errors.Is(err, transmission.ErrDuplicateTorrent) {
		id, _ := torrent.ID()
		fmt.Fprintf(cmd.OutOrStdout(), "⊘ Already added: %s (ID: %d)\n", torrent.Name(), id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to add torrent: %w", err)
	}
	if torrent == nil {
		return fmt.Errorf("daemon did not report the added torrent")
	}

	id, _ := torrent.ID()
	logger.Info().Int64("id", id).Str("name", torrent.Name()).Msg("Added torrent")
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s (ID: %d)\n", torrent.Name(), id)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := transmission.ParseID(args[0])

	torrent, err := client.Find(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get torrent: %w", err)
	}
	if torrent == nil {
		return fmt.Errorf("%s: %w", args[0], transmission.ErrTorrentNotFound)
	}

	if deleteData && cfg.Safety.ConfirmDelete && !noConfirm {
		fmt.Fprintf(cmd.OutOrStdout(), "Remove %s and DELETE its data? [y/N]: ", torrent.Name())
		var response string
		fmt.Fscanln(cmd.InOrStdin(), &response)
		if strings.ToLower(strings.TrimSpace(response)) != "y" {
			logger.Info().Msg("Removal cancelled")
			return nil
		}
	}

	var env *transmission.Envelope
	if deleteData {
		env, err = client.Delete(ctx, id)
	} else {
		env, err = client.Remove(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("failed to remove torrent: %w", err)
	}

	logger.Info().
		Str("name", torrent.Name()).
		Bool("delete_data", deleteData).
		Str("result", env.Result).
		Msg("Removed torrent")
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %s\n", torrent.Name())
	return nil
}

func runTest(cmd *cobra.Command, args []string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "Testing connection to Transmission at %s...\n", cfg.Transmission.URL)

	torrents, err := client.All(cmd.Context())
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Connection successful!")
	fmt.Fprintf(cmd.OutOrStdout(), "\nTransmission Statistics:\n")
	fmt.Fprintf(cmd.OutOrStdout(), "- Session id: %s\n", client.SessionID())
	fmt.Fprintf(cmd.OutOrStdout(), "- Total torrents: %d\n", len(torrents))
	fmt.Fprintf(cmd.OutOrStdout(), "- Tracked fields: %s\n", strings.Join(client.Fields(), ", "))
	return nil
}

// printTorrentTable renders the columns that are present in the requested fields.
func printTorrentTable(w io.Writer, torrents []transmission.Torrent) {
	fmt.Fprintf(w, "\nFound %d torrent(s):\n", len(torrents))
	fmt.Fprintln(w, strings.Repeat("━", 100))
	fmt.Fprintf(w, "%-6s %-44s %7s %10s %10s %10s %s\n", "ID", "NAME", "DONE", "SIZE", "DOWN", "UP", "ADDED")
	fmt.Fprintln(w, strings.Repeat("━", 100))

	for _, t := range torrents {
		fmt.Fprintf(w, "%-6s %-44s %7s %10s %10s %10s %s\n",
			formatInt(t, "id"),
			truncate(t.Name(), 44),
			formatPercent(t),
			formatBytes(t, "totalSize", ""),
			formatBytes(t, "rateDownload", "/s"),
			formatBytes(t, "rateUpload", "/s"),
			formatAdded(t),
		)
	}
}

func formatInt(t transmission.Torrent, field string) string {
	if n, ok := t.Int(field); ok {
		return fmt.Sprintf("%d", n)
	}
	return "-"
}

func formatPercent(t transmission.Torrent) string {
	if f, ok := t.Float("percentDone"); ok {
		return fmt.Sprintf("%.1f%%", f*100)
	}
	return "-"
}

func formatBytes(t transmission.Torrent, field, suffix string) string {
	n, ok := t.Int(field)
	if !ok || n < 0 {
		return "-"
	}
	return humanize.Bytes(uint64(n)) + suffix
}

func formatAdded(t transmission.Torrent) string {
	sec, ok := t.Int("addedDate")
	if !ok || sec <= 0 {
		return "-"
	}
	return humanize.Time(time.Unix(sec, 0))
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func printJSON(w io.Writer, torrents []transmission.Torrent) error {
	if torrents == nil {
		torrents = []transmission.Torrent{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(torrents)
}

func printYAML(w io.Writer, torrents []transmission.Torrent) error {
	plain := make([]map[string]any, 0, len(torrents))
	for _, t := range torrents {
		plain = append(plain, t.Plain())
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(plain)
}
