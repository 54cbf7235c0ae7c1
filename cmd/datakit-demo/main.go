// datakit-demo exercises the library end to end: it loads a synthetic
// prompt catalog through a cached fetch coordinator, pages and filters it,
// and prints the resulting page together with cache statistics.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/xhit/go-str2duration/v2"

	"github.com/promptdeck/go-datakit/cache"
	"github.com/promptdeck/go-datakit/fetch"
	"github.com/promptdeck/go-datakit/paginate"
)

type prompt struct {
	ID    int
	Title string
	Body  string
	Tags  []string
}

var (
	flagEntries    int
	flagMaxEntries int
	flagTTL        string
	flagPageSize   int
	flagPage       int
	flagSearch     string
	flagLoads      int
	flagVerbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "datakit-demo",
	Short: "Exercise the go-datakit cache, fetch, and pagination layers",
	RunE:  run,
}

func init() {
	rootCmd.Flags().IntVar(&flagEntries, "entries", 120, "number of synthetic prompts to generate")
	rootCmd.Flags().IntVar(&flagMaxEntries, "max-entries", 100, "cache capacity")
	rootCmd.Flags().StringVar(&flagTTL, "ttl", "90s", "cache TTL (e.g. 500ms, 90s, 1h)")
	rootCmd.Flags().IntVar(&flagPageSize, "page-size", 10, "items per page")
	rootCmd.Flags().IntVar(&flagPage, "page", 1, "page to display")
	rootCmd.Flags().StringVar(&flagSearch, "search", "", "filter prompts by substring")
	rootCmd.Flags().IntVar(&flagLoads, "loads", 3, "number of Load calls, to show cache hits")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ttl, err := str2duration.ParseDuration(flagTTL)
	if err != nil {
		return fmt.Errorf("parsing --ttl: %w", err)
	}

	store := cache.New(
		cache.WithName("demo"),
		cache.WithMaxEntries(flagMaxEntries),
		cache.WithDefaultTTL(ttl),
		cache.WithLogger(log),
	)
	defer store.Close()

	catalog := makeCatalog(flagEntries)
	coord, err := fetch.New("prompts", func(ctx context.Context) ([]prompt, error) {
		// Simulated document-store query.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(30 * time.Millisecond):
			return catalog, nil
		}
	},
		fetch.WithStore(store),
		fetch.WithTTL(ttl),
		fetch.WithLogger(log),
	)
	if err != nil {
		return err
	}
	defer coord.Close()

	ctx := cmd.Context()
	var items []prompt
	for i := 0; i < flagLoads; i++ {
		start := time.Now()
		items, err = coord.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading prompts: %w", err)
		}
		log.Info().Int("load", i+1).Dur("took", time.Since(start)).
			Int("items", len(items)).Msg("load complete")
	}

	pager := paginate.New(items, flagPageSize, paginate.WithSearchFields(
		func(p prompt) string { return p.Title },
		func(p prompt) string { return p.Body },
		func(p prompt) string { return strings.Join(p.Tags, " ") },
	))
	defer pager.Close()
	if flagSearch != "" {
		pager.SetSearch(flagSearch)
		pager.FlushSearch()
	}
	pager.SetPage(flagPage)

	printPage(pager)
	printStats(store.Stats())
	return nil
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

func makeCatalog(n int) []prompt {
	topics := []string{"summarize", "translate", "review", "brainstorm", "refactor", "explain"}
	tags := [][]string{{"writing"}, {"code"}, {"research", "analysis"}, {"team"}}
	catalog := make([]prompt, n)
	for i := range catalog {
		topic := topics[i%len(topics)]
		catalog[i] = prompt{
			ID:    i + 1,
			Title: fmt.Sprintf("%s draft %d", strings.ToUpper(topic[:1])+topic[1:], i+1),
			Body:  fmt.Sprintf("You are a helpful assistant. Please %s the following input.", topic),
			Tags:  tags[i%len(tags)],
		}
	}
	return catalog
}

var (
	tableBorderColor = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#AAAAAA"}
	tableBorderStyle = lipgloss.NewStyle().Foreground(tableBorderColor)
)

func printTable(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorderStyle).
		Headers(headers...).
		Rows(rows...)
	fmt.Println(t.String())
}

func printPage(pager *paginate.Pager[prompt]) {
	rows := make([][]string, 0, pager.PageSize())
	for _, p := range pager.Page() {
		rows = append(rows, []string{
			fmt.Sprintf("%d", p.ID),
			p.Title,
			strings.Join(p.Tags, ", "),
		})
	}
	printTable([]string{"ID", "Title", "Tags"}, rows)
	fmt.Printf("page %d of %d (%d prompts)\n\n", pager.CurrentPage(), pager.TotalPages(), pager.TotalItems())
}

func printStats(st cache.Stats) {
	printTable([]string{"Stat", "Value"}, [][]string{
		{"entries", fmt.Sprintf("%d / %d", st.Entries, st.MaxEntries)},
		{"hit rate", fmt.Sprintf("%.0f%% (%d hits, %d misses)", st.HitRate*100, st.Hits, st.Misses)},
		{"evictions", fmt.Sprintf("%d", st.Evictions)},
		{"expired", fmt.Sprintf("%d", st.Expired)},
		{"estimated size", fmt.Sprintf("%d bytes", st.EstimatedBytes)},
		{"oldest entry", st.OldestEntryAge.Round(time.Millisecond).String()},
	})
}
