package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: http or stdio")
	flags.StringP("host", "H", "", "Host for the HTTP transport")
	flags.IntP("port", "p", 0, "Port for the HTTP transport")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")

	flags.StringP("index-path", "i", "", "Directory of the full-text index")
	flags.Bool("crawl-enabled", true, "Crawl seed URLs and feeds on a schedule")
	flags.StringSlice("crawl-seeds", nil, "Seed URLs to crawl (comma-separated)")
	flags.Duration("crawl-interval", 0, "Delay between crawl runs")
	flags.Int("crawl-parallelism", 0, "Maximum concurrent crawl and feed fetches")
	flags.String("news-api-key", "", "News provider API key (provider disabled when empty)")
	flags.String("news-endpoint", "", "News provider search endpoint")
	flags.StringSlice("feed-urls", nil, "RSS/Atom feed URLs to ingest (comma-separated)")
	flags.Duration("cache-ttl", 0, "How long provider results stay cached")
	flags.String("log-level", "", "Log level: debug, info, warn, or error")
	flags.String("log-format", "", "Log format: text or json")
}
