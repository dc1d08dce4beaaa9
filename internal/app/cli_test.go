package app

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestRegisterFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)

	expectedFlags := []string{
		"transport",
		"host",
		"port",
		"auth-type",
		"auth-basic-username",
		"auth-basic-password",
		"auth-api-keys",
		"index-path",
		"crawl-enabled",
		"crawl-seeds",
		"crawl-interval",
		"crawl-parallelism",
		"news-api-key",
		"news-endpoint",
		"feed-urls",
		"cache-ttl",
		"log-level",
		"log-format",
	}

	for _, name := range expectedFlags {
		if flags.Lookup(name) == nil {
			t.Errorf("Expected flag %q to be registered", name)
		}
	}
}

func TestRegisterFlags_Shorthand(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)

	shorthandFlags := map[string]string{
		"transport":           "t",
		"host":                "H",
		"port":                "p",
		"auth-type":           "a",
		"auth-basic-username": "u",
		"auth-basic-password": "P",
		"auth-api-keys":       "k",
		"index-path":          "i",
	}

	for name, shorthand := range shorthandFlags {
		flag := flags.Lookup(name)
		if flag == nil {
			t.Errorf("Flag %q not found", name)
			continue
		}
		if flag.Shorthand != shorthand {
			t.Errorf("Flag %q expected shorthand %q, got %q", name, shorthand, flag.Shorthand)
		}
	}
}

func TestRegisterFlags_SetValues(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)

	err := flags.Parse([]string{
		"--transport", "stdio",
		"--port", "9090",
		"--crawl-enabled=false",
		"--crawl-seeds", "https://spring.io,https://go.dev",
		"--crawl-interval", "30s",
		"--cache-ttl", "5m",
		"-i", "/tmp/idx",
	})
	if err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	if transport, _ := flags.GetString("transport"); transport != "stdio" {
		t.Errorf("Expected transport 'stdio', got '%s'", transport)
	}
	if port, _ := flags.GetInt("port"); port != 9090 {
		t.Errorf("Expected port 9090, got %d", port)
	}
	if enabled, _ := flags.GetBool("crawl-enabled"); enabled {
		t.Error("Expected crawl-enabled false")
	}
	if seeds, _ := flags.GetStringSlice("crawl-seeds"); len(seeds) != 2 || seeds[1] != "https://go.dev" {
		t.Errorf("Unexpected seeds: %v", seeds)
	}
	if interval, _ := flags.GetDuration("crawl-interval"); interval != 30*time.Second {
		t.Errorf("Expected interval 30s, got %s", interval)
	}
	if ttl, _ := flags.GetDuration("cache-ttl"); ttl != 5*time.Minute {
		t.Errorf("Expected cache-ttl 5m, got %s", ttl)
	}
	if path, _ := flags.GetString("index-path"); path != "/tmp/idx" {
		t.Errorf("Expected index-path '/tmp/idx', got '%s'", path)
	}
}
