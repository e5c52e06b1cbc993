package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/ldap-sync/pkg/config"
	"github.com/tendant/ldap-sync/pkg/directory"
	"github.com/tendant/ldap-sync/pkg/events"
	"github.com/tendant/ldap-sync/pkg/importer"
	"github.com/tendant/ldap-sync/pkg/users"
)

type cliConfig struct {
	DbConfig   config.DatabaseConfig
	SMTPConfig config.SMTPConfig
}

func main() {
	user := flag.String("user", "", "Import a single user by username or UPN")
	filter := flag.String("filter", "", "Override the directory search filter")
	attributes := flag.String("attributes", "", "Attribute mapping, e.g. sAMAccountName=username,mail=email")
	softDelete := flag.Bool("delete", false, "Soft-delete users whose directory account is disabled")
	restore := flag.Bool("restore", false, "Restore soft-deleted users whose directory account is enabled")
	deleteMissing := flag.Bool("delete-missing", false, "Soft-delete directory-linked users missing from the run")
	noLog := flag.Bool("no-log", false, "Suppress the structured audit log")
	yes := flag.Bool("yes", false, "Skip the confirmation prompt")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <provider>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	providerName := flag.Arg(0)

	godotenv.Load()

	cfg := cliConfig{}
	cleanenv.ReadEnv(&cfg)

	provider, err := config.LoadProviders().Get(providerName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := provider.Sync.ToOptions(provider.Name)
	if *filter != "" {
		opts.Filter = *filter
	}
	if *attributes != "" {
		mapping, err := config.ParseAttributeMap(*attributes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		opts.Attributes = mapping
	}
	if *softDelete {
		opts.SoftDeleteDisabled = true
	}
	if *restore {
		opts.RestoreEnabled = true
	}
	if *deleteMissing {
		opts.DeleteMissing = true
	}

	ctx := context.Background()

	pool, err := dbutils.NewDbPool(ctx, cfg.DbConfig.ToDbConfig())
	if err != nil {
		slog.Error("Failed creating dbpool", "db", cfg.DbConfig.Database, "host", cfg.DbConfig.Host, "err", err)
		os.Exit(1)
	}

	repo, err := users.NewPostgresUserRepository(pool)
	if err != nil {
		slog.Error("Failed creating user repository", "err", err)
		os.Exit(1)
	}

	dir, err := directory.Open(provider.LDAP.ToDirectoryConfig())
	if err != nil {
		slog.Error("Failed connecting to directory", "provider", provider.Name, "url", provider.LDAP.URL, "err", err)
		os.Exit(1)
	}

	sink, closeSink := buildSink(cfg.SMTPConfig, *noLog)
	svc := importer.NewService(dir, repo, opts, sink)

	if !*yes && !confirm(ctx, svc, provider, *user) {
		fmt.Println("Aborted.")
		closeSink()
		dir.Close()
		pool.Close()
		return
	}

	exitCode := run(ctx, svc, *user)

	closeSink()
	dir.Close()
	pool.Close()
	os.Exit(exitCode)
}

func run(ctx context.Context, svc *importer.Service, user string) int {
	if user != "" {
		imported, err := svc.ImportOne(ctx, user)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("Imported %s (%s)\n", imported.Username, imported.ID)
		return 0
	}

	result, err := svc.ImportAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	printSummary(result)
	if result.Failed() > 0 {
		return 1
	}
	return 0
}

// confirm shows what the run would touch before anything is written.
func confirm(ctx context.Context, svc *importer.Service, provider config.Provider, user string) bool {
	opts := svc.Options()

	fmt.Printf("Provider:        %s (%s)\n", provider.Name, provider.LDAP.URL)
	if user != "" {
		fmt.Printf("Selection:       single user %q\n", user)
	} else {
		fmt.Printf("Filter:          %s\n", displayFilter(opts.Filter))
		candidates, err := svc.Candidates(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return false
		}
		fmt.Printf("Candidates:      %d\n", len(candidates))
		for _, obj := range candidates {
			fmt.Printf("  %s\n", obj.DN)
		}
	}
	fmt.Printf("Soft-delete:     %t\n", opts.SoftDeleteDisabled)
	fmt.Printf("Restore:         %t\n", opts.RestoreEnabled)
	fmt.Printf("Delete missing:  %t\n", opts.DeleteMissing)
	fmt.Print("Continue? [y/N]: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func displayFilter(filter string) string {
	if filter == "" {
		return importer.DefaultFilter
	}
	return filter
}

// buildSink assembles the event pipeline: console progress synchronously,
// audit log and email behind a dispatcher so they cannot stall the run.
func buildSink(smtp config.SMTPConfig, noLog bool) (events.Sink, func()) {
	dispatcher := events.NewDispatcher(0)

	if !noLog {
		dispatcher.Register(events.NewSlogSink(slog.Default()))
	}

	if smtp.Host != "" && smtp.To != "" {
		emailSink, err := events.NewEmailSink(events.SMTPConfig{
			Host:     smtp.Host,
			Port:     smtp.Port,
			TLS:      smtp.TLS,
			Username: smtp.Username,
			Password: smtp.Password,
			From:     smtp.From,
		}, smtp.To)
		if err != nil {
			slog.Warn("Failed creating email sink, continuing without it", "err", err)
		} else {
			dispatcher.Register(emailSink)
		}
	}

	return events.MultiSink{consoleSink{}, dispatcher}, dispatcher.Close
}

// consoleSink prints per-object progress for the operator watching the run.
type consoleSink struct{}

func (consoleSink) Notify(event events.Event) {
	switch event.Kind {
	case events.BulkImportStarted:
		fmt.Printf("Importing %d candidate(s)...\n", event.Summary.Candidates)
	case events.Imported:
		fmt.Printf("  created  %s\n", event.User.Username)
	case events.Saved:
		fmt.Printf("  saved    %s\n", event.User.Username)
	case events.ImportFailed:
		fmt.Printf("  FAILED   %s: %v\n", event.Object.DN, event.Err)
	case events.BulkImportDeletedMissing:
		fmt.Printf("  deleted  %d missing user(s)\n", len(event.Deleted))
	}
}

func printSummary(result *importer.Result) {
	fmt.Println()
	fmt.Printf("Candidates:      %d\n", result.Candidates)
	fmt.Printf("Created:         %d\n", result.Created)
	fmt.Printf("Updated:         %d\n", result.Updated)
	fmt.Printf("Restored:        %d\n", result.Restored)
	fmt.Printf("Soft-deleted:    %d\n", result.SoftDeleted)
	fmt.Printf("Deleted missing: %d\n", len(result.DeletedMissing))
	fmt.Printf("Failed:          %d\n", result.Failed())
	for _, failure := range result.Failures {
		fmt.Printf("  %s: %v\n", failure.DN, failure.Err)
	}
}
