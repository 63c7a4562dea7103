// Command migrate manages the levy database schema.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/marketlevy/backend/internal/infrastructure/config"
	"github.com/marketlevy/backend/internal/infrastructure/logger"
	"github.com/marketlevy/backend/internal/infrastructure/migration"
	"github.com/marketlevy/backend/migrations"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

type env struct {
	log  *zap.Logger
	dir  string // source tree for create and list
	args []string
	m    *migration.Migrator
}

type command struct {
	usage   string
	help    string
	minArgs int
	usesDB  bool
	run     func(e *env) error
}

var commands = map[string]command{
	"up":   {usage: "up", help: "Apply all pending migrations", usesDB: true, run: func(e *env) error { return e.m.Up() }},
	"down": {usage: "down", help: "Roll back all migrations", usesDB: true, run: func(e *env) error { return e.m.Down() }},
	"step": {usage: "step <n>", help: "Apply n migrations (negative rolls back)", minArgs: 1, usesDB: true, run: func(e *env) error {
		n, err := strconv.Atoi(e.args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q", e.args[0])
		}
		return e.m.Steps(n)
	}},
	"force": {usage: "force <version>", help: "Mark a version applied and clean (after a manual repair)", minArgs: 1, usesDB: true, run: func(e *env) error {
		v, err := strconv.Atoi(e.args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", e.args[0])
		}
		return e.m.Force(v)
	}},
	"status":  {usage: "status", help: "Show the applied version and pending migrations", usesDB: true, run: status},
	"version": {usage: "version", help: "Alias of status", usesDB: true, run: status},
	"create":  {usage: "create <name> [desc]", help: "Create a new up/down file pair", minArgs: 1, run: create},
	"list":    {usage: "list", help: "List migration files in the source tree", run: list},
}

func main() {
	path := flag.String("path", "", "Read migrations from this directory instead of the embedded set")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok || len(args)-1 < cmd.minArgs {
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: *logLevel, Format: "console", TimeFormat: time.DateTime})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	e := &env{log: log, dir: *path, args: args[1:]}
	if e.dir == "" {
		e.dir = defaultMigrationsPath
	}
	if cmd.usesDB {
		m, closeDB, err := openMigrator(*path, log)
		if err != nil {
			log.Fatal("Failed to prepare migrator", zap.Error(err))
		}
		defer closeDB()
		e.m = m
	}

	if err := cmd.run(e); err != nil {
		log.Fatal("Command failed", zap.String("command", args[0]), zap.Error(err))
	}
}

// openMigrator connects with the LEVY_DATABASE_* settings. An empty path
// selects the embedded migration set.
func openMigrator(path string, log *zap.Logger) (*migration.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	var m *migration.Migrator
	if path != "" {
		m, err = migration.New(db, path, log)
	} else {
		m, err = migration.NewFromFS(db, migrations.FS, log)
	}
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return m, func() { _ = m.Close() }, nil
}

func status(e *env) error {
	version, dirty, err := e.m.Version()
	if err != nil {
		return err
	}
	pending, err := e.m.Pending()
	if err != nil {
		return err
	}
	e.log.Info("Levy schema status",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
		zap.Uints("pending", pending),
	)
	if dirty {
		e.log.Warn("Schema is dirty: repair the failed migration, then run force <version>")
	}
	return nil
}

func create(e *env) error {
	desc := ""
	if len(e.args) > 1 {
		desc = e.args[1]
	}
	mf, err := migration.CreateMigration(e.dir, e.args[0], desc, time.Now())
	if err != nil {
		return err
	}
	e.log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func list(e *env) error {
	names, err := migration.ListMigrations(e.dir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		e.log.Info("No migrations found", zap.String("dir", e.dir))
	}
	for _, name := range names {
		fmt.Println("  -", name)
	}
	return nil
}

func printUsage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, "Levy schema migrations\n\nUsage:\n  migrate [flags] <command> [arguments]\n\nCommands:")
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-22s %s\n", commands[name].usage, commands[name].help)
	}
	fmt.Fprintln(os.Stderr, `
Flags:
  -path string       Read migrations from a directory (default: embedded set;
                     create and list use ./migrations)
  -log-level string  debug, info, warn or error (default: info)

Database settings come from LEVY_DATABASE_HOST, LEVY_DATABASE_PORT,
LEVY_DATABASE_USER, LEVY_DATABASE_PASSWORD, LEVY_DATABASE_DBNAME and
LEVY_DATABASE_SSLMODE.`)
}
