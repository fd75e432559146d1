package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"library-catalog/config"
	"library-catalog/library"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// app carries what every command needs once PersistentPreRunE has run.
type app struct {
	cfgPath string
	dbPath  string
	verbose bool

	cfg *config.Config
	log *zap.Logger
	mgr *library.LibraryManager

	in           *bufio.Scanner
	out          io.Writer
	readPassword func(prompt string) (string, error)
}

func newApp(in io.Reader, out io.Writer) *app {
	a := &app{in: bufio.NewScanner(in), out: out}
	a.readPassword = a.promptPassword
	return a
}

// promptPassword reads a password with masking when stdin is a terminal and
// falls back to a plain line otherwise.
func (a *app) promptPassword(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		bytePassword, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		fmt.Fprintln(a.out) // Add newline after password input
		return strings.TrimSpace(string(bytePassword)), nil
	}
	line, ok := a.readLine("")
	if !ok {
		return "", io.ErrUnexpectedEOF
	}
	return line, nil
}

// readLine prints prompt and returns the next trimmed input line.
func (a *app) readLine(prompt string) (string, bool) {
	fmt.Fprint(a.out, prompt)
	if !a.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.in.Text()), true
}

func (a *app) open(cmd *cobra.Command) error {
	if err := config.LoadEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Storage.Path = a.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg

	if a.log, err = cfg.Logging.Logger(a.verbose); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	var catalog *library.Catalog
	if cfg.Catalog.Path != "" {
		catalog, err = library.OpenCatalog(cfg.Catalog.Path)
	} else {
		catalog, err = library.DefaultCatalog()
	}
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	a.mgr, err = library.NewLibraryManager(cfg.Storage.Path, catalog, a.log, library.Options{
		LoanDays:          cfg.Borrowing.LoanDays,
		MinPasswordLength: cfg.Security.MinPasswordLength,
		BcryptCost:        cfg.Security.BcryptCost,
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.log.Debug("storage opened",
		zap.String("command", cmd.Name()),
		zap.String("path", cfg.Storage.Path),
		zap.Int("books", len(catalog.Books())))
	return nil
}

func (a *app) close() {
	if a.mgr != nil {
		if err := a.mgr.Close(); err != nil {
			a.log.Warn("close storage", zap.Error(err))
		}
		a.mgr = nil
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "library",
		Short: "Browse the library catalog, keep favorites and borrow books",
		Long: `library is a single-user catalog client. All state (profile, favorites,
borrowings and preferences) lives in a local key-value store.

Run without arguments to start the interactive shell.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runShell()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.out)

	root.PersistentFlags().StringVar(&a.cfgPath, "config", config.DefaultPath, "config file")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "storage file (overrides config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.booksCmd(),
		a.searchCmd(),
		a.showCmd(),
		a.genresCmd(),
		a.trendingCmd(),
		a.registerCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.profileCmd(),
		a.favoritesCmd(),
		a.borrowCmd(),
		a.borrowingsCmd(),
		a.returnCmd(),
		a.settingsCmd(),
		a.resetCmd(),
	)
	return root
}

func main() {
	a := newApp(os.Stdin, os.Stdout)
	if err := newRootCmd(a).Execute(); err != nil {
		a.close()
		os.Exit(1)
	}
}
