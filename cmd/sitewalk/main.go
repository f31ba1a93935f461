package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sitewalk/cmd/sitewalk/wizard"
	"sitewalk/internal/api"
	"sitewalk/internal/config"
	"sitewalk/internal/domain"
	"sitewalk/internal/inspect"
	"sitewalk/internal/logging"
	"sitewalk/internal/photos"
	"sitewalk/internal/session"
)

// Version is stamped by the release build.
var Version = "dev"

var (
	// Global flags
	verbose    bool
	configPath string
	apiURL     string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sitewalk",
	Short: "sitewalk - terminal facility inspection walkthroughs",
	Long: `sitewalk runs checklist-based facility inspections from the terminal.

Pick a location and a checklist template, walk through every section
grading items pass/fail or 1-5, attach photos and comments, and submit
the weighted result to the inspection service. Failing items offer a
pre-filled maintenance ticket on the spot.

Run without arguments to start a new inspection.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if apiURL != "" {
			cfg.APIBaseURL = apiURL
		}
		if verbose {
			cfg.Verbose = true
		}

		// The interactive wizard owns the terminal; log to a file so
		// zap output does not fight bubbletea for the screen.
		logger, err = logging.NewFile(cfg.StateDir, cfg.Verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWizard("")
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume [inspection-id]",
	Short: "Resume a pending or in-progress inspection",
	Long: `Loads a persisted inspection and re-enters the walkthrough with all
previously recorded grades, comments, and photos in place. A pending
inspection is moved to in-progress on entry.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWizard(args[0])
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store API credentials for the inspection service",
	Long: `Saves the bearer token and user identity used for every API call.
The token is read from --token or the SITEWALK_TOKEN environment
variable and persisted to the state directory.`,
	RunE: runLogin,
}

var (
	loginToken string
	loginUser  string
	loginName  string
	loginRole  string
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := session.New(cfg.StateDir)
		sess.Clear()
		fmt.Println("Signed out.")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sitewalk version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sitewalk %s\n", Version)
	},
}

func runLogin(cmd *cobra.Command, args []string) error {
	token := loginToken
	if token == "" {
		token = os.Getenv("SITEWALK_TOKEN")
	}
	if token == "" {
		return fmt.Errorf("no token given: pass --token or set SITEWALK_TOKEN")
	}
	role := domain.Role(loginRole)

	sess := session.New(cfg.StateDir)
	sess.SetCredentials(token, domain.User{
		ID:   loginUser,
		Name: loginName,
		Role: role,
	})
	if err := sess.Save(); err != nil {
		return err
	}
	fmt.Println("Credentials saved.")
	return nil
}

// runWizard wires the full stack and hands the terminal to bubbletea.
// A non-empty resumeID starts from a persisted inspection instead of
// the selection screen.
func runWizard(resumeID string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New(cfg.StateDir)
	if err := sess.Load(); err != nil {
		return err
	}
	if !sess.Authenticated() {
		return fmt.Errorf("not signed in: run `sitewalk login` first")
	}

	notifier := wizard.NewNotifier()
	client := api.New(api.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.RequestTimeout,
	}, sess, notifier, logger)

	runner := inspect.New(client, sess.User(), notifier, logger)

	var watcher *photos.Watcher
	if cfg.PhotoWatchDir != "" {
		w, err := photos.NewWatcher(cfg.PhotoWatchDir, logger)
		if err != nil {
			logger.Warn("photo watch directory unavailable", zap.Error(err))
		} else {
			watcher = w
		}
	}

	model := wizard.NewModel(ctx, runner, client, notifier, watcher, resumeID, logger)
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("wizard terminated: %w", err)
	}

	if fm, ok := final.(wizard.Model); ok {
		if ferr := fm.FatalErr(); ferr != nil {
			if errors.Is(ferr, api.ErrSessionExpired) {
				return fmt.Errorf("your session has expired: run `sitewalk login` again")
			}
			return ferr
		}
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <state-dir>/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Inspection service base URL (or set SITEWALK_API_URL)")

	loginCmd.Flags().StringVar(&loginToken, "token", "", "Bearer token (or set SITEWALK_TOKEN)")
	loginCmd.Flags().StringVar(&loginUser, "user-id", "", "Your user id on the service")
	loginCmd.Flags().StringVar(&loginName, "name", "", "Display name")
	loginCmd.Flags().StringVar(&loginRole, "role", "inspector", "Role: admin, manager, supervisor, or inspector")

	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
