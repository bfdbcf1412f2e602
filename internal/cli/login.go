package cli

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/persona/backend/internal/cli/apiclient"
	"github.com/persona/backend/internal/cli/cliconfig"
	"github.com/persona/backend/internal/cli/output"
	"github.com/persona/backend/internal/models"
	"github.com/spf13/cobra"
)

var (
	flagLogin    string
	flagPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with your persona server",
	Long: `Authenticate with a username or email and password.

  persona login --login alice
  persona login --login alice@example.com --password secret

The password is read from stdin when --password is not given.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cliconfig.Clear(); err != nil {
			return fmt.Errorf("clearing config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current authenticated user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		var resp apiclient.Response[models.User]
		if err := apiClient.Get("/auth/me", nil, &resp); err != nil {
			return fmt.Errorf("fetching user: %w", err)
		}

		if flagJSON {
			output.JSON(cmd.OutOrStdout(), resp.Data)
			return nil
		}
		output.UserInfo(cmd.OutOrStdout(), resp.Data)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&flagLogin, "login", "", "Username or email")
	loginCmd.Flags().StringVar(&flagPassword, "password", "", "Password (prompted when omitted)")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(cmd.InOrStdin())
	login := strings.TrimSpace(flagLogin)
	if login == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Username or email: ")
		line, _ := reader.ReadString('\n')
		login = strings.TrimSpace(line)
	}
	password := flagPassword
	if password == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		line, _ := reader.ReadString('\n')
		password = strings.TrimRight(line, "\r\n")
	}
	if login == "" || password == "" {
		return errors.New("login and password are required")
	}

	client := apiclient.NewClient(cfg.ServerURL, "")
	var resp apiclient.Response[apiclient.AuthResult]
	err := client.Post("/auth/login", map[string]string{"login": login, "password": password}, &resp)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return errors.New("invalid credentials")
		}
		return fmt.Errorf("logging in: %w", err)
	}

	cfg.Token = resp.Data.Token
	cfg.Username = resp.Data.User.Username
	if err := cliconfig.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", resp.Data.User.Username, resp.Data.User.Email)
	return nil
}
