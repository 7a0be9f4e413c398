package commands

import (
	"fmt"

	"github.com/cldc-go/cldc/cmd/cldcli/cmdutil"
	"github.com/cldc-go/cldc/internal/cli/credentials"
	"github.com/cldc-go/cldc/internal/cli/prompt"
	"github.com/spf13/cobra"
)

var (
	loginServer      string
	loginUser        string
	loginContextName string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store credentials for a CLD cluster",
	Long: `login stores the user name and secret key for a CLD cluster under a
named context, so later commands don't need --server/--user on every call.

The secret key is prompted for interactively and never echoed or accepted
as a command-line argument, to keep it out of shell history and process
listings.

Examples:
  cldcli login --server cld1.example.com:30001,cld2.example.com:30001 --user alice
  cldcli login --server cld1.example.com:30001 --user alice --context staging`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginServer, "server", "", "Comma-separated server list")
	loginCmd.Flags().StringVar(&loginUser, "user", "", "CLD user name")
	loginCmd.Flags().StringVar(&loginContextName, "context", "default", "Name to store this context under")
}

func handlePromptErr(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}

func runLogin(cmd *cobra.Command, args []string) error {
	server := loginServer
	if server == "" {
		var err error
		server, err = prompt.InputRequired("Server (host:port[,host:port...])")
		if err != nil {
			return handlePromptErr(err)
		}
	}

	user := loginUser
	if user == "" {
		var err error
		user, err = prompt.InputRequired("User")
		if err != nil {
			return handlePromptErr(err)
		}
	}

	secret, err := prompt.Password("Secret key")
	if err != nil {
		return handlePromptErr(err)
	}

	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	ctx := &credentials.Context{
		ServerList: splitCommaList(server),
		User:       user,
		SecretKey:  secret,
	}
	if err := store.SetContext(loginContextName, ctx); err != nil {
		return fmt.Errorf("failed to save context: %w", err)
	}
	if err := store.UseContext(loginContextName); err != nil {
		return fmt.Errorf("failed to activate context: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Logged in as %s (context %q)", user, loginContextName))
	return nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored secret key for the current context",
	Long: `logout clears the secret key from the current context without
forgetting the server list or user name, so a later 'cldcli login' only
has to resupply the secret.`,
	RunE: runLogout,
}

func runLogout(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	if err := store.ClearSecret(); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}

	cmdutil.PrintSuccess("Logged out")
	return nil
}
