package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/cldc-go/cldc/cmd/cldcli/cmdutil"
	"github.com/cldc-go/cldc/internal/cli/output"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session's status",
	Long: `status connects to the configured CLD cluster, waits for the session
to confirm, and reports the server list, user, session status, and session
ID (or the connection error).

Examples:
  cldcli status
  cldcli status -o json`,
	RunE: runStatus,
}

// sessionStatus is the display shape for 'cldcli status'.
type sessionStatus struct {
	Server    string `json:"server" yaml:"server"`
	User      string `json:"user" yaml:"user"`
	SessionID uint64 `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Healthy   bool   `json:"healthy" yaml:"healthy"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (s sessionStatus) Headers() []string { return []string{"FIELD", "VALUE"} }
func (s sessionStatus) Rows() [][]string {
	state := "unreachable"
	if s.Healthy {
		state = "confirmed"
	}
	rows := [][]string{
		{"Server", s.Server},
		{"User", s.User},
		{"Status", state},
	}
	if s.SessionID != 0 {
		rows = append(rows, []string{"Session ID", fmt.Sprintf("%d", s.SessionID)})
	}
	if s.Error != "" {
		rows = append(rows, []string{"Error", s.Error})
	}
	return rows
}

func runStatus(cmd *cobra.Command, args []string) error {
	status := sessionStatus{User: cmdutil.Flags.User}

	client, store, err := cmdutil.Connect()
	if err != nil {
		status.Error = err.Error()
		return printStatus(status)
	}
	defer func() { _ = client.Close() }()

	status.Healthy = true
	status.SessionID = client.Session().SID
	if ctx, cErr := store.GetCurrentContext(); cErr == nil {
		status.Server = strings.Join(ctx.ServerList, ",")
		status.User = ctx.User
		_ = store.UpdateLastSession(status.SessionID, "CONFIRMED")
	}

	return printStatus(status)
}

func printStatus(status sessionStatus) error {
	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		fmt.Println()
		fmt.Println("CLD Session Status")
		fmt.Println("===================")
		fmt.Println()
		return output.PrintTable(os.Stdout, status)
	}
}
