// Package cmdutil provides shared utilities for cldcli commands.
package cmdutil

import (
	"fmt"
	"os"
	"time"

	"github.com/cldc-go/cldc/internal/cli/credentials"
	"github.com/cldc-go/cldc/internal/cli/output"
	"github.com/cldc-go/cldc/pkg/discovery"
	"github.com/cldc-go/cldc/pkg/facade"
	"github.com/cldc-go/cldc/pkg/session"
	"github.com/cldc-go/cldc/pkg/transport"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ServerList []string
	User       string
	Output     string
	NoColor    bool
	Verbose    bool
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// PrintOutput prints data in the specified format (JSON, YAML, or table).
func PrintOutput(data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, data)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, data)
	default:
		if isEmpty {
			fmt.Println(emptyMsg)
			return nil
		}
		return output.PrintTable(os.Stdout, tableRenderer)
	}
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(msg string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	output.NewPrinter(os.Stdout, format, !Flags.NoColor).Success(msg)
}

// Connect builds a facade.Client from the current stored context (or the
// --server/--user flag overrides), blocking until the session confirms.
// Callers must Close() the returned client.
func Connect() (*facade.Client, *credentials.Store, error) {
	store, err := credentials.NewStore()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	ctx, err := store.GetCurrentContext()
	if err != nil {
		return nil, nil, fmt.Errorf("not logged in. Run 'cldcli login' first")
	}
	if !ctx.HasSecret() {
		return nil, nil, credentials.ErrNotLoggedIn
	}

	servers := ctx.ServerList
	if len(Flags.ServerList) > 0 {
		servers = Flags.ServerList
	}
	if len(servers) == 0 {
		return nil, nil, fmt.Errorf("no server configured. Run 'cldcli login' first")
	}

	ring, err := discovery.FromServerList(servers, 0, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid server list: %w", err)
	}

	sender, err := transport.NewUDP(transport.UDPOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open transport: %w", err)
	}

	user := ctx.User
	if Flags.User != "" {
		user = Flags.User
	}

	client, err := facade.New(facade.Options{
		User:      user,
		SecretKey: []byte(ctx.SecretKey),
		Hosts:     ring,
		Sender:    sender,
		Config:    session.DefaultConfig(),
	})
	if err != nil {
		_ = sender.Close()
		return nil, nil, fmt.Errorf("failed to start session: %w", err)
	}

	if err := client.WaitConfirmed(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("session did not confirm: %w", err)
	}

	return client, store, nil
}

// FormatDuration renders d the way cldcli's tables do: "-" for zero.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
