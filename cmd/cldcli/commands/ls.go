package commands

import (
	"fmt"

	"github.com/cldc-go/cldc/cmd/cldcli/cmdutil"
	"github.com/cldc-go/cldc/pkg/dirent"
	"github.com/cldc-go/cldc/pkg/wire"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls <path>",
	Short: "List a directory's entries",
	Long: `ls opens path read-only, fetches its contents with GET, and decodes
the packed directory-record format with pkg/dirent.

Examples:
  cldcli ls /shared
  cldcli ls /shared -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runLs,
}

type dirListing struct {
	Path    string   `json:"path" yaml:"path"`
	Entries []string `json:"entries" yaml:"entries"`
}

func (d dirListing) Headers() []string { return []string{"NAME"} }
func (d dirListing) Rows() [][]string {
	rows := make([][]string, 0, len(d.Entries))
	for _, name := range d.Entries {
		rows = append(rows, []string{name})
	}
	return rows
}

func runLs(cmd *cobra.Command, args []string) error {
	path := args[0]

	client, _, err := cmdutil.Connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	fh, err := client.Open(path, wire.OpenRead, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = client.CloseHandle(fh) }()

	result, err := client.Get(fh)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	names, err := dirent.Names(result.Data)
	if err != nil {
		return fmt.Errorf("failed to decode directory %s: %w", path, err)
	}

	listing := dirListing{Path: path, Entries: names}
	return cmdutil.PrintOutput(listing, len(names) == 0, fmt.Sprintf("%s is empty", path), listing)
}
