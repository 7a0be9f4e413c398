package commands

import (
	"fmt"

	"github.com/cldc-go/cldc/cmd/cldcli/cmdutil"
	"github.com/cldc-go/cldc/pkg/wire"
	"github.com/spf13/cobra"
)

var (
	locksShared bool
	locksWait   bool
)

var locksCmd = &cobra.Command{
	Use:   "locks",
	Short: "Acquire or release an advisory lock on a path",
}

var locksLockCmd = &cobra.Command{
	Use:   "lock <path>",
	Short: "Acquire an advisory lock",
	Long: `lock opens path, then issues LOCK. A pending response means the
server queued the request because a conflicting lock is held; a later
EVENT(LOCKED) would notify a long-running process, but this one-shot CLI
invocation just reports the pending state and exits.`,
	Args: cobra.ExactArgs(1),
	RunE: runLock,
}

var locksUnlockCmd = &cobra.Command{
	Use:   "unlock <path>",
	Short: "Release an advisory lock",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnlock,
}

func init() {
	locksLockCmd.Flags().BoolVar(&locksShared, "shared", false, "Request a shared (read) lock instead of exclusive")
	locksLockCmd.Flags().BoolVar(&locksWait, "wait", false, "Queue the request if a conflicting lock is held")
	locksCmd.AddCommand(locksLockCmd)
	locksCmd.AddCommand(locksUnlockCmd)
}

func runLock(cmd *cobra.Command, args []string) error {
	path := args[0]

	client, _, err := cmdutil.Connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	fh, err := client.Open(path, wire.OpenRead|wire.OpenWrite, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = client.CloseHandle(fh) }()

	result, err := client.Lock(fh, locksShared, locksWait)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", path, err)
	}

	if result.Pending {
		cmdutil.PrintSuccess(fmt.Sprintf("Lock on %s queued (conflicting lock held)", path))
	} else {
		cmdutil.PrintSuccess(fmt.Sprintf("Locked %s", path))
	}
	return nil
}

func runUnlock(cmd *cobra.Command, args []string) error {
	path := args[0]

	client, _, err := cmdutil.Connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	fh, err := client.Open(path, wire.OpenRead|wire.OpenWrite, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = client.CloseHandle(fh) }()

	if err := client.Unlock(fh); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", path, err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Unlocked %s", path))
	return nil
}
