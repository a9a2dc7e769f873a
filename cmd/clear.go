package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/driftshell/driftshell/internal/database"
)

var clearCmd = &cobra.Command{
	Use:   "clear [store...]",
	Short: "Delete stored keys",
	Long: `Delete every key of the named stores, or of all stores when none is named.

Examples:
  driftshell clear
  driftshell clear settings --yes`,
	RunE: runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

func runClear(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		target := "all stored keys"
		if len(args) > 0 {
			target = "all keys in " + strings.Join(args, ", ")
		}
		fmt.Fprintf(out, "This will delete %s. Are you sure? (yes/no): ", target)
		response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		response = strings.TrimSpace(response)
		if response != "yes" && response != "y" {
			fmt.Fprintln(out, "Operation cancelled")
			return nil
		}
	}

	db, err := database.Connect(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Initialize(); err != nil {
		return err
	}
	repo := database.NewRepository(db)

	stores := args
	if len(stores) == 0 {
		summary, err := repo.Summary()
		if err != nil {
			return err
		}
		for _, s := range summary {
			stores = append(stores, s.Store)
		}
	}

	var total int64
	for _, store := range stores {
		n, err := repo.Clear(store)
		if err != nil {
			return err
		}
		total += n
	}
	fmt.Fprintf(out, "Deleted %d keys\n", total)
	return nil
}
