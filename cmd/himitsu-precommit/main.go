// Command himitsu-precommit scans one or more files for secrets by asking
// a running himitsud over its Unix-domain socket, for use as a git
// pre-commit hook.
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	himitsu "github.com/obelisk/himitsu/pkg"
)

const (
	exitClean int = iota
	exitSecretsFound
	exitConnectionFailure
)

func main() {
	var socketPath string

	root := &cobra.Command{
		Use:   "himitsu-precommit [files...]",
		Short: "Scan files for secrets via a running himitsu daemon",
		Args:  cobra.MinimumNArgs(1),
	}
	root.Flags().StringVar(&socketPath, "socket", himitsu.DefaultSocketPath(), "path to the daemon's Unix-domain socket")

	root.RunE = func(cmd *cobra.Command, paths []string) error {
		os.Exit(scanFiles(socketPath, paths))
		return nil
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConnectionFailure)
	}
}

func scanFiles(socketPath string, paths []string) int {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to Himitsu: %v. Socket Path: %s\n", err, socketPath)
		return exitConnectionFailure
	}
	defer conn.Close()

	found := false
	var rows [][]string

	for _, path := range paths {
		contents, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read [%s]: %v\n", path, err)
			return exitConnectionFailure
		}

		if err := himitsu.WriteRequest(conn, himitsu.NewScanCodeDiffRequest(string(contents))); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to send request for [%s]: %v\n", path, err)
			return exitConnectionFailure
		}

		resp, err := himitsu.ReadResponse(conn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read response for [%s]: %v\n", path, err)
			return exitConnectionFailure
		}

		switch {
		case resp.IsClean():
			continue
		case resp.Error != "":
			fmt.Printf("Error: %s\n", resp.Error)
		case resp.SecretsFound != nil:
			found = true
			for _, secret := range resp.SecretsFound {
				fmt.Printf("%s was found by system %s with contents: %s\n", secret.Name, secret.System, secret.Value)
				rows = append(rows, []string{path, secret.Name, secret.Value})
			}
		case resp.SecretsFoundSilent != nil:
			for _, secret := range resp.SecretsFoundSilent {
				fmt.Printf("IGNORING THAT: %s was found by system %s with contents: %s\n", secret.Name, secret.System, secret.Value)
			}
		}
	}

	if found {
		printSummary(rows)
		return exitSecretsFound
	}
	return exitClean
}

func printSummary(rows [][]string) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintln(os.Stderr, "\nHimitsu found secrets that must be resolved before committing:")

	table := tablewriter.NewWriter(os.Stderr)
	table.Header("File", "Rule", "Value")
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
}
