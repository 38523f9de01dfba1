// Command himitsu-shim reads a diff from stdin and forwards it to a
// running himitsud as a single ScanCodeDiff request, for wiring into
// editor or CI hooks that can only pipe text through a process.
package main

import (
	"fmt"
	"io"
	"net"
	"os"

	himitsu "github.com/obelisk/himitsu/pkg"
)

const (
	exitClean int = iota
	exitSecretsFound
	exitConnectionFailure
)

func main() {
	os.Exit(run())
}

func run() int {
	// Himitsu Bypass Block: when set, always exit 0 regardless of outcome.
	bypass := os.Getenv("HBB") != ""

	diff, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to read stdin:", err)
		if bypass {
			return exitClean
		}
		return exitConnectionFailure
	}

	conn, err := net.Dial("unix", himitsu.DefaultSocketPath())
	if err != nil {
		fmt.Println("Failed to connect to Himitsu:", err)
		if bypass {
			return exitClean
		}
		return exitConnectionFailure
	}
	defer conn.Close()

	if err := himitsu.WriteRequest(conn, himitsu.NewScanCodeDiffRequest(string(diff))); err != nil {
		fmt.Println("Failed to send request:", err)
		if bypass {
			return exitClean
		}
		return exitConnectionFailure
	}

	resp, err := himitsu.ReadResponse(conn)
	if err != nil {
		fmt.Println("Failed to read response:", err)
		if bypass {
			return exitClean
		}
		return exitConnectionFailure
	}

	code := exitClean
	switch {
	case resp.IsClean():
		fmt.Println("Himitsu Found No Secrets")
	case resp.Error != "":
		fmt.Println("Error:", resp.Error)
		code = exitConnectionFailure
	case resp.SecretsFound != nil:
		for _, secret := range resp.SecretsFound {
			fmt.Printf("%s was found by system %s with contents: %s\n", secret.Name, secret.System, secret.Value)
		}
		code = exitSecretsFound
	case resp.SecretsFoundSilent != nil:
		for _, secret := range resp.SecretsFoundSilent {
			fmt.Printf("IGNORING THAT: %s was found by system %s with contents: %s\n", secret.Name, secret.System, secret.Value)
		}
	}

	if bypass {
		return exitClean
	}
	return code
}
