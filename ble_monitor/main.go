package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/storskegg/ble-roster/internal/scan"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("ble_monitor"),
		kong.Description("Live roster of nearby Bluetooth LE devices."),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	if errors.Is(err, scan.ErrNoAdapter) {
		fmt.Fprintln(os.Stderr, "No usable Bluetooth adapter. Try --source serial --port <device> or --source stdin.")
	}
	ctx.FatalIfErrorf(err)
}
