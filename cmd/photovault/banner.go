package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

const asciiLogo = `
  ____  _           _                         _ _
 |  _ \| |__   ___ | |_ _____   ____ _ _   _| | |_
 | |_) | '_ \ / _ \| __/ _ \ \ / / _' | | | | | __|
 |  __/| | | | (_) | || (_) \ V / (_| | |_| | | |_
 |_|   |_| |_|\___/ \__\___/ \_/ \__,_|\__,_|_|\__|
`

func printBanner() {
	fmt.Print(color.New(color.FgHiMagenta, color.Bold).Sprint(asciiLogo))
	pterm.Println()
	pterm.DefaultBasicText.Println(
		pterm.Gray("  per-user metadata vault · collision detection · remote sync"))
	pterm.Println()
}
