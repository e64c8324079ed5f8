// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiCyan  = "\033[36m"
	ansiBold  = "\033[1m"
	ansiReset = "\033[0m"
)

func stdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// prompt colors the REPL prompt on a terminal and leaves piped output
// clean for scripting.
func prompt(label string) string {
	if !stdoutIsTerminal() {
		return label
	}
	return ansiBold + ansiCyan + label + ansiReset
}

func printReply(reply string) {
	if stdoutIsTerminal() {
		fmt.Println(ansiCyan + "MoA>" + ansiReset)
	}
	fmt.Println(reply)
}
